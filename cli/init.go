package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/clovis-web/clovis"
	"github.com/urfave/cli/v2"
)

var siteFS fs.FS = clovis.Site

var InitCommand = &cli.Command{
	Name:  "init",
	Usage: "Write the starter site (templates, static files, config) into the current directory",
	Flags: []cli.Flag{
		&cli.BoolFlag{Name: "force", Usage: "overwrite files that already exist"},
	},
	Action: func(c *cli.Context) error {
		targetDir, err := os.Getwd()
		if err != nil {
			return fmt.Errorf("failed to resolve working directory: %w", err)
		}
		fmt.Println("🚀 Creating Clovis site in:", targetDir)

		written, skipped, err := copyEmbeddedDir(siteFS, ".", targetDir, c.Bool("force"))
		if err != nil {
			return fmt.Errorf("failed to create site: %w", err)
		}

		for _, rel := range skipped {
			fmt.Println("⏭️  Skipped existing:", rel)
		}

		fmt.Printf("✅ Site created (%d files written).\n", len(written))
		fmt.Println("▶  Run: clovis dev")
		return nil
	},
}

// copyEmbeddedDir copies sourceDir from source into targetDir. Existing
// files are left alone unless force is set.
func copyEmbeddedDir(source fs.FS, sourceDir, targetDir string, force bool) (written, skipped []string, err error) {
	err = fs.WalkDir(source, sourceDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(sourceDir, path)
		if err != nil {
			return err
		}
		if rel == "." {
			return nil
		}

		targetPath := filepath.Join(targetDir, rel)

		if d.IsDir() {
			return os.MkdirAll(targetPath, os.ModePerm)
		}

		if _, err := os.Stat(targetPath); err == nil && !force {
			skipped = append(skipped, rel)
			return nil
		}

		data, err := fs.ReadFile(source, path)
		if err != nil {
			return err
		}

		if err := os.MkdirAll(filepath.Dir(targetPath), os.ModePerm); err != nil {
			return err
		}

		if err := os.WriteFile(targetPath, data, 0644); err != nil {
			return err
		}
		written = append(written, rel)
		return nil
	})
	return written, skipped, err
}
