package cli

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/clovis-web/clovis/core"
	"github.com/segmentio/encoding/json"
	"github.com/urfave/cli/v2"
)

type siteInfo struct {
	TemplatesDir string `json:"templatesDir"`
	StaticDir    string `json:"staticDir"`
	OutputDir    string `json:"outputDir"`
	CacheEnabled bool   `json:"cache"`
	DebugHeaders bool   `json:"debugHeaders"`
	DebugLogs    bool   `json:"debugLogs"`
	MinifyHTML   bool   `json:"minifyHTML"`
	Pages        int    `json:"pages"`
	Templates    int    `json:"templates"`
	Components   int    `json:"components"`
	StaticFiles  int    `json:"staticFiles"`
	CachedPages  int    `json:"cachedPages"`
}

var InfoCommand = &cli.Command{
	Name:  "info",
	Usage: "Print site structure and cache summary",
	Flags: []cli.Flag{
		configFlag(),
		&cli.BoolFlag{Name: "json", Usage: "print the summary as JSON"},
	},
	Action: func(c *cli.Context) error {
		config := core.LoadConfig(c.String("config"))
		info := collectInfo(config)

		if c.Bool("json") {
			out, err := json.MarshalIndent(info, "", "  ")
			if err != nil {
				return fmt.Errorf("failed to encode info: %w", err)
			}
			fmt.Println(string(out))
			return nil
		}

		fmt.Println("📁 Templates Directory:", info.TemplatesDir)
		fmt.Println("📁 Static Directory:", info.StaticDir)
		fmt.Println("📁 Output Directory:", info.OutputDir)
		fmt.Println("🔁 Cache Enabled:", info.CacheEnabled)
		fmt.Println("🔁 Debug Headers Enabled:", info.DebugHeaders)
		fmt.Println("🔁 Debug Logs Enabled:", info.DebugLogs)
		fmt.Println("🔁 Minify HTML Enabled:", info.MinifyHTML)
		fmt.Println()
		fmt.Println("🗂️  Pages:", info.Pages)
		fmt.Println("📄 Templates Found:", info.Templates)
		fmt.Println("📦 Components Found:", info.Components)
		fmt.Println("🖼️  Static Files:", info.StaticFiles)
		fmt.Println("💾 Cached Pages:", info.CachedPages)
		return nil
	},
}

func collectInfo(config *core.Config) siteInfo {
	componentsDir := filepath.Join(config.TemplatesDir, "components")

	return siteInfo{
		TemplatesDir: config.TemplatesDir,
		StaticDir:    config.StaticDir,
		OutputDir:    config.OutputDir,
		CacheEnabled: config.CacheEnabled,
		DebugHeaders: config.DebugHeaders,
		DebugLogs:    config.DebugLogs,
		MinifyHTML:   config.MinifyHTML,
		Pages:        len(sitePages()),
		Templates:    countFiles(config.TemplatesDir, isHTML),
		Components:   countFiles(componentsDir, isHTML),
		StaticFiles:  countFiles(config.StaticDir, func(string) bool { return true }),
		CachedPages: countFiles(config.OutputDir, func(path string) bool {
			return filepath.Base(path) == "index.html"
		}),
	}
}

func isHTML(path string) bool {
	return strings.HasSuffix(path, ".html")
}

func countFiles(root string, match func(string) bool) int {
	count := 0
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if path == root {
				return err
			}
			return nil
		}
		if !d.IsDir() && match(path) {
			count++
		}
		return nil
	})
	return count
}
