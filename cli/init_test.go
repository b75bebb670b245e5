package cli

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/urfave/cli/v2"
)

func testSiteFS() fstest.MapFS {
	return fstest.MapFS{
		"clovis.config.yml":             {Data: []byte("outputDir: ./cache\n")},
		"templates/home.html":           {Data: []byte("<h1>home</h1>")},
		"templates/components/nav.html": {Data: []byte("<nav></nav>")},
		"static/style.css":              {Data: []byte("body{}")},
	}
}

func useTestSite(t *testing.T) string {
	t.Helper()
	tmpDir := t.TempDir()

	oldWd, _ := os.Getwd()
	_ = os.Chdir(tmpDir)

	orig := siteFS
	siteFS = testSiteFS()
	t.Cleanup(func() {
		siteFS = orig
		_ = os.Chdir(oldWd)
	})
	return tmpDir
}

func TestCopyEmbeddedDir(t *testing.T) {
	tmpDir := t.TempDir()

	written, skipped, err := copyEmbeddedDir(testSiteFS(), ".", tmpDir, false)
	if err != nil {
		t.Fatalf("unexpected error copying embedded dir: %v", err)
	}
	if len(written) != 4 || len(skipped) != 0 {
		t.Errorf("expected 4 written and 0 skipped, got %d and %d", len(written), len(skipped))
	}

	for name := range testSiteFS() {
		if _, err := os.Stat(filepath.Join(tmpDir, name)); err != nil {
			t.Errorf("expected file %s to exist, but got error: %v", name, err)
		}
	}
}

func TestCopyEmbeddedDir_SkipsExisting(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "clovis.config.yml")
	_ = os.WriteFile(existing, []byte("mine"), 0644)

	_, skipped, err := copyEmbeddedDir(testSiteFS(), ".", tmpDir, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(skipped) != 1 || skipped[0] != "clovis.config.yml" {
		t.Errorf("expected config to be skipped, got %v", skipped)
	}

	data, _ := os.ReadFile(existing)
	if string(data) != "mine" {
		t.Errorf("expected existing file to be untouched, got %q", data)
	}
}

func TestCopyEmbeddedDir_ForceOverwrites(t *testing.T) {
	tmpDir := t.TempDir()
	existing := filepath.Join(tmpDir, "clovis.config.yml")
	_ = os.WriteFile(existing, []byte("mine"), 0644)

	if _, _, err := copyEmbeddedDir(testSiteFS(), ".", tmpDir, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	data, _ := os.ReadFile(existing)
	if !strings.Contains(string(data), "outputDir") {
		t.Errorf("expected file to be overwritten, got %q", data)
	}
}

func TestInitCommand_RunSuccess(t *testing.T) {
	tmpDir := useTestSite(t)

	app := &cli.App{Commands: []*cli.Command{InitCommand}}

	var runErr error
	output := captureOutput(t, func() {
		runErr = app.Run([]string{"cmd", "init"})
	})
	if runErr != nil {
		t.Fatalf("init command failed: %v", runErr)
	}

	if _, err := os.Stat(filepath.Join(tmpDir, "templates", "home.html")); err != nil {
		t.Errorf("expected templates/home.html to exist, got: %v", err)
	}
	if !strings.Contains(output, "4 files written") {
		t.Errorf("expected written count in output, got: %s", output)
	}
}

func TestInitCommand_ReportsSkipped(t *testing.T) {
	tmpDir := useTestSite(t)
	_ = os.MkdirAll(filepath.Join(tmpDir, "static"), 0755)
	_ = os.WriteFile(filepath.Join(tmpDir, "static", "style.css"), []byte("mine"), 0644)

	app := &cli.App{Commands: []*cli.Command{InitCommand}}

	output := captureOutput(t, func() {
		_ = app.Run([]string{"cmd", "init"})
	})

	if !strings.Contains(output, "Skipped existing: "+filepath.Join("static", "style.css")) {
		t.Errorf("expected skipped file in output, got: %s", output)
	}
}
