package core

import (
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// RouteKey maps a request path to its directory under the output dir.
// The root page maps to the output dir itself.
func RouteKey(path string) string {
	return filepath.FromSlash(strings.Trim(path, "/"))
}

func cachedHTMLPath(config Config, routeKey string) string {
	return filepath.Join(config.OutputDir, routeKey, "index.html")
}

func GetCachedHTML(config Config, routeKey string) ([]byte, bool) {
	content, err := os.ReadFile(cachedHTMLPath(config, routeKey))
	if err != nil {
		return nil, false
	}
	return content, true
}

// CachedGzipPath returns the path of the gzip'ed copy of a cached page if
// one exists.
func CachedGzipPath(config Config, routeKey string) (string, bool) {
	gzPath := cachedHTMLPath(config, routeKey) + ".gz"
	if _, err := os.Stat(gzPath); err != nil {
		return "", false
	}
	return gzPath, true
}

func SaveCachedHTML(config Config, routeKey string, html []byte) error {
	htmlPath := cachedHTMLPath(config, routeKey)
	if err := os.MkdirAll(filepath.Dir(htmlPath), os.ModePerm); err != nil {
		return err
	}

	if err := writeFileAtomic(htmlPath, html); err != nil {
		return err
	}

	return writeGzip(htmlPath+".gz", html)
}

// ClearCachedPages removes every cached page (index.html and its .gz) under
// the output dir. Minified assets in the static subdir are kept.
func ClearCachedPages(config Config) error {
	staticDir := filepath.Join(config.OutputDir, "static")

	err := filepath.WalkDir(config.OutputDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if path == staticDir {
				return filepath.SkipDir
			}
			return nil
		}

		switch d.Name() {
		case "index.html", "index.html.gz":
			return os.Remove(path)
		}
		return nil
	})
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
