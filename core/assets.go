package core

import (
	"bytes"
	"compress/gzip"
	"crypto/md5"
	"encoding/hex"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/Masterminds/sprig/v3"
	"github.com/tdewolff/minify/v2"
	mincss "github.com/tdewolff/minify/v2/css"
	minhtml "github.com/tdewolff/minify/v2/html"
	minjs "github.com/tdewolff/minify/v2/js"
)

const staticPrefix = "/static/"

func newMinifier() *minify.M {
	m := minify.New()
	m.AddFunc("text/css", mincss.Minify)
	m.AddFunc("application/javascript", minjs.Minify)
	m.Add("text/html", &minhtml.Minifier{
		KeepDocumentTags: true,
		KeepEndTags:      true,
		KeepQuotes:       true,
	})
	return m
}

// MinifyAsset returns the URL to use for a /static/ css or js asset. In prod
// the asset is minified into cacheDir/static with a gzip sibling and the
// returned URL carries a content hash; anything else is returned unchanged.
func MinifyAsset(env, path, cacheDir, staticDir string) string {
	if env != "prod" {
		return path
	}

	ext := filepath.Ext(path)
	base := filepath.Base(path)
	name := strings.TrimSuffix(base, ext)

	if ext != ".css" && ext != ".js" {
		return path
	}

	if strings.Contains(name, ".min") {
		return path
	}

	rel := strings.TrimPrefix(path, staticPrefix)
	src := filepath.Join(staticDir, rel)
	minName := fmt.Sprintf("%s.min%s", name, ext)
	min := filepath.Join(cacheDir, "static", filepath.Dir(rel), minName)

	original, err := os.ReadFile(src)
	if err != nil {
		return path
	}

	mediaType := "text/css"
	if ext == ".js" {
		mediaType = "application/javascript"
	}

	var buf bytes.Buffer
	if err := newMinifier().Minify(mediaType, &buf, bytes.NewReader(original)); err != nil {
		return path
	}
	minified := buf.Bytes()

	if err := os.MkdirAll(filepath.Dir(min), os.ModePerm); err != nil {
		return path
	}
	if err := writeFileAtomic(min, minified); err != nil {
		return path
	}
	if err := writeGzip(min+".gz", minified); err != nil {
		return path
	}

	url := staticPrefix + filepath.ToSlash(filepath.Join(filepath.Dir(rel), minName))
	return fmt.Sprintf("%s?v=%s", url, contentHash(minified))
}

// MinifyHTML minifies a rendered page.
func MinifyHTML(page []byte) ([]byte, error) {
	var buf bytes.Buffer
	if err := newMinifier().Minify("text/html", &buf, bytes.NewReader(page)); err != nil {
		return nil, fmt.Errorf("minify html: %w", err)
	}
	return buf.Bytes(), nil
}

// TemplateFuncs is the func map available to every page: the sprig HTML
// funcs plus the clovis asset helpers.
func TemplateFuncs(env, cacheDir, staticDir string) template.FuncMap {
	funcs := sprig.HtmlFuncMap()

	var minified sync.Map
	funcs["minify"] = func(path string) string {
		if url, ok := minified.Load(path); ok {
			return url.(string)
		}
		url := MinifyAsset(env, path, cacheDir, staticDir)
		if url != path {
			minified.Store(path, url)
		}
		return url
	}
	funcs["props"] = func(values ...interface{}) map[string]interface{} {
		if len(values)%2 != 0 {
			panic("props must be called with even number of arguments")
		}
		m := make(map[string]interface{}, len(values)/2)
		for i := 0; i < len(values); i += 2 {
			key, ok := values[i].(string)
			if !ok {
				panic("props keys must be strings")
			}
			m[key] = values[i+1]
		}
		return m
	}
	funcs["safeHTML"] = func(s interface{}) template.HTML {
		switch val := s.(type) {
		case template.HTML:
			return val
		case string:
			return template.HTML(val)
		default:
			return ""
		}
	}
	funcs["versioned"] = func(path string) string {
		if !strings.HasPrefix(path, staticPrefix) {
			return path
		}

		rel := strings.TrimPrefix(path, staticPrefix)
		locations := []string{
			filepath.Join(staticDir, rel),
			filepath.Join(cacheDir, "static", rel),
		}

		for _, file := range locations {
			if content, err := os.ReadFile(file); err == nil {
				return fmt.Sprintf("%s%s?v=%s", staticPrefix, rel, contentHash(content))
			}
		}

		return path
	}

	return funcs
}

func contentHash(content []byte) string {
	sum := md5.Sum(content)
	return hex.EncodeToString(sum[:])[:6]
}

func writeGzip(path string, content []byte) error {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	if _, err := gz.Write(content); err != nil {
		return err
	}
	if err := gz.Close(); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

// writeFileAtomic replaces path in one rename so concurrent readers never
// see a partial file.
func writeFileAtomic(path string, content []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".tmp*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Chmod(tmpName, 0644); err != nil {
		os.Remove(tmpName)
		return err
	}
	return os.Rename(tmpName, path)
}
