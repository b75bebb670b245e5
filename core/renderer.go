package core

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

const (
	layoutDirectivePrefix = "<!-- layout:"
	layoutDirectiveSuffix = "-->"
	layoutTemplateName    = "layout"
	componentsDir         = "components"
)

// Renderer executes page templates from a templates directory. A page may
// name a layout on its first non-blank line with <!-- layout: path -->, in
// which case the layout's "layout" template is executed. Every file in
// components/ is parsed alongside the page.
//
// Parsed pages are kept until Reset is called.
type Renderer struct {
	dir   string
	funcs template.FuncMap

	mu    sync.RWMutex
	pages map[string]*compiledPage
}

type compiledPage struct {
	tmpl  *template.Template
	entry string
}

func NewRenderer(dir string, funcs template.FuncMap) *Renderer {
	return &Renderer{
		dir:   dir,
		funcs: funcs,
		pages: make(map[string]*compiledPage),
	}
}

// Render executes the named page with data and returns the markup. Nothing
// is returned on error, so callers never send half a page.
func (r *Renderer) Render(name string, data any) ([]byte, error) {
	page, err := r.lookup(name)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := page.tmpl.ExecuteTemplate(&buf, page.entry, data); err != nil {
		return nil, fmt.Errorf("execute %s: %w", name, err)
	}
	return buf.Bytes(), nil
}

// Reset drops every parsed page so the next Render reads from disk again.
func (r *Renderer) Reset() {
	r.mu.Lock()
	r.pages = make(map[string]*compiledPage)
	r.mu.Unlock()
}

func (r *Renderer) lookup(name string) (*compiledPage, error) {
	r.mu.RLock()
	page, ok := r.pages[name]
	r.mu.RUnlock()
	if ok {
		return page, nil
	}

	page, err := r.compile(name)
	if err != nil {
		return nil, err
	}

	r.mu.Lock()
	r.pages[name] = page
	r.mu.Unlock()
	return page, nil
}

func (r *Renderer) compile(name string) (*compiledPage, error) {
	content, err := r.readTemplate(name)
	if err != nil {
		return nil, err
	}

	root := template.New(name).Funcs(r.funcs)
	if _, err := root.Parse(string(content)); err != nil {
		return nil, fmt.Errorf("parse %s: %w", name, err)
	}

	entry := name
	if layout := LayoutDirective(content); layout != "" {
		layoutContent, err := r.readTemplate(layout)
		if err != nil {
			return nil, err
		}
		if _, err := root.New(layout).Parse(string(layoutContent)); err != nil {
			return nil, fmt.Errorf("parse layout %s: %w", layout, err)
		}
		entry = layoutTemplateName
	}

	components, err := filepath.Glob(filepath.Join(r.dir, componentsDir, "*.html"))
	if err != nil {
		return nil, err
	}
	for _, path := range components {
		componentContent, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read component %s: %w", path, err)
		}
		rel := filepath.ToSlash(filepath.Join(componentsDir, filepath.Base(path)))
		if _, err := root.New(rel).Parse(string(componentContent)); err != nil {
			return nil, fmt.Errorf("parse component %s: %w", rel, err)
		}
	}

	if root.Lookup(entry) == nil {
		return nil, fmt.Errorf("%s: no %q template defined", name, entry)
	}

	return &compiledPage{tmpl: root, entry: entry}, nil
}

func (r *Renderer) readTemplate(name string) ([]byte, error) {
	content, err := os.ReadFile(filepath.Join(r.dir, filepath.FromSlash(name)))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%s: %w", name, ErrTemplateNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return content, nil
}

// LayoutDirective returns the layout named on the first non-blank line of a
// page, or "" when the page has none.
func LayoutDirective(content []byte) string {
	scanner := bufio.NewScanner(bytes.NewReader(content))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if strings.HasPrefix(line, layoutDirectivePrefix) && strings.HasSuffix(line, layoutDirectiveSuffix) {
			return strings.TrimSpace(strings.TrimSuffix(strings.TrimPrefix(line, layoutDirectivePrefix), layoutDirectiveSuffix))
		}
		return ""
	}
	return ""
}
