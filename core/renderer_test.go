package core

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
)

func newTestRenderer(t *testing.T, files map[string]string) (*Renderer, string) {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		writeTempFile(t, dir, name, content)
	}
	return NewRenderer(dir, TemplateFuncs("dev", t.TempDir(), t.TempDir())), dir
}

func TestRenderer_RendersPlainPage(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": `<h1>{{ .User.Name }}</h1><p>{{ .User.Age }}</p>`,
	})

	data := map[string]any{"User": struct {
		Name string
		Age  int
	}{"Clovis", 2}}

	out, err := r.Render("home.html", data)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(out) != "<h1>Clovis</h1><p>2</p>" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRenderer_RendersWithLayoutAndComponents(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"layouts/base.html":      `{{ define "layout" }}<html><body>{{ template "header" . }}{{ template "content" . }}</body></html>{{ end }}`,
		"components/header.html": `{{ define "header" }}<header>Clovis</header>{{ end }}`,
		"about.html": `<!-- layout: layouts/base.html -->
{{ define "content" }}<h1>Sobre</h1>{{ end }}`,
	})

	out, err := r.Render("about.html", nil)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	want := "<html><body><header>Clovis</header><h1>Sobre</h1></body></html>"
	if string(out) != want {
		t.Errorf("expected %q, got %q", want, out)
	}
}

func TestRenderer_EscapesData(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": `<p>{{ .Name }}</p>`,
	})

	out, err := r.Render("home.html", map[string]any{"Name": "<script>"})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if strings.Contains(string(out), "<script>") {
		t.Errorf("expected data to be escaped, got %q", out)
	}
}

func TestRenderer_SprigFuncsAvailable(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": `{{ join ", " .Hobbies }}`,
	})

	out, err := r.Render("home.html", map[string]any{"Hobbies": []string{"dormir", "comer", "arranhar"}})
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(out) != "dormir, comer, arranhar" {
		t.Errorf("unexpected output: %q", out)
	}
}

func TestRenderer_MissingTemplate(t *testing.T) {
	r, _ := newTestRenderer(t, nil)

	_, err := r.Render("missing.html", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound, got %v", err)
	}
}

func TestRenderer_MissingLayout(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": "<!-- layout: layouts/nope.html -->\n{{ define \"content\" }}x{{ end }}",
	})

	_, err := r.Render("home.html", nil)
	if !errors.Is(err, ErrTemplateNotFound) {
		t.Errorf("expected ErrTemplateNotFound for missing layout, got %v", err)
	}
}

func TestRenderer_LayoutWithoutLayoutDefine(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"layouts/base.html": `<html></html>`,
		"home.html":         "<!-- layout: layouts/base.html -->\n{{ define \"content\" }}x{{ end }}",
	})

	if _, err := r.Render("home.html", nil); err == nil {
		t.Error("expected error when layout defines no \"layout\" template")
	}
}

func TestRenderer_ParseError(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": `{{ .Broken `,
	})

	_, err := r.Render("home.html", nil)
	if err == nil || !strings.Contains(err.Error(), "parse home.html") {
		t.Errorf("expected parse error, got %v", err)
	}
}

func TestRenderer_ExecuteError(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": `{{ template "nope" . }}`,
	})

	if _, err := r.Render("home.html", nil); err == nil {
		t.Error("expected execute error")
	}
}

func TestRenderer_CachesUntilReset(t *testing.T) {
	r, dir := newTestRenderer(t, map[string]string{
		"home.html": `v1`,
	})

	out, _ := r.Render("home.html", nil)
	if string(out) != "v1" {
		t.Fatalf("unexpected first render: %q", out)
	}

	if err := os.WriteFile(filepath.Join(dir, "home.html"), []byte("v2"), 0644); err != nil {
		t.Fatal(err)
	}

	out, _ = r.Render("home.html", nil)
	if string(out) != "v1" {
		t.Errorf("expected cached render before Reset, got %q", out)
	}

	r.Reset()

	out, _ = r.Render("home.html", nil)
	if string(out) != "v2" {
		t.Errorf("expected fresh render after Reset, got %q", out)
	}
}

func TestRenderer_ConcurrentRenders(t *testing.T) {
	r, _ := newTestRenderer(t, map[string]string{
		"home.html": `<p>{{ .N }}</p>`,
	})

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			out, err := r.Render("home.html", map[string]any{"N": 2})
			if err != nil {
				errs <- err
				return
			}
			if string(out) != "<p>2</p>" {
				errs <- errors.New("unexpected output: " + string(out))
			}
		}()
		if i%10 == 0 {
			r.Reset()
		}
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
}

func TestLayoutDirective(t *testing.T) {
	tests := map[string]string{
		"<!-- layout: layouts/base.html -->\n<p>x</p>": "layouts/base.html",
		"\n\n  <!-- layout:base.html-->\n":             "base.html",
		"<p>x</p>\n<!-- layout: base.html -->":         "",
		"":                                             "",
		"<!-- just a comment -->":                      "",
	}

	for in, want := range tests {
		if got := LayoutDirective([]byte(in)); got != want {
			t.Errorf("LayoutDirective(%q) = %q, want %q", in, got, want)
		}
	}
}
