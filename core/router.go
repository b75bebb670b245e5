package core

import (
	"bytes"
	"fmt"
	"net/http"
	"os"
	"strconv"
	"strings"

	"github.com/sirupsen/logrus"
)

// Page binds a request path to a template. Data builds the template context
// for one request; a nil Data renders the page with an empty context.
type Page struct {
	Path     string
	Template string
	Data     func(r *http.Request) map[string]any
}

type RuntimeContext struct {
	Env      string
	Pages    []Page
	Renderer *Renderer
	Logger   *logrus.Logger

	// LiveReloadPath, when set, makes every rendered page open a websocket
	// to this path and reload on message.
	LiveReloadPath string
}

type Router struct {
	config         Config
	env            string
	pages          map[string]Page
	renderer       *Renderer
	logger         *logrus.Logger
	liveReloadPath string
}

const liveReloadScript = `<script>(function(){var p=location.protocol==="https:"?"wss://":"ws://";var ws=new WebSocket(p+location.host+%q);ws.onmessage=function(){location.reload()};})();</script>`

var NewRouter = func(config Config, ctx RuntimeContext) http.Handler {
	renderer := ctx.Renderer
	if renderer == nil {
		renderer = NewRenderer(config.TemplatesDir, TemplateFuncs(ctx.Env, config.OutputDir, config.StaticDir))
	}

	logger := ctx.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	pages := make(map[string]Page, len(ctx.Pages))
	for _, page := range ctx.Pages {
		pages[page.Path] = page
	}

	return &Router{
		config:         config,
		env:            ctx.Env,
		pages:          pages,
		renderer:       renderer,
		logger:         logger,
		liveReloadPath: ctx.LiveReloadPath,
	}
}

func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	page, ok := r.pages[req.URL.Path]
	if !ok {
		r.serveMiss(w, req)
		return
	}

	if req.Method != http.MethodGet && req.Method != http.MethodHead {
		w.Header().Set("Allow", "GET, HEAD")
		http.Error(w, http.StatusText(http.StatusMethodNotAllowed), http.StatusMethodNotAllowed)
		return
	}

	routeKey := RouteKey(page.Path)

	if r.config.CacheEnabled && r.serveCached(w, req, page, routeKey) {
		return
	}

	data := map[string]any{}
	if page.Data != nil {
		data = page.Data(req)
	}

	html, err := r.renderer.Render(page.Template, data)
	if err != nil {
		entry := r.logger.WithError(err).WithField("template", page.Template)
		if IsNotFoundError(err) {
			entry.Error("template not found")
		} else {
			entry.Error("render failed")
		}
		msg := http.StatusText(http.StatusInternalServerError)
		if r.env == "dev" || r.config.DebugHeaders {
			msg = "Template error: " + err.Error()
		}
		http.Error(w, msg, http.StatusInternalServerError)
		return
	}

	if r.config.MinifyHTML {
		if minified, err := MinifyHTML(html); err != nil {
			r.logger.WithError(err).WithField("template", page.Template).Warn("html minification skipped")
		} else {
			html = minified
		}
	}

	if r.config.CacheEnabled {
		if err := SaveCachedHTML(r.config, routeKey, html); err != nil {
			r.logger.WithError(err).WithField("route", page.Path).Warn("failed to cache page")
		}
	}

	if r.liveReloadPath != "" {
		html = injectLiveReload(html, r.liveReloadPath)
	}

	if r.config.DebugHeaders {
		w.Header().Set("X-Clovis-Template", page.Template)
		if r.config.CacheEnabled {
			w.Header().Set("X-Clovis-Cache", "MISS")
		}
	}
	writeHTML(w, html)
}

// serveMiss redirects "/page/" to "/page" when "/page" exists and answers
// 404 otherwise.
func (r *Router) serveMiss(w http.ResponseWriter, req *http.Request) {
	trimmed := strings.TrimRight(req.URL.Path, "/")
	if trimmed != req.URL.Path && trimmed != "" {
		if _, ok := r.pages[trimmed]; ok {
			target := trimmed
			if req.URL.RawQuery != "" {
				target += "?" + req.URL.RawQuery
			}
			http.Redirect(w, req, target, http.StatusTemporaryRedirect)
			return
		}
	}
	http.NotFound(w, req)
}

func (r *Router) serveCached(w http.ResponseWriter, req *http.Request, page Page, routeKey string) bool {
	if AcceptsGzip(req) {
		if gzPath, ok := CachedGzipPath(r.config, routeKey); ok {
			if content, err := os.ReadFile(gzPath); err == nil {
				r.setCacheHitHeaders(w, page)
				w.Header().Set("Content-Encoding", "gzip")
				w.Header().Set("Vary", "Accept-Encoding")
				writeHTML(w, content)
				return true
			}
		}
	}

	content, ok := GetCachedHTML(r.config, routeKey)
	if !ok {
		return false
	}
	r.setCacheHitHeaders(w, page)
	writeHTML(w, content)
	return true
}

func (r *Router) setCacheHitHeaders(w http.ResponseWriter, page Page) {
	if r.config.DebugHeaders {
		w.Header().Set("X-Clovis-Template", page.Template)
		w.Header().Set("X-Clovis-Cache", "HIT")
	}
}

func writeHTML(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Content-Length", strconv.Itoa(len(body)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func injectLiveReload(html []byte, path string) []byte {
	script := []byte(fmt.Sprintf(liveReloadScript, path))

	idx := bytes.LastIndex(html, []byte("</body>"))
	if idx == -1 {
		return append(html, script...)
	}

	out := make([]byte, 0, len(html)+len(script))
	out = append(out, html[:idx]...)
	out = append(out, script...)
	return append(out, html[idx:]...)
}

func AcceptsGzip(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept-Encoding"), "gzip")
}
