package clovis

import (
	"context"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/clovis-web/clovis/core"
	"github.com/clovis-web/clovis/middleware"
)

const (
	staticRoute     = "/static/"
	cacheNoStore    = "no-store"
	cacheImmutable  = "public, max-age=31536000, immutable"
	shutdownTimeout = 5 * time.Second
)

type RuntimeConfig struct {
	Env         string
	EnableCache bool
	Port        int
	ConfigPath  string
}

// ListenAndServe serves handler on addr until ctx is cancelled, then shuts
// the server down gracefully. Tests replace it.
var ListenAndServe = func(ctx context.Context, addr string, handler http.Handler) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to bind to %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

var Exit = os.Exit

// BuildServer assembles the site handler for cfg and returns it with its
// listen address. In dev it also starts a file watcher that lives until
// ctx is cancelled.
func BuildServer(ctx context.Context, cfg RuntimeConfig) (string, http.Handler) {
	configPath := cfg.ConfigPath
	if configPath == "" {
		configPath = core.DefaultConfigPath
	}

	config := core.LoadConfig(configPath)
	config.CacheEnabled = cfg.EnableCache

	logger := core.NewLogger(cfg.Env, config.DebugLogs)
	mux := http.NewServeMux()

	routerCtx := core.RuntimeContext{
		Env:    cfg.Env,
		Pages:  Pages(),
		Logger: logger,
	}

	if cfg.Env == "dev" {
		setupDevStaticRoutes(mux, config.StaticDir)

		reloader := core.NewLiveReloader()
		mux.HandleFunc(core.LiveReloadPath, reloader.Handler)

		renderer := core.NewRenderer(config.TemplatesDir, core.TemplateFuncs(cfg.Env, config.OutputDir, config.StaticDir))
		watcher := core.NewWatcher([]string{config.TemplatesDir, config.StaticDir}, func() {
			renderer.Reset()
			reloader.BroadcastReload()
		}, logger)
		if err := watcher.Start(ctx); err != nil {
			logger.WithError(err).Warn("live reload disabled")
		}

		routerCtx.Renderer = renderer
		routerCtx.LiveReloadPath = core.LiveReloadPath
	} else {
		if config.CacheEnabled {
			if err := core.ClearCachedPages(*config); err != nil {
				logger.WithError(err).Warn("failed to clear cached pages")
			}
		}
		setupProdStaticRoutes(mux, config.StaticDir, filepath.Join(config.OutputDir, "static"))
	}

	mux.Handle("/", core.NewRouter(*config, routerCtx))

	logger.WithField("env", cfg.Env).
		WithField("templates", config.TemplatesDir).
		WithField("static", config.StaticDir).
		WithField("cache", config.CacheEnabled).
		Debug("server built")

	handler := middleware.WithRequestID(middleware.WithLogging(mux, logger))
	return fmt.Sprintf(":%d", cfg.Port), handler
}

// Start serves the site until ctx is cancelled. A server failure exits the
// process with status 1.
var Start = func(ctx context.Context, cfg RuntimeConfig) {
	fmt.Println("Starting Clovis in", cfg.Env, "mode...")

	addr, handler := BuildServer(ctx, cfg)

	fmt.Printf("✅ Clovis running at http://localhost:%d\n", cfg.Port)
	if err := ListenAndServe(ctx, addr, handler); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Server failed: %v\n", err)
		Exit(1)
	}
}

func setupDevStaticRoutes(mux *http.ServeMux, staticDir string) {
	fileServer := http.FileServer(filesOnly{http.Dir(staticDir)})
	mux.Handle(staticRoute, http.StripPrefix(staticRoute, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", cacheNoStore)
		fileServer.ServeHTTP(w, r)
	})))

	for _, name := range []string{"favicon.ico", "robots.txt"} {
		path := filepath.Join(staticDir, name)
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Cache-Control", cacheNoStore)
			http.ServeFile(w, r, path)
		})
	}
}

// filesOnly reports directories as missing, so the dev mount answers 404
// for them the same way the prod handler does.
type filesOnly struct {
	http.FileSystem
}

func (fs filesOnly) Open(name string) (http.File, error) {
	f, err := fs.FileSystem.Open(name)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, err
	}
	if info.IsDir() {
		f.Close()
		return nil, os.ErrNotExist
	}
	return f, nil
}

func setupProdStaticRoutes(mux *http.ServeMux, staticDir, cacheDir string) {
	mux.Handle(staticRoute, makeStaticHandler(staticDir, cacheDir))

	for _, name := range []string{"favicon.ico", "robots.txt"} {
		path := filepath.Join(staticDir, name)
		mux.HandleFunc("/"+name, func(w http.ResponseWriter, r *http.Request) {
			if !fileExists(path) {
				http.NotFound(w, r)
				return
			}
			serveFileWithHeaders(w, r, path, cacheImmutable)
		})
	}
}

// makeStaticHandler serves /static/<path> in prod, preferring the gzip'ed
// minified copy in cacheDir, then the cached copy, then the source file.
func makeStaticHandler(staticDir, cacheDir string) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rel := strings.TrimPrefix(r.URL.Path, staticRoute)
		if rel == "" {
			http.NotFound(w, r)
			return
		}
		if strings.Contains(rel, "..") || !filepath.IsLocal(filepath.FromSlash(rel)) {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
		rel = filepath.FromSlash(rel)

		cachedFile := filepath.Join(cacheDir, rel)
		gzipFile := cachedFile + ".gz"

		if core.AcceptsGzip(r) && fileExists(gzipFile) {
			w.Header().Set("Content-Type", detectMimeType(cachedFile))
			w.Header().Set("Content-Encoding", "gzip")
			w.Header().Set("Vary", "Accept-Encoding")
			serveFileWithHeaders(w, r, gzipFile, cacheImmutable)
			return
		}

		if fileExists(cachedFile) {
			serveFileWithHeaders(w, r, cachedFile, cacheImmutable)
			return
		}

		staticFile := filepath.Join(staticDir, rel)
		if fileExists(staticFile) {
			serveFileWithHeaders(w, r, staticFile, cacheImmutable)
			return
		}

		http.NotFound(w, r)
	})
}

// serveFileWithHeaders serves a regular file. A Content-Type already set on
// w is kept; otherwise it is derived from the file name.
func serveFileWithHeaders(w http.ResponseWriter, r *http.Request, path, cacheControl string) {
	f, err := os.Open(path)
	if err != nil {
		http.NotFound(w, r)
		return
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil || info.IsDir() {
		http.NotFound(w, r)
		return
	}

	if w.Header().Get("Content-Type") == "" {
		w.Header().Set("Content-Type", detectMimeType(path))
	}
	w.Header().Set("Cache-Control", cacheControl)
	http.ServeContent(w, r, info.Name(), info.ModTime(), f)
}

var mimeTypes = map[string]string{
	".css":   "text/css",
	".js":    "application/javascript",
	".webp":  "image/webp",
	".svg":   "image/svg+xml",
	".png":   "image/png",
	".jpg":   "image/jpeg",
	".jpeg":  "image/jpeg",
	".woff":  "font/woff",
	".woff2": "font/woff2",
	".ico":   "image/x-icon",
}

func detectMimeType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	if ct, ok := mimeTypes[ext]; ok {
		return ct
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}
