package devserver

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/klauspost/compress/gzhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/benchtools/benchpress/internal/assets"
	"github.com/benchtools/benchpress/internal/buildconfig"
	"github.com/benchtools/benchpress/internal/logger"
)

// assetMountPath is where built bundles are served. It mirrors the fixed
// public/frontend tail of the output directory, matching the URLs the asset
// pipeline writes into script tags.
const assetMountPath = "/public/frontend/"

// Server is the development HTTP server: it serves the built frontend and
// forwards backend routes to the site's web server.
type Server struct {
	cfg      *buildconfig.BuildConfiguration
	pipeline *assets.Pipeline
	log      zerolog.Logger
}

// New creates a dev server for a resolved configuration and a built pipeline.
func New(cfg *buildconfig.BuildConfiguration, pipeline *assets.Pipeline, log zerolog.Logger) *Server {
	return &Server{
		cfg:      cfg,
		pipeline: pipeline,
		log:      log,
	}
}

// Handler assembles the dev-server routing table.
func (s *Server) Handler() (http.Handler, error) {
	mux := http.NewServeMux()

	// Built assets, gzip-compressed.
	files := http.StripPrefix(assetMountPath,
		http.FileServer(http.Dir(s.cfg.BuildOutput.OutputDirectory)))
	mux.Handle(assetMountPath, gzhttp.GzipHandler(files))

	// Backend routes go to the site web server.
	origins := []string{
		fmt.Sprintf("http://localhost:%d", s.cfg.DevServer.Port),
		fmt.Sprintf("http://127.0.0.1:%d", s.cfg.DevServer.Port),
	}
	seen := make(map[string]bool, len(s.cfg.DevServer.ProxyRules))
	for _, rule := range s.cfg.DevServer.ProxyRules {
		if seen[rule.Prefix] {
			return nil, fmt.Errorf("duplicate proxy rule %s", rule.Prefix)
		}
		seen[rule.Prefix] = true
		proxy, err := newProxyHandler(rule, s.log)
		if err != nil {
			return nil, fmt.Errorf("proxy rule %s: %w", rule.Prefix, err)
		}
		handler := withCORS(origins, proxy)
		mux.Handle(rule.Prefix+"/", handler)
		mux.Handle(rule.Prefix, handler)
	}

	// Everything else renders the entry page, so client-side routes work
	// on refresh.
	entries, err := s.pipeline.EntryPoints()
	if err != nil {
		return nil, err
	}
	if len(entries) == 0 {
		return nil, errors.New("build produced no entry points")
	}
	mux.HandleFunc("/", s.pipeline.Handler(s.pipeline.TemplateName(), "benchpress dev", entries[0], nil))

	return logger.NewHTTPRequests(s.log)(mux), nil
}

// Start waits for the backend, then serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	if err := s.waitForBackend(ctx); err != nil {
		return err
	}

	handler, err := s.Handler()
	if err != nil {
		return err
	}

	addr := fmt.Sprintf("127.0.0.1:%d", s.cfg.DevServer.Port)
	srv := configureHTTPServer(addr, handler)

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Error().Err(err).Msg("Failed to shut down dev server")
		}
	}()

	s.log.Info().Str("addr", addr).Msg("Dev server listening")
	if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Rebuild re-runs the asset pipeline, used by the watcher on source changes.
func (s *Server) Rebuild() {
	if err := s.pipeline.Build(); err != nil {
		s.log.Error().Err(err).Msg("Rebuild failed")
	}
}

func configureHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: time.Second,
		ReadTimeout:       5 * time.Minute,
		WriteTimeout:      5 * time.Minute,
		IdleTimeout:       5 * time.Minute,
		MaxHeaderBytes:    8 * 1024, // 8KiB
	}
}

// withCORS adds CORS support for browser requests hitting proxied routes.
func withCORS(allowedOrigins []string, h http.Handler) http.Handler {
	middleware := cors.New(cors.Options{
		AllowedOrigins:   allowedOrigins,
		AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Frappe-CSRF-Token", "X-Frappe-Site-Name"},
		AllowCredentials: true, // Required for cookie-based sessions
	})
	return middleware.Handler(h)
}
