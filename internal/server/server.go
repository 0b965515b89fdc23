// Package server exposes flowmap sessions over a JSON HTTP API.
//
// Every client gets its own interaction session, tracked by a signed
// cookie holding a session id. Sessions start from the catalog and layout
// current at creation time; a catalog reload only affects new sessions.
package server

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/sessions"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/flowmap/pkg/catalog"
	"github.com/matzehuels/flowmap/pkg/layout"
	"github.com/matzehuels/flowmap/pkg/pipeline"
	"github.com/matzehuels/flowmap/pkg/session"
)

const (
	cookieName   = "flowmap"
	cookieKey    = "sid"
	cleanupEvery = time.Minute
)

// Config configures a Server.
type Config struct {
	Addr          string
	SessionSecret string
	SessionTTL    time.Duration

	// Watch reloads the catalog file when it changes on disk.
	Watch bool

	// SecureCookies marks the session cookie Secure. Browsers then only
	// send it over HTTPS.
	SecureCookies bool

	// Options selects the catalog source and the layout and highlight
	// settings applied to every session.
	Options pipeline.Options

	Runner  *pipeline.Runner
	Logger  *log.Logger
	Metrics http.Handler
}

// snapshot is the catalog new sessions start from.
type snapshot struct {
	catalog *catalog.Catalog
	layout  layout.Result
	loaded  time.Time
}

// Server serves the flowmap API.
type Server struct {
	cfg     Config
	runner  *pipeline.Runner
	logger  *log.Logger
	store   *session.MemoryStore
	cookies *sessions.CookieStore
	current atomic.Pointer[snapshot]
	router  chi.Router
}

// New loads the catalog, computes its layout and builds the router.
func New(ctx context.Context, cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = log.Default()
	}
	if cfg.Runner == nil {
		cfg.Runner = pipeline.NewRunner(nil, nil, cfg.Logger)
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = session.DefaultTTL
	}
	if cfg.Options.Logger == nil {
		cfg.Options.Logger = cfg.Logger
	}
	if err := cfg.Options.ValidateForLayout(); err != nil {
		return nil, err
	}

	secret := []byte(cfg.SessionSecret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, fmt.Errorf("generate session secret: %w", err)
		}
		cfg.Logger.Warn("no session secret configured, sessions will not survive a restart")
	}
	cookies := sessions.NewCookieStore(secret)
	cookies.Options.Path = "/"
	cookies.Options.MaxAge = int(cfg.SessionTTL.Seconds())
	cookies.Options.HttpOnly = true
	cookies.Options.SameSite = http.SameSiteLaxMode
	cookies.Options.Secure = cfg.SecureCookies

	s := &Server{
		cfg:     cfg,
		runner:  cfg.Runner,
		logger:  cfg.Logger,
		store:   session.NewMemoryStore(cfg.SessionTTL),
		cookies: cookies,
	}
	if err := s.Reload(ctx); err != nil {
		return nil, err
	}
	s.router = s.routes()
	return s, nil
}

// Handler returns the HTTP handler.
func (s *Server) Handler() http.Handler { return s.router }

// Sessions returns the session store.
func (s *Server) Sessions() session.Store { return s.store }

// Catalog returns the catalog new sessions start from.
func (s *Server) Catalog() *catalog.Catalog { return s.current.Load().catalog }

// Reload loads the catalog again and computes its layout. On failure the
// previous catalog stays in place.
func (s *Server) Reload(ctx context.Context) error {
	cat, err := s.runner.LoadCatalog(ctx, s.cfg.Options)
	if err != nil {
		return err
	}
	res, err := s.runner.ComputeLayout(ctx, cat, s.cfg.Options)
	if err != nil {
		return err
	}
	prev := s.current.Swap(&snapshot{catalog: cat, layout: res, loaded: time.Now()})
	if prev != nil && prev.catalog.Version() != cat.Version() {
		s.logger.Info("catalog reloaded", "version", cat.Version()[:12], "services", len(cat.Services()))
	}
	return nil
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))

	r.Get("/health", s.handleHealth)
	if s.cfg.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.cfg.Metrics)
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/catalog", s.handleCatalog)
		r.Get("/layout", s.handleLayout)

		r.Group(func(r chi.Router) {
			r.Use(s.withSession)

			r.Get("/scene", s.handleScene)
			r.Get("/scene.svg", s.handleSceneArtifact(pipeline.FormatSVG, "image/svg+xml"))
			r.Get("/scene.dot", s.handleSceneArtifact(pipeline.FormatDOT, "text/vnd.graphviz"))
			r.Post("/selection", s.handleSelect)
			r.Delete("/selection", s.handleClearSelection)
			r.Post("/layout/reset", s.handleResetLayout)

			r.Route("/gestures", func(r chi.Router) {
				r.Post("/drag", s.handleDrag)
				r.Post("/release", s.handleRelease)
				r.Post("/node-click", s.handleNodeClick)
				r.Post("/edge-click", s.handleEdgeClick)
				r.Post("/pane-click", s.handlePaneClick)
				r.Post("/connect", s.handleConnect)
			})
		})
	})
	return r
}

// Serve listens on cfg.Addr until ctx is cancelled, then shuts down
// gracefully. It also expires idle sessions and, when enabled, watches the
// catalog file.
func (s *Server) Serve(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", s.cfg.Addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener is Serve on an existing listener.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	g.Go(func() error {
		s.logger.Info("serving", "addr", ln.Addr().String(), "catalog", s.cfg.Options.Source())
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		return session.RunCleanup(ctx, s.store, cleanupEvery, func(n int) {
			s.logger.Debug("expired sessions", "removed", n, "active", s.store.Len())
		})
	})

	if s.cfg.Watch && s.cfg.Options.Source() == "file" {
		g.Go(func() error { return s.watch(ctx) })
	}

	return g.Wait()
}
