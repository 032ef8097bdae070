// Package server assembles the HTTP API over the risk engine, shelter
// locator, and tile responder.
package server

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/tokyo-dap/riskmap/internal/config"
	"github.com/tokyo-dap/riskmap/internal/risk"
	"github.com/tokyo-dap/riskmap/internal/shelter"
	"github.com/tokyo-dap/riskmap/internal/tiles"
)

// Server wires the HTTP routes to the domain components.
type Server struct {
	cfg     *config.Config
	engine  *risk.Engine
	locator *shelter.Locator
	tileh   *tiles.Handler
	mode    string
}

// New creates a Server. tileh may be built over a nil archive, in which case
// the tile routes serve empty responses and /config reports tiles disabled.
func New(cfg *config.Config, engine *risk.Engine, locator *shelter.Locator, tileh *tiles.Handler, mode string) *Server {
	return &Server{cfg: cfg, engine: engine, locator: locator, tileh: tileh, mode: mode}
}

// Router builds the chi route tree.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(requestLogger)
	r.Use(middleware.Recoverer)
	if s.cfg.Server.RateLimit > 0 {
		limiter := rate.NewLimiter(rate.Limit(s.cfg.Server.RateLimit), s.cfg.Server.RateBurst)
		r.Use(rateLimit(limiter))
	}
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		AllowedHeaders: []string{"*"},
	}))

	r.Get("/health", s.handleHealth)
	r.Get("/config", s.handleConfig)

	r.Route("/risk", func(r chi.Router) {
		r.Get("/score", s.handleRiskScore)
		r.Get("/heatmap/tiles/{z}/{x}/{y}.pbf", s.tileh.ServeHTTP)
	})
	r.Get("/shelters/nearby", s.handleSheltersNearby)
	r.Get("/tiles/stats", s.tileh.StatsHandler)

	// Static frontend and raw data mounts, only when the directories exist.
	if dir := s.cfg.Server.StaticDir; dirExists(dir) {
		fs := http.StripPrefix("/static/", http.FileServer(http.Dir(dir)))
		r.Get("/static/*", fs.ServeHTTP)
		r.Get("/", func(w http.ResponseWriter, req *http.Request) {
			http.ServeFile(w, req, dir+"/index.html")
		})
	}
	if dir := s.cfg.Server.DataDir; dirExists(dir) {
		fs := http.StripPrefix("/data/", http.FileServer(http.Dir(dir)))
		r.Get("/data/*", fs.ServeHTTP)
	}

	return r
}

// ListenAndServe runs the server until ctx is cancelled, then shuts down
// gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", s.cfg.Server.Port),
		Handler:           s.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		zap.L().Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	zap.L().Info("starting server",
		zap.Int("port", s.cfg.Server.Port),
		zap.String("mode", s.mode),
		zap.Bool("tiles", s.tileh.Enabled()),
	)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return eris.Wrap(err, "server: listen")
	}
	return nil
}

func dirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
