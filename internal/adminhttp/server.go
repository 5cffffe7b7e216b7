// Package adminhttp serves health, metrics and a small JSON API next to the bot.
package adminhttp

import (
	"context"
	"errors"
	"net"
	"net/http"
	"runtime"
	"time"

	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/unrolled/secure"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/bavix/dobson/internal/config"
	"github.com/bavix/dobson/internal/metrics"
	"github.com/bavix/dobson/internal/presence"
	"github.com/bavix/dobson/internal/registry"
	"github.com/bavix/dobson/internal/version"
)

const (
	defaultReadHeaderTimeout = 5 * time.Second
	defaultShutdownTimeout   = 5 * time.Second
)

// PresenceQuerier runs a router scan.
type PresenceQuerier interface {
	Query(ctx context.Context) (presence.Result, error)
}

// DeviceStore is the registry as seen by the API.
type DeviceStore interface {
	All() []registry.Entry
	Len() int
	Register(mac string, device registry.Device) (bool, error)
}

// Formatter renders the chat reply for a scan.
type Formatter interface {
	Format(present, unknown []string, listAll bool) string
}

// Deps are the services the API exposes.
type Deps struct {
	Presence  PresenceQuerier
	Devices   DeviceStore
	Formatter Formatter
	Location  string
}

type Server struct {
	cfg       config.HTTPConfig
	deps      Deps
	mux       *mux.Router
	startTime time.Time
	version   string
	buildTime string
}

func NewServer(cfg config.HTTPConfig, deps Deps) *Server {
	s := &Server{
		cfg:       cfg,
		deps:      deps,
		mux:       mux.NewRouter(),
		startTime: time.Now(),
		version:   version.GetVersion(),
		buildTime: version.GetBuildTime(),
	}

	s.routes()

	return s
}

func (s *Server) routes() {
	s.mux.Use(MetricsMiddleware())

	api := s.mux.PathPrefix("/api/v1").Subrouter()
	api.Use(RateLimitMiddleware(s.cfg.RateLimit, s.cfg.RateBurst))

	api.HandleFunc("/info", s.handleInfo).Methods(http.MethodGet)
	api.HandleFunc("/stats", s.handleStats).Methods(http.MethodGet)
	api.HandleFunc("/presence", s.handlePresence).Methods(http.MethodGet)

	NewDevicesHandler(s.deps.Devices).RegisterRoutes(api)

	s.mux.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	s.mux.Handle("/metrics", promhttp.Handler())
}

// Handler returns the routed API wrapped in the middleware chain.
func (s *Server) Handler(ctx context.Context) http.Handler {
	logger := zerolog.Ctx(ctx)

	var h http.Handler = s.mux

	c := cors.New(cors.Options{
		AllowedOrigins: s.cfg.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	})
	h = c.Handler(h)

	sec := secure.New(secure.Options{
		FrameDeny:             true,
		ContentTypeNosniff:    true,
		BrowserXssFilter:      true,
		ReferrerPolicy:        "no-referrer",
		ContentSecurityPolicy: "default-src 'none'",
	})
	h = sec.Handler(h)

	h = hlog.NewHandler(*logger)(h)
	h = hlog.AccessHandler(func(r *http.Request, status, size int, duration time.Duration) {
		logger.Info().
			Str("method", r.Method).
			Str("url", r.URL.String()).
			Int("status", status).
			Int("size", size).
			Dur("duration", duration).
			Msg("http")
	})(h)
	h = chimw.RequestID(h)
	h = chimw.RealIP(h)
	// Recoverer last to catch panics
	h = chimw.Recoverer(h)

	return otelhttp.NewHandler(h, "adminhttp")
}

// Start serves until ctx is done, then shuts down gracefully.
func (s *Server) Start(ctx context.Context) error {
	ln, err := (&net.ListenConfig{}).Listen(ctx, "tcp", s.cfg.Listen)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Handler:           s.Handler(ctx),
		ReadHeaderTimeout: defaultReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	zerolog.Ctx(ctx).Info().Str("addr", ln.Addr().String()).Msg("http listen")

	errCh := make(chan error, 1)

	go func() { errCh <- srv.Serve(ln) }()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), defaultShutdownTimeout)
	defer cancel()

	srv.SetKeepAlivesEnabled(false)

	if err := srv.Shutdown(shutdownCtx); err != nil {
		_ = srv.Close()
	}

	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}

	return nil
}

type serverInfoDTO struct {
	Version   string `json:"version"`
	GoVersion string `json:"go_version"`
	OS        string `json:"os"`
	Arch      string `json:"arch"`
	Location  string `json:"location"`
	Devices   int    `json:"devices"`
	Uptime    string `json:"uptime"`
	BuildTime string `json:"build_time,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	status := "healthy"
	if !metrics.IsReady() {
		status = "starting"
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, map[string]any{
		"status":    status,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
		"version":   s.version,
		"uptime":    time.Since(s.startTime).String(),
	})
}

func (s *Server) handleInfo(w http.ResponseWriter, r *http.Request) {
	render.Status(r, http.StatusOK)
	render.JSON(w, r, serverInfoDTO{
		Version:   s.version,
		GoVersion: runtime.Version(),
		OS:        runtime.GOOS,
		Arch:      runtime.GOARCH,
		Location:  s.deps.Location,
		Devices:   s.deps.Devices.Len(),
		Uptime:    time.Since(s.startTime).Round(time.Second).String(),
		BuildTime: s.buildTime,
	})
}

func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	st, err := metrics.GatherStats(metrics.Service())
	if err != nil {
		jsonError(w, r, http.StatusInternalServerError, err)

		return
	}

	render.Status(r, http.StatusOK)
	render.JSON(w, r, st)
}
