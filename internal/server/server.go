// Package server exposes the classifier over HTTP and WebSocket.
//
// Routes:
//
//	POST /v1/predict          classify one record
//	GET  /v1/missions         mission profiles and model readiness
//	GET  /v1/models/{mission} model artifact info
//	GET  /v1/drift/{mission}  input distribution and drift alerts
//	GET  /v1/stream           WebSocket, one request per text frame
//	GET  /health              liveness and runtime status
//	GET  /metrics             Prometheus exposition
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"exoplanet-classifier/internal/metrics"
	"exoplanet-classifier/internal/mission"
	"exoplanet-classifier/internal/ml"
	"exoplanet-classifier/internal/storage"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"
)

// Classifier is the prediction pipeline used by the handlers.
type Classifier interface {
	ClassifyRaw(ctx context.Context, id mission.ID, raw mission.RawRecord) (ml.Result, error)
	FallbackUsage() map[mission.ID]int64
	HasRuntime() bool
}

// Store records served predictions.
type Store interface {
	StorePrediction(rec storage.PredictionRecord) error
}

// Metrics is the API side of metrics.Wrapper.
type Metrics interface {
	ValidationErrorsInc(mission string)
	RequestsInc(route string, code int)
	RateLimitedInc()
	StoredPredictionsInc()
	ErrorsInc()
	StreamClients() metrics.MetricsGauge
}

// Config contains the HTTP server settings.
type Config struct {
	Port              int
	RequestsPerSecond float64
	Burst             int
	RequestTimeout    time.Duration // per-prediction deadline, zero for none
}

// Options wires the server's collaborators. Only Classifier is required.
type Options struct {
	Classifier Classifier
	Registry   *ml.Registry
	Monitor    *ml.InputMonitor
	Store      Store
	Metrics    Metrics
	Gatherer   prometheus.Gatherer
}

// Server is the prediction API.
type Server struct {
	cfg        Config
	classifier Classifier
	registry   *ml.Registry
	monitor    *ml.InputMonitor
	store      Store
	metrics    Metrics
	limiter    *rate.Limiter
	upgrader   websocket.Upgrader
	router     chi.Router
	server     *http.Server
	started    time.Time
}

// New creates a server. It does not start listening.
func New(cfg Config, opts Options) *Server {
	s := &Server{
		cfg:        cfg,
		classifier: opts.Classifier,
		registry:   opts.Registry,
		monitor:    opts.Monitor,
		store:      opts.Store,
		metrics:    opts.Metrics,
		upgrader:   websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
		started:    time.Now(),
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst < 1 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	metricsHandler := promhttp.Handler()
	if opts.Gatherer != nil {
		metricsHandler = promhttp.HandlerFor(opts.Gatherer, promhttp.HandlerOpts{})
	}

	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(s.observe)

	r.Get("/health", s.handleHealth)
	r.Method(http.MethodGet, "/metrics", metricsHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Use(s.rateLimit)
		r.Post("/predict", s.handlePredict)
		r.Get("/missions", s.handleMissions)
		r.Get("/models/{mission}", s.handleModelInfo)
		r.Get("/drift/{mission}", s.handleDrift)
		r.Get("/stream", s.handleStream)
	})
	s.router = r

	s.server = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  120 * time.Second,
	}
	return s
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler { return s.router }

// Addr is the configured listen address.
func (s *Server) Addr() string { return s.server.Addr }

// Start begins serving HTTP requests. It returns http.ErrServerClosed after
// Shutdown.
func (s *Server) Start() error {
	log.Info().Str("addr", s.server.Addr).Msg("Starting prediction server")
	return s.server.ListenAndServe()
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	return s.server.Shutdown(ctx)
}

func (s *Server) readyMissions() []mission.ID {
	if s.registry == nil {
		return nil
	}
	return s.registry.ReadyMissions()
}
