// Package server exposes the webhook endpoint and the read-only status routes.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/ducminhle1904/bracket-webhook-bot/internal/exchange"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/monitoring"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/orchestrator"
	"github.com/ducminhle1904/bracket-webhook-bot/internal/safety"
)

const maxBodyBytes = 64 << 10

// Config holds the HTTP surface settings
type Config struct {
	Port            int
	WebhookSecret   string
	DefaultRiskUSD  float64
	MaxRiskUSD      float64
	ReferenceSymbol string
}

// Server serves the webhook and status routes for one venue
type Server struct {
	config       Config
	venue        exchange.Venue
	orchestrator *orchestrator.Orchestrator
	validator    *safety.Validator
	health       *monitoring.HealthChecker
	logger       zerolog.Logger
	httpServer   *http.Server
}

// New creates a server. venue is used for the status routes; brackets go
// through orch.
func New(config Config, venue exchange.Venue, orch *orchestrator.Orchestrator, health *monitoring.HealthChecker, log zerolog.Logger) *Server {
	if config.DefaultRiskUSD <= 0 {
		config.DefaultRiskUSD = 100
	}
	if config.ReferenceSymbol == "" {
		config.ReferenceSymbol = "BTCUSDT"
	}
	if health == nil {
		health = monitoring.NewHealthChecker(venue.Name())
	}

	s := &Server{
		config:       config,
		venue:        venue,
		orchestrator: orch,
		validator:    safety.NewValidator(config.MaxRiskUSD),
		health:       health,
		logger:       log.With().Str("component", "server").Logger(),
	}
	s.httpServer = &http.Server{
		Addr:              fmt.Sprintf(":%d", config.Port),
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	return s
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /webhook", s.handleWebhook)
	mux.HandleFunc("GET /status", s.handleStatus)
	mux.HandleFunc("GET /positions", s.handlePositions)
	mux.HandleFunc("GET /test", s.handleTest)
	mux.Handle("GET /health", s.health)
	mux.Handle("GET /metrics", monitoring.NewMetricsHandler())
	mux.HandleFunc("GET /{$}", s.handleIndex)
	return s.logRequests(mux)
}

// Run serves until ctx is cancelled, then drains in-flight requests for up
// to shutdownTimeout. Brackets already past their entry finish regardless.
func (s *Server) Run(ctx context.Context, shutdownTimeout time.Duration) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info().Str("addr", s.httpServer.Addr).Msg("webhook server listening")
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	s.logger.Info().Msg("shutting down webhook server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	return <-errCh
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"message": fmt.Sprintf("%s webhook server is running", s.venue.Name()),
		"testnet": s.venue.IsTestnet(),
	})
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"service": "bracket-webhook-bot",
		"venue":   s.venue.Name(),
		"endpoints": map[string]string{
			"POST /webhook":  "execute a bracket from an alert",
			"GET /status":    "account balance and reference price",
			"GET /positions": "open positions with unrealized P&L",
			"GET /test":      "liveness echo",
			"GET /health":    "health check",
			"GET /metrics":   "Prometheus metrics",
		},
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func (s *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)

		if r.URL.Path == "/metrics" || r.URL.Path == "/health" {
			return
		}
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(start)).
			Msg("request served")
	})
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string, kind string) {
	body := map[string]string{"error": msg}
	if kind != "" {
		body["kind"] = kind
	}
	writeJSON(w, status, body)
}
