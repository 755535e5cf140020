// Package http serves health, readiness and Prometheus metrics endpoints.
package http

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"guildplayer/internal/core"
)

const (
	serviceName     = "guildplayer"
	shutdownTimeout = 10 * time.Second
)

type Server struct {
	config   *core.ServerConfig
	logger   *zap.Logger
	server   *http.Server
	metrics  *Metrics
	registry *prometheus.Registry
	ready    *atomic.Bool
}

// Metrics holds the controller's Prometheus collectors. It implements core.Metrics.
type Metrics struct {
	EventsTotal         *prometheus.CounterVec
	EventDuration       *prometheus.HistogramVec
	SkipsTotal          *prometheus.CounterVec
	NoticesTotal        *prometheus.CounterVec
	StatusMessagesTotal *prometheus.CounterVec
	AutoplayTotal       *prometheus.CounterVec
	ReconnectsTotal     *prometheus.CounterVec
	DeletionsTotal      *prometheus.CounterVec
	DroppedEventsTotal  *prometheus.CounterVec
	ActiveSessions      prometheus.Gauge
}

func newMetrics(registry prometheus.Registerer) *Metrics {
	metrics := &Metrics{
		EventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_events_total",
				Help: "Total number of lifecycle events handled",
			},
			[]string{"kind"},
		),
		EventDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "guildplayer_event_duration_seconds",
				Help:    "Time spent handling lifecycle events",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"kind"},
		),
		SkipsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_skips_total",
				Help: "Total number of tracks skipped by the controller",
			},
			[]string{"reason"},
		),
		NoticesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_notices_total",
				Help: "Total number of transient notices posted",
			},
			[]string{"kind"},
		),
		StatusMessagesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_status_messages_total",
				Help: "Status message lifecycle actions",
			},
			[]string{"action"},
		),
		AutoplayTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_autoplay_total",
				Help: "Autoplay continuation outcomes",
			},
			[]string{"status"},
		),
		ReconnectsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_reconnects_total",
				Help: "Persistent session reconnection outcomes",
			},
			[]string{"status"},
		),
		DeletionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_message_deletions_total",
				Help: "Message deletion outcomes",
			},
			[]string{"outcome"},
		),
		DroppedEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "guildplayer_dropped_events_total",
				Help: "Events dropped before reaching the controller",
			},
			[]string{"reason"},
		),
		ActiveSessions: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "guildplayer_active_sessions",
				Help: "Number of guilds with a live playback session",
			},
		),
	}

	registry.MustRegister(
		metrics.EventsTotal,
		metrics.EventDuration,
		metrics.SkipsTotal,
		metrics.NoticesTotal,
		metrics.StatusMessagesTotal,
		metrics.AutoplayTotal,
		metrics.ReconnectsTotal,
		metrics.DeletionsTotal,
		metrics.DroppedEventsTotal,
		metrics.ActiveSessions,
	)

	return metrics
}

// NewServer creates the server and its private metrics registry.
func NewServer(config *core.ServerConfig, logger *zap.Logger) *Server {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	metrics := newMetrics(registry)

	ready := &atomic.Bool{}
	mux := setupRoutes(registry, ready, logger)

	return &Server{
		config:   config,
		logger:   logger,
		server:   createHTTPServer(config, mux),
		metrics:  metrics,
		registry: registry,
		ready:    ready,
	}
}

func createHTTPServer(config *core.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      handler,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
	}
}

func setupRoutes(gatherer prometheus.Gatherer, ready *atomic.Bool, logger *zap.Logger) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, `{"status":"ok","service":"`+serviceName+`"}`, logger)
	})

	mux.HandleFunc("/readyz", func(w http.ResponseWriter, _ *http.Request) {
		if !ready.Load() {
			writeJSON(w, http.StatusServiceUnavailable, `{"status":"starting","service":"`+serviceName+`"}`, logger)
			return
		}
		writeJSON(w, http.StatusOK, `{"status":"ready","service":"`+serviceName+`"}`, logger)
	})

	mux.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	mux.HandleFunc("/", homeHandler(logger))

	return mux
}

func writeJSON(w http.ResponseWriter, status int, body string, logger *zap.Logger) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if _, err := w.Write([]byte(body)); err != nil {
		logger.Debug("Failed to write response", zap.Error(err))
	}
}

func homeHandler(logger *zap.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "text/html")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`<!DOCTYPE html>
<html>
<head>
    <title>guildplayer</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 40px; }
        .endpoint { margin: 10px 0; }
        .endpoint a { text-decoration: none; color: #0066cc; }
    </style>
</head>
<body>
    <h1>guildplayer</h1>
    <p>Discord playback session controller</p>

    <h2>Endpoints</h2>
    <div class="endpoint"><a href="/metrics">Metrics</a> - Prometheus metrics</div>
    <div class="endpoint"><a href="/healthz">Health</a> - Health check</div>
    <div class="endpoint"><a href="/readyz">Ready</a> - Readiness check</div>
</body>
</html>`)); err != nil {
			logger.Debug("Failed to write home page", zap.Error(err))
		}
	}
}

// Start serves until ctx is cancelled.
func (s *Server) Start(ctx context.Context) error {
	s.logger.Info("Starting HTTP server", zap.String("addr", s.server.Addr))

	go func() {
		<-ctx.Done()
		s.logger.Info("Shutting down HTTP server")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		if err := s.server.Shutdown(shutdownCtx); err != nil {
			s.logger.Error("Failed to shutdown HTTP server gracefully", zap.Error(err))
		}
	}()

	if err := s.server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("HTTP server failed: %w", err)
	}

	return nil
}

// SetReady flips the readiness probe.
func (s *Server) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *Server) GetMetrics() *Metrics {
	return s.metrics
}

func (s *Server) RecordEvent(kind string) {
	s.metrics.EventsTotal.WithLabelValues(kind).Inc()
}

func (s *Server) ObserveEventDuration(kind string, duration time.Duration) {
	s.metrics.EventDuration.WithLabelValues(kind).Observe(duration.Seconds())
}

func (s *Server) RecordSkip(reason string) {
	s.metrics.SkipsTotal.WithLabelValues(reason).Inc()
}

func (s *Server) RecordNotice(kind string) {
	s.metrics.NoticesTotal.WithLabelValues(kind).Inc()
}

func (s *Server) RecordStatusMessage(action string) {
	s.metrics.StatusMessagesTotal.WithLabelValues(action).Inc()
}

func (s *Server) RecordAutoplay(status string) {
	s.metrics.AutoplayTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordReconnect(status string) {
	s.metrics.ReconnectsTotal.WithLabelValues(status).Inc()
}

func (s *Server) RecordDeletion(outcome string) {
	s.metrics.DeletionsTotal.WithLabelValues(outcome).Inc()
}

func (s *Server) RecordDroppedEvent(reason string) {
	s.metrics.DroppedEventsTotal.WithLabelValues(reason).Inc()
}

func (s *Server) SetActiveSessions(count int) {
	s.metrics.ActiveSessions.Set(float64(count))
}
