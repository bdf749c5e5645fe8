package core

// HTTP listener for the metrics registry and a liveness probe.

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
)

// MetricsServer serves /metrics and /healthz.
type MetricsServer struct {
	httpServer *http.Server
	log        *logrus.Logger
}

// NewMetricsServer constructs the router and HTTP server.
func NewMetricsServer(addr string, metrics *Metrics, log *logrus.Logger) *MetricsServer {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}))
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	})
	return &MetricsServer{
		httpServer: &http.Server{Addr: addr, Handler: r},
		log:        log,
	}
}

// Start listens until Shutdown is called.
func (s *MetricsServer) Start() error {
	s.log.WithField("address", s.httpServer.Addr).Info("metrics server listening")
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown drains the listener.
func (s *MetricsServer) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return s.httpServer.Shutdown(ctx)
}
