// Package metrics exposes Prometheus counters for the event dispatcher and
// the run orchestrator.
package metrics

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	MetricsNamespace = "orisa"

	// RouteHandler marks events delivered to a registered handler.
	RouteHandler = "handler"
	// RouteStored marks events kept in the last value store.
	RouteStored = "stored"
)

var (
	connectionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dispatcher_connections_total",
		Help:      "Count of connections accepted by the event dispatcher",
	})

	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dispatcher_events_total",
		Help:      "Count of decoded events by type and route",
	}, []string{
		"type",
		"route",
	})

	framingRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "dispatcher_framing_retries_total",
		Help:      "Count of reads whose accumulated buffer did not decode yet",
	})

	runsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "runs_total",
		Help:      "Count of finished runner sessions by final state",
	}, []string{
		"state",
	})
)

// RecordConnection counts one accepted dispatcher connection.
func RecordConnection() {
	connectionsTotal.Inc()
}

// RecordEvent counts one decoded event.
func RecordEvent(eventType, route string) {
	eventsTotal.WithLabelValues(eventType, route).Inc()
}

// RecordFramingRetry counts one undecodable buffer that is kept for the next read.
func RecordFramingRetry() {
	framingRetriesTotal.Inc()
}

// RecordRun counts one session reaching a final state.
func RecordRun(state string) {
	runsTotal.WithLabelValues(state).Inc()
}

// Serve exposes the default registry on addr until ctx is done.
func Serve(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("failed to listen for metrics on %s: %w", addr, err)
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("Failed to shut down metrics server", "addr", addr, "error", err)
		}
	}()

	slog.Info("Serving metrics", "addr", listener.Addr().String())

	if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("metrics server failed: %w", err)
	}

	return nil
}
