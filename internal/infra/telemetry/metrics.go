// Package telemetry exposes Prometheus metrics for the tool facade
// and, when configured, serves them alongside a health probe.
package telemetry

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// Metrics aggregates the instrument handles used across the server.
type Metrics struct {
	ToolDuration   *prometheus.HistogramVec
	ToolCalls      *prometheus.CounterVec
	Rejections     *prometheus.CounterVec
	BytesFetched   prometheus.Counter
	ArtifactsSaved *prometheus.CounterVec
	LLMDuration    prometheus.Histogram
	LLMTokens      prometheus.Counter
}

// New registers the metric set on the given registerer. Passing nil
// uses the default registry.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)
	return &Metrics{
		ToolDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "seismcp",
			Name:      "tool_duration_seconds",
			Help:      "Wall time per tool invocation.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2.5, 12),
		}, []string{"tool"}),
		ToolCalls: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismcp",
			Name:      "tool_calls_total",
			Help:      "Tool invocations by outcome.",
		}, []string{"tool", "status"}),
		Rejections: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismcp",
			Name:      "validation_rejections_total",
			Help:      "Requests rejected by limit enforcement, by error code.",
		}, []string{"code"}),
		BytesFetched: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seismcp",
			Name:      "upstream_bytes_total",
			Help:      "Bytes fetched from FDSN services.",
		}),
		ArtifactsSaved: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "seismcp",
			Name:      "artifacts_saved_total",
			Help:      "Artifacts written to the data directory, by kind.",
		}, []string{"kind"}),
		LLMDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "seismcp",
			Name:      "llm_request_duration_seconds",
			Help:      "Latency of narration model calls.",
			Buckets:   prometheus.ExponentialBuckets(0.1, 2, 10),
		}),
		LLMTokens: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "seismcp",
			Name:      "llm_tokens_total",
			Help:      "Total tokens consumed by narration model calls.",
		}),
	}
}

// ObserveTool records one tool invocation.
func (m *Metrics) ObserveTool(tool, status string, elapsed time.Duration) {
	m.ToolDuration.WithLabelValues(tool).Observe(elapsed.Seconds())
	m.ToolCalls.WithLabelValues(tool, status).Inc()
}

// Serve runs a metrics and health endpoint on addr until the context
// is cancelled. An empty addr disables the listener.
func Serve(ctx context.Context, addr string, logger *zap.Logger) error {
	if addr == "" {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	errCh := make(chan error, 1)
	go func() {
		logger.Info("metrics listener started", zap.String("addr", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
		return nil
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	}
}
