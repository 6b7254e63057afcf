package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/alchemix-finance/alchemist-indexer/internal/config"
	"github.com/alchemix-finance/alchemist-indexer/internal/metrics/metricsTypes"
	prometheusClient "github.com/alchemix-finance/alchemist-indexer/internal/metrics/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// NewMetricsClient returns the configured metrics sink. When prometheus is
// disabled a no-op client is returned so callers never need nil checks.
func NewMetricsClient(cfg *config.Config, l *zap.Logger) (metricsTypes.IMetricsClient, error) {
	if !cfg.PrometheusConfig.Enabled {
		return &noopMetricsClient{}, nil
	}
	return prometheusClient.NewPrometheusMetricsClient(&prometheusClient.PrometheusMetricsConfig{
		Metrics: metricsTypes.MetricTypes,
	}, l)
}

// StartMetricsServer exposes /metrics on the configured port. It returns
// immediately; the server runs until the process exits.
func StartMetricsServer(cfg *config.Config, l *zap.Logger) {
	if !cfg.PrometheusConfig.Enabled {
		return
	}
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())

	go func() {
		addr := fmt.Sprintf(":%d", cfg.PrometheusConfig.Port)
		l.Sugar().Infow("Starting prometheus metrics server", zap.String("addr", addr))
		if err := http.ListenAndServe(addr, mux); err != nil {
			l.Sugar().Errorw("Prometheus metrics server exited", zap.Error(err))
		}
	}()
}

type noopMetricsClient struct{}

func (n *noopMetricsClient) Incr(name string, labels []metricsTypes.MetricsLabel, value float64) error {
	return nil
}

func (n *noopMetricsClient) Gauge(name string, value float64, labels []metricsTypes.MetricsLabel) error {
	return nil
}

func (n *noopMetricsClient) Timing(name string, value time.Duration, labels []metricsTypes.MetricsLabel) error {
	return nil
}

func (n *noopMetricsClient) Flush() {}
