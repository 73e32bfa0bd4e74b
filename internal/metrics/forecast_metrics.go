// Package metrics exposes prometheus instruments for forecasting runs.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	PathAdvanced  = "advanced"
	PathClassical = "classical"
)

const (
	JobAlertScan     = "alert_scan"
	JobBacktest      = "backtest"
	JobForecastBatch = "forecast_batch"
)

// ForecastMetrics groups the counters and histograms recorded by the services.
type ForecastMetrics struct {
	forecasts       *prometheus.CounterVec
	fallbacks       *prometheus.CounterVec
	forecastLatency *prometheus.HistogramVec
	alertsCreated   *prometheus.CounterVec
	metricsAppended prometheus.Counter
	jobRuns         *prometheus.CounterVec
	jobErrors       *prometheus.CounterVec
}

var (
	forecastMetricsOnce sync.Once
	forecastMetrics     *ForecastMetrics
)

// Forecast returns the process-wide metrics registered on the default registerer.
func Forecast() *ForecastMetrics {
	forecastMetricsOnce.Do(func() {
		forecastMetrics = New(prometheus.DefaultRegisterer)
	})
	return forecastMetrics
}

// New builds and registers a metrics set. Tests pass their own registry.
func New(registerer prometheus.Registerer) *ForecastMetrics {
	if registerer == nil {
		registerer = prometheus.DefaultRegisterer
	}

	m := &ForecastMetrics{
		forecasts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_computed_total",
			Help: "Forecasts computed by path and selected model version.",
		}, []string{"path", "model_version"}),
		fallbacks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_advanced_fallback_total",
			Help: "Advanced forecast failures that fell back to classical models.",
		}, []string{"reason"}),
		forecastLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "forecast_duration_seconds",
			Help:    "End-to-end forecast latency by path.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"path"}),
		alertsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "stock_alerts_created_total",
			Help: "Stock alerts inserted by alert type.",
		}, []string{"alert_type"}),
		metricsAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "model_metrics_appended_total",
			Help: "Model accuracy rows appended by backtests.",
		}),
		jobRuns: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_job_runs_total",
			Help: "Batch job runs by name.",
		}, []string{"job"}),
		jobErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "forecast_job_errors_total",
			Help: "Batch job failures by name.",
		}, []string{"job"}),
	}

	registerer.MustRegister(
		m.forecasts,
		m.fallbacks,
		m.forecastLatency,
		m.alertsCreated,
		m.metricsAppended,
		m.jobRuns,
		m.jobErrors,
	)
	return m
}

func (m *ForecastMetrics) ObserveForecast(path, modelVersion string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.forecasts.WithLabelValues(path, modelVersion).Inc()
	m.forecastLatency.WithLabelValues(path).Observe(elapsed.Seconds())
}

func (m *ForecastMetrics) IncFallback(reason string) {
	if m == nil {
		return
	}
	m.fallbacks.WithLabelValues(reason).Inc()
}

func (m *ForecastMetrics) IncAlert(alertType string) {
	if m == nil {
		return
	}
	m.alertsCreated.WithLabelValues(alertType).Inc()
}

func (m *ForecastMetrics) AddMetricRows(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.metricsAppended.Add(float64(n))
}

// ObserveJob counts a job run and, when err is non-nil, a job failure.
func (m *ForecastMetrics) ObserveJob(job string, err error) {
	if m == nil {
		return
	}
	m.jobRuns.WithLabelValues(job).Inc()
	if err != nil {
		m.jobErrors.WithLabelValues(job).Inc()
	}
}
