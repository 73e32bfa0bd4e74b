package service

import (
	"github.com/andresuchdata/retail-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/metrics"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/prophet"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository/postgres"
	"github.com/redis/go-redis/v9"
)

// Services bundles every forecasting service built over one database handle.
type Services struct {
	Forecast  *ForecastService
	Alerts    *AlertService
	Backtest  *BacktestService
	Scheduler *Scheduler
}

// NewServices wires repositories, caches and the advanced client. A nil
// redisClient selects the noop cache and lock.
func NewServices(db *postgres.DB, redisClient *redis.Client, cfg *config.Config, instruments *metrics.ForecastMetrics) *Services {
	products := postgres.NewProductRepository(db)
	sales := postgres.NewSalesRepository(db)
	predictions := postgres.NewPredictionRepository(db)
	metricRepo := postgres.NewMetricRepository(db)
	alerts := postgres.NewAlertRepository(db)

	metricCache := cache.NewMetricCache(redisClient, cfg.Cache)

	var advanced prophet.Forecaster
	if cfg.Prophet.Enabled {
		advanced = prophet.NewClient(cfg.Prophet)
	}

	forecastSvc := NewForecastService(ForecastDeps{
		Products:    products,
		Sales:       sales,
		Predictions: predictions,
		Metrics:     metricRepo,
		MetricCache: metricCache,
		Advanced:    advanced,
		Instruments: instruments,
		Forecast:    cfg.Forecast,
		Prophet:     cfg.Prophet,
	})
	alertSvc := NewAlertService(products, sales, alerts, instruments, cfg.Alert, cfg.Forecast)
	backtestSvc := NewBacktestService(predictions, sales, metricRepo, metricCache, instruments, cfg.Backtest)

	return &Services{
		Forecast:  forecastSvc,
		Alerts:    alertSvc,
		Backtest:  backtestSvc,
		Scheduler: NewScheduler(cfg.Scheduler, alertSvc, backtestSvc, cache.NewRunLocker(redisClient)),
	}
}
