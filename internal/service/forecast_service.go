package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/metrics"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/prophet"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

const dateLayout = "2006-01-02"

// ForecastDeps wires the orchestrator. Advanced, MetricCache, Metrics and Now
// are optional.
type ForecastDeps struct {
	Products    repository.ProductRepository
	Sales       repository.SalesRepository
	Predictions repository.PredictionRepository
	Metrics     repository.MetricRepository
	MetricCache cache.MetricCache
	Advanced    prophet.Forecaster
	Instruments *metrics.ForecastMetrics
	Forecast    config.ForecastConfig
	Prophet     config.ProphetConfig
	Now         func() time.Time
}

// ForecastService runs the advanced-then-classical forecast state machine.
type ForecastService struct {
	products    repository.ProductRepository
	sales       repository.SalesRepository
	predictions repository.PredictionRepository
	metricRepo  repository.MetricRepository
	metricCache cache.MetricCache
	advanced    prophet.Forecaster
	instruments *metrics.ForecastMetrics
	cfg         config.ForecastConfig
	prophetCfg  config.ProphetConfig
	models      []forecast.Model
	now         func() time.Time
}

func NewForecastService(deps ForecastDeps) *ForecastService {
	metricCache := deps.MetricCache
	if metricCache == nil {
		metricCache = cache.NewNoopMetricCache()
	}
	now := deps.Now
	if now == nil {
		now = time.Now
	}

	cfg := deps.Forecast
	if cfg.LookbackDays <= 0 {
		cfg.LookbackDays = 90
	}
	if cfg.BaselineWindow <= 0 {
		cfg.BaselineWindow = 90
	}
	if cfg.DefaultHorizon <= 0 {
		cfg.DefaultHorizon = 7
	}
	if cfg.MaxHorizon < cfg.DefaultHorizon {
		cfg.MaxHorizon = cfg.DefaultHorizon
	}

	prophetCfg := deps.Prophet
	if prophetCfg.MinHistoryDays <= 0 {
		prophetCfg.MinHistoryDays = 40
	}
	if prophetCfg.ConfidenceInterval <= 0 || prophetCfg.ConfidenceInterval >= 1 {
		prophetCfg.ConfidenceInterval = 0.95
	}

	return &ForecastService{
		products:    deps.Products,
		sales:       deps.Sales,
		predictions: deps.Predictions,
		metricRepo:  deps.Metrics,
		metricCache: metricCache,
		advanced:    deps.Advanced,
		instruments: deps.Instruments,
		cfg:         cfg,
		prophetCfg:  prophetCfg,
		models:      forecast.DefaultModels(cfg.MAWindow),
		now:         now,
	}
}

// Forecast validates the request, loads the product and forecasts it. Only
// ErrProductNotFound and ErrInvalidRequest are expected caller errors; every
// advanced-service or persistence problem degrades instead of failing.
func (s *ForecastService) Forecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error) {
	horizon, method, err := s.validate(req)
	if err != nil {
		return nil, err
	}

	product, err := s.products.GetProduct(ctx, req.ProductID)
	if err != nil {
		return nil, err
	}

	return s.forecastProduct(ctx, *product, horizon, method)
}

// ForecastAll forecasts every product at the default horizon.
func (s *ForecastService) ForecastAll(ctx context.Context) (domain.BatchForecastResult, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return domain.BatchForecastResult{}, err
	}

	pool := pipeline.NewPool("forecast", s.cfg.WorkerCount)
	report, err := pool.Run(ctx, products, func(ctx context.Context, p domain.Product) error {
		_, ferr := s.forecastProduct(ctx, p, s.cfg.DefaultHorizon, domain.MethodAuto)
		return ferr
	})

	result := domain.BatchForecastResult{
		ForecastsComputed: report.Processed,
		Failures:          len(report.Failures),
	}
	s.instruments.ObserveJob(metrics.JobForecastBatch, err)
	return result, err
}

func (s *ForecastService) validate(req domain.ForecastRequest) (int, domain.ForecastMethod, error) {
	horizon := req.HorizonDays
	if horizon == 0 {
		horizon = s.cfg.DefaultHorizon
	}
	if horizon < 1 || horizon > s.cfg.MaxHorizon {
		return 0, "", fmt.Errorf("%w: horizon_days must be between 1 and %d", domain.ErrInvalidRequest, s.cfg.MaxHorizon)
	}

	method, ok := domain.ParseForecastMethod(string(req.Method))
	if !ok {
		return 0, "", fmt.Errorf("%w: unknown method %q", domain.ErrInvalidRequest, req.Method)
	}

	return horizon, method, nil
}

func (s *ForecastService) forecastProduct(ctx context.Context, product domain.Product, horizon int, method domain.ForecastMethod) (*domain.ForecastResponse, error) {
	started := time.Now()
	now := s.now()
	today := truncateDay(now)

	start, end := forecast.SeriesWindow(today, s.cfg.LookbackDays)
	rows, err := s.sales.GetDailySales(ctx, product.ID, start, end)
	if err != nil {
		return nil, fmt.Errorf("load sales history: %w", err)
	}
	series := forecast.BuildSeries(start, s.cfg.LookbackDays, rows)
	active := forecast.ActiveHistory(series)
	activeStart := start.AddDate(0, 0, len(series)-len(active))

	var (
		resp *domain.ForecastResponse
		path = metrics.PathClassical
	)

	if s.advancedEligible(method, len(active)) {
		resp = s.forecastAdvanced(ctx, product, activeStart, active, horizon)
		if resp != nil {
			path = metrics.PathAdvanced
		}
	}

	if resp == nil {
		resp = s.forecastClassical(ctx, product, today, series, horizon)
	}
	resp.ComputedAt = now

	s.persist(ctx, resp, today)
	s.instruments.ObserveForecast(path, resp.ModelVersion, time.Since(started))

	return resp, nil
}

func (s *ForecastService) advancedEligible(method domain.ForecastMethod, historyDays int) bool {
	if method == domain.MethodClassical {
		return false
	}
	if !s.prophetCfg.Enabled || s.advanced == nil {
		return false
	}
	return historyDays >= s.prophetCfg.MinHistoryDays
}

// forecastAdvanced returns nil when the service could not produce a forecast.
func (s *ForecastService) forecastAdvanced(ctx context.Context, product domain.Product, start time.Time, history []int, horizon int) *domain.ForecastResponse {
	points := make([]prophet.HistoryPoint, len(history))
	for i, qty := range history {
		points[i] = prophet.HistoryPoint{
			DS: start.AddDate(0, 0, i).Format(dateLayout),
			Y:  qty,
		}
	}

	result := s.advanced.Forecast(ctx, prophet.Request{
		ProductID:          product.ID,
		ProductName:        product.Name,
		HistoricalSales:    points,
		HorizonDays:        horizon,
		ConfidenceInterval: s.prophetCfg.ConfidenceInterval,
	})
	if !result.OK() {
		failure := result.Failure
		if failure == nil {
			failure = &prophet.Failure{Kind: prophet.FailureUnavailable, Detail: "empty result"}
		}
		kind := failure.Kind
		log.Warn().
			Int64("product_id", product.ID).
			Str("reason", string(kind)).
			Bool("retryable", failure.Retryable()).
			Int("status", failure.StatusCode).
			Str("detail", failure.Detail).
			Msg("advanced forecast failed, falling back to classical models")
		s.instruments.IncFallback(string(kind))
		return nil
	}

	daily := make([]int, len(result.Response.Predictions))
	intervals := make([]domain.ConfidenceInterval, len(result.Response.Predictions))
	total := 0
	for i, p := range result.Response.Predictions {
		daily[i] = forecast.RoundNonNegative(p.Prediction)
		total += daily[i]
		intervals[i] = domain.ConfidenceInterval{
			Date:       p.Date,
			Prediction: p.Prediction,
			LowerBound: p.LowerBound,
			UpperBound: p.UpperBound,
		}
	}

	params := result.Response.Metadata
	if params == nil {
		params = map[string]any{}
	}

	return &domain.ForecastResponse{
		ProductID:           product.ID,
		ProductName:         product.Name,
		HorizonDays:         horizon,
		PredictedTotal:      total,
		PredictedDaily:      daily,
		ModelVersion:        result.Response.Model,
		ModelParams:         params,
		ConfidenceIntervals: intervals,
	}
}

func (s *ForecastService) forecastClassical(ctx context.Context, product domain.Product, today time.Time, history []int, horizon int) *domain.ForecastResponse {
	baseline, err := s.sales.GetVelocity(ctx, product.ID, today, s.cfg.BaselineWindow)
	if err != nil {
		// A zero window excludes the baseline model from this run.
		log.Warn().Err(err).Int64("product_id", product.ID).Msg("baseline velocity unavailable")
		baseline = domain.Velocity{}
	}

	available, skipped := forecast.RunAll(s.models, forecast.Input{
		Series:   history,
		Horizon:  horizon,
		Baseline: baseline,
	})
	for version, reason := range skipped {
		log.Debug().
			Int64("product_id", product.ID).
			Str("model_version", version).
			Str("reason", reason).
			Msg("model excluded from run")
	}

	selected := forecast.SelectModel(available, s.metricHistory(ctx, product.ID))
	winner, ok := available[selected]
	if !ok {
		// Moving average always computes, so this only guards misconfigured model sets.
		winner = forecast.Forecast{
			ModelVersion:   selected,
			PredictedDaily: make([]int, horizon),
			Params:         map[string]any{},
		}
	}

	return &domain.ForecastResponse{
		ProductID:      product.ID,
		ProductName:    product.Name,
		HorizonDays:    horizon,
		PredictedTotal: winner.PredictedTotal,
		PredictedDaily: winner.PredictedDaily,
		ModelVersion:   winner.ModelVersion,
		ModelParams:    winner.Params,
	}
}

func (s *ForecastService) metricHistory(ctx context.Context, productID int64) []domain.ModelMetric {
	if history, ok, err := s.metricCache.GetMetrics(ctx, productID); err == nil && ok {
		return history
	} else if err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: cache get metrics failed")
	}

	if s.metricRepo == nil {
		return nil
	}

	history, err := s.metricRepo.ListByProduct(ctx, productID)
	if err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("model metric history unavailable, using default model")
		return nil
	}

	if err := s.metricCache.SetMetrics(ctx, productID, history); err != nil {
		log.Warn().Err(err).Int64("product_id", productID).Msg("forecast: cache set metrics failed")
	}

	return history
}

// persist records the first forecast day as today's prediction. Failures are
// logged; the caller still gets the computed forecast.
func (s *ForecastService) persist(ctx context.Context, resp *domain.ForecastResponse, today time.Time) {
	if s.predictions == nil || len(resp.PredictedDaily) == 0 {
		return
	}

	prediction := &domain.Prediction{
		ProductID:      resp.ProductID,
		PredictionDate: today,
		HorizonDays:    resp.HorizonDays,
		PredictedQty:   resp.PredictedDaily[0],
		ModelVersion:   resp.ModelVersion,
	}
	if err := s.predictions.UpsertPrediction(ctx, prediction); err != nil {
		log.Warn().
			Err(err).
			Int64("product_id", resp.ProductID).
			Str("model_version", resp.ModelVersion).
			Msg("failed to persist prediction")
	}
}

// IsCallerError reports whether err should be shown to the API caller as-is.
func IsCallerError(err error) bool {
	return errors.Is(err, domain.ErrProductNotFound) || errors.Is(err, domain.ErrInvalidRequest)
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// MetricHistory returns the stored accuracy history for a product.
func (s *ForecastService) MetricHistory(ctx context.Context, productID int64) ([]domain.ModelMetric, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.metricRepo.ListByProduct(ctx, productID)
}

// PredictionHistory returns the most recent stored predictions for a product.
func (s *ForecastService) PredictionHistory(ctx context.Context, productID int64, limit int) ([]domain.Prediction, error) {
	if _, err := s.products.GetProduct(ctx, productID); err != nil {
		return nil, err
	}
	return s.predictions.ListByProduct(ctx, productID, limit)
}
