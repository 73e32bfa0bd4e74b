package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/cache"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/metrics"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// BacktestService scores stored predictions against actual sales.
type BacktestService struct {
	predictions repository.PredictionRepository
	sales       repository.SalesRepository
	metricRepo  repository.MetricRepository
	metricCache cache.MetricCache
	instruments *metrics.ForecastMetrics
	windowDays  int
	now         func() time.Time
}

func NewBacktestService(
	predictions repository.PredictionRepository,
	sales repository.SalesRepository,
	metricRepo repository.MetricRepository,
	metricCache cache.MetricCache,
	instruments *metrics.ForecastMetrics,
	cfg config.BacktestConfig,
) *BacktestService {
	if metricCache == nil {
		metricCache = cache.NewNoopMetricCache()
	}
	window := cfg.WindowDays
	if window <= 0 {
		window = 14
	}
	return &BacktestService{
		predictions: predictions,
		sales:       sales,
		metricRepo:  metricRepo,
		metricCache: metricCache,
		instruments: instruments,
		windowDays:  window,
		now:         time.Now,
	}
}

type evaluationKey struct {
	modelVersion string
	productID    int64
	horizon      int
}

type actualKey struct {
	productID int64
	day       string
}

// Run evaluates every pending prediction whose date is inside the window and
// already in the past, appending one metric row per (model, product, horizon)
// group. Evaluated predictions are marked, so a second run is a no-op.
func (s *BacktestService) Run(ctx context.Context) (domain.BacktestResult, error) {
	result, err := s.run(ctx)
	s.instruments.ObserveJob(metrics.JobBacktest, err)
	return result, err
}

func (s *BacktestService) run(ctx context.Context) (domain.BacktestResult, error) {
	now := s.now()
	today := truncateDay(now)
	from := today.AddDate(0, 0, -s.windowDays)

	pending, err := s.predictions.ListPendingEvaluation(ctx, from, today)
	if err != nil {
		return domain.BacktestResult{}, err
	}
	if len(pending) == 0 {
		log.Debug().Msg("backtest: no predictions pending evaluation")
		return domain.BacktestResult{}, nil
	}

	groups := make(map[evaluationKey][]forecast.Sample)
	actuals := make(map[actualKey]int)
	ids := make([]int64, 0, len(pending))

	for _, p := range pending {
		ak := actualKey{productID: p.ProductID, day: p.PredictionDate.Format(dateLayout)}
		actual, ok := actuals[ak]
		if !ok {
			actual, err = s.sales.GetQuantitySold(ctx, p.ProductID, p.PredictionDate)
			if err != nil {
				return domain.BacktestResult{}, fmt.Errorf("load actual sales: %w", err)
			}
			actuals[ak] = actual
		}

		key := evaluationKey{modelVersion: p.ModelVersion, productID: p.ProductID, horizon: p.HorizonDays}
		groups[key] = append(groups[key], forecast.Sample{Predicted: p.PredictedQty, Actual: actual})
		ids = append(ids, p.ID)
	}

	keys := make([]evaluationKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].productID != keys[j].productID {
			return keys[i].productID < keys[j].productID
		}
		if keys[i].modelVersion != keys[j].modelVersion {
			return keys[i].modelVersion < keys[j].modelVersion
		}
		return keys[i].horizon < keys[j].horizon
	})

	rows := make([]domain.ModelMetric, 0, len(keys))
	for _, k := range keys {
		samples := groups[k]
		mae, rmse := forecast.Accuracy(samples)
		rows = append(rows, domain.ModelMetric{
			ModelVersion: k.modelVersion,
			ProductID:    k.productID,
			Horizon:      k.horizon,
			MAE:          mae,
			RMSE:         rmse,
			SampleCount:  len(samples),
			EvaluatedAt:  now,
		})
	}

	if err := s.metricRepo.AppendEvaluation(ctx, rows, ids, now); err != nil {
		return domain.BacktestResult{}, err
	}

	if err := s.metricCache.InvalidateAll(ctx); err != nil {
		log.Warn().Err(err).Msg("backtest: cache invalidate failed")
	}
	s.instruments.AddMetricRows(len(rows))

	log.Info().
		Int("predictions", len(ids)).
		Int("metric_rows", len(rows)).
		Msg("backtest completed")

	return domain.BacktestResult{EvaluationsCount: len(rows)}, nil
}
