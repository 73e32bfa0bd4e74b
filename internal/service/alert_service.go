package service

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/forecast"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/metrics"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/pipeline"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository"
	"github.com/rs/zerolog/log"
)

// AlertService classifies every product's stock position into reorder alerts.
type AlertService struct {
	products       repository.ProductRepository
	sales          repository.SalesRepository
	alerts         repository.AlertRepository
	instruments    *metrics.ForecastMetrics
	daysThreshold  int
	velocityWindow int
	workerCount    int
	now            func() time.Time
}

func NewAlertService(
	products repository.ProductRepository,
	sales repository.SalesRepository,
	alerts repository.AlertRepository,
	instruments *metrics.ForecastMetrics,
	alertCfg config.AlertConfig,
	forecastCfg config.ForecastConfig,
) *AlertService {
	threshold := alertCfg.DaysThreshold
	if threshold < 0 {
		threshold = 7
	}
	window := forecastCfg.BaselineWindow
	if window <= 0 {
		window = 90
	}
	return &AlertService{
		products:       products,
		sales:          sales,
		alerts:         alerts,
		instruments:    instruments,
		daysThreshold:  threshold,
		velocityWindow: window,
		workerCount:    forecastCfg.WorkerCount,
		now:            time.Now,
	}
}

// Scan assesses every product and inserts alerts that are not already open.
// A velocity failure still lets the stock-level check run; a failed insert is
// logged and the product skipped.
func (s *AlertService) Scan(ctx context.Context) (domain.AlertScanResult, error) {
	result, err := s.scan(ctx)
	s.instruments.ObserveJob(metrics.JobAlertScan, err)
	return result, err
}

func (s *AlertService) scan(ctx context.Context) (domain.AlertScanResult, error) {
	products, err := s.products.ListProducts(ctx)
	if err != nil {
		return domain.AlertScanResult{}, err
	}

	today := truncateDay(s.now())
	var created atomic.Int64

	pool := pipeline.NewPool("alert_scan", s.workerCount)
	report, err := pool.Run(ctx, products, func(ctx context.Context, p domain.Product) error {
		velocity, err := s.sales.GetVelocity(ctx, p.ID, today, s.velocityWindow)
		if err != nil {
			log.Warn().Err(err).Int64("product_id", p.ID).Msg("alert scan: velocity unavailable, checking stock level only")
			velocity = domain.Velocity{}
		}

		alert, ok := forecast.AssessStock(p, velocity, s.daysThreshold, today)
		if !ok {
			return nil
		}

		inserted, err := s.alerts.CreateIfAbsent(ctx, &alert)
		if err != nil {
			return err
		}
		if inserted {
			created.Add(1)
			s.instruments.IncAlert(string(alert.AlertType))
		}
		return nil
	})

	log.Info().
		Int("products", len(products)).
		Int("failed", len(report.Failures)).
		Int64("alerts_created", created.Load()).
		Msg("stock alert scan completed")

	return domain.AlertScanResult{AlertsCreated: int(created.Load())}, err
}

// OpenAlerts lists unresolved alerts, most severe first.
func (s *AlertService) OpenAlerts(ctx context.Context, limit int) ([]domain.StockAlert, error) {
	return s.alerts.ListOpen(ctx, limit)
}
