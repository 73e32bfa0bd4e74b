// backend-go/internal/repository/forecast_repository.go
package repository

import (
	"context"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
)

// ProductRepository reads catalog records owned by the CRUD side.
type ProductRepository interface {
	// GetProduct returns domain.ErrProductNotFound for unknown ids.
	GetProduct(ctx context.Context, id int64) (*domain.Product, error)
	ListProducts(ctx context.Context) ([]domain.Product, error)
}

// SalesRepository aggregates sale line items. It never writes.
type SalesRepository interface {
	// GetDailySales returns one row per calendar day in [start, end],
	// zero-filled for days without sales.
	GetDailySales(ctx context.Context, productID int64, start, end time.Time) ([]domain.DailySales, error)
	// GetVelocity sums quantities over the `days` calendar days ending the day before `today`.
	GetVelocity(ctx context.Context, productID int64, today time.Time, days int) (domain.Velocity, error)
	// GetQuantitySold returns total units sold on a single calendar day.
	GetQuantitySold(ctx context.Context, productID int64, day time.Time) (int, error)
}

// PredictionRepository persists forecast outputs.
type PredictionRepository interface {
	// UpsertPrediction inserts or overwrites by (product_id, prediction_date, model_version).
	UpsertPrediction(ctx context.Context, p *domain.Prediction) error
	// ListPendingEvaluation returns unevaluated predictions with from <= prediction_date < before.
	ListPendingEvaluation(ctx context.Context, from, before time.Time) ([]domain.Prediction, error)
	ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.Prediction, error)
}

// MetricRepository stores backtest accuracy snapshots.
type MetricRepository interface {
	// AppendEvaluation appends metric rows and marks the scored predictions
	// evaluated in one transaction.
	AppendEvaluation(ctx context.Context, metrics []domain.ModelMetric, predictionIDs []int64, evaluatedAt time.Time) error
	ListByProduct(ctx context.Context, productID int64) ([]domain.ModelMetric, error)
}

// AlertRepository stores reorder alerts.
type AlertRepository interface {
	// CreateIfAbsent inserts the alert unless an unresolved alert with the same
	// (alert_type, severity, predicted_out_date, days_until_stockout) exists
	// for the product. Reports whether a row was written.
	CreateIfAbsent(ctx context.Context, alert *domain.StockAlert) (bool, error)
	ListOpen(ctx context.Context, limit int) ([]domain.StockAlert, error)
}
