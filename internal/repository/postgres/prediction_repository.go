package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type predictionRepository struct {
	db *DB
}

func NewPredictionRepository(db *DB) repository.PredictionRepository {
	return &predictionRepository{db: db}
}

// UpsertPrediction relies on UNIQUE(product_id, prediction_date, model_version)
// so concurrent writers converge on one row. A rewrite clears evaluated_at.
func (r *predictionRepository) UpsertPrediction(ctx context.Context, p *domain.Prediction) error {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		INSERT INTO predictions (
			product_id, prediction_date, horizon_days, predicted_qty, model_version, created_at
		) VALUES ($1, $2::date, $3, $4, $5, NOW())
		ON CONFLICT (product_id, prediction_date, model_version)
		DO UPDATE SET
			horizon_days = EXCLUDED.horizon_days,
			predicted_qty = EXCLUDED.predicted_qty,
			created_at = EXCLUDED.created_at,
			evaluated_at = NULL
		RETURNING id, created_at
	`

	err := r.db.QueryRowxContext(ctx, query,
		p.ProductID,
		p.PredictionDate.Format(dateLayout),
		p.HorizonDays,
		p.PredictedQty,
		p.ModelVersion,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert prediction: %w", err)
	}

	return nil
}

func (r *predictionRepository) ListPendingEvaluation(ctx context.Context, from, before time.Time) ([]domain.Prediction, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT id, product_id, prediction_date, horizon_days, predicted_qty,
		       model_version, created_at, evaluated_at
		FROM predictions
		WHERE prediction_date >= $1::date
		  AND prediction_date < $2::date
		  AND evaluated_at IS NULL
		ORDER BY prediction_date, product_id
	`

	var predictions []domain.Prediction
	if err := r.db.SelectContext(ctx, &predictions, query, from.Format(dateLayout), before.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("error listing predictions pending evaluation: %w", err)
	}

	return predictions, nil
}

func (r *predictionRepository) ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.Prediction, error) {
	if limit <= 0 {
		limit = 30
	}

	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT id, product_id, prediction_date, horizon_days, predicted_qty,
		       model_version, created_at, evaluated_at
		FROM predictions
		WHERE product_id = $1
		ORDER BY prediction_date DESC, model_version
		LIMIT $2
	`

	var predictions []domain.Prediction
	if err := r.db.SelectContext(ctx, &predictions, query, productID, limit); err != nil {
		return nil, fmt.Errorf("error listing predictions for product %d: %w", productID, err)
	}

	return predictions, nil
}

type metricRepository struct {
	db *DB
}

func NewMetricRepository(db *DB) repository.MetricRepository {
	return &metricRepository{db: db}
}

func (r *metricRepository) AppendEvaluation(ctx context.Context, metrics []domain.ModelMetric, predictionIDs []int64, evaluatedAt time.Time) error {
	if len(metrics) == 0 && len(predictionIDs) == 0 {
		return nil
	}

	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	insert := `
		INSERT INTO model_metrics (
			model_version, product_id, horizon, mae, rmse, sample_count, evaluated_at
		) VALUES (:model_version, :product_id, :horizon, :mae, :rmse, :sample_count, :evaluated_at)
	`

	return r.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		for _, m := range metrics {
			if _, err := tx.NamedExecContext(ctx, insert, m); err != nil {
				return fmt.Errorf("failed to insert model metric: %w", err)
			}
		}

		if len(predictionIDs) > 0 {
			_, err := tx.ExecContext(ctx,
				`UPDATE predictions SET evaluated_at = $1 WHERE id = ANY($2::bigint[])`,
				evaluatedAt, pq.Array(predictionIDs),
			)
			if err != nil {
				return fmt.Errorf("failed to mark predictions evaluated: %w", err)
			}
		}
		return nil
	})
}

func (r *metricRepository) ListByProduct(ctx context.Context, productID int64) ([]domain.ModelMetric, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT id, model_version, product_id, horizon, mae, rmse, sample_count, evaluated_at
		FROM model_metrics
		WHERE product_id = $1
		ORDER BY evaluated_at DESC
	`

	var metrics []domain.ModelMetric
	if err := r.db.SelectContext(ctx, &metrics, query, productID); err != nil {
		return nil, fmt.Errorf("error listing model metrics for product %d: %w", productID, err)
	}

	return metrics, nil
}
