package postgres

import (
	"context"
	"fmt"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository"
)

type alertRepository struct {
	db *DB
}

func NewAlertRepository(db *DB) repository.AlertRepository {
	return &alertRepository{db: db}
}

// CreateIfAbsent leans on the partial unique index ux_stock_alerts_open_dedup
// (unresolved rows only), so the existence check and the insert are one
// atomic statement even when scans overlap.
func (r *alertRepository) CreateIfAbsent(ctx context.Context, alert *domain.StockAlert) (bool, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		INSERT INTO stock_alerts (
			product_id, alert_type, severity, predicted_out_date, days_until_stockout, resolved, created_at
		) VALUES ($1, $2, $3, $4::date, $5, FALSE, NOW())
		ON CONFLICT (
			product_id, alert_type, severity,
			COALESCE(predicted_out_date, DATE '1970-01-01'),
			COALESCE(days_until_stockout, -1)
		) WHERE NOT resolved
		DO NOTHING
		RETURNING id, created_at
	`

	var outDate *string
	if alert.PredictedOutDate != nil {
		s := alert.PredictedOutDate.Format(dateLayout)
		outDate = &s
	}

	rows, err := r.db.QueryxContext(ctx, query,
		alert.ProductID,
		string(alert.AlertType),
		alert.Severity,
		outDate,
		alert.DaysUntilStockout,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert stock alert: %w", err)
	}
	defer rows.Close()

	created := false
	if rows.Next() {
		if err := rows.Scan(&alert.ID, &alert.CreatedAt); err != nil {
			return false, fmt.Errorf("failed to scan stock alert id: %w", err)
		}
		created = true
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("error iterating stock alert insert: %w", err)
	}

	return created, nil
}

func (r *alertRepository) ListOpen(ctx context.Context, limit int) ([]domain.StockAlert, error) {
	if limit <= 0 {
		limit = 100
	}

	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT id, product_id, alert_type, severity, predicted_out_date,
		       days_until_stockout, resolved, created_at
		FROM stock_alerts
		WHERE NOT resolved
		ORDER BY severity DESC, created_at DESC
		LIMIT $1
	`

	var alerts []domain.StockAlert
	if err := r.db.SelectContext(ctx, &alerts, query, limit); err != nil {
		return nil, fmt.Errorf("error listing open stock alerts: %w", err)
	}

	return alerts, nil
}
