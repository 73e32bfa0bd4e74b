package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/repository"
)

const dateLayout = "2006-01-02"

type productRepository struct {
	db *DB
}

func NewProductRepository(db *DB) repository.ProductRepository {
	return &productRepository{db: db}
}

func (r *productRepository) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT id, name, stock, reorder_threshold
		FROM products
		WHERE id = $1
	`

	var p domain.Product
	if err := r.db.GetContext(ctx, &p, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, fmt.Errorf("error getting product %d: %w", id, err)
	}

	return &p, nil
}

func (r *productRepository) ListProducts(ctx context.Context) ([]domain.Product, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT id, name, stock, reorder_threshold
		FROM products
		ORDER BY id
	`

	var products []domain.Product
	if err := r.db.SelectContext(ctx, &products, query); err != nil {
		return nil, fmt.Errorf("error listing products: %w", err)
	}

	return products, nil
}

type salesRepository struct {
	db *DB
}

func NewSalesRepository(db *DB) repository.SalesRepository {
	return &salesRepository{db: db}
}

// GetDailySales generates the calendar with generate_series and left-joins the
// per-day sums onto it, so idle days come back as explicit zeros.
func (r *salesRepository) GetDailySales(ctx context.Context, productID int64, start, end time.Time) ([]domain.DailySales, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		WITH days AS (
			SELECT generate_series($2::date, $3::date, interval '1 day')::date AS day
		),
		daily AS (
			SELECT s.created_at::date AS day, SUM(si.quantity) AS quantity
			FROM sale_items si
			JOIN sales s ON s.id = si.sale_id
			WHERE si.product_id = $1
			  AND s.created_at >= $2::date
			  AND s.created_at < ($3::date + 1)
			GROUP BY s.created_at::date
		)
		SELECT d.day, COALESCE(dl.quantity, 0)::int AS quantity
		FROM days d
		LEFT JOIN daily dl ON dl.day = d.day
		ORDER BY d.day
	`

	var rows []domain.DailySales
	if err := r.db.SelectContext(ctx, &rows, query, productID, start.Format(dateLayout), end.Format(dateLayout)); err != nil {
		return nil, fmt.Errorf("error getting daily sales for product %d: %w", productID, err)
	}

	return rows, nil
}

func (r *salesRepository) GetVelocity(ctx context.Context, productID int64, today time.Time, days int) (domain.Velocity, error) {
	if days <= 0 {
		return domain.Velocity{}, nil
	}

	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT COALESCE(SUM(si.quantity), 0)::int
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE si.product_id = $1
		  AND s.created_at >= ($2::date - $3::int)
		  AND s.created_at < $2::date
	`

	var total int
	if err := r.db.GetContext(ctx, &total, query, productID, today.Format(dateLayout), days); err != nil {
		return domain.Velocity{}, fmt.Errorf("error getting sales velocity for product %d: %w", productID, err)
	}

	return domain.Velocity{TotalQuantity: total, WindowDays: days}, nil
}

func (r *salesRepository) GetQuantitySold(ctx context.Context, productID int64, day time.Time) (int, error) {
	ctx, cancel := r.db.bounded(ctx)
	defer cancel()

	query := `
		SELECT COALESCE(SUM(si.quantity), 0)::int
		FROM sale_items si
		JOIN sales s ON s.id = si.sale_id
		WHERE si.product_id = $1
		  AND s.created_at >= $2::date
		  AND s.created_at < ($2::date + 1)
	`

	var qty int
	if err := r.db.GetContext(ctx, &qty, query, productID, day.Format(dateLayout)); err != nil {
		return 0, fmt.Errorf("error getting quantity sold for product %d on %s: %w", productID, day.Format(dateLayout), err)
	}

	return qty, nil
}
