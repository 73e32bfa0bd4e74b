package service

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/prophet"
	"github.com/stretchr/testify/mock"
)

var fixedNow = time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC)

func day(s string) time.Time {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

type fakeProducts struct {
	mu       sync.Mutex
	products map[int64]domain.Product
}

func newFakeProducts(products ...domain.Product) *fakeProducts {
	f := &fakeProducts{products: make(map[int64]domain.Product)}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeProducts) GetProduct(ctx context.Context, id int64) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeProducts) ListProducts(ctx context.Context) ([]domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]domain.Product, 0, len(f.products))
	for _, p := range f.products {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakeProducts) setStock(id int64, stock int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[id]
	p.Stock = stock
	f.products[id] = p
}

// fakeSales keeps per-product daily totals keyed by YYYY-MM-DD.
type fakeSales struct {
	daily       map[int64]map[string]int
	velocityErr error
}

func newFakeSales() *fakeSales {
	return &fakeSales{daily: make(map[int64]map[string]int)}
}

// fill records qty units per day for the `days` days ending the day before today.
func (f *fakeSales) fill(productID int64, today time.Time, days, qty int) {
	if f.daily[productID] == nil {
		f.daily[productID] = make(map[string]int)
	}
	for i := 1; i <= days; i++ {
		f.daily[productID][today.AddDate(0, 0, -i).Format(dateLayout)] = qty
	}
}

func (f *fakeSales) set(productID int64, d string, qty int) {
	if f.daily[productID] == nil {
		f.daily[productID] = make(map[string]int)
	}
	f.daily[productID][d] = qty
}

func (f *fakeSales) GetDailySales(ctx context.Context, productID int64, start, end time.Time) ([]domain.DailySales, error) {
	var rows []domain.DailySales
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		rows = append(rows, domain.DailySales{Date: d, Quantity: f.daily[productID][d.Format(dateLayout)]})
	}
	return rows, nil
}

func (f *fakeSales) GetVelocity(ctx context.Context, productID int64, today time.Time, days int) (domain.Velocity, error) {
	if f.velocityErr != nil {
		return domain.Velocity{}, f.velocityErr
	}
	total := 0
	for i := 1; i <= days; i++ {
		total += f.daily[productID][truncateDay(today).AddDate(0, 0, -i).Format(dateLayout)]
	}
	return domain.Velocity{TotalQuantity: total, WindowDays: days}, nil
}

func (f *fakeSales) GetQuantitySold(ctx context.Context, productID int64, d time.Time) (int, error) {
	return f.daily[productID][d.Format(dateLayout)], nil
}

type predictionKey struct {
	productID int64
	day       string
	model     string
}

// fakePredictions honours the natural-key upsert.
type fakePredictions struct {
	mu         sync.Mutex
	rows       map[predictionKey]*domain.Prediction
	nextID     int64
	upsertErr  error
	upsertHits int
}

func newFakePredictions() *fakePredictions {
	return &fakePredictions{rows: make(map[predictionKey]*domain.Prediction)}
}

func (f *fakePredictions) UpsertPrediction(ctx context.Context, p *domain.Prediction) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertHits++
	if f.upsertErr != nil {
		return f.upsertErr
	}

	key := predictionKey{productID: p.ProductID, day: p.PredictionDate.Format(dateLayout), model: p.ModelVersion}
	if existing, ok := f.rows[key]; ok {
		existing.HorizonDays = p.HorizonDays
		existing.PredictedQty = p.PredictedQty
		existing.EvaluatedAt = nil
		p.ID = existing.ID
		return nil
	}

	f.nextID++
	stored := *p
	stored.ID = f.nextID
	f.rows[key] = &stored
	p.ID = stored.ID
	return nil
}

func (f *fakePredictions) add(p domain.Prediction) {
	_ = f.UpsertPrediction(context.Background(), &p)
}

func (f *fakePredictions) ListPendingEvaluation(ctx context.Context, from, before time.Time) ([]domain.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Prediction
	for _, p := range f.rows {
		if p.EvaluatedAt != nil || p.PredictionDate.Before(from) || !p.PredictionDate.Before(before) {
			continue
		}
		out = append(out, *p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (f *fakePredictions) ListByProduct(ctx context.Context, productID int64, limit int) ([]domain.Prediction, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.Prediction
	for _, p := range f.rows {
		if p.ProductID == productID {
			out = append(out, *p)
		}
	}
	return out, nil
}

func (f *fakePredictions) markEvaluated(ids []int64, at time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	marked := make(map[int64]bool, len(ids))
	for _, id := range ids {
		marked[id] = true
	}
	for _, p := range f.rows {
		if marked[p.ID] {
			ts := at
			p.EvaluatedAt = &ts
		}
	}
}

func (f *fakePredictions) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.rows)
}

type fakeMetrics struct {
	mu          sync.Mutex
	rows        []domain.ModelMetric
	predictions *fakePredictions
}

func (f *fakeMetrics) AppendEvaluation(ctx context.Context, metrics []domain.ModelMetric, predictionIDs []int64, evaluatedAt time.Time) error {
	f.mu.Lock()
	f.rows = append(f.rows, metrics...)
	f.mu.Unlock()
	if f.predictions != nil {
		f.predictions.markEvaluated(predictionIDs, evaluatedAt)
	}
	return nil
}

func (f *fakeMetrics) ListByProduct(ctx context.Context, productID int64) ([]domain.ModelMetric, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.ModelMetric
	for _, m := range f.rows {
		if m.ProductID == productID {
			out = append(out, m)
		}
	}
	return out, nil
}

// fakeAlerts dedups on the unresolved (alert_type, severity, out date, days) tuple.
type fakeAlerts struct {
	mu   sync.Mutex
	rows []domain.StockAlert
}

func (f *fakeAlerts) CreateIfAbsent(ctx context.Context, alert *domain.StockAlert) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, a := range f.rows {
		if a.Resolved || a.ProductID != alert.ProductID || a.AlertType != alert.AlertType || a.Severity != alert.Severity {
			continue
		}
		if sameDate(a.PredictedOutDate, alert.PredictedOutDate) && sameInt(a.DaysUntilStockout, alert.DaysUntilStockout) {
			return false, nil
		}
	}
	alert.ID = int64(len(f.rows) + 1)
	f.rows = append(f.rows, *alert)
	return true, nil
}

func (f *fakeAlerts) ListOpen(ctx context.Context, limit int) ([]domain.StockAlert, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []domain.StockAlert
	for _, a := range f.rows {
		if !a.Resolved {
			out = append(out, a)
		}
	}
	return out, nil
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Format(dateLayout) == b.Format(dateLayout)
}

func sameInt(a, b *int) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Forecast(ctx context.Context, req prophet.Request) prophet.Result {
	args := m.Called(ctx, req)
	return args.Get(0).(prophet.Result)
}
