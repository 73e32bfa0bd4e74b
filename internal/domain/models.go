// backend-go/internal/domain/models.go
package domain

import "time"

// Product is the slice of the catalog record the forecasting core reads.
type Product struct {
	ID               int64  `json:"id" db:"id"`
	Name             string `json:"name" db:"name"`
	Stock            int    `json:"stock" db:"stock"`
	ReorderThreshold int    `json:"reorder_threshold" db:"reorder_threshold"`
}

// SaleLine is a single sold line item. Read-only here.
type SaleLine struct {
	ProductID     int64     `json:"product_id" db:"product_id"`
	Quantity      int       `json:"quantity" db:"quantity"`
	SaleTimestamp time.Time `json:"sale_timestamp" db:"sale_timestamp"`
}

// DailySales is one row of the zero-filled calendar join.
type DailySales struct {
	Date     time.Time `db:"day"`
	Quantity int       `db:"quantity"`
}

// Prediction is the persisted output of a forecast run.
// (product_id, prediction_date, model_version) is the natural key.
type Prediction struct {
	ID             int64      `json:"id" db:"id"`
	ProductID      int64      `json:"product_id" db:"product_id"`
	PredictionDate time.Time  `json:"prediction_date" db:"prediction_date"`
	HorizonDays    int        `json:"horizon_days" db:"horizon_days"`
	PredictedQty   int        `json:"predicted_qty" db:"predicted_qty"`
	ModelVersion   string     `json:"model_version" db:"model_version"`
	CreatedAt      time.Time  `json:"created_at" db:"created_at"`
	EvaluatedAt    *time.Time `json:"evaluated_at,omitempty" db:"evaluated_at"`
}

// ModelMetric is one append-only accuracy snapshot.
type ModelMetric struct {
	ID           int64     `json:"id" db:"id"`
	ModelVersion string    `json:"model_version" db:"model_version"`
	ProductID    int64     `json:"product_id" db:"product_id"`
	Horizon      int       `json:"horizon" db:"horizon"`
	MAE          float64   `json:"mae" db:"mae"`
	RMSE         float64   `json:"rmse" db:"rmse"`
	SampleCount  int       `json:"sample_count" db:"sample_count"`
	EvaluatedAt  time.Time `json:"evaluated_at" db:"evaluated_at"`
}

// StockAlert is a graded reorder alert.
type StockAlert struct {
	ID                int64      `json:"id" db:"id"`
	ProductID         int64      `json:"product_id" db:"product_id"`
	AlertType         AlertType  `json:"alert_type" db:"alert_type"`
	Severity          int        `json:"severity" db:"severity"`
	PredictedOutDate  *time.Time `json:"predicted_out_date,omitempty" db:"predicted_out_date"`
	DaysUntilStockout *int       `json:"days_until_stockout,omitempty" db:"days_until_stockout"`
	Resolved          bool       `json:"resolved" db:"resolved"`
	CreatedAt         time.Time  `json:"created_at" db:"created_at"`
}

// Velocity is a calendar-aware sales rate: total units over a fixed number of
// calendar days, idle days included.
type Velocity struct {
	TotalQuantity int `json:"total_quantity" db:"total_quantity"`
	WindowDays    int `json:"window_days" db:"window_days"`
}

// PerDay returns the average units sold per calendar day.
func (v Velocity) PerDay() float64 {
	if v.WindowDays <= 0 {
		return 0
	}
	return float64(v.TotalQuantity) / float64(v.WindowDays)
}

// ConfidenceInterval is the advanced model's band for one forecast day.
type ConfidenceInterval struct {
	Date       string  `json:"date"`
	Prediction float64 `json:"prediction"`
	LowerBound float64 `json:"lower_bound"`
	UpperBound float64 `json:"upper_bound"`
}

// ForecastRequest is what the API layer asks for.
type ForecastRequest struct {
	ProductID   int64          `json:"product_id"`
	HorizonDays int            `json:"horizon_days"`
	Method      ForecastMethod `json:"method"`
}

// ForecastResponse is the uniform response shape of both forecast paths.
type ForecastResponse struct {
	ProductID           int64                `json:"product_id"`
	ProductName         string               `json:"product_name"`
	HorizonDays         int                  `json:"horizon_days"`
	PredictedTotal      int                  `json:"predicted_total"`
	PredictedDaily      []int                `json:"predicted_daily"`
	ModelVersion        string               `json:"model_version"`
	ModelParams         map[string]any       `json:"model_params"`
	ComputedAt          time.Time            `json:"computed_at"`
	ConfidenceIntervals []ConfidenceInterval `json:"confidence_intervals,omitempty"`
}

// BatchForecastResult summarises a forecast run over every product.
type BatchForecastResult struct {
	ForecastsComputed int `json:"forecasts_computed"`
	Failures          int `json:"failures"`
}

// AlertScanResult is returned by the alert scan trigger.
type AlertScanResult struct {
	AlertsCreated int `json:"alerts_created"`
}

// BacktestResult is returned by the backtest trigger.
type BacktestResult struct {
	EvaluationsCount int `json:"evaluations_count"`
}
