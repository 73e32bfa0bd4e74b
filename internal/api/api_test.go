package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockForecaster struct {
	mock.Mock
}

func (m *mockForecaster) Forecast(ctx context.Context, req domain.ForecastRequest) (*domain.ForecastResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*domain.ForecastResponse)
	return resp, args.Error(1)
}

func (m *mockForecaster) ForecastAll(ctx context.Context) (domain.BatchForecastResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BatchForecastResult), args.Error(1)
}

func (m *mockForecaster) MetricHistory(ctx context.Context, productID int64) ([]domain.ModelMetric, error) {
	args := m.Called(ctx, productID)
	metrics, _ := args.Get(0).([]domain.ModelMetric)
	return metrics, args.Error(1)
}

func (m *mockForecaster) PredictionHistory(ctx context.Context, productID int64, limit int) ([]domain.Prediction, error) {
	args := m.Called(ctx, productID, limit)
	predictions, _ := args.Get(0).([]domain.Prediction)
	return predictions, args.Error(1)
}

type mockAlerts struct {
	mock.Mock
}

func (m *mockAlerts) Scan(ctx context.Context) (domain.AlertScanResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.AlertScanResult), args.Error(1)
}

func (m *mockAlerts) OpenAlerts(ctx context.Context, limit int) ([]domain.StockAlert, error) {
	args := m.Called(ctx, limit)
	alerts, _ := args.Get(0).([]domain.StockAlert)
	return alerts, args.Error(1)
}

type mockBacktest struct {
	mock.Mock
}

func (m *mockBacktest) Run(ctx context.Context) (domain.BacktestResult, error) {
	args := m.Called(ctx)
	return args.Get(0).(domain.BacktestResult), args.Error(1)
}

func init() {
	gin.SetMode(gin.TestMode)
}

func perform(router *gin.Engine, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestGetForecast(t *testing.T) {
	forecaster := &mockForecaster{}
	forecaster.On("Forecast", mock.Anything, domain.ForecastRequest{
		ProductID:   7,
		HorizonDays: 3,
		Method:      domain.MethodClassical,
	}).Return(&domain.ForecastResponse{
		ProductID:      7,
		ProductName:    "Roti Tawar",
		HorizonDays:    3,
		PredictedTotal: 12,
		PredictedDaily: []int{4, 4, 4},
		ModelVersion:   "moving_average_v1",
		ModelParams:    map[string]any{"window": 7},
		ComputedAt:     time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC),
	}, nil).Once()

	router := NewRouter(&Services{Forecast: forecaster}, nil)
	rec := perform(router, http.MethodGet, "/api/v1/products/7/forecast?horizon_days=3&method=classical")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "moving_average_v1", body["model_version"])
	assert.Equal(t, float64(12), body["predicted_total"])
	assert.Len(t, body["predicted_daily"], 3)
	assert.NotContains(t, body, "confidence_intervals")
	forecaster.AssertExpectations(t)
}

func TestGetForecastUnknownProduct(t *testing.T) {
	forecaster := &mockForecaster{}
	forecaster.On("Forecast", mock.Anything, mock.Anything).Return(nil, domain.ErrProductNotFound).Once()

	router := NewRouter(&Services{Forecast: forecaster}, nil)
	rec := perform(router, http.MethodGet, "/api/v1/products/404/forecast")

	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.JSONEq(t, `{"error":"product not found"}`, rec.Body.String())
}

func TestGetForecastRejectsBadInput(t *testing.T) {
	forecaster := &mockForecaster{}
	router := NewRouter(&Services{Forecast: forecaster}, nil)

	cases := []string{
		"/api/v1/products/abc/forecast",
		"/api/v1/products/1/forecast?horizon_days=0",
		"/api/v1/products/1/forecast?horizon_days=seven",
		"/api/v1/products/1/forecast?method=arima",
	}
	for _, path := range cases {
		t.Run(path, func(t *testing.T) {
			rec := perform(router, http.MethodGet, path)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
	forecaster.AssertNotCalled(t, "Forecast", mock.Anything, mock.Anything)
}

func TestGetForecastServiceValidationIsBadRequest(t *testing.T) {
	forecaster := &mockForecaster{}
	forecaster.On("Forecast", mock.Anything, mock.Anything).
		Return(nil, errors.Join(domain.ErrInvalidRequest, errors.New("horizon_days must be between 1 and 90"))).Once()

	router := NewRouter(&Services{Forecast: forecaster}, nil)
	rec := perform(router, http.MethodGet, "/api/v1/products/1/forecast?horizon_days=365")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetForecastInternalError(t *testing.T) {
	forecaster := &mockForecaster{}
	forecaster.On("Forecast", mock.Anything, mock.Anything).Return(nil, errors.New("db down")).Once()

	router := NewRouter(&Services{Forecast: forecaster}, nil)
	rec := perform(router, http.MethodGet, "/api/v1/products/1/forecast")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "db down")
}

func TestTriggers(t *testing.T) {
	forecaster := &mockForecaster{}
	forecaster.On("ForecastAll", mock.Anything).Return(domain.BatchForecastResult{ForecastsComputed: 4, Failures: 1}, nil).Once()
	alerts := &mockAlerts{}
	alerts.On("Scan", mock.Anything).Return(domain.AlertScanResult{AlertsCreated: 2}, nil).Once()
	backtest := &mockBacktest{}
	backtest.On("Run", mock.Anything).Return(domain.BacktestResult{EvaluationsCount: 0}, nil).Once()

	router := NewRouter(&Services{Forecast: forecaster, Alerts: alerts, Backtest: backtest}, []string{"*"})

	rec := perform(router, http.MethodPost, "/api/v1/alerts/scan")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"alerts_created":2}`, rec.Body.String())

	rec = perform(router, http.MethodPost, "/api/v1/backtest")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"evaluations_count":0}`, rec.Body.String())

	rec = perform(router, http.MethodPost, "/api/v1/forecasts/run")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"forecasts_computed":4,"failures":1}`, rec.Body.String())

	forecaster.AssertExpectations(t)
	alerts.AssertExpectations(t)
	backtest.AssertExpectations(t)
}

func TestListOpenAlerts(t *testing.T) {
	days := 2
	out := time.Date(2024, 6, 17, 0, 0, 0, 0, time.UTC)
	alerts := &mockAlerts{}
	alerts.On("OpenAlerts", mock.Anything, 100).Return([]domain.StockAlert{
		{ID: 1, ProductID: 3, AlertType: domain.AlertWillStockout, Severity: 2, PredictedOutDate: &out, DaysUntilStockout: &days},
		{ID: 2, ProductID: 4, AlertType: domain.AlertLowStock, Severity: 3},
	}, nil).Once()

	router := NewRouter(&Services{Alerts: alerts}, nil)
	rec := perform(router, http.MethodGet, "/api/v1/alerts")

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data []struct {
			AlertType         string `json:"alert_type"`
			AlertTypeLabel    string `json:"alert_type_label"`
			DaysUntilStockout *int   `json:"days_until_stockout"`
		} `json:"data"`
		Total int `json:"total"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, 2, body.Total)
	assert.Equal(t, "Will stock out", body.Data[0].AlertTypeLabel)
	assert.Equal(t, 2, *body.Data[0].DaysUntilStockout)
	assert.Nil(t, body.Data[1].DaysUntilStockout)
}

func TestProductHistoryEndpoints(t *testing.T) {
	forecaster := &mockForecaster{}
	forecaster.On("MetricHistory", mock.Anything, int64(5)).Return(nil, nil).Once()
	forecaster.On("PredictionHistory", mock.Anything, int64(5), 10).Return([]domain.Prediction{{ID: 9, ProductID: 5}}, nil).Once()
	forecaster.On("MetricHistory", mock.Anything, int64(6)).Return(nil, domain.ErrProductNotFound).Once()

	router := NewRouter(&Services{Forecast: forecaster}, nil)

	rec := perform(router, http.MethodGet, "/api/v1/products/5/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"data":[]}`, rec.Body.String())

	rec = perform(router, http.MethodGet, "/api/v1/products/5/predictions?limit=10")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"id":9`)

	rec = perform(router, http.MethodGet, "/api/v1/products/6/metrics")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	router := NewRouter(nil, nil)

	rec := perform(router, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = perform(router, http.MethodGet, "/metrics")
	assert.Equal(t, http.StatusOK, rec.Code)

	down := NewRouter(&Services{Ping: func(ctx context.Context) error { return errors.New("connection refused") }}, nil)
	rec = perform(down, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestNormalizeAllowedOrigins(t *testing.T) {
	origins, allowAll := normalizeAllowedOrigins([]string{"http://a.test, http://b.test", " "})
	assert.False(t, allowAll)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, origins)

	_, allowAll = normalizeAllowedOrigins([]string{"*"})
	assert.True(t, allowAll)
}
