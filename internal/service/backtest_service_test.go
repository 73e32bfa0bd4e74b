package service

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/config"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/andresuchdata/retail-forecast/backend-go/internal/forecast"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBacktestFixture() (*BacktestService, *fakePredictions, *fakeMetrics, *fakeSales) {
	predictions := newFakePredictions()
	metrics := &fakeMetrics{predictions: predictions}
	sales := newFakeSales()

	svc := NewBacktestService(predictions, sales, metrics, nil, nil, config.BacktestConfig{WindowDays: 14})
	svc.now = func() time.Time { return fixedNow }
	return svc, predictions, metrics, sales
}

func TestBacktestGroupsByModelProductHorizon(t *testing.T) {
	svc, predictions, metrics, sales := newBacktestFixture()

	sales.set(1, "2024-06-14", 3)
	sales.set(1, "2024-06-13", 6)

	predictions.add(domain.Prediction{ProductID: 1, PredictionDate: day("2024-06-14"), HorizonDays: 7, PredictedQty: 5, ModelVersion: forecast.MovingAverageVersion})
	predictions.add(domain.Prediction{ProductID: 1, PredictionDate: day("2024-06-13"), HorizonDays: 7, PredictedQty: 10, ModelVersion: forecast.MovingAverageVersion})
	predictions.add(domain.Prediction{ProductID: 1, PredictionDate: day("2024-06-14"), HorizonDays: 7, PredictedQty: 1, ModelVersion: forecast.LinearRegressionVersion})
	// Today's target has not passed yet.
	predictions.add(domain.Prediction{ProductID: 1, PredictionDate: day("2024-06-15"), HorizonDays: 7, PredictedQty: 4, ModelVersion: forecast.MovingAverageVersion})
	// Outside the 14-day window.
	predictions.add(domain.Prediction{ProductID: 1, PredictionDate: day("2024-05-01"), HorizonDays: 7, PredictedQty: 4, ModelVersion: forecast.MovingAverageVersion})

	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 2, result.EvaluationsCount)
	require.Len(t, metrics.rows, 2)

	byModel := make(map[string]domain.ModelMetric)
	for _, m := range metrics.rows {
		byModel[m.ModelVersion] = m
	}

	ma := byModel[forecast.MovingAverageVersion]
	assert.Equal(t, int64(1), ma.ProductID)
	assert.Equal(t, 7, ma.Horizon)
	assert.Equal(t, 2, ma.SampleCount)
	assert.InDelta(t, 3.0, ma.MAE, 1e-9)
	assert.InDelta(t, math.Sqrt(10), ma.RMSE, 1e-9)
	assert.Equal(t, fixedNow, ma.EvaluatedAt)

	lr := byModel[forecast.LinearRegressionVersion]
	assert.Equal(t, 1, lr.SampleCount)
	assert.InDelta(t, 2.0, lr.MAE, 1e-9)
	assert.InDelta(t, 2.0, lr.RMSE, 1e-9)
}

func TestBacktestSecondRunIsNoop(t *testing.T) {
	svc, predictions, metrics, sales := newBacktestFixture()
	sales.set(2, "2024-06-10", 4)
	predictions.add(domain.Prediction{ProductID: 2, PredictionDate: day("2024-06-10"), HorizonDays: 7, PredictedQty: 4, ModelVersion: forecast.BaselineAverageVersion})

	first, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first.EvaluationsCount)

	second, err := svc.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, second.EvaluationsCount)
	assert.Len(t, metrics.rows, 1)
	assert.InDelta(t, 0.0, metrics.rows[0].MAE, 1e-9)
}

func TestBacktestWithNothingPending(t *testing.T) {
	svc, _, metrics, _ := newBacktestFixture()

	result, err := svc.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, 0, result.EvaluationsCount)
	assert.Empty(t, metrics.rows)
}
