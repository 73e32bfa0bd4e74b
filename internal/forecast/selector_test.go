package forecast

import (
	"testing"
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestSelectModelPrefersLowestAvailableMAE(t *testing.T) {
	now := time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)
	available := map[string]Forecast{
		MovingAverageVersion:    {},
		LinearRegressionVersion: {},
	}
	history := []domain.ModelMetric{
		{ModelVersion: MovingAverageVersion, MAE: 3.0, EvaluatedAt: now},
		{ModelVersion: "prophet_v1", MAE: 1.0, EvaluatedAt: now},
		{ModelVersion: LinearRegressionVersion, MAE: 2.0, EvaluatedAt: now},
	}

	assert.Equal(t, LinearRegressionVersion, SelectModel(available, history))
}

func TestSelectModelBreaksTiesByRecency(t *testing.T) {
	older := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	newer := older.AddDate(0, 0, 7)
	available := map[string]Forecast{
		MovingAverageVersion:   {},
		BaselineAverageVersion: {},
	}
	history := []domain.ModelMetric{
		{ModelVersion: MovingAverageVersion, MAE: 2.0, EvaluatedAt: older},
		{ModelVersion: BaselineAverageVersion, MAE: 2.0, EvaluatedAt: newer},
	}

	assert.Equal(t, BaselineAverageVersion, SelectModel(available, history))
}

func TestSelectModelDefaults(t *testing.T) {
	available := map[string]Forecast{
		MovingAverageVersion:   {},
		BaselineAverageVersion: {},
	}

	assert.Equal(t, MovingAverageVersion, SelectModel(available, nil))
	assert.Equal(t, MovingAverageVersion, SelectModel(available, []domain.ModelMetric{
		{ModelVersion: LinearRegressionVersion, MAE: 0.1},
	}))
}
