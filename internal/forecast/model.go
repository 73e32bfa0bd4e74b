// Package forecast holds the classical demand models, the accuracy-driven
// model selector and the stock-out classifier. Everything here is pure and
// works on already-aggregated daily series.
package forecast

import (
	"math"
	"sync"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
	"golang.org/x/sync/errgroup"
)

// Model versions persisted with predictions and metrics.
const (
	MovingAverageVersion    = "moving_average_v1"
	LinearRegressionVersion = "linear_regression_v1"
	BaselineAverageVersion  = "baseline_average_v1"
)

// Input is shared by every classical model in a run.
type Input struct {
	// Series is the daily quantity history, oldest first, ending yesterday.
	Series []int
	// Horizon is the number of future days to forecast.
	Horizon int
	// Baseline is the long-window calendar velocity.
	Baseline domain.Velocity
}

// Forecast is a computed model output.
type Forecast struct {
	ModelVersion   string
	PredictedDaily []int
	PredictedTotal int
	Params         map[string]any
}

// Outcome is either a computed forecast or a reason the model does not apply.
type Outcome struct {
	Forecast   Forecast
	Applicable bool
	Reason     string
}

// Computed wraps a forecast as an applicable outcome.
func Computed(f Forecast) Outcome {
	return Outcome{Forecast: f, Applicable: true}
}

// NotApplicable marks a model as excluded from this run.
func NotApplicable(reason string) Outcome {
	return Outcome{Reason: reason}
}

// Model is a classical forecasting model.
type Model interface {
	Version() string
	Fit(in Input) Outcome
}

// DefaultModels returns the three classical models with the given window.
func DefaultModels(maWindow int) []Model {
	return []Model{
		NewMovingAverage(maWindow),
		NewLinearRegression(),
		NewBaselineAverage(),
	}
}

// RunAll fits every model concurrently and returns the applicable forecasts
// keyed by model version, plus the reasons for skipped ones.
func RunAll(models []Model, in Input) (map[string]Forecast, map[string]string) {
	var (
		mu      sync.Mutex
		results = make(map[string]Forecast, len(models))
		skipped = make(map[string]string)
	)

	var g errgroup.Group
	for _, m := range models {
		g.Go(func() error {
			outcome := m.Fit(in)

			mu.Lock()
			defer mu.Unlock()
			if outcome.Applicable {
				results[m.Version()] = outcome.Forecast
			} else {
				skipped[m.Version()] = outcome.Reason
			}
			return nil
		})
	}
	_ = g.Wait()

	return results, skipped
}

// flat repeats a single non-negative rounded value across the horizon.
func flat(version string, value float64, horizon int, params map[string]any) Forecast {
	daily := make([]int, horizon)
	v := RoundNonNegative(value)
	for i := range daily {
		daily[i] = v
	}
	return Forecast{
		ModelVersion:   version,
		PredictedDaily: daily,
		PredictedTotal: v * horizon,
		Params:         params,
	}
}

// RoundNonNegative rounds to the nearest whole unit, clamping negatives and NaN to zero.
func RoundNonNegative(v float64) int {
	if math.IsNaN(v) || v <= 0 {
		return 0
	}
	return int(math.Round(v))
}

func sum(values []int) int {
	total := 0
	for _, v := range values {
		total += v
	}
	return total
}

func horizonOf(in Input) int {
	if in.Horizon < 0 {
		return 0
	}
	return in.Horizon
}
