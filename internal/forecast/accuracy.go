package forecast

import "math"

// Sample pairs a stored prediction with what actually sold.
type Sample struct {
	Predicted int
	Actual    int
}

// Error returns the signed error (predicted - actual).
func (s Sample) Error() float64 {
	return float64(s.Predicted - s.Actual)
}

// Accuracy returns the mean absolute and root mean squared error.
func Accuracy(samples []Sample) (mae, rmse float64) {
	if len(samples) == 0 {
		return 0, 0
	}

	var absSum, sqSum float64
	for _, s := range samples {
		e := s.Error()
		absSum += math.Abs(e)
		sqSum += e * e
	}

	n := float64(len(samples))
	return absSum / n, math.Sqrt(sqSum / n)
}
