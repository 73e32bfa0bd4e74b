package forecast

// LinearRegression fits quantity ~ day_index by ordinary least squares and
// extrapolates the line past the end of the series.
type LinearRegression struct{}

func NewLinearRegression() *LinearRegression {
	return &LinearRegression{}
}

func (m *LinearRegression) Version() string {
	return LinearRegressionVersion
}

func (m *LinearRegression) Fit(in Input) Outcome {
	n := len(in.Series)
	if n < 2 {
		return NotApplicable("linear regression needs at least 2 points")
	}

	var sumX, sumY, sumXY, sumXX float64
	for i, y := range in.Series {
		x := float64(i)
		sumX += x
		sumY += float64(y)
		sumXY += x * float64(y)
		sumXX += x * x
	}

	fn := float64(n)
	denom := fn*sumXX - sumX*sumX
	slope := 0.0
	if denom != 0 {
		slope = (fn*sumXY - sumX*sumY) / denom
	}
	intercept := (sumY - slope*sumX) / fn

	horizon := horizonOf(in)
	daily := make([]int, horizon)
	for i := range daily {
		daily[i] = RoundNonNegative(intercept + slope*float64(n+i))
	}

	return Computed(Forecast{
		ModelVersion:   LinearRegressionVersion,
		PredictedDaily: daily,
		PredictedTotal: sum(daily),
		Params: map[string]any{
			"slope":     slope,
			"intercept": intercept,
			"points":    n,
		},
	})
}
