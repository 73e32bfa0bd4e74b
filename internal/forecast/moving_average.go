package forecast

// MovingAverage averages the most recent days. The window shrinks to the
// available history so young products are not judged on a few idle days.
type MovingAverage struct {
	window int
}

func NewMovingAverage(window int) *MovingAverage {
	if window <= 0 {
		window = 7
	}
	return &MovingAverage{window: window}
}

func (m *MovingAverage) Version() string {
	return MovingAverageVersion
}

func (m *MovingAverage) Fit(in Input) Outcome {
	horizon := horizonOf(in)

	window := m.window
	if len(in.Series) < window {
		window = len(in.Series)
	}

	avg := 0.0
	if window > 0 {
		avg = float64(sum(in.Series[len(in.Series)-window:])) / float64(window)
	}

	return Computed(flat(MovingAverageVersion, avg, horizon, map[string]any{
		"window":            window,
		"configured_window": m.window,
		"average":           avg,
	}))
}
