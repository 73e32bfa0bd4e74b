package forecast

// BaselineAverage repeats the long-window calendar velocity. Idle days count
// toward the divisor, so sparse sellers are not overstated.
type BaselineAverage struct{}

func NewBaselineAverage() *BaselineAverage {
	return &BaselineAverage{}
}

func (m *BaselineAverage) Version() string {
	return BaselineAverageVersion
}

func (m *BaselineAverage) Fit(in Input) Outcome {
	if in.Baseline.WindowDays <= 0 {
		return NotApplicable("no baseline window")
	}

	avg := in.Baseline.PerDay()
	return Computed(flat(BaselineAverageVersion, avg, horizonOf(in), map[string]any{
		"window_days":    in.Baseline.WindowDays,
		"total_quantity": in.Baseline.TotalQuantity,
		"average":        avg,
	}))
}
