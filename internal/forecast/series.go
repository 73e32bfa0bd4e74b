package forecast

import (
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
)

// SeriesWindow returns the first and last calendar day of a window of the
// given length that ends yesterday. Today's partial day is never included.
func SeriesWindow(today time.Time, days int) (start, end time.Time) {
	end = truncateDay(today).AddDate(0, 0, -1)
	start = end.AddDate(0, 0, -(days - 1))
	return start, end
}

// BuildSeries lays rows onto a zero-filled calendar of exactly `days` slots
// starting at start. Rows outside the window are ignored.
func BuildSeries(start time.Time, days int, rows []domain.DailySales) []int {
	if days <= 0 {
		return []int{}
	}

	series := make([]int, days)
	origin := truncateDay(start)
	for _, r := range rows {
		idx := dayIndex(origin, r.Date)
		if idx < 0 || idx >= days {
			continue
		}
		if r.Quantity > 0 {
			series[idx] += r.Quantity
		}
	}
	return series
}

// ActiveHistory drops the leading idle days before the first recorded sale,
// leaving the part of the window the product has actually been selling in.
func ActiveHistory(series []int) []int {
	for i, v := range series {
		if v > 0 {
			return series[i:]
		}
	}
	return []int{}
}

func dayIndex(origin, t time.Time) int {
	oy, om, od := origin.Date()
	y, m, d := t.Date()
	from := time.Date(oy, om, od, 0, 0, 0, 0, time.UTC)
	day := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	return int(day.Sub(from).Hours() / 24)
}
