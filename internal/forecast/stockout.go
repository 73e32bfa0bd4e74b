package forecast

import (
	"time"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
)

// DaysUntilStockout returns floor(stock / velocity), computed in integers as
// stock * window / total so whole-day boundaries are exact. ok is false when
// the product is not selling, i.e. it never runs out at the current pace.
func DaysUntilStockout(stock int, v domain.Velocity) (days int, ok bool) {
	if v.TotalQuantity <= 0 || v.WindowDays <= 0 {
		return 0, false
	}
	if stock <= 0 {
		return 0, true
	}
	return int(int64(stock) * int64(v.WindowDays) / int64(v.TotalQuantity)), true
}

// AssessStock classifies a product into a reorder alert. The second return
// value is false when no alert is warranted.
//
// Order matters: being at or under the reorder threshold is always the
// highest severity, whatever the velocity.
func AssessStock(p domain.Product, v domain.Velocity, daysThreshold int, today time.Time) (domain.StockAlert, bool) {
	if p.Stock <= p.ReorderThreshold {
		return domain.StockAlert{
			ProductID: p.ID,
			AlertType: domain.AlertLowStock,
			Severity:  3,
		}, true
	}

	days, ok := DaysUntilStockout(p.Stock, v)
	if !ok || days > daysThreshold {
		return domain.StockAlert{}, false
	}

	severity := 1
	switch {
	case days <= 1:
		severity = 3
	case days <= 3:
		severity = 2
	}

	out := truncateDay(today).AddDate(0, 0, days)
	return domain.StockAlert{
		ProductID:         p.ID,
		AlertType:         domain.AlertWillStockout,
		Severity:          severity,
		PredictedOutDate:  &out,
		DaysUntilStockout: &days,
	}, true
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
