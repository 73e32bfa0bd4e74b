package forecast

import (
	"sort"

	"github.com/andresuchdata/retail-forecast/backend-go/internal/domain"
)

// DefaultModelVersion is used when accuracy history cannot decide.
const DefaultModelVersion = MovingAverageVersion

// SelectModel ranks the metric history by (mae asc, evaluated_at desc) and
// returns the first version that was computed in this run. It never fails:
// no usable history falls back to the moving average.
func SelectModel(available map[string]Forecast, history []domain.ModelMetric) string {
	ranked := make([]domain.ModelMetric, len(history))
	copy(ranked, history)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].MAE != ranked[j].MAE {
			return ranked[i].MAE < ranked[j].MAE
		}
		return ranked[i].EvaluatedAt.After(ranked[j].EvaluatedAt)
	})

	for _, m := range ranked {
		if _, ok := available[m.ModelVersion]; ok {
			return m.ModelVersion
		}
	}

	return DefaultModelVersion
}
