package forecast

import (
	"fmt"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/features"
	"PriceCast/pkg/util"
)

// Recursive rolls a fitted regressor forward horizon steps past lastPeriod. Each
// prediction is appended to the history the next step reads from.
func Recursive(reg service.Regressor, values []float64, lastPeriod string, plan features.Plan, horizon int, sigma float64) ([]models.ForecastPoint, error) {
	history := make([]float64, len(values), len(values)+horizon)
	copy(history, values)

	band := z95 * sigma
	points := make([]models.ForecastPoint, 0, horizon)
	for step := 1; step <= horizon; step++ {
		period, err := util.AddMonths(lastPeriod, step)
		if err != nil {
			return nil, err
		}
		row, err := features.BuildInferenceRow(history, period, plan)
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		out, err := reg.Predict([][]float64{row})
		if err != nil {
			return nil, fmt.Errorf("step %d: %w", step, err)
		}
		v := out[0]
		history = append(history, v)
		points = append(points, models.ForecastPoint{Period: period, Value: v, Lower: v - band, Upper: v + band})
	}
	return points, nil
}
