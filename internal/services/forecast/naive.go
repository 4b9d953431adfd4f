package forecast

import (
	"errors"

	"PriceCast/internal/domain/models"
	"PriceCast/internal/domain/service"
	"PriceCast/pkg/util"
)

var errEmptySeries = errors.New("empty series")

type naive struct{}

// Naive repeats the last observed value over the horizon with a zero-width band.
func Naive() service.Model { return naive{} }

func (naive) Kind() string       { return KindNaive }
func (naive) Label() string      { return labels[KindNaive] }
func (naive) MinPeriods() int    { return 8 }
func (naive) UsesTraining() bool { return false }

func (naive) Forecast(req service.ForecastRequest) (*models.ModelResult, error) {
	s := req.Series
	if s.Len() == 0 {
		return nil, errEmptySeries
	}
	last := s.Values[s.Len()-1]
	points := make([]models.ForecastPoint, 0, req.Horizon)
	for step := 1; step <= req.Horizon; step++ {
		p, err := util.AddMonths(s.LastPeriod(), step)
		if err != nil {
			return nil, err
		}
		points = append(points, models.ForecastPoint{Period: p, Value: last, Lower: last, Upper: last})
	}
	return &models.ModelResult{Forecast: points}, nil
}
