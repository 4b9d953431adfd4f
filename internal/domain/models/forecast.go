package models

// Series is the chronologically ordered mean price per period for one key.
type Series struct {
	Key     FilterKey
	Periods []string
	Values  []float64
}

func (s Series) Len() int { return len(s.Values) }

// LastPeriod returns the most recent period, or "" for an empty series.
func (s Series) LastPeriod() string {
	if len(s.Periods) == 0 {
		return ""
	}
	return s.Periods[len(s.Periods)-1]
}

type ForecastPoint struct {
	Period string  `json:"period"`
	Value  float64 `json:"value"`
	Lower  float64 `json:"lower"`
	Upper  float64 `json:"upper"`
}

// Metrics are held-out accuracy figures. A nil field encodes as null.
type Metrics struct {
	MAE  *float64 `json:"mae"`
	RMSE *float64 `json:"rmse"`
	MAPE *float64 `json:"mape"`
}

type ModelResult struct {
	Forecast []ForecastPoint `json:"forecast"`
	Metrics  Metrics         `json:"metrics"`
}

type SeriesForecast struct {
	Filters     Filters                `json:"filters"`
	LastPeriod  string                 `json:"last_period"`
	ForecastEnd string                 `json:"forecast_end"`
	Models      map[string]ModelResult `json:"models"`
}

type ModelInfo struct {
	Label string `json:"label"`
}

type Meta struct {
	GeneratedAt  string               `json:"generated_at"`
	TargetPeriod string               `json:"target_period"`
	MaxHorizon   int                  `json:"max_horizon"`
	Models       map[string]ModelInfo `json:"models"`
}

// Document is the engine output consumed by the dashboard.
type Document struct {
	Meta   Meta                      `json:"meta"`
	Series map[string]SeriesForecast `json:"series"`
}
