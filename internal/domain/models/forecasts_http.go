package models

// Requests for forecast HTTP endpoints.

// ForecastQuery selects one series. Empty values are wildcards; a level may only be
// set when its parent is set.
type ForecastQuery struct {
	Region      string `query:"region" json:"region"`
	Category    string `query:"category" json:"category" validate:"required_with=Subcategory"`
	Subcategory string `query:"subcategory" json:"subcategory" validate:"required_with=Product"`
	Product     string `query:"product" json:"product"`
	Model       string `query:"model" json:"model" validate:"omitempty,oneof=naive random_forest xgboost lightgbm"`
}

// Key converts the query into the series key it addresses.
func (q ForecastQuery) Key() FilterKey {
	return FilterKey{Region: q.Region, Category: q.Category, Subcategory: q.Subcategory, Product: q.Product}
}

type KeysQuery struct {
	Limit  int `query:"limit" json:"limit" default:"500" validate:"gte=1,lte=10000"`
	Offset int `query:"offset" json:"offset" default:"0" validate:"gte=0"`
}
