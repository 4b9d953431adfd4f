package clickhouse

import "fmt"

// ForecastSchema returns the DDL for the forecast output tables in database.
func ForecastSchema(database string) []string {
	return []string{
		fmt.Sprintf(`CREATE DATABASE IF NOT EXISTS %s`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.forecast_points (
    generated_at DateTime,
    series_key   String,
    model        LowCardinality(String),
    period       String,
    value        Float64,
    lower        Float64,
    upper        Float64
) ENGINE = ReplacingMergeTree(generated_at)
ORDER BY (series_key, model, period)`, database),
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s.forecast_metrics (
    generated_at DateTime,
    series_key   String,
    model        LowCardinality(String),
    mae          Nullable(Float64),
    rmse         Nullable(Float64),
    mape         Nullable(Float64)
) ENGINE = ReplacingMergeTree(generated_at)
ORDER BY (series_key, model)`, database),
	}
}
