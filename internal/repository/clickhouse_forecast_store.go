package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"PriceCast/internal/domain/models"
	pkgch "PriceCast/pkg/clickhouse"
)

// CHForecastStore appends forecast points and metrics to ClickHouse.
type CHForecastStore struct {
	db       *sql.DB
	database string
}

func NewCHForecastStore(ch *pkgch.Client, database string) *CHForecastStore {
	return &CHForecastStore{db: ch.DB(), database: database}
}

func (s *CHForecastStore) Name() string { return "clickhouse" }

func (s *CHForecastStore) Write(ctx context.Context, doc *models.Document) error {
	points, metrics, err := forecastRows(doc)
	if err != nil {
		return err
	}
	pq := fmt.Sprintf("INSERT INTO %s.forecast_points (generated_at, series_key, model, period, value, lower, upper) VALUES (?, ?, ?, ?, ?, ?, ?)", s.database)
	if err := pkgch.InsertBatch(ctx, s.db, pq, points); err != nil {
		return fmt.Errorf("insert forecast points: %w", err)
	}
	mq := fmt.Sprintf("INSERT INTO %s.forecast_metrics (generated_at, series_key, model, mae, rmse, mape) VALUES (?, ?, ?, ?, ?, ?)", s.database)
	if err := pkgch.InsertBatch(ctx, s.db, mq, metrics); err != nil {
		return fmt.Errorf("insert forecast metrics: %w", err)
	}
	return nil
}

// forecastRows flattens the document into insert rows in key, model, period order.
func forecastRows(doc *models.Document) ([][]any, [][]any, error) {
	ts, err := time.Parse(time.RFC3339, doc.Meta.GeneratedAt)
	if err != nil {
		return nil, nil, fmt.Errorf("generated_at: %w", err)
	}
	keys := make([]string, 0, len(doc.Series))
	for k := range doc.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var points, metrics [][]any
	for _, k := range keys {
		sf := doc.Series[k]
		kinds := make([]string, 0, len(sf.Models))
		for kind := range sf.Models {
			kinds = append(kinds, kind)
		}
		sort.Strings(kinds)
		for _, kind := range kinds {
			res := sf.Models[kind]
			for _, p := range res.Forecast {
				points = append(points, []any{ts, k, kind, p.Period, p.Value, p.Lower, p.Upper})
			}
			metrics = append(metrics, []any{ts, k, kind, res.Metrics.MAE, res.Metrics.RMSE, res.Metrics.MAPE})
		}
	}
	return points, metrics, nil
}
