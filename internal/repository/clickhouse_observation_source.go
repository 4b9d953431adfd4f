package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	pkgch "PriceCast/pkg/clickhouse"
	applogger "PriceCast/pkg/logger"
)

// CHObservationSource reads observations from a ClickHouse table with columns
// period, region, category, subcategory, product and price.
type CHObservationSource struct {
	db    *sql.DB
	table string
	l     *applogger.Logger
}

func NewCHObservationSource(ch *pkgch.Client, table string, l *applogger.Logger) *CHObservationSource {
	return &CHObservationSource{db: ch.DB(), table: table, l: l}
}

func (s *CHObservationSource) Load(ctx context.Context) ([]models.Observation, error) {
	start := time.Now()
	q := fmt.Sprintf(`
        SELECT period, region, category, subcategory, product, toFloat64(price)
        FROM %s
    `, s.table)
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		s.l.Error("clickhouse observations query error",
			applogger.String("table", s.table),
			applogger.Error(err),
		)
		return nil, fmt.Errorf("query observations: %w", err)
	}
	defer rows.Close()

	out := make([]models.Observation, 0, 4096)
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.Period, &o.Region, &o.Category, &o.Subcategory, &o.Product, &o.Price); err != nil {
			return nil, fmt.Errorf("scan observation: %w", err)
		}
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	s.l.Debug("clickhouse observations loaded",
		applogger.String("table", s.table),
		applogger.Int("rows", len(out)),
		applogger.Duration("took_ms", time.Since(start)),
	)
	return out, nil
}
