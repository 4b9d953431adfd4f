package usecase

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	"PriceCast/internal/domain/service"
	"PriceCast/internal/services/forecast"
	"PriceCast/internal/services/series"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

// EngineConfig holds the run-wide forecasting settings.
type EngineConfig struct {
	TargetPeriod string
	MaxHorizon   int
	Seed         int64
	// Workers bounds concurrent series. Zero means runtime.NumCPU().
	Workers int
	// MaxTrainingCalls caps learned-model attempts per run. Zero means unlimited.
	MaxTrainingCalls int
}

// ForecastEngine turns the observation table into a forecast document.
type ForecastEngine struct {
	source  drepo.ObservationSource
	metrics drepo.Metrics
	log     *logger.Logger
	cfg     EngineConfig
	catalog []service.Model
	now     func() time.Time
}

type EngineOption func(*ForecastEngine)

// WithCatalog replaces the default model catalog.
func WithCatalog(c []service.Model) EngineOption {
	return func(e *ForecastEngine) { e.catalog = c }
}

// WithClock overrides the generated_at clock.
func WithClock(now func() time.Time) EngineOption {
	return func(e *ForecastEngine) { e.now = now }
}

func NewForecastEngine(
	source drepo.ObservationSource,
	metrics drepo.Metrics,
	log *logger.Logger,
	cfg EngineConfig,
	opts ...EngineOption,
) *ForecastEngine {
	e := &ForecastEngine{
		source:  source,
		metrics: metrics,
		log:     log,
		cfg:     cfg,
		catalog: forecast.Catalog(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// RunParams overrides engine settings for a single run.
type RunParams struct {
	TargetPeriod string
}

type seriesJob struct {
	series  models.Series
	horizon int
	models  []service.Model
}

// Run loads observations, forecasts every eligible series and assembles the document.
func (e *ForecastEngine) Run(ctx context.Context, p RunParams) (*models.Document, error) {
	start := time.Now()
	target := e.cfg.TargetPeriod
	if p.TargetPeriod != "" {
		target = p.TargetPeriod
	}
	if !util.IsPeriod(target) {
		return nil, fmt.Errorf("target period: %w: %q", util.ErrInvalidPeriod, target)
	}

	obs, err := e.source.Load(ctx)
	if err != nil {
		e.metrics.RecordError("load")
		return nil, fmt.Errorf("load observations: %w", err)
	}

	all, stats := series.Aggregate(obs, series.MinPeriods)
	e.log.Info("observations aggregated",
		logger.Int("observations", len(obs)),
		logger.Int("accepted", stats.Accepted),
		logger.Int("missing_period", stats.MissingPeriod),
		logger.Int("bad_period", stats.BadPeriod),
		logger.Int("bad_price", stats.BadPrice),
		logger.Int("series", len(all)),
	)
	if skipped := stats.BadPeriod + stats.BadPrice; skipped > 0 {
		e.metrics.RecordError("bad_observation")
	}

	jobs, err := e.plan(all, target)
	if err != nil {
		return nil, err
	}

	doc := &models.Document{
		Meta: models.Meta{
			GeneratedAt:  e.now().UTC().Format(time.RFC3339),
			TargetPeriod: target,
			MaxHorizon:   e.cfg.MaxHorizon,
			Models:       forecast.Labels(e.catalog),
		},
		Series: make(map[string]models.SeriesForecast, len(jobs)),
	}

	workers := e.cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for _, job := range jobs {
		if gctx.Err() != nil {
			break
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			entry := e.forecastSeries(job)
			if entry == nil {
				return nil
			}
			mu.Lock()
			doc.Series[job.series.Key.String()] = *entry
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forecast run: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("forecast run: %w", err)
	}

	elapsed := time.Since(start)
	e.metrics.RecordLatency("run", elapsed.Seconds())
	e.log.Info("forecast run finished",
		logger.String("target_period", target),
		logger.Int("planned", len(jobs)),
		logger.Int("forecast", len(doc.Series)),
		logger.Duration("duration_ms", elapsed),
	)
	return doc, nil
}

// plan decides horizon and model set per series. It runs sequentially in key
// order so the training budget always cuts the same attempts.
func (e *ForecastEngine) plan(all []models.Series, target string) ([]seriesJob, error) {
	budget := e.cfg.MaxTrainingCalls
	used := 0
	jobs := make([]seriesJob, 0, len(all))
	for _, s := range all {
		toTarget, err := util.MonthsBetween(s.LastPeriod(), target)
		if err != nil {
			return nil, fmt.Errorf("series %s: %w", s.Key, err)
		}
		if toTarget < 1 {
			e.metrics.RecordSeries("beyond_target")
			e.log.Debug("series skipped",
				logger.String("key", s.Key.String()),
				logger.String("reason", "last period at or after target"),
			)
			continue
		}
		horizon := min(toTarget, e.cfg.MaxHorizon)

		var selected []service.Model
		for _, m := range e.catalog {
			if s.Len() < m.MinPeriods() {
				continue
			}
			if m.UsesTraining() {
				if budget > 0 && used >= budget {
					e.metrics.RecordModelRun(m.Kind(), "budget")
					continue
				}
				used++
			}
			selected = append(selected, m)
		}
		if len(selected) == 0 {
			e.metrics.RecordSeries("no_models")
			continue
		}
		jobs = append(jobs, seriesJob{series: s, horizon: horizon, models: selected})
	}
	if budget > 0 && used >= budget {
		e.log.Warn("training budget exhausted", logger.Int("max_training_calls", budget))
	}
	return jobs, nil
}

func (e *ForecastEngine) forecastSeries(job seriesJob) *models.SeriesForecast {
	s := job.series
	key := s.Key.String()
	req := service.ForecastRequest{Series: s, Horizon: job.horizon, Seed: e.cfg.Seed}

	results := make(map[string]models.ModelResult, len(job.models))
	for _, m := range job.models {
		start := time.Now()
		res, err := attempt(m, req)
		if err != nil {
			e.metrics.RecordModelRun(m.Kind(), "failed")
			e.log.Warn("model failed",
				logger.String("key", key),
				logger.String("model", m.Kind()),
				logger.Error(err),
			)
			continue
		}
		elapsed := time.Since(start).Seconds()
		e.metrics.RecordModelRun(m.Kind(), "ok")
		e.metrics.RecordLatency("model_"+m.Kind(), elapsed)
		if res.Metrics.RMSE != nil {
			e.log.Debug("model evaluated",
				logger.String("key", key),
				logger.String("model", m.Kind()),
				logger.Float64("rmse", *res.Metrics.RMSE),
				logger.Float64("seconds", elapsed),
			)
		}
		results[m.Kind()] = *res
	}
	if len(results) == 0 {
		e.metrics.RecordSeries("no_models")
		return nil
	}

	end, err := util.AddMonths(s.LastPeriod(), job.horizon)
	if err != nil {
		e.metrics.RecordSeries("failed")
		e.log.Warn("forecast end", logger.String("key", key), logger.Error(err))
		return nil
	}
	e.metrics.RecordSeries("forecast")
	return &models.SeriesForecast{
		Filters:     s.Key.Filters(),
		LastPeriod:  s.LastPeriod(),
		ForecastEnd: end,
		Models:      results,
	}
}

// attempt runs one model, treating a panic as a failed fit.
func attempt(m service.Model, req service.ForecastRequest) (res *models.ModelResult, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%s panicked: %v", m.Kind(), r)
		}
	}()
	return m.Forecast(req)
}
