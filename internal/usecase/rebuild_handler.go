package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	pkgkafka "PriceCast/pkg/kafka"
	"PriceCast/pkg/logger"
	"PriceCast/pkg/util"
)

type ForecastRunner interface {
	Run(ctx context.Context, p RunParams) (*models.Document, error)
}

type Publisher interface {
	Publish(ctx context.Context, doc *models.Document) error
}

// RebuildHandler re-runs the engine whenever a "data set ready" message arrives.
type RebuildHandler struct {
	topic     string
	engine    ForecastRunner
	publisher Publisher
	metrics   drepo.Metrics
	log       *logger.Logger
	mu        sync.Mutex
}

func NewRebuildHandler(topic string, engine ForecastRunner, publisher Publisher, metrics drepo.Metrics, log *logger.Logger) *RebuildHandler {
	return &RebuildHandler{topic: topic, engine: engine, publisher: publisher, metrics: metrics, log: log}
}

func (h *RebuildHandler) Topic() string { return h.topic }

// incoming message schema: {target_period?}
func (h *RebuildHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		TargetPeriod string `json:"target_period"`
	}
	if len(b) > 0 {
		if err := json.Unmarshal(b, &m); err != nil {
			// a malformed trigger will never parse, so it is dropped
			h.metrics.RecordError("rebuild_decode")
			h.log.Warn("rebuild message dropped", logger.Error(err))
			return nil
		}
	}
	if m.TargetPeriod != "" && !util.IsPeriod(m.TargetPeriod) {
		h.metrics.RecordError("rebuild_decode")
		h.log.Warn("rebuild message dropped", logger.String("target_period", m.TargetPeriod))
		return nil
	}

	// runs are serialized
	h.mu.Lock()
	defer h.mu.Unlock()

	start := time.Now()
	doc, err := h.engine.Run(ctx, RunParams{TargetPeriod: m.TargetPeriod})
	if err != nil {
		h.metrics.RecordError("rebuild_run")
		return fmt.Errorf("rebuild run: %w", err)
	}
	if err := h.publisher.Publish(ctx, doc); err != nil {
		h.metrics.RecordError("rebuild_publish")
		return fmt.Errorf("rebuild publish: %w", err)
	}
	h.metrics.RecordLatency("rebuild", time.Since(start).Seconds())
	h.log.Info("forecast rebuilt",
		logger.String("target_period", doc.Meta.TargetPeriod),
		logger.Int("series", len(doc.Series)),
	)
	return nil
}

var _ pkgkafka.MessageHandler = (*RebuildHandler)(nil)
