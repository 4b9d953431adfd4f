package usecase

import (
	"context"
	"fmt"
	"time"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/logger"
)

// DocumentFile is the required output file. It receives pre-encoded bytes so
// the document is serialized once per publish.
type DocumentFile interface {
	Path() string
	WriteBytes(b []byte) error
}

// DocumentEncoder renders a document to its on-disk form.
type DocumentEncoder func(doc *models.Document) ([]byte, error)

// DocumentPublisher writes the document file and then fans it out to the
// optional sinks.
type DocumentPublisher struct {
	file    DocumentFile
	encode  DocumentEncoder
	sinks   []drepo.DocumentSink
	metrics drepo.Metrics
	log     *logger.Logger
}

func NewDocumentPublisher(
	file DocumentFile,
	encode DocumentEncoder,
	sinks []drepo.DocumentSink,
	metrics drepo.Metrics,
	log *logger.Logger,
) *DocumentPublisher {
	return &DocumentPublisher{file: file, encode: encode, sinks: sinks, metrics: metrics, log: log}
}

// Publish fails only when the file cannot be written. Sink errors are logged
// and counted.
func (p *DocumentPublisher) Publish(ctx context.Context, doc *models.Document) error {
	b, err := p.encode(doc)
	if err != nil {
		p.metrics.RecordError("encode")
		return err
	}
	start := time.Now()
	if err := p.file.WriteBytes(b); err != nil {
		p.metrics.RecordError("sink_file")
		return fmt.Errorf("write %s: %w", p.file.Path(), err)
	}
	p.metrics.RecordLatency("publish_file", time.Since(start).Seconds())
	p.metrics.RecordDocumentSize(len(doc.Series), len(b))
	p.log.Info("forecast document written",
		logger.String("path", p.file.Path()),
		logger.Int("series", len(doc.Series)),
		logger.Int("bytes", len(b)),
		logger.Strings("sinks", p.sinkNames()),
	)

	for _, s := range p.sinks {
		if err := ctx.Err(); err != nil {
			return err
		}
		start := time.Now()
		if err := s.Write(ctx, doc); err != nil {
			p.metrics.RecordError("sink_" + s.Name())
			p.log.Error("sink write failed",
				logger.String("sink", s.Name()),
				logger.Error(err),
			)
			continue
		}
		p.metrics.RecordLatency("publish_"+s.Name(), time.Since(start).Seconds())
		p.log.Debug("sink written", logger.String("sink", s.Name()))
	}
	return nil
}

func (p *DocumentPublisher) sinkNames() []string {
	names := make([]string, len(p.sinks))
	for i, s := range p.sinks {
		names[i] = s.Name()
	}
	return names
}
