package repository

import (
	"context"
	"sort"

	"PriceCast/internal/domain/models"
	pkgkafka "PriceCast/pkg/kafka"
)

const kafkaChunk = 500

// BatchPublisher is satisfied by *pkgkafka.Producer.
type BatchPublisher interface {
	PublishBatch(ctx context.Context, topic string, messages []pkgkafka.Message) error
}

// ForecastMessage is the per-series payload published to Kafka.
type ForecastMessage struct {
	Key          string                `json:"key"`
	GeneratedAt  string                `json:"generated_at"`
	TargetPeriod string                `json:"target_period"`
	Entry        models.SeriesForecast `json:"entry"`
}

// KafkaForecastPublisher emits one message per series keyed by the series key,
// so a key always lands on the same partition under a hash balancer.
type KafkaForecastPublisher struct {
	producer BatchPublisher
	topic    string
}

func NewKafkaForecastPublisher(p BatchPublisher, topic string) *KafkaForecastPublisher {
	return &KafkaForecastPublisher{producer: p, topic: topic}
}

func (p *KafkaForecastPublisher) Name() string { return "kafka" }

func (p *KafkaForecastPublisher) Write(ctx context.Context, doc *models.Document) error {
	keys := make([]string, 0, len(doc.Series))
	for k := range doc.Series {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	batch := make([]pkgkafka.Message, 0, kafkaChunk)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		err := p.producer.PublishBatch(ctx, p.topic, batch)
		batch = batch[:0]
		return err
	}
	for _, k := range keys {
		batch = append(batch, pkgkafka.Message{
			Key: []byte(k),
			Value: ForecastMessage{
				Key:          k,
				GeneratedAt:  doc.Meta.GeneratedAt,
				TargetPeriod: doc.Meta.TargetPeriod,
				Entry:        doc.Series[k],
			},
		})
		if len(batch) == kafkaChunk {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	return flush()
}
