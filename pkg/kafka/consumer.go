package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/segmentio/kafka-go"

	"PriceCast/pkg/logger"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// MessageReader is the subset of *kafka.Reader the consumer needs.
type MessageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	CommitMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// Consumer reads one topic and hands each message to its handler in order.
// A message is retried with backoff up to RetryMax times and then committed.
type Consumer struct {
	cfg     *ConsumerConfig
	reader  MessageReader
	handler MessageHandler
	log     *logger.Logger

	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// NewConsumer creates a group consumer for handler's topic.
func NewConsumer(handler MessageHandler, log *logger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:    "pricecast",
		RetryMax:   3,
		BackoffMin: 200 * time.Millisecond,
		BackoffMax: 10 * time.Second,
		MinBytes:   1,
		MaxBytes:   10e6,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:  cfg.Brokers,
		Topic:    handler.Topic(),
		GroupID:  cfg.GroupID,
		MinBytes: cfg.MinBytes,
		MaxBytes: cfg.MaxBytes,
	})
	return NewConsumerWithReader(r, handler, log, opts...), nil
}

// NewConsumerWithReader wraps an existing reader.
func NewConsumerWithReader(r MessageReader, handler MessageHandler, log *logger.Logger, opts ...ConsumerOption) *Consumer {
	cfg := &ConsumerConfig{RetryMax: 3, BackoffMin: 200 * time.Millisecond, BackoffMax: 10 * time.Second}
	for _, opt := range opts {
		opt(cfg)
	}
	initConsumerMetrics()
	return &Consumer{cfg: cfg, reader: r, handler: handler, log: log, done: make(chan struct{})}
}

// Start runs the fetch loop in the background until Stop or ctx cancellation.
func (c *Consumer) Start(ctx context.Context) {
	ctx, c.cancel = context.WithCancel(ctx)
	go func() {
		defer close(c.done)
		c.run(ctx)
	}()
	c.log.Info("kafka consumer started", logger.String("topic", c.handler.Topic()))
}

func (c *Consumer) run(ctx context.Context) {
	topic := c.handler.Topic()
	for {
		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.log.Error("kafka fetch failed", logger.String("topic", topic), logger.Error(err))
			if !sleepCtx(ctx, c.cfg.BackoffMin) {
				return
			}
			continue
		}
		c.process(ctx, msg)
	}
}

// process handles one message with retries, then commits it.
func (c *Consumer) process(ctx context.Context, msg kafka.Message) {
	topic := c.handler.Topic()
	start := time.Now()
	var err error
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(ctx, msg.Value)
		if err == nil || attempt > c.cfg.RetryMax || ctx.Err() != nil {
			break
		}
		c.log.Warn("kafka handler failed, retrying",
			logger.String("topic", topic),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return
		}
	}
	result := "ok"
	if err != nil {
		result = "error"
		c.log.Error("kafka handler gave up",
			logger.String("topic", topic),
			logger.Int64("offset", msg.Offset),
			logger.Error(err),
		)
	}
	consumerHandled.WithLabelValues(topic, result).Inc()
	consumerLatency.WithLabelValues(topic).Observe(time.Since(start).Seconds())

	cctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if cerr := c.reader.CommitMessages(cctx, msg); cerr != nil {
		c.log.Error("kafka commit failed", logger.String("topic", topic), logger.Error(cerr))
	}
}

func (c *Consumer) safeHandle(ctx context.Context, data []byte) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return c.handler.Handle(ctx, data)
}

// Stop cancels the fetch loop, waits for the in-flight message and closes the reader.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error
	c.once.Do(func() {
		if c.cancel != nil {
			c.cancel()
			select {
			case <-c.done:
			case <-ctx.Done():
				stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
			}
		}
		if err := c.reader.Close(); err != nil && stopErr == nil {
			stopErr = fmt.Errorf("close reader: %w", err)
		}
	})
	return stopErr
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	half := int64(exp) / 2
	if half <= 0 {
		return exp
	}
	return exp - time.Duration(rand.Int63n(half))
}

var (
	consumerOnce    sync.Once
	consumerHandled *prometheus.CounterVec
	consumerLatency *prometheus.HistogramVec
)

func initConsumerMetrics() {
	consumerOnce.Do(func() {
		consumerHandled = promauto.NewCounterVec(
			prometheus.CounterOpts{Name: "pricecast_kafka_consumer_messages_total", Help: "Messages handled by result"},
			[]string{"topic", "result"},
		)
		consumerLatency = promauto.NewHistogramVec(
			prometheus.HistogramOpts{Name: "pricecast_kafka_consumer_handle_seconds", Help: "Handling time per message"},
			[]string{"topic"},
		)
	})
}
