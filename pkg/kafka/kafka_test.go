package kafka

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/pkg/logger"
)

type memWriter struct {
	mu   sync.Mutex
	msgs []kafka.Message
	err  error
}

func (w *memWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *memWriter) Close() error { return nil }

func TestProducerEncodesValues(t *testing.T) {
	w := &memWriter{}
	p := NewProducerWithWriter(w, "gzip")

	require.NoError(t, p.PublishBatch(context.Background(), "forecasts", []Message{
		{Key: []byte("a"), Value: map[string]int{"x": 1}},
		{Key: []byte("b"), Value: "raw"},
	}))
	require.Len(t, w.msgs, 2)
	assert.Equal(t, "forecasts", w.msgs[0].Topic)
	assert.JSONEq(t, `{"x":1}`, string(w.msgs[0].Value))
	assert.Equal(t, "raw", string(w.msgs[1].Value))

	w.err = errors.New("broker down")
	assert.Error(t, p.Publish(context.Background(), "forecasts", nil, []byte("x")))
}

type chanReader struct {
	in        chan kafka.Message
	mu        sync.Mutex
	committed []int64
}

func (r *chanReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	select {
	case m := <-r.in:
		return m, nil
	case <-ctx.Done():
		return kafka.Message{}, ctx.Err()
	}
}

func (r *chanReader) CommitMessages(ctx context.Context, msgs ...kafka.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range msgs {
		r.committed = append(r.committed, m.Offset)
	}
	return nil
}

func (r *chanReader) Close() error { return nil }

func (r *chanReader) commits() []int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]int64(nil), r.committed...)
}

type flakyHandler struct {
	mu       sync.Mutex
	failures int
	calls    int
}

func (h *flakyHandler) Topic() string { return "datasets" }

func (h *flakyHandler) Handle(ctx context.Context, b []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls++
	if h.calls <= h.failures {
		return errors.New("not yet")
	}
	return nil
}

func (h *flakyHandler) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.calls
}

func TestConsumerRetriesThenCommits(t *testing.T) {
	r := &chanReader{in: make(chan kafka.Message, 2)}
	h := &flakyHandler{failures: 2}
	c := NewConsumerWithReader(r, h, logger.NewNop(), WithConsumerRetry(3, time.Millisecond, 2*time.Millisecond))

	c.Start(context.Background())
	r.in <- kafka.Message{Offset: 7, Value: []byte(`{}`)}

	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []int64{7}, r.commits())
	assert.Equal(t, 3, h.count())

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	require.NoError(t, c.Stop(ctx))
}

func TestConsumerGivesUpAndCommits(t *testing.T) {
	r := &chanReader{in: make(chan kafka.Message, 1)}
	h := &flakyHandler{failures: 100}
	c := NewConsumerWithReader(r, h, logger.NewNop(), WithConsumerRetry(1, time.Millisecond, time.Millisecond))

	c.Start(context.Background())
	r.in <- kafka.Message{Offset: 1}
	require.Eventually(t, func() bool { return len(r.commits()) == 1 }, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, 2, h.count())
	require.NoError(t, c.Stop(context.Background()))
}

func TestBackoffBounds(t *testing.T) {
	for attempt := 1; attempt < 40; attempt++ {
		d := backoffWithJitter(10*time.Millisecond, 80*time.Millisecond, attempt)
		assert.LessOrEqual(t, d, 80*time.Millisecond)
		assert.Greater(t, d, time.Duration(0))
	}
}
