package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"PriceCast/internal/domain/models"
	drepo "PriceCast/internal/domain/repository"
	"PriceCast/pkg/logger"
)

type memFile struct {
	data []byte
	err  error
}

func (f *memFile) Path() string { return "mem://forecasts.json" }

func (f *memFile) WriteBytes(b []byte) error {
	if f.err != nil {
		return f.err
	}
	f.data = append([]byte(nil), b...)
	return nil
}

type memSink struct {
	name  string
	err   error
	calls int
}

func (s *memSink) Name() string { return s.name }

func (s *memSink) Write(ctx context.Context, doc *models.Document) error {
	s.calls++
	return s.err
}

func jsonEncode(doc *models.Document) ([]byte, error) { return json.Marshal(doc) }

func testDoc() *models.Document {
	return &models.Document{
		Meta:   models.Meta{GeneratedAt: "2025-01-02T03:04:05Z", TargetPeriod: "2026-11", MaxHorizon: 36},
		Series: map[string]models.SeriesForecast{"a": {}, "b": {}},
	}
}

func TestPublisherSinkFailuresAreNotFatal(t *testing.T) {
	f := &memFile{}
	broken := &memSink{name: "kafka", err: errors.New("broker down")}
	ok := &memSink{name: "cache"}
	m := newCountingMetrics()
	p := NewDocumentPublisher(f, jsonEncode, []drepo.DocumentSink{broken, ok}, m, logger.NewNop())

	require.NoError(t, p.Publish(context.Background(), testDoc()))
	assert.NotEmpty(t, f.data)
	assert.Equal(t, 1, broken.calls)
	assert.Equal(t, 1, ok.calls)
	assert.Equal(t, 1, m.get("error:sink_kafka"))
	assert.Equal(t, 1, m.get("document"))
}

func TestPublisherFileFailureIsFatal(t *testing.T) {
	f := &memFile{err: errors.New("disk full")}
	s := &memSink{name: "cache"}
	m := newCountingMetrics()
	p := NewDocumentPublisher(f, jsonEncode, []drepo.DocumentSink{s}, m, logger.NewNop())

	err := p.Publish(context.Background(), testDoc())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "disk full")
	assert.Zero(t, s.calls)
	assert.Equal(t, 1, m.get("error:sink_file"))
	assert.Zero(t, m.get("document"))
}

type fakeRunner struct {
	mu      sync.Mutex
	targets []string
	active  int
	overlap bool
	err     error
}

func (r *fakeRunner) Run(ctx context.Context, p RunParams) (*models.Document, error) {
	r.mu.Lock()
	r.active++
	if r.active > 1 {
		r.overlap = true
	}
	r.targets = append(r.targets, p.TargetPeriod)
	r.mu.Unlock()

	time.Sleep(2 * time.Millisecond)

	r.mu.Lock()
	r.active--
	r.mu.Unlock()
	if r.err != nil {
		return nil, r.err
	}
	doc := testDoc()
	if p.TargetPeriod != "" {
		doc.Meta.TargetPeriod = p.TargetPeriod
	}
	return doc, nil
}

type countingPublisher struct {
	mu   sync.Mutex
	docs []*models.Document
}

func (p *countingPublisher) Publish(ctx context.Context, doc *models.Document) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.docs = append(p.docs, doc)
	return nil
}

func TestRebuildHandler(t *testing.T) {
	r := &fakeRunner{}
	pub := &countingPublisher{}
	m := newCountingMetrics()
	h := NewRebuildHandler("datasets.ready", r, pub, m, logger.NewNop())
	assert.Equal(t, "datasets.ready", h.Topic())

	require.NoError(t, h.Handle(context.Background(), []byte(`{"target_period":"2027-01"}`)))
	require.NoError(t, h.Handle(context.Background(), nil))
	assert.Equal(t, []string{"2027-01", ""}, r.targets)
	require.Len(t, pub.docs, 2)
	assert.Equal(t, "2027-01", pub.docs[0].Meta.TargetPeriod)

	// malformed triggers are dropped without running
	require.NoError(t, h.Handle(context.Background(), []byte(`not json`)))
	require.NoError(t, h.Handle(context.Background(), []byte(`{"target_period":"2027-13"}`)))
	assert.Len(t, r.targets, 2)
	assert.Equal(t, 2, m.get("error:rebuild_decode"))

	r.err = errors.New("source down")
	assert.Error(t, h.Handle(context.Background(), []byte(`{}`)))
	assert.Equal(t, 1, m.get("error:rebuild_run"))
}

func TestRebuildHandlerSerializesRuns(t *testing.T) {
	r := &fakeRunner{}
	h := NewRebuildHandler("t", r, &countingPublisher{}, newCountingMetrics(), logger.NewNop())

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = h.Handle(context.Background(), []byte(`{}`))
		}()
	}
	wg.Wait()
	assert.Len(t, r.targets, 8)
	assert.False(t, r.overlap)
}
