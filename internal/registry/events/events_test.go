package events

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	promtestutil "github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"nameledger/internal/registry/metrics"
	"nameledger/internal/registry/models"
	"nameledger/pkg/requestcontext"
)

var fixedNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testCtx() context.Context {
	ctx := requestcontext.WithTime(context.Background(), fixedNow)
	return requestcontext.WithRequestID(ctx, "req-42")
}

func TestConstructors(t *testing.T) {
	rec := &models.Record{ID: 7, Name: "alice", TLD: "com", Owner: "alice-id", ExpiresAt: fixedNow.Add(models.TermYear)}

	e := Registered(testCtx(), rec)
	assert.Equal(t, TypeRegistered, e.Type)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, fixedNow, e.OccurredAt)
	assert.Equal(t, "req-42", e.RequestID)
	assert.Equal(t, "alice", e.Name)

	renewed := Renewed(testCtx(), rec)
	require.NotNil(t, renewed.NewExpiry)
	assert.Equal(t, rec.ExpiresAt, *renewed.NewExpiry)

	moved := OwnershipTransferred(testCtx(), 7, "alice-id", "bob-id")
	assert.Equal(t, "alice-id", moved.PreviousOwner.String())
	assert.Equal(t, "bob-id", moved.Owner.String())

	sub := &models.SubRecord{ParentID: 7, FullName: "www.alice.com", Owner: "alice-id"}
	assert.Equal(t, "www.alice.com", SubdomainCreated(testCtx(), sub).FullName)
	removed := SubdomainRemoved(testCtx(), sub)
	assert.Equal(t, TypeSubdomainRemoved, removed.Type)
	assert.True(t, removed.Owner.IsNull())
}

func TestLogPublisher(t *testing.T) {
	var buf bytes.Buffer
	p := NewLogPublisher(slog.New(slog.NewJSONHandler(&buf, nil)))

	rec := &models.Record{ID: 1, Name: "alice", TLD: "com", Owner: "alice-id"}
	require.NoError(t, p.Publish(testCtx(), Registered(testCtx(), rec)))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "registered", line["msg"])
	assert.Equal(t, "1", line["record_id"])
	assert.Equal(t, "alice-id", line["owner"])
	assert.Equal(t, "req-42", line["request_id"])
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (r *recordingPublisher) Publish(_ context.Context, e Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return r.err
}

func TestFanout(t *testing.T) {
	boom := errors.New("boom")
	failing := &recordingPublisher{err: boom}
	ok := &recordingPublisher{}

	err := Fanout{failing, ok}.Publish(context.Background(), Event{ID: "e1"})
	assert.ErrorIs(t, err, boom)
	assert.Len(t, ok.events, 1, "later publishers still receive the event")
}

type recordingSink struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (s *recordingSink) Name() string { return "test" }

func (s *recordingSink) Write(_ context.Context, e Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, e)
	return s.err
}

func (s *recordingSink) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.events)
}

func TestAsyncPublisher_DropsWhenFull(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := NewAsyncPublisher(WithBufferSize(2), WithMetrics(m))

	for i := range 5 {
		require.NoError(t, p.Publish(context.Background(), Event{ID: string(rune('a' + i))}))
	}
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.EventsDropped))

	sink := &recordingSink{}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := p.Worker(sink).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 2, sink.count(), "buffered events are flushed on shutdown")
}

func TestWorker_DeliversAndSurvivesSinkErrors(t *testing.T) {
	m := metrics.New(prometheus.NewRegistry())
	p := NewAsyncPublisher(WithMetrics(m))
	sink := &recordingSink{err: errors.New("broker down")}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- p.Worker(sink).Run(ctx) }()

	for range 3 {
		require.NoError(t, p.Publish(ctx, Event{ID: "e"}))
	}
	assert.Eventually(t, func() bool { return sink.count() == 3 }, time.Second, 5*time.Millisecond)

	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
	assert.Equal(t, 3.0, promtestutil.ToFloat64(m.EventsPublished.WithLabelValues("test", "error")))
}

type fakeProducer struct {
	records []*kgo.Record
	err     error
}

func (f *fakeProducer) ProduceSync(_ context.Context, rs ...*kgo.Record) kgo.ProduceResults {
	f.records = append(f.records, rs...)
	results := make(kgo.ProduceResults, 0, len(rs))
	for _, r := range rs {
		results = append(results, kgo.ProduceResult{Record: r, Err: f.err})
	}
	return results
}

func TestKafkaSink(t *testing.T) {
	t.Run("writes JSON keyed by record id", func(t *testing.T) {
		producer := &fakeProducer{}
		sink := NewKafkaSink(producer, "nameledger.events")

		rec := &models.Record{ID: 9, Name: "alice", TLD: "com", Owner: "alice-id"}
		require.NoError(t, sink.Write(testCtx(), Registered(testCtx(), rec)))

		require.Len(t, producer.records, 1)
		got := producer.records[0]
		assert.Equal(t, "nameledger.events", got.Topic)
		assert.Equal(t, "9", string(got.Key))

		var decoded Event
		require.NoError(t, json.Unmarshal(got.Value, &decoded))
		assert.Equal(t, TypeRegistered, decoded.Type)
		assert.Equal(t, "alice", decoded.Name)
	})

	t.Run("breaker opens after repeated failures", func(t *testing.T) {
		producer := &fakeProducer{err: errors.New("no brokers")}
		sink := NewKafkaSink(producer, "nameledger.events")

		for range 5 {
			assert.Error(t, sink.Write(context.Background(), Event{ID: "e"}))
		}
		err := sink.Write(context.Background(), Event{ID: "e"})
		assert.ErrorIs(t, err, ErrSinkUnavailable)
		assert.Len(t, producer.records, 5, "open breaker skips the producer")
	})
}
