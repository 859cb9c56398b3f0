package kafka

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/couchcryptid/seasonal-resampler/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	mu       sync.Mutex
	failures int
	err      error
	written  []kafkago.Message
	calls    int
	closed   bool
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafkago.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.failures < 0 || f.calls <= f.failures {
		return f.err
	}
	f.written = append(f.written, msgs...)
	return nil
}

func (f *fakeWriter) Close() error {
	f.closed = true
	return nil
}

func testEvent() domain.ForecastReady {
	return domain.ForecastReady{
		StationID:    "ws-1",
		ForecastYear: 2024,
		Mode:         domain.ModeTrimonthly,
		Period:       "15-06-2024_10-30-00",
		Status:       "complete",
		Seasons:      []string{"Mar-Apr-May", "Jun-Jul-Aug"},
		Scenarios:    100,
		Directory:    "/out/ws-1/15-06-2024_10-30-00",
		ProducedAt:   time.Date(2024, 6, 15, 10, 30, 0, 0, time.UTC),
	}
}

func newTestPublisher(w messageWriter, timeout time.Duration) *Publisher {
	p := newPublisher(w, timeout, slog.Default())
	p.initialInterval = time.Millisecond
	return p
}

func TestSerializeToMessage(t *testing.T) {
	event := testEvent()

	msg, err := serializeToMessage(event)
	require.NoError(t, err)

	assert.Equal(t, []byte("ws-1"), msg.Key)
	assert.Contains(t, string(msg.Value), `"station_id":"ws-1"`)
	assert.Contains(t, string(msg.Value), `"seasons":["Mar-Apr-May","Jun-Jul-Aug"]`)
	assert.NotContains(t, string(msg.Value), `"lat"`)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, []byte(EventType), msg.Headers[0].Value)
	assert.Equal(t, "produced_at", msg.Headers[1].Key)
	assert.Equal(t, []byte("2024-06-15T10:30:00Z"), msg.Headers[1].Value)
}

func TestPublish_RetriesTransientFailures(t *testing.T) {
	w := &fakeWriter{failures: 2, err: errors.New("leader not available")}
	p := newTestPublisher(w, time.Second)

	require.NoError(t, p.Publish(context.Background(), testEvent()))

	assert.Equal(t, 3, w.calls)
	require.Len(t, w.written, 1)
	assert.Equal(t, []byte("ws-1"), w.written[0].Key)
}

func TestPublish_GivesUpAfterTimeout(t *testing.T) {
	w := &fakeWriter{failures: -1, err: errors.New("broker down")}
	p := newTestPublisher(w, 20*time.Millisecond)

	err := p.Publish(context.Background(), testEvent())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "broker down")
	assert.Contains(t, err.Error(), "ws-1")
	assert.Empty(t, w.written)
}

func TestPublish_StopsOnCancelledContext(t *testing.T) {
	w := &fakeWriter{failures: -1, err: errors.New("broker down")}
	p := newTestPublisher(w, time.Minute)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, testEvent())
	require.Error(t, err)
	assert.Equal(t, 1, w.calls)
}

func TestPublisher_Close(t *testing.T) {
	w := &fakeWriter{}
	require.NoError(t, newTestPublisher(w, time.Second).Close())
	assert.True(t, w.closed)
}
