package notify

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rpscheduler/internal/config"
	"rpscheduler/internal/domain"
)

type memSource struct {
	mu     sync.Mutex
	events []domain.Event
}

func (m *memSource) append(typ, payload string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, domain.Event{
		ID:         int64(len(m.events) + 1),
		TS:         "2024-03-04T00:00:00Z",
		Type:       typ,
		EntityKind: "schedule",
		EntityID:   "2024-03-04",
		ActorID:    "tester",
		Payload:    payload,
	})
}

func (m *memSource) EventsAfter(_ context.Context, limit int, cursor int64) ([]domain.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Event
	for _, e := range m.events {
		if e.ID > cursor && len(out) < limit {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *memSource) LatestEventID(context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.events)), nil
}

type fakeWriter struct {
	msgs []kafka.Message
	err  error
}

func (f *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeWriter) Close() error { return nil }

func TestWebhookDeliversNewEventsOnly(t *testing.T) {
	var (
		mu       sync.Mutex
		received []Envelope
		secrets  []string
	)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var env Envelope
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&env))
		mu.Lock()
		received = append(received, env)
		secrets = append(secrets, r.Header.Get("X-RPS-Secret"))
		mu.Unlock()
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	src := &memSource{}
	src.append("agent.create", `{"first_name":"Ada"}`)

	d := &Dispatcher{Source: src}
	d.Add(NewWebhookSink(srv.URL, "s3cret", 0), []string{"schedule.generate"})
	ctx := context.Background()
	d.DispatchOnce(ctx)
	mu.Lock()
	assert.Empty(t, received, "events before startup are skipped")
	mu.Unlock()

	src.append("agent.update", `{}`)
	src.append("schedule.generate", `{"pairs":[]}`)
	d.DispatchOnce(ctx)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, "schedule.generate", received[0].Type)
	assert.Equal(t, int64(3), received[0].ID)
	assert.JSONEq(t, `{"pairs":[]}`, string(received[0].Payload))
	assert.Equal(t, []string{"s3cret"}, secrets)
}

func TestFailedDeliveryIsRetried(t *testing.T) {
	var fail atomic.Bool
	var hits atomic.Int32
	fail.Store(true)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if fail.Load() {
			http.Error(w, "down", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	src := &memSource{}
	d := &Dispatcher{Source: src}
	d.Add(NewWebhookSink(srv.URL, "", 0), nil)
	ctx := context.Background()
	d.DispatchOnce(ctx)

	src.append("schedule.set", `{}`)
	d.DispatchOnce(ctx)
	fail.Store(false)
	d.DispatchOnce(ctx)
	d.DispatchOnce(ctx)
	assert.Equal(t, int32(2), hits.Load())
}

func TestKafkaSinkKeysByEntity(t *testing.T) {
	w := &fakeWriter{}
	sink := &KafkaSink{Topic: "rps.events", Writer: w}
	src := &memSource{}
	d := &Dispatcher{Source: src}
	d.Add(sink, nil)
	ctx := context.Background()
	d.DispatchOnce(ctx)

	src.append("schedule.generate", "not json")
	d.DispatchOnce(ctx)

	require.Len(t, w.msgs, 1)
	msg := w.msgs[0]
	assert.Equal(t, "schedule:2024-03-04", string(msg.Key))
	var env Envelope
	require.NoError(t, json.Unmarshal(msg.Value, &env))
	assert.Equal(t, "not json", env.PayloadRaw)
	assert.JSONEq(t, `{}`, string(env.Payload))
	assert.Equal(t, "event_type", msg.Headers[0].Key)
	assert.Equal(t, "schedule.generate", string(msg.Headers[0].Value))
}

func TestKafkaErrorStopsBatch(t *testing.T) {
	w := &fakeWriter{err: errors.New("broker down")}
	src := &memSource{}
	d := &Dispatcher{Source: src}
	d.Add(&KafkaSink{Topic: "t", Writer: w}, nil)
	ctx := context.Background()
	d.DispatchOnce(ctx)
	src.append("schedule.set", `{}`)
	src.append("schedule.set", `{}`)
	d.DispatchOnce(ctx)
	assert.Empty(t, w.msgs)

	w.err = nil
	d.DispatchOnce(ctx)
	assert.Len(t, w.msgs, 2)
}

func TestFromConfigSkipsDisabled(t *testing.T) {
	cfg := config.Default()
	off := false
	cfg.Notifications.Webhooks = []config.WebhookConfig{
		{URL: "http://localhost/a"},
		{URL: "http://localhost/b", Enabled: &off},
	}
	cfg.Notifications.Kafka = config.KafkaConfig{Enabled: true, Brokers: []string{"localhost:9092"}, Topic: "rps.events"}

	d, closers := FromConfig(cfg, &memSource{}, nil)
	assert.Equal(t, 2, d.Len())
	assert.Len(t, closers, 1)
	for _, c := range closers {
		assert.NoError(t, c())
	}
}

func TestEventFilter(t *testing.T) {
	assert.True(t, newEventFilter(nil).match("anything"))
	assert.True(t, newEventFilter([]string{" ", ""}).match("anything"))
	f := newEventFilter([]string{"schedule.set"})
	assert.True(t, f.match("schedule.set"))
	assert.False(t, f.match("schedule.generate"))
}
