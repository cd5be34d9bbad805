// Package notify delivers event log rows to webhooks and Kafka.
//
// A Dispatcher polls the event log after a per-sink cursor. Each sink starts
// at the newest event present when the dispatcher first sees it, so only
// events written after startup are delivered. A failed delivery leaves the
// cursor in place and the event is retried on the next tick.
package notify

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"rpscheduler/internal/domain"
	"rpscheduler/internal/metrics"
)

const (
	DefaultInterval = 2 * time.Second
	DefaultBatch    = 100
)

// Source is the event log. repo.Repo implements it.
type Source interface {
	EventsAfter(ctx context.Context, limit int, cursor int64) ([]domain.Event, error)
	LatestEventID(ctx context.Context) (int64, error)
}

// Sink receives events one at a time.
type Sink interface {
	Name() string
	Deliver(ctx context.Context, evt Envelope) error
}

// Envelope is the wire form of one event.
type Envelope struct {
	ID         int64           `json:"id"`
	Type       string          `json:"type"`
	EntityKind string          `json:"entity_kind"`
	EntityID   string          `json:"entity_id,omitempty"`
	ActorID    string          `json:"actor_id"`
	TS         string          `json:"ts"`
	Payload    json.RawMessage `json:"payload"`
	PayloadRaw string          `json:"payload_raw,omitempty"`
}

func envelopeFor(evt domain.Event) Envelope {
	env := Envelope{
		ID:         evt.ID,
		Type:       evt.Type,
		EntityKind: evt.EntityKind,
		EntityID:   evt.EntityID,
		ActorID:    evt.ActorID,
		TS:         evt.TS,
		Payload:    json.RawMessage("{}"),
	}
	if evt.Payload != "" {
		if json.Valid([]byte(evt.Payload)) {
			env.Payload = json.RawMessage(evt.Payload)
		} else {
			env.PayloadRaw = evt.Payload
		}
	}
	return env
}

type route struct {
	sink   Sink
	filter eventFilter
	cursor int64
	ready  bool
}

type Dispatcher struct {
	Source   Source
	Interval time.Duration
	Batch    int
	Logger   *slog.Logger

	mu     sync.Mutex
	routes []*route
}

// Add registers sink for the given event types; no types means all events.
func (d *Dispatcher) Add(sink Sink, eventTypes []string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.routes = append(d.routes, &route{sink: sink, filter: newEventFilter(eventTypes)})
}

// Len reports how many sinks are registered.
func (d *Dispatcher) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.routes)
}

func (d *Dispatcher) logger() *slog.Logger {
	if d.Logger != nil {
		return d.Logger
	}
	return slog.Default()
}

// Run dispatches until ctx is done.
func (d *Dispatcher) Run(ctx context.Context) {
	interval := d.Interval
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		d.DispatchOnce(ctx)
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

// DispatchOnce delivers pending events to every sink once.
func (d *Dispatcher) DispatchOnce(ctx context.Context) {
	d.mu.Lock()
	routes := append([]*route(nil), d.routes...)
	d.mu.Unlock()
	for _, r := range routes {
		if ctx.Err() != nil {
			return
		}
		d.dispatch(ctx, r)
	}
}

func (d *Dispatcher) dispatch(ctx context.Context, r *route) {
	log := d.logger().With("sink", r.sink.Name())
	if !r.ready {
		cur, err := d.Source.LatestEventID(ctx)
		if err != nil {
			log.Warn("init cursor failed", "error", err)
			return
		}
		r.cursor, r.ready = cur, true
	}
	batch := d.Batch
	if batch <= 0 {
		batch = DefaultBatch
	}
	evts, err := d.Source.EventsAfter(ctx, batch, r.cursor)
	if err != nil {
		log.Warn("fetch events failed", "error", err)
		return
	}
	for _, evt := range evts {
		if !r.filter.match(evt.Type) {
			r.cursor = evt.ID
			continue
		}
		if err := r.sink.Deliver(ctx, envelopeFor(evt)); err != nil {
			metrics.DeliveriesTotal.WithLabelValues(sinkKind(r.sink), "error").Inc()
			log.Warn("deliver failed", "event_id", evt.ID, "type", evt.Type, "error", err)
			return
		}
		metrics.DeliveriesTotal.WithLabelValues(sinkKind(r.sink), "ok").Inc()
		log.Debug("event delivered", "event_id", evt.ID, "type", evt.Type)
		r.cursor = evt.ID
	}
}

func sinkKind(s Sink) string {
	name := s.Name()
	if i := strings.IndexByte(name, ':'); i > 0 {
		return name[:i]
	}
	return name
}

type eventFilter struct {
	all bool
	set map[string]struct{}
}

func newEventFilter(events []string) eventFilter {
	set := make(map[string]struct{}, len(events))
	for _, evt := range events {
		if key := strings.TrimSpace(evt); key != "" {
			set[key] = struct{}{}
		}
	}
	if len(set) == 0 {
		return eventFilter{all: true}
	}
	return eventFilter{set: set}
}

func (f eventFilter) match(evt string) bool {
	if f.all {
		return true
	}
	_, ok := f.set[evt]
	return ok
}
