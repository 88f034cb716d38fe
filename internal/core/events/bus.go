// Package events provides the in-process publish/subscribe hub for business
// events. Delivery is synchronous and at-most-once within a short idempotency
// window.
package events

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// Business event vocabulary. The set is extensible; unknown types are allowed
// but logged as warnings.
const (
	QuoteSent         = "quote_sent"
	QuoteNotResponded = "quote_not_responded"
	QuoteApproved     = "quote_approved"
	QuoteRejected     = "quote_rejected"
	JobCreated        = "job_created"
	JobScheduled      = "job_scheduled"
	JobStarted        = "job_started"
	JobCompleted      = "job_completed"
	JobCancelled      = "job_cancelled"
	InvoiceCreated    = "invoice_created"
	InvoiceSent       = "invoice_sent"
	InvoiceOverdue    = "invoice_overdue"
	InvoicePaid       = "invoice_paid"
	LeadCreated       = "lead_created"
	LeadStageChanged  = "lead_stage_changed"
)

var knownEvents = map[string]struct{}{
	QuoteSent: {}, QuoteNotResponded: {}, QuoteApproved: {}, QuoteRejected: {},
	JobCreated: {}, JobScheduled: {}, JobStarted: {}, JobCompleted: {}, JobCancelled: {},
	InvoiceCreated: {}, InvoiceSent: {}, InvoiceOverdue: {}, InvoicePaid: {},
	LeadCreated: {}, LeadStageChanged: {},
}

// DefaultIdempotencyWindow suppresses duplicate (eventType, entityId) pairs
const DefaultIdempotencyWindow = 5 * time.Minute

// Event is the envelope delivered to subscribers. Transient — it is never
// persisted itself, only recorded as the input of an execution log row.
type Event struct {
	EventID     uuid.UUID              `json:"event_id"`
	ExecutionID uuid.UUID              `json:"execution_id"`
	EventType   string                 `json:"event_type"`
	EntityID    string                 `json:"entity_id"`
	EntityData  map[string]interface{} `json:"entity_data"`
	Timestamp   time.Time              `json:"timestamp"`
}

// EmitResult reports what an Emit call did
type EmitResult struct {
	Emitted     bool      `json:"emitted"`
	Skipped     bool      `json:"skipped,omitempty"`
	Reason      string    `json:"reason,omitempty"`
	EventID     uuid.UUID `json:"event_id,omitempty"`
	ExecutionID uuid.UUID `json:"execution_id,omitempty"`
}

// LogSink persists the pending audit row for an emitted event. The automation
// execution repository satisfies it.
type LogSink interface {
	RecordEvent(executionID uuid.UUID, eventType string, entityData map[string]interface{}) error
}

// Handler consumes a delivered event
type Handler func(Event)

type subscription struct {
	id      uint64
	handler Handler
}

// Bus is an explicit pub/sub hub: exact-type and wildcard subscription lists,
// guarded by a mutex, with an in-process idempotency map. Construct one per
// process and inject it; there is no package-level singleton.
type Bus struct {
	mu          sync.Mutex
	nextSubID   uint64
	subscribers map[string][]subscription
	wildcard    []subscription
	recent      map[string]time.Time
	window      time.Duration
	sink        LogSink
}

// NewBus creates an event bus. sink may be nil (no pending rows are written).
func NewBus(sink LogSink, window time.Duration) *Bus {
	if window <= 0 {
		window = DefaultIdempotencyWindow
	}
	return &Bus{
		subscribers: make(map[string][]subscription),
		recent:      make(map[string]time.Time),
		window:      window,
		sink:        sink,
	}
}

// Subscribe registers a handler for an exact event type and returns an
// unsubscribe handle.
func (b *Bus) Subscribe(eventType string, handler Handler) (unsubscribe func()) {
	if _, known := knownEvents[eventType]; !known {
		log.Warn().Str("event_type", eventType).Msg("⚠️ Subscribing to unknown event type")
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	id := b.nextSubID
	b.subscribers[eventType] = append(b.subscribers[eventType], subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		subs := b.subscribers[eventType]
		for i := range subs {
			if subs[i].id == id {
				b.subscribers[eventType] = append(subs[:i], subs[i+1:]...)
				return
			}
		}
	}
}

// SubscribeAll registers a wildcard handler invoked for every emitted event,
// after the exact-type handlers.
func (b *Bus) SubscribeAll(handler Handler) (unsubscribe func()) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.nextSubID++
	id := b.nextSubID
	b.wildcard = append(b.wildcard, subscription{id: id, handler: handler})

	return func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		for i := range b.wildcard {
			if b.wildcard[i].id == id {
				b.wildcard = append(b.wildcard[:i], b.wildcard[i+1:]...)
				return
			}
		}
	}
}

// Emit publishes a business event. A repeat of the same (eventType, entityId)
// within the idempotency window is suppressed: no listener runs, no log row is
// written. Otherwise the pending audit row is persisted and listeners are
// invoked synchronously in registration order, exact-type first then wildcard.
func (b *Bus) Emit(eventType string, entityData map[string]interface{}) EmitResult {
	if _, known := knownEvents[eventType]; !known {
		log.Warn().Str("event_type", eventType).Msg("⚠️ Emitting unknown event type")
	}

	entityID := resolveEntityID(entityData)
	key := eventType + ":" + entityID

	b.mu.Lock()
	now := time.Now()
	if seen, ok := b.recent[key]; ok && now.Sub(seen) < b.window {
		b.mu.Unlock()
		log.Info().Str("event_type", eventType).Str("entity_id", entityID).Msg("⏭️ Duplicate event suppressed")
		return EmitResult{Skipped: true, Reason: "duplicate within idempotency window"}
	}
	b.recent[key] = now

	// Self-expiring record; Clear() also wipes these.
	time.AfterFunc(b.window, func() {
		b.mu.Lock()
		defer b.mu.Unlock()
		if seen, ok := b.recent[key]; ok && time.Since(seen) >= b.window {
			delete(b.recent, key)
		}
	})

	event := Event{
		EventID:     uuid.New(),
		ExecutionID: uuid.New(),
		EventType:   eventType,
		EntityID:    entityID,
		EntityData:  entityData,
		Timestamp:   now,
	}

	exact := make([]subscription, len(b.subscribers[eventType]))
	copy(exact, b.subscribers[eventType])
	wildcard := make([]subscription, len(b.wildcard))
	copy(wildcard, b.wildcard)
	b.mu.Unlock()

	if b.sink != nil {
		if err := b.sink.RecordEvent(event.ExecutionID, eventType, entityData); err != nil {
			log.Error().Err(err).Str("event_type", eventType).Msg("Failed to persist event log row")
		}
	}

	log.Info().Str("event_type", eventType).Str("entity_id", entityID).Str("event_id", event.EventID.String()).Msg("📬 Event emitted")

	for _, sub := range exact {
		sub.handler(event)
	}
	for _, sub := range wildcard {
		sub.handler(event)
	}

	return EmitResult{Emitted: true, EventID: event.EventID, ExecutionID: event.ExecutionID}
}

// Clear resets idempotency state. Test isolation only.
func (b *Bus) Clear() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.recent = make(map[string]time.Time)
}

// resolveEntityID reads entityData["id"], synthesizing an id when absent so
// idempotency still keys on something stable for this emission.
func resolveEntityID(entityData map[string]interface{}) string {
	if entityData != nil {
		if id, ok := entityData["id"].(string); ok && id != "" {
			return id
		}
	}
	return uuid.NewString()
}
