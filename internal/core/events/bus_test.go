package events

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingSink captures pending rows the bus writes
type recordingSink struct {
	executionIDs []uuid.UUID
	eventTypes   []string
}

func (s *recordingSink) RecordEvent(executionID uuid.UUID, eventType string, entityData map[string]interface{}) error {
	s.executionIDs = append(s.executionIDs, executionID)
	s.eventTypes = append(s.eventTypes, eventType)
	return nil
}

func TestEmitDeliversToExactAndWildcardSubscribers(t *testing.T) {
	bus := NewBus(nil, time.Minute)

	var order []string
	bus.Subscribe(InvoiceOverdue, func(e Event) {
		order = append(order, "exact")
		assert.Equal(t, "inv-1", e.EntityID)
		assert.Equal(t, InvoiceOverdue, e.EventType)
	})
	bus.SubscribeAll(func(e Event) {
		order = append(order, "wildcard")
	})
	bus.Subscribe(QuoteSent, func(e Event) {
		order = append(order, "other")
	})

	result := bus.Emit(InvoiceOverdue, map[string]interface{}{"id": "inv-1", "days_past_due": 10})

	require.True(t, result.Emitted)
	assert.NotEqual(t, uuid.Nil, result.EventID)
	assert.Equal(t, []string{"exact", "wildcard"}, order)
}

func TestEmitSuppressesDuplicateWithinWindow(t *testing.T) {
	sink := &recordingSink{}
	bus := NewBus(sink, time.Minute)

	delivered := 0
	bus.SubscribeAll(func(e Event) { delivered++ })

	first := bus.Emit(JobCompleted, map[string]interface{}{"id": "job-7"})
	second := bus.Emit(JobCompleted, map[string]interface{}{"id": "job-7"})

	require.True(t, first.Emitted)
	require.True(t, second.Skipped)
	assert.False(t, second.Emitted)
	assert.Equal(t, "duplicate within idempotency window", second.Reason)

	// No listener ran, no log row was written for the duplicate
	assert.Equal(t, 1, delivered)
	assert.Len(t, sink.executionIDs, 1)
}

func TestEmitDifferentEntitiesAreIndependent(t *testing.T) {
	bus := NewBus(nil, time.Minute)

	first := bus.Emit(JobCompleted, map[string]interface{}{"id": "job-1"})
	second := bus.Emit(JobCompleted, map[string]interface{}{"id": "job-2"})
	third := bus.Emit(JobStarted, map[string]interface{}{"id": "job-1"})

	assert.True(t, first.Emitted)
	assert.True(t, second.Emitted)
	assert.True(t, third.Emitted)
}

func TestClearResetsIdempotencyState(t *testing.T) {
	bus := NewBus(nil, time.Hour)

	require.True(t, bus.Emit(LeadCreated, map[string]interface{}{"id": "lead-1"}).Emitted)
	require.True(t, bus.Emit(LeadCreated, map[string]interface{}{"id": "lead-1"}).Skipped)

	bus.Clear()

	assert.True(t, bus.Emit(LeadCreated, map[string]interface{}{"id": "lead-1"}).Emitted)
}

func TestEmitExpiredWindowAllowsReemission(t *testing.T) {
	bus := NewBus(nil, 10*time.Millisecond)

	require.True(t, bus.Emit(InvoicePaid, map[string]interface{}{"id": "inv-9"}).Emitted)
	time.Sleep(25 * time.Millisecond)
	assert.True(t, bus.Emit(InvoicePaid, map[string]interface{}{"id": "inv-9"}).Emitted)
}

func TestEmitSynthesizesEntityID(t *testing.T) {
	bus := NewBus(nil, time.Minute)

	var got Event
	bus.Subscribe(LeadCreated, func(e Event) { got = e })

	// Without an id every emission gets its own synthesized entity id, so two
	// payload-less emissions are not deduplicated against each other.
	first := bus.Emit(LeadCreated, map[string]interface{}{"name": "Dana"})
	second := bus.Emit(LeadCreated, map[string]interface{}{"name": "Dana"})

	require.True(t, first.Emitted)
	require.True(t, second.Emitted)
	assert.NotEmpty(t, got.EntityID)
}

func TestUnsubscribeStopsDelivery(t *testing.T) {
	bus := NewBus(nil, time.Minute)

	calls := 0
	unsubscribe := bus.Subscribe(QuoteApproved, func(e Event) { calls++ })

	bus.Emit(QuoteApproved, map[string]interface{}{"id": "q-1"})
	unsubscribe()
	bus.Emit(QuoteApproved, map[string]interface{}{"id": "q-2"})

	assert.Equal(t, 1, calls)
}
