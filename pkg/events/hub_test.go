package events

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"homerent/app/models/payment"
	"homerent/pkg/payment/types"
)

func receive(t *testing.T, ch <-chan types.Event) types.Event {
	t.Helper()
	select {
	case e := <-ch:
		return e
	case <-time.After(time.Second):
		t.Fatal("no event received")
		return types.Event{}
	}
}

func TestSubscribeFilterAndUnsubscribe(t *testing.T) {
	hub := NewHub()
	got := make(chan types.Event, 4)

	unsubscribe := hub.Subscribe(ByTenant("tenant-1"), func(e types.Event) {
		got <- e
	})
	assert.Equal(t, 1, hub.Len())

	hub.Publish(types.Event{PaymentID: "p0", TenantID: "tenant-2", Status: payment.StatusPaid})
	hub.Publish(types.Event{PaymentID: "p1", TenantID: "tenant-1", Status: payment.StatusPaid})

	assert.Equal(t, "p1", receive(t, got).PaymentID)

	unsubscribe()
	unsubscribe()
	assert.Equal(t, 0, hub.Len())

	hub.Publish(types.Event{PaymentID: "p2", TenantID: "tenant-1"})
	select {
	case e := <-got:
		t.Fatalf("unexpected event after unsubscribe: %s", e.PaymentID)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestFilters(t *testing.T) {
	e := types.Event{TenantID: "t", PropertyID: "prop-2", Status: payment.StatusOverdue}

	assert.True(t, ByProperties("prop-1", "prop-2")(e))
	assert.False(t, ByProperties("prop-1")(e))
	assert.True(t, ByStatus(payment.StatusPaid, payment.StatusOverdue)(e))
	assert.False(t, ByStatus(payment.StatusPaid)(e))
}

func TestPublishDoesNotBlockOnSlowSubscriber(t *testing.T) {
	hub := NewHub()
	block := make(chan struct{})
	defer close(block)
	unsubscribe := hub.Subscribe(nil, func(e types.Event) { <-block })
	defer unsubscribe()

	done := make(chan struct{})
	go func() {
		for i := 0; i < bufferSize*2; i++ {
			hub.Publish(types.Event{PaymentID: "p"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked")
	}
}
