package worker

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/helpdesk-escalation/internal/events"
)

type recordingHandler struct {
	mu       sync.Mutex
	types    []events.EventType
	received []string
	fail     bool
}

func (h *recordingHandler) EventTypes() []events.EventType { return h.types }

func (h *recordingHandler) Handle(_ context.Context, e events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.received = append(h.received, e.TicketID)
	if h.fail {
		return errors.New("smtp down")
	}
	return nil
}

func (h *recordingHandler) got() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.received...)
}

func TestNotificationWorkerDeliversInOrder(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	handler := &recordingHandler{types: []events.EventType{events.EventTicketEscalated}, fail: true}
	w := NewNotificationWorker(dispatcher, handler, 8, nil)

	now := time.Now()
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketEscalated, "t-1", "job", now, nil)))
	w.Start(context.Background())
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketEscalated, "t-2", "job", now, nil)))
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketCreated, "ignored", "job", now, nil)))
	w.Stop()

	assert.Equal(t, []string{"t-1", "t-2"}, handler.got())

	// after Stop publishing is a no-op
	require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketEscalated, "t-3", "job", now, nil)))
	assert.Len(t, handler.got(), 2)
}

func TestNotificationWorkerDropsWhenFull(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher()
	handler := &recordingHandler{types: []events.EventType{events.EventTicketAssigned}}
	w := NewNotificationWorker(dispatcher, handler, 1, nil)

	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, dispatcher.Publish(context.Background(), events.New(events.EventTicketAssigned, id, "mgr", time.Now(), nil)))
	}
	w.Start(context.Background())
	w.Stop()

	assert.Equal(t, []string{"a"}, handler.got())
}
