package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-escalation/internal/events"
)

const defaultNotificationBuffer = 256

// NotificationHandler delivers events off the publishing goroutine.
type NotificationHandler interface {
	EventTypes() []events.EventType
	Handle(ctx context.Context, event events.Event) error
}

// NotificationWorker queues events from the dispatcher and delivers them on
// its own goroutine so requests and escalation passes never wait on
// notification channels. A full queue drops the event with a warning.
type NotificationWorker struct {
	handler NotificationHandler
	queue   chan events.Event
	done    chan struct{}
	logger  *zap.Logger

	startOnce sync.Once
	stopOnce  sync.Once
	wg        sync.WaitGroup
}

// NewNotificationWorker subscribes handler's event types on dispatcher.
// Events published before Start are buffered.
func NewNotificationWorker(dispatcher events.Dispatcher, handler NotificationHandler, buffer int, logger *zap.Logger) *NotificationWorker {
	if buffer <= 0 {
		buffer = defaultNotificationBuffer
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	w := &NotificationWorker{
		handler: handler,
		queue:   make(chan events.Event, buffer),
		done:    make(chan struct{}),
		logger:  logger,
	}
	for _, t := range handler.EventTypes() {
		dispatcher.Subscribe(t, w.enqueue)
	}
	return w
}

func (w *NotificationWorker) enqueue(_ context.Context, event events.Event) error {
	select {
	case <-w.done:
		return nil
	default:
	}
	select {
	case w.queue <- event:
	default:
		w.logger.Warn("notification queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Start launches the delivery loop. It returns immediately.
func (w *NotificationWorker) Start(ctx context.Context) {
	w.startOnce.Do(func() {
		w.wg.Add(1)
		go w.loop(ctx)
	})
}

// Stop ends the loop after delivering what is already queued.
func (w *NotificationWorker) Stop() {
	w.stopOnce.Do(func() { close(w.done) })
	w.wg.Wait()
}

func (w *NotificationWorker) loop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case event := <-w.queue:
			w.deliver(ctx, event)
		case <-ctx.Done():
			return
		case <-w.done:
			for {
				select {
				case event := <-w.queue:
					w.deliver(context.WithoutCancel(ctx), event)
				default:
					return
				}
			}
		}
	}
}

func (w *NotificationWorker) deliver(ctx context.Context, event events.Event) {
	if err := w.handler.Handle(ctx, event); err != nil {
		w.logger.Warn("notification delivery failed",
			zap.String("event_type", string(event.Type)),
			zap.String("ticket_id", event.TicketID),
			zap.Error(err))
	}
}
