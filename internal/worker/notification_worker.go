package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/service"
)

// StartNotificationWorker registers notification handlers.
func StartNotificationWorker(notificationService *service.NotificationService) {
	if notificationService == nil {
		return
	}
	notificationService.RegisterHandlers()
}

// AsyncDispatcher queues events and delivers them on a background goroutine,
// so post-commit side effects never hold a request open.
type AsyncDispatcher struct {
	inner  events.Dispatcher
	logger *zap.Logger
	queue  chan queued
	wg     sync.WaitGroup
	once   sync.Once
}

type queued struct {
	ctx   context.Context
	event events.Event
}

// NewAsyncDispatcher wraps inner with a bounded queue.
func NewAsyncDispatcher(inner events.Dispatcher, logger *zap.Logger, size int) *AsyncDispatcher {
	if size <= 0 {
		size = 256
	}
	return &AsyncDispatcher{inner: inner, logger: logger, queue: make(chan queued, size)}
}

// Start launches the delivery loop.
func (d *AsyncDispatcher) Start() {
	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		for item := range d.queue {
			if err := d.inner.Publish(item.ctx, item.event); err != nil {
				d.logger.Warn("event delivery failed",
					zap.String("event_type", string(item.event.Type)),
					zap.String("aggregate_id", item.event.AggregateID),
					zap.Error(err))
			}
		}
	}()
}

// Publish enqueues the event. A full queue drops the event with a warning.
func (d *AsyncDispatcher) Publish(ctx context.Context, event events.Event) error {
	select {
	case d.queue <- queued{ctx: context.WithoutCancel(ctx), event: event}:
	default:
		d.logger.Warn("event queue full; dropping event",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID))
	}
	return nil
}

// Subscribe registers a handler on the wrapped dispatcher.
func (d *AsyncDispatcher) Subscribe(eventType events.EventType, handler events.EventHandler) {
	d.inner.Subscribe(eventType, handler)
}

// Stop drains queued events and waits for the loop to exit.
func (d *AsyncDispatcher) Stop() {
	d.once.Do(func() { close(d.queue) })
	d.wg.Wait()
}
