package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/events"
)

// NotificationService forwards committed domain events to parties and subscribers.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   collab.EventNotifier
	logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, notifier collab.EventNotifier, logger *zap.Logger) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		notifier:   notifier,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventDisputeCreated, n.handleDisputeCreated)
	n.dispatcher.Subscribe(events.EventDisputeStatusChanged, n.handleDisputeStatusChanged)
	n.dispatcher.Subscribe(events.EventLetterIssued, n.forward)
	n.dispatcher.Subscribe(events.EventDocumentsShared, n.forward)
	n.dispatcher.Subscribe(events.EventInvitationCanceled, n.forward)
	n.dispatcher.Subscribe(events.EventAccountSuspended, n.handleAccountSuspended)
	n.dispatcher.Subscribe(events.EventAccountReactivated, n.forward)
}

func (n *NotificationService) handleDisputeCreated(ctx context.Context, event events.Event) error {
	n.logger.Info("DisputeCreated", zap.String("dispute_id", event.AggregateID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleDisputeStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("DisputeStatusChanged", zap.String("dispute_id", event.AggregateID), zap.Any("payload", event.Payload))
	return n.forward(ctx, event)
}

func (n *NotificationService) handleAccountSuspended(ctx context.Context, event events.Event) error {
	n.logger.Info("AccountSuspended", zap.String("user_id", event.AggregateID), zap.String("actor", event.Actor.UserID))
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	if n.notifier == nil {
		return nil
	}
	if err := n.notifier.Notify(ctx, string(event.Type), event); err != nil {
		n.logger.Warn("event notification failed",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err))
		return err
	}
	return nil
}
