package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/policy"
)

// Warning reports a post-commit side effect that failed. The committed state
// change stands; the caller decides whether to retry the side effect.
type Warning struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// runtime is embedded by every service and carries its ambient collaborators.
type runtime struct {
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	logger     *zap.Logger
}

func newRuntime(dispatcher events.Dispatcher, metrics *observability.Metrics, logger *zap.Logger) runtime {
	if logger == nil {
		logger = zap.NewNop()
	}
	return runtime{dispatcher: dispatcher, metrics: metrics, logger: logger}
}

// gate runs the account status check that precedes every protected operation.
func (r runtime) gate(actor *domain.User, action string) error {
	if err := policy.CheckAccountStatus(actor); err != nil {
		r.metrics.RecordDenial(action)
		return err
	}
	return nil
}

func (r runtime) deny(action, reason string) error {
	r.metrics.RecordDenial(action)
	return domain.Forbidden(action, reason)
}

func (r runtime) publishEvent(ctx context.Context, event events.Event) {
	if r.dispatcher == nil {
		return
	}
	if err := r.dispatcher.Publish(ctx, event); err != nil {
		r.logger.Warn("publish event failed",
			zap.String("event_type", string(event.Type)),
			zap.String("aggregate_id", event.AggregateID),
			zap.Error(err))
	}
}

func (r runtime) warn(operation string, err error) Warning {
	r.metrics.RecordWarning(operation)
	r.logger.Warn("side effect failed", zap.String("operation", operation), zap.Error(err))
	return Warning{Code: operation, Message: err.Error()}
}

func actorOf(user *domain.User) events.Actor {
	return events.Actor{UserID: user.ID, Role: policy.EffectiveRole(user)}
}

func validation(message string, fields map[string]any) error {
	return &domain.ValidationError{Message: message, Fields: fields}
}

func trimmed(v *string) *string {
	if v == nil {
		return nil
	}
	s := strings.TrimSpace(*v)
	return &s
}
