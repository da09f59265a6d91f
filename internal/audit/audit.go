// Package audit records privileged actions to one or more append-only sinks.
// A failing sink is logged and counted; it never fails the operation that
// produced the entry.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// Actions recorded by the services.
const (
	ActionAccountSuspended     = "account.suspended"
	ActionAccountReactivated   = "account.reactivated"
	ActionAccountSwitched      = "account.switched"
	ActionAccountRestored      = "account.restored"
	ActionAccountLevelAssigned = "account.level_assigned"
	ActionDisputeCreated       = "dispute.created"
	ActionDisputeUpdated       = "dispute.updated"
	ActionDisputeTransitioned  = "dispute.transitioned"
	ActionInvitationCreated    = "invitation.created"
	ActionInvitationScheduled  = "invitation.scheduled"
	ActionDefendantAssigned    = "invitation.defendant_assigned"
	ActionLetterIssued         = "invitation.letter_issued"
	ActionLetterRenderFailed   = "invitation.letter_render_failed"
	ActionDocumentsShared      = "invitation.documents_shared"
	ActionChatDeliveryFailed   = "invitation.chat_delivery_failed"
	ActionInvitationCanceled   = "invitation.canceled"
	ActionSideEffectFailed     = "side_effect.failed"
)

// Sink persists audit entries.
type Sink interface {
	Name() string
	Append(ctx context.Context, entry *domain.AuditEntry) error
}

// Recorder stamps entries and forwards them to a sink.
type Recorder struct {
	sink    Sink
	logger  *zap.Logger
	metrics *observability.Metrics
	timeout time.Duration
}

// NewRecorder creates a recorder. A nil sink drops entries after logging them.
func NewRecorder(sink Sink, logger *zap.Logger, metrics *observability.Metrics) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{sink: sink, logger: logger, metrics: metrics, timeout: 3 * time.Second}
}

// Record appends an entry. Sink failures are logged and swallowed.
func (r *Recorder) Record(ctx context.Context, action, actorID string, targetType domain.TargetType, targetID string, details map[string]any) {
	if r == nil {
		return
	}
	entry := &domain.AuditEntry{
		ID:         uuid.NewString(),
		Action:     action,
		ActorID:    actorID,
		TargetID:   targetID,
		TargetType: targetType,
		Details:    details,
		Timestamp:  time.Now().UTC(),
	}
	if entry.Details == nil {
		entry.Details = map[string]any{}
	}
	if r.sink == nil {
		r.logger.Info("audit", zap.String("action", action), zap.String("target_id", targetID))
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()
	if err := r.sink.Append(ctx, entry); err != nil {
		r.metrics.RecordAuditFailure(r.sink.Name())
		r.logger.Warn("audit append failed",
			zap.String("sink", r.sink.Name()),
			zap.String("action", action),
			zap.String("target_id", targetID),
			zap.Error(err))
	}
}

// RepositorySink writes to an AuditRepository (the audit_log table or its in-memory twin).
type RepositorySink struct {
	repo repository.AuditRepository
}

// NewRepositorySink wraps repo.
func NewRepositorySink(repo repository.AuditRepository) *RepositorySink {
	return &RepositorySink{repo: repo}
}

func (s *RepositorySink) Name() string { return "audit_log" }

func (s *RepositorySink) Append(ctx context.Context, entry *domain.AuditEntry) error {
	return s.repo.Append(ctx, entry)
}

// StreamAdder is the subset of redis.Cmdable used by StreamSink.
type StreamAdder interface {
	XAdd(ctx context.Context, a *redis.XAddArgs) *redis.StringCmd
}

// StreamSink publishes entries to a capped Redis stream.
type StreamSink struct {
	client StreamAdder
	stream string
	maxLen int64
}

// NewStreamSink creates a sink writing to stream.
func NewStreamSink(client StreamAdder, stream string) *StreamSink {
	return &StreamSink{client: client, stream: stream, maxLen: 100000}
}

func (s *StreamSink) Name() string { return "redis_stream" }

func (s *StreamSink) Append(ctx context.Context, entry *domain.AuditEntry) error {
	details, err := json.Marshal(entry.Details)
	if err != nil {
		return fmt.Errorf("encode audit details: %w", err)
	}
	return s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.stream,
		MaxLen: s.maxLen,
		Approx: true,
		Values: map[string]any{
			"id":          entry.ID,
			"action":      entry.Action,
			"actor_id":    entry.ActorID,
			"target_id":   entry.TargetID,
			"target_type": string(entry.TargetType),
			"details":     string(details),
			"timestamp":   entry.Timestamp.Format(time.RFC3339Nano),
		},
	}).Err()
}

// ErrQueueFull is returned by AsyncSink when its buffer has no room.
var ErrQueueFull = errors.New("audit queue full")

// AsyncSink hands entries to inner on a background goroutine. Append only
// enqueues, so a slow sink never holds a request open.
type AsyncSink struct {
	inner   Sink
	logger  *zap.Logger
	metrics *observability.Metrics
	timeout time.Duration
	queue   chan *domain.AuditEntry
	wg      sync.WaitGroup
	once    sync.Once
}

// NewAsyncSink wraps inner with a bounded queue of size entries.
func NewAsyncSink(inner Sink, logger *zap.Logger, metrics *observability.Metrics, size int) *AsyncSink {
	if logger == nil {
		logger = zap.NewNop()
	}
	if size <= 0 {
		size = 256
	}
	return &AsyncSink{
		inner:   inner,
		logger:  logger,
		metrics: metrics,
		timeout: 3 * time.Second,
		queue:   make(chan *domain.AuditEntry, size),
	}
}

func (s *AsyncSink) Name() string { return "async_" + s.inner.Name() }

// Start launches the drain loop.
func (s *AsyncSink) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for entry := range s.queue {
			s.write(entry)
		}
	}()
}

func (s *AsyncSink) write(entry *domain.AuditEntry) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()
	if err := s.inner.Append(ctx, entry); err != nil {
		s.metrics.RecordAuditFailure(s.inner.Name())
		s.logger.Warn("audit append failed",
			zap.String("sink", s.inner.Name()),
			zap.String("action", entry.Action),
			zap.String("target_id", entry.TargetID),
			zap.Error(err))
	}
}

// Append enqueues entry, or returns ErrQueueFull without blocking.
func (s *AsyncSink) Append(_ context.Context, entry *domain.AuditEntry) error {
	select {
	case s.queue <- entry:
		return nil
	default:
		return ErrQueueFull
	}
}

// Stop drains queued entries and waits for the loop to exit.
func (s *AsyncSink) Stop() {
	s.once.Do(func() { close(s.queue) })
	s.wg.Wait()
}

// MultiSink fans an entry out to every sink and joins their errors.
type MultiSink []Sink

func (m MultiSink) Name() string { return "multi" }

func (m MultiSink) Append(ctx context.Context, entry *domain.AuditEntry) error {
	var errs []error
	for _, sink := range m {
		if err := sink.Append(ctx, entry); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", sink.Name(), err))
		}
	}
	return errors.Join(errs...)
}
