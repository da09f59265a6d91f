package audit

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/observability"
	"github.com/spec-kit/dispute-service/internal/repository/memory"
)

type failingSink struct{ err error }

func (f failingSink) Name() string { return "failing" }

func (f failingSink) Append(context.Context, *domain.AuditEntry) error { return f.err }

type fakeStream struct {
	args []*redis.XAddArgs
	err  error
}

func (f *fakeStream) XAdd(_ context.Context, a *redis.XAddArgs) *redis.StringCmd {
	f.args = append(f.args, a)
	return redis.NewStringResult("1-0", f.err)
}

func TestRecorderWritesStampedEntry(t *testing.T) {
	store := memory.NewAudit()
	rec := NewRecorder(NewRepositorySink(store), zap.NewNop(), nil)

	rec.Record(context.Background(), ActionAccountSuspended, "admin-1", domain.TargetUser, "user-1", map[string]any{"reason": "fraud"})

	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].Timestamp.IsZero())
	assert.Equal(t, "fraud", entries[0].Details["reason"])
	assert.Equal(t, domain.TargetUser, entries[0].TargetType)
}

func TestRecorderSwallowsSinkFailure(t *testing.T) {
	metrics := observability.NewMetrics()
	rec := NewRecorder(failingSink{err: errors.New("down")}, zap.NewNop(), metrics)

	assert.NotPanics(t, func() {
		rec.Record(context.Background(), ActionDisputeUpdated, "u", domain.TargetDispute, "d", nil)
	})
	count, err := testutil.GatherAndCount(metrics.Registry(), "land_dispute_audit_sink_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestRecorderIgnoresCanceledCaller(t *testing.T) {
	store := memory.NewAudit()
	rec := NewRecorder(NewRepositorySink(store), zap.NewNop(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	rec.Record(ctx, ActionInvitationCanceled, "m", domain.TargetInvitation, "inv", nil)
	assert.Len(t, store.Entries(), 1)
}

func TestStreamSinkEncodesEntry(t *testing.T) {
	stream := &fakeStream{}
	sink := NewStreamSink(stream, "audit:events")

	err := sink.Append(context.Background(), &domain.AuditEntry{
		ID: "e1", Action: ActionLetterIssued, TargetType: domain.TargetInvitation, TargetID: "inv",
		Details: map[string]any{"document": "doc-1"},
	})
	require.NoError(t, err)
	require.Len(t, stream.args, 1)
	assert.Equal(t, "audit:events", stream.args[0].Stream)
	values := stream.args[0].Values.(map[string]any)
	assert.Equal(t, `{"document":"doc-1"}`, values["details"])
	assert.Equal(t, "invitation", values["target_type"])
}

func TestMultiSinkJoinsErrorsAndContinues(t *testing.T) {
	store := memory.NewAudit()
	multi := MultiSink{failingSink{err: errors.New("boom")}, NewRepositorySink(store)}

	err := multi.Append(context.Background(), &domain.AuditEntry{ID: "e1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failing: boom")
	assert.Len(t, store.Entries(), 1)
}

type gatedSink struct {
	release chan struct{}
	mu      sync.Mutex
	actions []string
}

func (g *gatedSink) Name() string { return "gated" }

func (g *gatedSink) Append(_ context.Context, entry *domain.AuditEntry) error {
	<-g.release
	g.mu.Lock()
	defer g.mu.Unlock()
	g.actions = append(g.actions, entry.Action)
	return nil
}

func TestAsyncSinkDoesNotBlockRecorder(t *testing.T) {
	inner := &gatedSink{release: make(chan struct{})}
	queue := NewAsyncSink(inner, zap.NewNop(), nil, 8)
	queue.Start()
	rec := NewRecorder(queue, zap.NewNop(), nil)

	done := make(chan struct{})
	go func() {
		rec.Record(context.Background(), ActionAccountSuspended, "admin-1", domain.TargetUser, "user-1", nil)
		rec.Record(context.Background(), ActionAccountReactivated, "admin-1", domain.TargetUser, "user-1", nil)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("recorder blocked on a stalled sink")
	}

	close(inner.release)
	queue.Stop()
	assert.Equal(t, []string{ActionAccountSuspended, ActionAccountReactivated}, inner.actions)
}

func TestAsyncSinkRejectsWhenFull(t *testing.T) {
	metrics := observability.NewMetrics()
	store := memory.NewAudit()
	queue := NewAsyncSink(NewRepositorySink(store), zap.NewNop(), metrics, 1)
	rec := NewRecorder(queue, zap.NewNop(), metrics)

	rec.Record(context.Background(), ActionDisputeCreated, "u", domain.TargetDispute, "d1", nil)
	assert.ErrorIs(t, queue.Append(context.Background(), &domain.AuditEntry{Action: ActionDisputeUpdated}), ErrQueueFull)
	rec.Record(context.Background(), ActionDisputeUpdated, "u", domain.TargetDispute, "d1", nil)

	count, err := testutil.GatherAndCount(metrics.Registry(), "land_dispute_audit_sink_failures_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	queue.Start()
	queue.Stop()
	entries := store.Entries()
	require.Len(t, entries, 1)
	assert.Equal(t, ActionDisputeCreated, entries[0].Action)
}
