package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/audit"
	"github.com/spec-kit/dispute-service/internal/collab"
	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/repository/memory"
)

type fakeRenderer struct {
	err   error
	calls int
}

func (f *fakeRenderer) RenderInvitationLetter(_ context.Context, inv *domain.Invitation, _ domain.LetterParams) (collab.DocumentHandle, error) {
	f.calls++
	if f.err != nil {
		return collab.DocumentHandle{}, f.err
	}
	return collab.DocumentHandle{ID: "letter-" + inv.ID}, nil
}

type fakeChat struct {
	mu   sync.Mutex
	fail map[string]bool
	sent []string
}

func (f *fakeChat) SendChatAttachment(_ context.Context, recipient string, document collab.DocumentHandle) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail[recipient] {
		return errors.New("chat unavailable for " + recipient)
	}
	f.sent = append(f.sent, recipient+":"+document.ID)
	return nil
}

type fixture struct {
	users       *memory.Users
	disputes    *memory.Disputes
	invitations *memory.Invitations
	auditLog    *memory.Audit
	dispatcher  events.Dispatcher

	accounts *AccountService
	cases    *DisputeService
	invites  *InvitationService

	renderer *fakeRenderer
	chat     *fakeChat
}

func newFixture(t *testing.T, strict bool) *fixture {
	t.Helper()
	f := &fixture{
		users:       memory.NewUsers(),
		disputes:    memory.NewDisputes(),
		invitations: memory.NewInvitations(),
		auditLog:    memory.NewAudit(),
		dispatcher:  events.NewInMemoryDispatcher(),
		renderer:    &fakeRenderer{},
		chat:        &fakeChat{fail: map[string]bool{}},
	}
	logger := zap.NewNop()
	recorder := audit.NewRecorder(audit.NewRepositorySink(f.auditLog), logger, nil)

	f.accounts = NewAccountService(AccountDependencies{
		UserRepo:   f.users,
		Audit:      recorder,
		Dispatcher: f.dispatcher,
		Logger:     logger,
	})
	f.cases = NewDisputeService(DisputeDependencies{
		DisputeRepo:  f.disputes,
		Audit:        recorder,
		Dispatcher:   f.dispatcher,
		Logger:       logger,
		StrictFields: strict,
	})
	f.invites = NewInvitationService(InvitationDependencies{
		InvitationRepo: f.invitations,
		DisputeRepo:    f.disputes,
		UserRepo:       f.users,
		Disputes:       f.cases,
		Renderer:       f.renderer,
		Chat:           f.chat,
		Audit:          recorder,
		Dispatcher:     f.dispatcher,
		Logger:         logger,
	})
	return f
}

// user stores an active actor with the given level.
func (f *fixture) user(t *testing.T, role domain.Role, district string) *domain.User {
	t.Helper()
	level := &domain.Level{Role: role}
	if district != "" {
		level.District = &district
	}
	u := &domain.User{
		FullName:      string(role) + " " + district,
		PhoneNumber:   "+250" + uuid.NewString()[:8],
		BaseRole:      domain.RoleUser,
		Level:         level,
		AccountStatus: domain.AccountStatusActive,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u
}

// reload returns the stored state of u.
func (f *fixture) reload(t *testing.T, u *domain.User) *domain.User {
	t.Helper()
	fresh, err := f.users.GetByID(context.Background(), u.ID)
	require.NoError(t, err)
	return fresh
}

func (f *fixture) openCase(t *testing.T, owner *domain.User, district string) *domain.Dispute {
	t.Helper()
	d, err := f.cases.CreateDispute(context.Background(), owner, DisputeCreateInput{
		UPI:         "1/02/03/04/" + uuid.NewString()[:4],
		District:    district,
		Title:       "Boundary dispute",
		Description: "Neighbour moved the fence",
		Attachments: []string{"survey.pdf"},
		Location:    "Gasabo",
	})
	require.NoError(t, err)
	return d
}

func (f *fixture) auditActions() []string {
	var actions []string
	for _, entry := range f.auditLog.Entries() {
		actions = append(actions, entry.Action)
	}
	return actions
}

func ptr[T any](v T) *T { return &v }
