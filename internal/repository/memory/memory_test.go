package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/repository"
)

func TestDisputeSaveVersionCompareAndSet(t *testing.T) {
	ctx := context.Background()
	store := NewDisputes()
	d := &domain.Dispute{UPI: "1/2/3", District: "Kigali", Title: "t", Status: domain.DisputeStatusOpen, CreatedBy: "u1"}
	require.NoError(t, store.Create(ctx, d, &domain.CaseVersion{ChangedBy: "u1"}))
	assert.NotEmpty(t, d.ID)
	assert.Equal(t, 1, d.CurrentVersion)

	first := d.Clone()
	first.Title = "first"
	require.NoError(t, store.SaveVersion(ctx, first, &domain.CaseVersion{Version: 2, ChangedBy: "u1"}))

	stale := d.Clone()
	stale.Title = "stale"
	err := store.SaveVersion(ctx, stale, &domain.CaseVersion{Version: 2, ChangedBy: "u2"})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)
	err = store.SaveVersion(ctx, stale, &domain.CaseVersion{Version: 4, ChangedBy: "u2"})
	assert.ErrorIs(t, err, domain.ErrConcurrentModification)

	stored, err := store.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, "first", stored.Title)
	versions, err := store.ListVersions(ctx, d.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 1, versions[0].Version)
	assert.Equal(t, 2, versions[1].Version)

	_, err = store.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestDisputeReadsAreCopies(t *testing.T) {
	ctx := context.Background()
	store := NewDisputes()
	d := &domain.Dispute{District: "Kigali", Attachments: []string{"a.pdf"}, Status: domain.DisputeStatusOpen}
	require.NoError(t, store.Create(ctx, d, &domain.CaseVersion{}))

	got, err := store.GetByID(ctx, d.ID)
	require.NoError(t, err)
	got.Attachments[0] = "tampered.pdf"

	again, err := store.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.pdf"}, again.Attachments)
}

func TestDisputeListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewDisputes()
	defendant := "u3"
	seed := []*domain.Dispute{
		{ClaimantID: "u1", CreatedBy: "u1", District: "Kigali", Title: "Fence line", Status: domain.DisputeStatusOpen},
		{ClaimantID: "u2", CreatedBy: "u2", District: "Kigali", Title: "Inheritance", Status: domain.DisputeStatusProcessing, DefendantID: &defendant},
		{ClaimantID: "u1", CreatedBy: "u1", District: "Huye", Title: "Water access", Status: domain.DisputeStatusOpen},
	}
	for _, d := range seed {
		require.NoError(t, store.Create(ctx, d, &domain.CaseVersion{}))
	}

	kigali := "Kigali"
	list, err := store.List(ctx, repository.DisputeFilter{District: &kigali})
	require.NoError(t, err)
	assert.Len(t, list, 2)

	owner := "u1"
	list, err = store.List(ctx, repository.DisputeFilter{District: &kigali, IncludePartyID: &owner})
	require.NoError(t, err)
	assert.Len(t, list, 3, "a party sees its out-of-district case")

	party := "u3"
	list, err = store.List(ctx, repository.DisputeFilter{PartyID: &party})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Inheritance", list[0].Title)

	term := "FENCE"
	list, err = store.List(ctx, repository.DisputeFilter{SearchTerm: &term})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = store.List(ctx, repository.DisputeFilter{Statuses: []domain.DisputeStatus{domain.DisputeStatusOpen}, Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, list, 1)

	counts, err := store.CountByStatus(ctx, &kigali)
	require.NoError(t, err)
	assert.Equal(t, map[domain.DisputeStatus]int{domain.DisputeStatusOpen: 1, domain.DisputeStatusProcessing: 1}, counts)
}

func TestUserRevisionGuard(t *testing.T) {
	ctx := context.Background()
	store := NewUsers()
	u := &domain.User{PhoneNumber: "+250788111111", Email: "Case@Example.rw", Level: &domain.Level{Role: domain.RoleUser}}
	require.NoError(t, store.Create(ctx, u))

	a, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)
	b, err := store.GetByID(ctx, u.ID)
	require.NoError(t, err)

	a.FullName = "first"
	require.NoError(t, store.Update(ctx, a))
	b.FullName = "second"
	assert.ErrorIs(t, store.Update(ctx, b), domain.ErrConcurrentModification)

	byMail, err := store.GetByContact(ctx, "case@example.rw")
	require.NoError(t, err)
	assert.Equal(t, "first", byMail.FullName)
	_, err = store.GetByContact(ctx, "+250700000000")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestOTPCodesExpire(t *testing.T) {
	ctx := context.Background()
	store := NewOTPCodes()
	now := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	store.now = func() time.Time { return now }

	require.NoError(t, store.Save(ctx, &domain.OTPRecord{Contact: "+250788", CodeHash: "h"}, time.Minute))
	attempts, err := store.IncrementAttempts(ctx, "+250788")
	require.NoError(t, err)
	assert.Equal(t, 1, attempts)

	rec, err := store.Load(ctx, "+250788")
	require.NoError(t, err)
	assert.Equal(t, 1, rec.Attempts)

	now = now.Add(2 * time.Minute)
	_, err = store.Load(ctx, "+250788")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAuditListByTarget(t *testing.T) {
	ctx := context.Background()
	log := NewAudit()
	for i := 0; i < 3; i++ {
		require.NoError(t, log.Append(ctx, &domain.AuditEntry{Action: "dispute.updated", TargetType: domain.TargetDispute, TargetID: "d1"}))
	}
	require.NoError(t, log.Append(ctx, &domain.AuditEntry{Action: "account.suspended", TargetType: domain.TargetUser, TargetID: "d1"}))

	entries, err := log.ListByTarget(ctx, domain.TargetDispute, "d1", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
	assert.Len(t, log.Entries(), 4)
}
