package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/events"
	"github.com/spec-kit/dispute-service/internal/policy"
)

func TestRegisterRejectsDuplicateContact(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()

	u, err := f.accounts.Register(ctx, RegisterInput{FullName: " Aline ", PhoneNumber: "+250788000001", Email: "Aline@Example.rw"})
	require.NoError(t, err)
	assert.Equal(t, "Aline", u.FullName)
	assert.Equal(t, "aline@example.rw", u.Email)
	assert.Equal(t, domain.RoleUser, u.Level.Role)
	assert.Equal(t, domain.AccountStatusActive, u.AccountStatus)

	_, err = f.accounts.Register(ctx, RegisterInput{Email: "aline@example.rw"})
	assert.ErrorIs(t, err, domain.ErrContactTaken)

	_, err = f.accounts.Register(ctx, RegisterInput{FullName: "No contact"})
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)
}

func TestSuspendReactivateRoundTrip(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := f.user(t, domain.RoleAdmin, "")
	citizen := f.user(t, domain.RoleUser, "")

	var published []events.EventType
	f.dispatcher.Subscribe(events.EventAccountSuspended, func(_ context.Context, e events.Event) error {
		published = append(published, e.Type)
		return nil
	})

	suspended, err := f.accounts.Suspend(ctx, admin, citizen.ID, "fraud")
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusSuspended, suspended.AccountStatus)
	require.NotNil(t, suspended.Suspension)
	assert.Equal(t, admin.ID, suspended.Suspension.SuspendedBy)
	assert.Equal(t, []events.EventType{events.EventAccountSuspended}, published)

	_, err = f.accounts.Suspend(ctx, admin, citizen.ID, "again")
	assert.ErrorIs(t, err, domain.ErrAlreadySuspended)

	err = policy.CheckAccountStatus(f.reload(t, citizen))
	var gateErr *domain.AccountSuspendedError
	require.ErrorAs(t, err, &gateErr)
	assert.Equal(t, "fraud", gateErr.Reason)

	active, err := f.accounts.Reactivate(ctx, admin, citizen.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.AccountStatusActive, active.AccountStatus)
	assert.Nil(t, active.Suspension)
	assert.NoError(t, policy.CheckAccountStatus(f.reload(t, citizen)))

	_, err = f.accounts.Reactivate(ctx, admin, citizen.ID)
	assert.ErrorIs(t, err, domain.ErrNotSuspended)

	assert.Equal(t, []string{"account.suspended", "account.reactivated"}, f.auditActions())
}

func TestSuspendAuthority(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := f.user(t, domain.RoleAdmin, "")
	manager := f.user(t, domain.RoleManager, "Kigali")
	super := f.user(t, domain.RoleSuperAdmin, "")
	citizen := f.user(t, domain.RoleUser, "")

	_, err := f.accounts.Suspend(ctx, manager, citizen.ID, "spam")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.accounts.Suspend(ctx, admin, admin.ID, "oops")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.accounts.Suspend(ctx, admin, super.ID, "coup")
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.accounts.Suspend(ctx, admin, citizen.ID, "  ")
	var verr *domain.ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = f.accounts.Suspend(ctx, super, admin.ID, "audit")
	assert.NoError(t, err)
	_, err = f.accounts.Suspend(ctx, f.reload(t, admin), citizen.ID, "spam")
	var gateErr *domain.AccountSuspendedError
	assert.ErrorAs(t, err, &gateErr)
}

func TestSwitchedAdminLosesAdminReach(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := f.user(t, domain.RoleAdmin, "")
	citizen := f.user(t, domain.RoleUser, "")
	d := f.openCase(t, citizen, "Kigali")

	_, err := f.cases.GetDispute(ctx, admin, d.ID)
	require.NoError(t, err)

	switched, err := f.accounts.SwitchAccount(ctx, admin, domain.RoleUser)
	require.NoError(t, err)
	assert.True(t, switched.Level.IsSwitch)
	assert.Equal(t, domain.RoleUser, policy.EffectiveRole(switched))
	assert.Equal(t, domain.RoleAdmin, policy.TrueRole(switched))
	assert.False(t, policy.CanAccessContent(switched, citizen.ID, policy.ContentLevelNational))

	_, err = f.cases.GetDispute(ctx, switched, d.ID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.accounts.Suspend(ctx, switched, citizen.ID, "spam")
	assert.ErrorIs(t, err, domain.ErrForbidden)

	restored, err := f.accounts.RestoreAccount(ctx, switched)
	require.NoError(t, err)
	assert.False(t, restored.Level.IsSwitch)
	assert.Equal(t, domain.RoleAdmin, policy.EffectiveRole(restored))
	_, err = f.cases.GetDispute(ctx, restored, d.ID)
	assert.NoError(t, err)
}

func TestSwitchTargetsAndEligibility(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := f.user(t, domain.RoleAdmin, "")
	citizen := f.user(t, domain.RoleUser, "")

	_, err := f.accounts.SwitchAccount(ctx, admin, domain.RoleAdmin)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
	_, err = f.accounts.SwitchAccount(ctx, admin, domain.Role("auditor"))
	assert.ErrorIs(t, err, domain.ErrInvalidRole)
	_, err = f.accounts.SwitchAccount(ctx, citizen, domain.RoleManager)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	same, err := f.accounts.RestoreAccount(ctx, citizen)
	require.NoError(t, err)
	assert.Equal(t, citizen.Revision, same.Revision)
}

func TestAssignLevel(t *testing.T) {
	f := newFixture(t, false)
	ctx := context.Background()
	admin := f.user(t, domain.RoleAdmin, "")
	super := f.user(t, domain.RoleSuperAdmin, "")
	citizen := f.user(t, domain.RoleUser, "")

	_, err := f.accounts.AssignLevel(ctx, admin, citizen.ID, domain.RoleManager, nil)
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Contains(t, verr.Fields, "district")

	manager, err := f.accounts.AssignLevel(ctx, admin, citizen.ID, domain.RoleManager, ptr(" Kigali "))
	require.NoError(t, err)
	assert.Equal(t, domain.RoleManager, manager.Level.Role)
	assert.Equal(t, "Kigali", manager.DistrictValue())

	_, err = f.accounts.AssignLevel(ctx, admin, citizen.ID, domain.RoleAdmin, nil)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.accounts.AssignLevel(ctx, admin, citizen.ID, domain.Role("root"), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidRole)

	promoted, err := f.accounts.AssignLevel(ctx, super, citizen.ID, domain.RoleAdmin, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.RoleAdmin, policy.EffectiveRole(promoted))
}
