// Package memory provides in-process repositories with the same compare-and-set
// semantics as the Postgres implementations. They back the service when no
// database is configured and are used throughout the tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/repository"
)

// Users is an in-memory repository.UserRepository.
type Users struct {
	mu    sync.Mutex
	items map[string]*domain.User
}

// NewUsers creates an empty store.
func NewUsers() *Users {
	return &Users{items: make(map[string]*domain.User)}
}

var _ repository.UserRepository = (*Users)(nil)

func (s *Users) Create(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	user.Revision = 1
	user.CreatedAt = now
	user.UpdatedAt = now
	s.items[user.ID] = cloneUser(user)
	return nil
}

func (s *Users) Update(_ context.Context, user *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[user.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "user", ID: user.ID}
	}
	if stored.Revision != user.Revision {
		return domain.ErrConcurrentModification
	}
	user.Revision++
	user.UpdatedAt = time.Now().UTC()
	s.items[user.ID] = cloneUser(user)
	return nil
}

func (s *Users) GetByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "user", ID: id}
	}
	return cloneUser(stored), nil
}

func (s *Users) GetByContact(_ context.Context, contact string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, stored := range s.items {
		if (stored.PhoneNumber != "" && stored.PhoneNumber == contact) ||
			(stored.Email != "" && strings.EqualFold(stored.Email, contact)) {
			return cloneUser(stored), nil
		}
	}
	return nil, &domain.NotFoundError{Resource: "user", ID: contact}
}

func cloneUser(u *domain.User) *domain.User {
	cp := *u
	if u.Level != nil {
		lvl := *u.Level
		if u.Level.AccountRole != nil {
			role := *u.Level.AccountRole
			lvl.AccountRole = &role
		}
		if u.Level.District != nil {
			district := *u.Level.District
			lvl.District = &district
		}
		cp.Level = &lvl
	}
	if u.Suspension != nil {
		susp := *u.Suspension
		cp.Suspension = &susp
	}
	return &cp
}

// Disputes is an in-memory repository.DisputeRepository.
type Disputes struct {
	mu       sync.Mutex
	items    map[string]*domain.Dispute
	versions map[string][]domain.CaseVersion
}

// NewDisputes creates an empty store.
func NewDisputes() *Disputes {
	return &Disputes{
		items:    make(map[string]*domain.Dispute),
		versions: make(map[string][]domain.CaseVersion),
	}
}

var _ repository.DisputeRepository = (*Disputes)(nil)

func (s *Disputes) Create(_ context.Context, dispute *domain.Dispute, initial *domain.CaseVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if dispute.ID == "" {
		dispute.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	dispute.CreatedAt = now
	dispute.UpdatedAt = now
	dispute.CurrentVersion = 1

	initial.ID = uuid.NewString()
	initial.DisputeID = dispute.ID
	initial.Version = 1
	initial.ChangedAt = now

	s.items[dispute.ID] = dispute.Clone()
	s.versions[dispute.ID] = []domain.CaseVersion{*initial}
	return nil
}

func (s *Disputes) SaveVersion(_ context.Context, dispute *domain.Dispute, version *domain.CaseVersion) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[dispute.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "dispute", ID: dispute.ID}
	}
	if stored.CurrentVersion != version.Version-1 {
		return domain.ErrConcurrentModification
	}
	now := time.Now().UTC()
	version.ID = uuid.NewString()
	version.DisputeID = dispute.ID
	version.ChangedAt = now
	dispute.CurrentVersion = version.Version
	dispute.UpdatedAt = now

	s.items[dispute.ID] = dispute.Clone()
	s.versions[dispute.ID] = append(s.versions[dispute.ID], *version)
	return nil
}

func (s *Disputes) GetByID(_ context.Context, id string) (*domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "dispute", ID: id}
	}
	return stored.Clone(), nil
}

func (s *Disputes) List(_ context.Context, filter repository.DisputeFilter) ([]domain.Dispute, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Dispute
	for _, d := range s.items {
		if matchDispute(d, filter) {
			result = append(result, *d.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].UpdatedAt.After(result[j].UpdatedAt)
	})
	return paginate(result, filter.Limit, filter.Offset), nil
}

func (s *Disputes) CountByStatus(_ context.Context, district *string) (map[domain.DisputeStatus]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	counts := make(map[domain.DisputeStatus]int)
	for _, d := range s.items {
		if district != nil && d.District != *district {
			continue
		}
		counts[d.Status]++
	}
	return counts, nil
}

func (s *Disputes) ListVersions(_ context.Context, disputeID string) ([]domain.CaseVersion, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.CaseVersion(nil), s.versions[disputeID]...), nil
}

func matchDispute(d *domain.Dispute, filter repository.DisputeFilter) bool {
	if filter.District != nil && d.District != *filter.District {
		if filter.IncludePartyID == nil || !isParty(d, *filter.IncludePartyID) {
			return false
		}
	}
	if filter.PartyID != nil && !isParty(d, *filter.PartyID) {
		return false
	}
	if filter.UPI != nil && d.UPI != *filter.UPI {
		return false
	}
	if len(filter.Statuses) > 0 {
		found := false
		for _, status := range filter.Statuses {
			if status == d.Status {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if filter.SearchTerm != nil {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if term != "" && !strings.Contains(strings.ToLower(d.Title), term) && !strings.Contains(strings.ToLower(d.Description), term) {
			return false
		}
	}
	return true
}

func isParty(d *domain.Dispute, id string) bool {
	isDefendant := d.DefendantID != nil && *d.DefendantID == id
	return d.CreatedBy == id || d.ClaimantID == id || isDefendant
}

func paginate[T any](items []T, limit, offset int) []T {
	if limit <= 0 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}

// Invitations is an in-memory repository.InvitationRepository.
type Invitations struct {
	mu    sync.Mutex
	items map[string]*domain.Invitation
}

// NewInvitations creates an empty store.
func NewInvitations() *Invitations {
	return &Invitations{items: make(map[string]*domain.Invitation)}
}

var _ repository.InvitationRepository = (*Invitations)(nil)

func (s *Invitations) Create(_ context.Context, inv *domain.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inv.ID == "" {
		inv.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	inv.Revision = 1
	inv.CreatedAt = now
	inv.UpdatedAt = now
	s.items[inv.ID] = inv.Clone()
	return nil
}

func (s *Invitations) Update(_ context.Context, inv *domain.Invitation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[inv.ID]
	if !ok {
		return &domain.NotFoundError{Resource: "invitation", ID: inv.ID}
	}
	if stored.Revision != inv.Revision {
		return domain.ErrConcurrentModification
	}
	inv.Revision++
	inv.UpdatedAt = time.Now().UTC()
	s.items[inv.ID] = inv.Clone()
	return nil
}

func (s *Invitations) GetByID(_ context.Context, id string) (*domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.items[id]
	if !ok {
		return nil, &domain.NotFoundError{Resource: "invitation", ID: id}
	}
	return stored.Clone(), nil
}

func (s *Invitations) ListByDispute(_ context.Context, disputeID string) ([]domain.Invitation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []domain.Invitation
	for _, inv := range s.items {
		if inv.DisputeID == disputeID {
			result = append(result, *inv.Clone())
		}
	}
	sort.Slice(result, func(i, j int) bool {
		return result[i].CreatedAt.Before(result[j].CreatedAt)
	})
	return result, nil
}

// Audit is an in-memory repository.AuditRepository.
type Audit struct {
	mu      sync.Mutex
	entries []domain.AuditEntry
}

// NewAudit creates an empty log.
func NewAudit() *Audit {
	return &Audit{}
}

var _ repository.AuditRepository = (*Audit)(nil)

func (s *Audit) Append(_ context.Context, entry *domain.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	s.entries = append(s.entries, *entry)
	return nil
}

func (s *Audit) ListByTarget(_ context.Context, targetType domain.TargetType, targetID string, limit int) ([]domain.AuditEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if limit <= 0 {
		limit = 100
	}
	var result []domain.AuditEntry
	for _, entry := range s.entries {
		if entry.TargetType == targetType && entry.TargetID == targetID {
			result = append(result, entry)
			if len(result) == limit {
				break
			}
		}
	}
	return result, nil
}

// Entries returns a snapshot of every appended entry.
func (s *Audit) Entries() []domain.AuditEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditEntry(nil), s.entries...)
}

// OTPCodes is an in-memory repository.OTPStore honoring expiry on read.
type OTPCodes struct {
	mu    sync.Mutex
	items map[string]domain.OTPRecord
	now   func() time.Time
}

// NewOTPCodes creates an empty store.
func NewOTPCodes() *OTPCodes {
	return &OTPCodes{items: make(map[string]domain.OTPRecord), now: time.Now}
}

var _ repository.OTPStore = (*OTPCodes)(nil)

func (s *OTPCodes) Save(_ context.Context, record *domain.OTPRecord, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := *record
	stored.Attempts = 0
	if stored.ExpiresAt.IsZero() {
		stored.ExpiresAt = s.now().Add(ttl)
	}
	s.items[record.Contact] = stored
	return nil
}

func (s *OTPCodes) Load(_ context.Context, contact string) (*domain.OTPRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.items[contact]
	if !ok || !s.now().Before(record.ExpiresAt) {
		delete(s.items, contact)
		return nil, &domain.NotFoundError{Resource: "otp", ID: contact}
	}
	return &record, nil
}

func (s *OTPCodes) IncrementAttempts(_ context.Context, contact string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	record, ok := s.items[contact]
	if !ok {
		return 0, &domain.NotFoundError{Resource: "otp", ID: contact}
	}
	record.Attempts++
	s.items[contact] = record
	return record.Attempts, nil
}

func (s *OTPCodes) Consume(_ context.Context, contact string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.items[contact]
	delete(s.items, contact)
	return ok, nil
}

func (s *OTPCodes) Delete(_ context.Context, contact string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.items, contact)
	return nil
}
