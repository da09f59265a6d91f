package policy

import (
	"github.com/spec-kit/dispute-service/internal/domain"
)

// ContentLevel scopes aggregated or listed content.
type ContentLevel string

const (
	ContentLevelDistrict ContentLevel = "district"
	ContentLevelNational ContentLevel = "national"
)

// CanEditCase decides whether role may mutate a dispute in its current status.
func CanEditCase(status domain.DisputeStatus, role domain.Role, createdBy, actorID, caseDistrict, actorDistrict string) bool {
	if !role.Valid() || !status.Valid() {
		return false
	}
	if role == domain.RoleSuperAdmin {
		return true
	}
	if status == domain.DisputeStatusProcessing {
		return false
	}
	if (status == domain.DisputeStatusRejected || status == domain.DisputeStatusOpen) && createdBy != "" && createdBy == actorID {
		return true
	}
	if role == domain.RoleManager && caseDistrict != "" && caseDistrict == actorDistrict {
		return true
	}
	return false
}

// EditableFields returns the fields role may change on a dispute in status.
func EditableFields(status domain.DisputeStatus, role domain.Role) []domain.DisputeField {
	if !role.Valid() || !status.Valid() {
		return nil
	}
	if role == domain.RoleSuperAdmin {
		return allFields()
	}
	switch status {
	case domain.DisputeStatusProcessing:
		return []domain.DisputeField{}
	case domain.DisputeStatusRejected:
		return []domain.DisputeField{domain.FieldAttachments, domain.FieldDescription}
	default:
		return allFields()
	}
}

func allFields() []domain.DisputeField {
	return append([]domain.DisputeField(nil), domain.AllDisputeFields...)
}

// CanAccessContent decides visibility of content owned by ownerID at level.
func CanAccessContent(actor *domain.User, ownerID string, level ContentLevel) bool {
	if actor == nil {
		return false
	}
	if actor.Level != nil && actor.Level.IsSwitch {
		return ownerID != "" && ownerID == actor.ID
	}
	switch EffectiveRole(actor) {
	case domain.RoleAdmin:
		return true
	case domain.RoleManager:
		return level == ContentLevelDistrict && actor.DistrictValue() != ""
	case domain.RoleUser, domain.RoleSuperAdmin:
		return ownerID != "" && ownerID == actor.ID
	default:
		return false
	}
}

// CanViewAggregate decides visibility of ownerless aggregates such as status counts.
func CanViewAggregate(actor *domain.User, level ContentLevel) bool {
	if actor == nil {
		return false
	}
	if EffectiveRole(actor) == domain.RoleSuperAdmin && !actor.Level.IsSwitch {
		return true
	}
	return CanAccessContent(actor, "", level)
}

// CanViewDispute combines content access with district scoping and party membership.
func CanViewDispute(actor *domain.User, dispute *domain.Dispute) bool {
	if actor == nil || dispute == nil {
		return false
	}
	if EffectiveRole(actor) == domain.RoleSuperAdmin && !actor.Level.IsSwitch {
		return true
	}
	owner := partyOwner(actor, dispute)
	if !CanAccessContent(actor, owner, ContentLevelDistrict) {
		return false
	}
	if EffectiveRole(actor) == domain.RoleManager && owner != actor.ID {
		return dispute.District == actor.DistrictValue()
	}
	return true
}

// partyOwner resolves which party identifier the actor is checked against.
// Claimant, defendant and creator all own the dispute for visibility.
func partyOwner(actor *domain.User, dispute *domain.Dispute) string {
	switch actor.ID {
	case dispute.CreatedBy, dispute.ClaimantID:
		return actor.ID
	}
	if dispute.DefendantID != nil && *dispute.DefendantID == actor.ID {
		return actor.ID
	}
	return dispute.CreatedBy
}

var adjudicationEdges = map[domain.DisputeStatus][]domain.DisputeStatus{
	domain.DisputeStatusOpen:       {domain.DisputeStatusProcessing},
	domain.DisputeStatusProcessing: {domain.DisputeStatusResolved, domain.DisputeStatusRejected},
	domain.DisputeStatusRejected:   {domain.DisputeStatusAppealed},
	domain.DisputeStatusAppealed:   {domain.DisputeStatusProcessing},
	domain.DisputeStatusResolved:   {},
}

// IsLegalTransition reports whether from→to is in the dispute lifecycle edge set.
func IsLegalTransition(from, to domain.DisputeStatus) bool {
	for _, candidate := range adjudicationEdges[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// CanTransition decides whether the actor may move the dispute to the target status.
// Edge legality is checked separately by IsLegalTransition.
func CanTransition(actor *domain.User, dispute *domain.Dispute, to domain.DisputeStatus) bool {
	if actor == nil || dispute == nil {
		return false
	}
	role := EffectiveRole(actor)
	switch {
	case !role.Valid():
		return false
	case role == domain.RoleSuperAdmin:
		return true
	case to == domain.DisputeStatusAppealed:
		return dispute.CreatedBy != "" && dispute.CreatedBy == actor.ID
	case role == domain.RoleManager:
		if dispute.District == "" || dispute.District != actor.DistrictValue() {
			return false
		}
		return to == domain.DisputeStatusProcessing ||
			to == domain.DisputeStatusResolved ||
			to == domain.DisputeStatusRejected
	default:
		return false
	}
}

// CanManageInvitation decides whether the actor may run hearing invitations in district.
func CanManageInvitation(actor *domain.User, district string) bool {
	switch EffectiveRole(actor) {
	case domain.RoleAdmin, domain.RoleSuperAdmin:
		return true
	case domain.RoleManager:
		return district != "" && district == actor.DistrictValue()
	default:
		return false
	}
}

// CanViewInvitation reports whether the actor may read an invitation.
func CanViewInvitation(actor *domain.User, inv *domain.Invitation) bool {
	if actor == nil || inv == nil {
		return false
	}
	if CanManageInvitation(actor, inv.District) {
		return true
	}
	if inv.ClaimantID == actor.ID || (inv.DefendantID != nil && *inv.DefendantID == actor.ID) {
		return true
	}
	for _, invitee := range inv.Invitees {
		if invitee == actor.ID || (actor.PhoneNumber != "" && invitee == actor.PhoneNumber) || (actor.Email != "" && invitee == actor.Email) {
			return true
		}
	}
	return false
}
