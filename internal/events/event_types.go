package events

import (
	"time"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventDisputeCreated       EventType = "dispute_created"
	EventDisputeUpdated       EventType = "dispute_updated"
	EventDisputeStatusChanged EventType = "dispute_status_changed"
	EventInvitationCreated    EventType = "invitation_created"
	EventDefendantAssigned    EventType = "invitation_defendant_assigned"
	EventLetterIssued         EventType = "invitation_letter_issued"
	EventDocumentsShared      EventType = "invitation_documents_shared"
	EventInvitationCanceled   EventType = "invitation_canceled"
	EventAccountSuspended     EventType = "account_suspended"
	EventAccountReactivated   EventType = "account_reactivated"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	UserID string      `json:"user_id"`
	Role   domain.Role `json:"role"`
}

// Event represents a domain event emitted by services after a commit.
type Event struct {
	ID            string            `json:"id"`
	Type          EventType         `json:"type"`
	AggregateID   string            `json:"aggregate_id"`
	AggregateType domain.TargetType `json:"aggregate_type"`
	Actor         Actor             `json:"actor"`
	Timestamp     time.Time         `json:"timestamp"`
	Payload       any               `json:"payload"`
}

// DisputeCreatedPayload payload.
type DisputeCreatedPayload struct {
	UPI      string `json:"upi"`
	District string `json:"district"`
	Title    string `json:"title"`
}

// DisputeUpdatedPayload payload.
type DisputeUpdatedPayload struct {
	Version int      `json:"version"`
	Fields  []string `json:"fields"`
	Reason  string   `json:"reason,omitempty"`
}

// DisputeStatusChangedPayload payload.
type DisputeStatusChangedPayload struct {
	OldStatus domain.DisputeStatus `json:"old_status"`
	NewStatus domain.DisputeStatus `json:"new_status"`
	Version   int                  `json:"version"`
	Reason    string               `json:"reason,omitempty"`
	Parties   []string             `json:"parties"`
}

// InvitationPayload is shared by invitation lifecycle events.
type InvitationPayload struct {
	DisputeID string                  `json:"dispute_id"`
	Status    domain.InvitationStatus `json:"status"`
	Invitees  []string                `json:"invitees,omitempty"`
	DateTime  *time.Time              `json:"date_time,omitempty"`
	Location  *string                 `json:"location,omitempty"`
}

// AccountPayload is shared by account lifecycle events.
type AccountPayload struct {
	Status domain.AccountStatus `json:"status"`
	Reason string               `json:"reason,omitempty"`
}
