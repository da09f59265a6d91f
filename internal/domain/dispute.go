package domain

import "time"

// DisputeStatus enumerates lifecycle states for a land dispute.
type DisputeStatus string

const (
	DisputeStatusOpen       DisputeStatus = "open"
	DisputeStatusProcessing DisputeStatus = "processing"
	DisputeStatusResolved   DisputeStatus = "resolved"
	DisputeStatusRejected   DisputeStatus = "rejected"
	DisputeStatusAppealed   DisputeStatus = "appealed"
)

// Valid reports whether the status is known.
func (s DisputeStatus) Valid() bool {
	switch s {
	case DisputeStatusOpen, DisputeStatusProcessing, DisputeStatusResolved, DisputeStatusRejected, DisputeStatusAppealed:
		return true
	default:
		return false
	}
}

// DisputeField names a citizen-editable field of a dispute.
type DisputeField string

const (
	FieldTitle       DisputeField = "title"
	FieldDescription DisputeField = "description"
	FieldAttachments DisputeField = "attachments"
	FieldLocation    DisputeField = "location"
)

// AllDisputeFields lists every editable field in a stable order.
var AllDisputeFields = []DisputeField{FieldTitle, FieldDescription, FieldAttachments, FieldLocation}

// Dispute is the aggregate for a land dispute case.
type Dispute struct {
	ID             string
	ClaimantID     string
	DefendantID    *string
	UPI            string
	Category       string
	Level          string
	District       string
	Title          string
	Description    string
	Attachments    []string
	Location       string
	Status         DisputeStatus
	CreatedBy      string
	CurrentVersion int
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// Clone returns a deep copy safe to mutate.
func (d *Dispute) Clone() *Dispute {
	if d == nil {
		return nil
	}
	cp := *d
	if d.DefendantID != nil {
		id := *d.DefendantID
		cp.DefendantID = &id
	}
	cp.Attachments = append([]string(nil), d.Attachments...)
	return &cp
}

// FieldChange captures the before and after value of one field.
type FieldChange struct {
	Old any `json:"old"`
	New any `json:"new"`
}

// CaseVersion is an immutable, sequentially numbered record of one accepted mutation.
type CaseVersion struct {
	ID        string
	DisputeID string
	Version   int
	Changes   map[string]FieldChange
	ChangedBy string
	ChangedAt time.Time
	Reason    string
}
