package domain

import "time"

// InvitationStatus enumerates hearing invitation workflow states.
type InvitationStatus string

const (
	InvitationStatusCreated           InvitationStatus = "created"
	InvitationStatusDefendantAssigned InvitationStatus = "defendant_assigned"
	InvitationStatusLetterIssued      InvitationStatus = "letter_issued"
	InvitationStatusDocumentsShared   InvitationStatus = "documents_shared"
	InvitationStatusCanceled          InvitationStatus = "canceled"
)

// Invitation models a summons of the dispute parties to a hearing.
type Invitation struct {
	ID              string
	DisputeID       string
	InvitedBy       string
	Invitees        []string
	ClaimantID      string
	DefendantID     *string
	DateTime        *time.Time
	Location        *string
	District        string
	Level           string
	Status          InvitationStatus
	IsCanceled      bool
	LetterDocument  *string
	SharedDocuments []string
	Revision        int64
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Clone returns a deep copy safe to mutate.
func (i *Invitation) Clone() *Invitation {
	if i == nil {
		return nil
	}
	cp := *i
	cp.Invitees = append([]string(nil), i.Invitees...)
	cp.SharedDocuments = append([]string(nil), i.SharedDocuments...)
	if i.DefendantID != nil {
		v := *i.DefendantID
		cp.DefendantID = &v
	}
	if i.DateTime != nil {
		v := *i.DateTime
		cp.DateTime = &v
	}
	if i.Location != nil {
		v := *i.Location
		cp.Location = &v
	}
	if i.LetterDocument != nil {
		v := *i.LetterDocument
		cp.LetterDocument = &v
	}
	return &cp
}

// LetterParams describes the hearing letter to render.
type LetterParams struct {
	LetterType  string
	MeetingDate time.Time
	Venue       string
	Notes       string
}
