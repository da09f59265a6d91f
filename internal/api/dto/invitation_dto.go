package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/service"
)

// CreateInvitationRequest summons parties to a hearing.
type CreateInvitationRequest struct {
	Invitees []string   `json:"invitees"`
	DateTime *time.Time `json:"date_time"`
	Location *string    `json:"location"`
	Level    string     `json:"level"`
}

func (r CreateInvitationRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Invitees, validation.Each(validation.Required)),
		validation.Field(&r.Location, validation.NilOrNotEmpty.Error("location_empty")),
	)
}

// Input converts the payload into service input.
func (r CreateInvitationRequest) Input() service.InvitationCreateInput {
	return service.InvitationCreateInput{
		Invitees: r.Invitees,
		DateTime: r.DateTime,
		Location: r.Location,
		Level:    r.Level,
	}
}

// ScheduleRequest sets the hearing date or venue.
type ScheduleRequest struct {
	DateTime *time.Time `json:"date_time"`
	Location *string    `json:"location"`
}

func (r ScheduleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DateTime, validation.When(r.Location == nil, validation.Required.Error("date_time_or_location_required"))),
		validation.Field(&r.Location, validation.NilOrNotEmpty.Error("location_empty")),
	)
}

// AssignDefendantRequest names the defendant.
type AssignDefendantRequest struct {
	DefendantID string `json:"defendant_id"`
}

func (r AssignDefendantRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.DefendantID, validation.Required.Error("defendant_id_required")),
	)
}

// LetterRequest tunes the rendered hearing letter. Every field is optional.
type LetterRequest struct {
	LetterType  string     `json:"letter_type"`
	MeetingDate *time.Time `json:"meeting_date"`
	Venue       string     `json:"venue"`
	Notes       string     `json:"notes"`
}

func (r LetterRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.LetterType, validation.Length(0, 64)),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
}

// Params converts the payload into renderer parameters.
func (r LetterRequest) Params() domain.LetterParams {
	params := domain.LetterParams{LetterType: r.LetterType, Venue: r.Venue, Notes: r.Notes}
	if r.MeetingDate != nil {
		params.MeetingDate = r.MeetingDate.UTC()
	}
	return params
}

// ShareDocumentsRequest lists documents to deliver.
type ShareDocumentsRequest struct {
	Documents  []string `json:"documents"`
	Recipients []string `json:"recipients"`
}

func (r ShareDocumentsRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Documents, validation.Required.Error("documents_required"), validation.Each(validation.Required)),
		validation.Field(&r.Recipients, validation.Each(validation.Required)),
	)
}

// InvitationResponse describes a hearing invitation.
type InvitationResponse struct {
	ID              string                  `json:"id"`
	DisputeID       string                  `json:"dispute_id"`
	InvitedBy       string                  `json:"invited_by"`
	Invitees        []string                `json:"invitees"`
	ClaimantID      string                  `json:"claimant_id"`
	DefendantID     *string                 `json:"defendant_id"`
	DateTime        *time.Time              `json:"date_time"`
	Location        *string                 `json:"location"`
	District        string                  `json:"district"`
	Level           string                  `json:"level,omitempty"`
	Status          domain.InvitationStatus `json:"status"`
	IsCanceled      bool                    `json:"is_canceled"`
	LetterDocument  *string                 `json:"letter_document"`
	SharedDocuments []string                `json:"shared_documents"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
}

// NewInvitationResponse maps a domain invitation.
func NewInvitationResponse(inv *domain.Invitation) InvitationResponse {
	shared := inv.SharedDocuments
	if shared == nil {
		shared = []string{}
	}
	return InvitationResponse{
		ID:              inv.ID,
		DisputeID:       inv.DisputeID,
		InvitedBy:       inv.InvitedBy,
		Invitees:        inv.Invitees,
		ClaimantID:      inv.ClaimantID,
		DefendantID:     inv.DefendantID,
		DateTime:        inv.DateTime,
		Location:        inv.Location,
		District:        inv.District,
		Level:           inv.Level,
		Status:          inv.Status,
		IsCanceled:      inv.IsCanceled,
		LetterDocument:  inv.LetterDocument,
		SharedDocuments: shared,
		CreatedAt:       inv.CreatedAt,
		UpdatedAt:       inv.UpdatedAt,
	}
}

// NewInvitationResponses maps a list of invitations.
func NewInvitationResponses(items []domain.Invitation) []InvitationResponse {
	out := make([]InvitationResponse, 0, len(items))
	for i := range items {
		out = append(out, NewInvitationResponse(&items[i]))
	}
	return out
}

// WarningResponse reports a post-commit side effect that did not complete.
type WarningResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// NewWarningResponses maps service warnings. The result is never nil.
func NewWarningResponses(warnings []service.Warning) []WarningResponse {
	out := make([]WarningResponse, 0, len(warnings))
	for _, w := range warnings {
		out = append(out, WarningResponse{Code: w.Code, Message: w.Message})
	}
	return out
}
