package dto

import (
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/spec-kit/dispute-service/internal/domain"
	"github.com/spec-kit/dispute-service/internal/service"
)

var disputeStatuses = []interface{}{
	domain.DisputeStatusOpen,
	domain.DisputeStatusProcessing,
	domain.DisputeStatusResolved,
	domain.DisputeStatusRejected,
	domain.DisputeStatusAppealed,
}

// CreateDisputeRequest payload for case intake.
type CreateDisputeRequest struct {
	ClaimantID  string   `json:"claimant_id"`
	DefendantID *string  `json:"defendant_id"`
	UPI         string   `json:"upi"`
	Category    string   `json:"category"`
	Level       string   `json:"level"`
	District    string   `json:"district"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Attachments []string `json:"attachments"`
	Location    string   `json:"location"`
}

func (r CreateDisputeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.UPI, validation.Required.Error("upi_required"), validation.Length(1, 64)),
		validation.Field(&r.District, validation.Required.Error("district_required")),
		validation.Field(&r.Title, validation.Required.Error("title_required"), validation.Length(1, 200)),
		validation.Field(&r.Attachments, validation.Each(validation.Required)),
	)
}

// Input converts the payload into service input.
func (r CreateDisputeRequest) Input() service.DisputeCreateInput {
	return service.DisputeCreateInput{
		ClaimantID:  r.ClaimantID,
		DefendantID: r.DefendantID,
		UPI:         r.UPI,
		Category:    r.Category,
		Level:       r.Level,
		District:    r.District,
		Title:       r.Title,
		Description: r.Description,
		Attachments: r.Attachments,
		Location:    r.Location,
	}
}

// UpdateDisputeRequest carries a partial dispute update. Absent fields stay unchanged.
type UpdateDisputeRequest struct {
	Title           *string               `json:"title"`
	Description     *string               `json:"description"`
	Attachments     *[]string             `json:"attachments"`
	Location        *string               `json:"location"`
	Status          *domain.DisputeStatus `json:"status"`
	Reason          string                `json:"reason"`
	ExpectedVersion *int                  `json:"expected_version"`
}

func (r UpdateDisputeRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Title, validation.NilOrNotEmpty.Error("title_empty"), validation.Length(1, 200)),
		validation.Field(&r.Status, validation.In(disputeStatuses...).Error("invalid_status")),
		validation.Field(&r.ExpectedVersion, validation.Min(1)),
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

// Patch converts the payload into a service patch.
func (r UpdateDisputeRequest) Patch() service.DisputePatch {
	return service.DisputePatch{
		Title:       r.Title,
		Description: r.Description,
		Attachments: r.Attachments,
		Location:    r.Location,
		Status:      r.Status,
	}
}

// TransitionRequest moves a case to another status.
type TransitionRequest struct {
	Status domain.DisputeStatus `json:"status"`
	Reason string               `json:"reason"`
}

func (r TransitionRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Status, validation.Required.Error("status_required"), validation.In(disputeStatuses...).Error("invalid_status")),
		validation.Field(&r.Reason, validation.Length(0, 500)),
	)
}

// DisputeResponse describes a case.
type DisputeResponse struct {
	ID             string               `json:"id"`
	ClaimantID     string               `json:"claimant_id"`
	DefendantID    *string              `json:"defendant_id"`
	UPI            string               `json:"upi"`
	Category       string               `json:"category,omitempty"`
	Level          string               `json:"level,omitempty"`
	District       string               `json:"district"`
	Title          string               `json:"title"`
	Description    string               `json:"description"`
	Attachments    []string             `json:"attachments"`
	Location       string               `json:"location"`
	Status         domain.DisputeStatus `json:"status"`
	CreatedBy      string               `json:"created_by"`
	CurrentVersion int                  `json:"current_version"`
	CreatedAt      time.Time            `json:"created_at"`
	UpdatedAt      time.Time            `json:"updated_at"`
}

// NewDisputeResponse maps a domain dispute.
func NewDisputeResponse(d *domain.Dispute) DisputeResponse {
	attachments := d.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	return DisputeResponse{
		ID:             d.ID,
		ClaimantID:     d.ClaimantID,
		DefendantID:    d.DefendantID,
		UPI:            d.UPI,
		Category:       d.Category,
		Level:          d.Level,
		District:       d.District,
		Title:          d.Title,
		Description:    d.Description,
		Attachments:    attachments,
		Location:       d.Location,
		Status:         d.Status,
		CreatedBy:      d.CreatedBy,
		CurrentVersion: d.CurrentVersion,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// NewDisputeResponses maps a page of disputes.
func NewDisputeResponses(items []domain.Dispute) []DisputeResponse {
	out := make([]DisputeResponse, 0, len(items))
	for i := range items {
		out = append(out, NewDisputeResponse(&items[i]))
	}
	return out
}

// CaseVersionResponse describes one entry of a case history.
type CaseVersionResponse struct {
	ID        string                        `json:"id"`
	Version   int                           `json:"version"`
	Changes   map[string]domain.FieldChange `json:"changes"`
	ChangedBy string                        `json:"changed_by"`
	ChangedAt time.Time                     `json:"changed_at"`
	Reason    string                        `json:"reason,omitempty"`
}

// NewCaseVersionResponse maps a version record.
func NewCaseVersionResponse(v *domain.CaseVersion) CaseVersionResponse {
	return CaseVersionResponse{
		ID:        v.ID,
		Version:   v.Version,
		Changes:   v.Changes,
		ChangedBy: v.ChangedBy,
		ChangedAt: v.ChangedAt,
		Reason:    v.Reason,
	}
}

// NewCaseVersionResponses maps a case history.
func NewCaseVersionResponses(items []domain.CaseVersion) []CaseVersionResponse {
	out := make([]CaseVersionResponse, 0, len(items))
	for i := range items {
		out = append(out, NewCaseVersionResponse(&items[i]))
	}
	return out
}

// UpdateDisputeResponse reports the outcome of an update or transition.
type UpdateDisputeResponse struct {
	Dispute DisputeResponse      `json:"dispute"`
	Version *CaseVersionResponse `json:"version"`
	Dropped []string             `json:"dropped_fields"`
}

// NewUpdateDisputeResponse maps a service update result.
func NewUpdateDisputeResponse(res *service.UpdateResult) UpdateDisputeResponse {
	out := UpdateDisputeResponse{Dispute: NewDisputeResponse(res.Dispute), Dropped: []string{}}
	if res.Version != nil {
		v := NewCaseVersionResponse(res.Version)
		out.Version = &v
	}
	for _, field := range res.Dropped {
		out.Dropped = append(out.Dropped, string(field))
	}
	return out
}
