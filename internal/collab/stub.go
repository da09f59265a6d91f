package collab

import (
	"context"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// LogLetterRenderer only logs the request and returns a synthetic document.
type LogLetterRenderer struct {
	Logger *zap.Logger
}

func (r LogLetterRenderer) RenderInvitationLetter(_ context.Context, inv *domain.Invitation, params domain.LetterParams) (DocumentHandle, error) {
	id := uuid.NewString()
	r.Logger.Debug("renderInvitationLetterStub",
		zap.String("invitation_id", inv.ID),
		zap.String("letter_type", params.LetterType),
		zap.Time("meeting_date", params.MeetingDate),
		zap.String("document_id", id))
	return DocumentHandle{ID: id}, nil
}

// LogOTPDeliverer logs that a code was issued, never the code itself.
type LogOTPDeliverer struct {
	Logger *zap.Logger
}

func (d LogOTPDeliverer) DeliverOTP(_ context.Context, contact, _ string) error {
	d.Logger.Debug("deliverOTPStub", zap.String("contact", contact))
	return nil
}

// LogChatSender only logs the delivery.
type LogChatSender struct {
	Logger *zap.Logger
}

func (s LogChatSender) SendChatAttachment(_ context.Context, recipient string, document DocumentHandle) error {
	s.Logger.Debug("sendChatAttachmentStub",
		zap.String("recipient", recipient),
		zap.String("document_id", document.ID))
	return nil
}

// LogEventNotifier only logs forwarded events.
type LogEventNotifier struct {
	Logger *zap.Logger
}

func (n LogEventNotifier) Notify(_ context.Context, eventType string, event any) error {
	n.Logger.Debug("notifyEventStub", zap.String("event_type", eventType), zap.Any("event", event))
	return nil
}
