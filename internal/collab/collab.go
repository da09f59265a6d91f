// Package collab holds the outbound collaborators invoked after a state
// change commits: letter rendering, one-time code delivery and chat delivery.
package collab

import (
	"context"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// DocumentHandle references a rendered or uploaded document.
type DocumentHandle struct {
	ID  string `json:"id"`
	URL string `json:"url,omitempty"`
}

// LetterRenderer produces the hearing letter for an invitation.
type LetterRenderer interface {
	RenderInvitationLetter(ctx context.Context, inv *domain.Invitation, params domain.LetterParams) (DocumentHandle, error)
}

// OTPDeliverer sends a one-time code to a phone number or email address.
type OTPDeliverer interface {
	DeliverOTP(ctx context.Context, contact, code string) error
}

// ChatSender delivers a document to a chat recipient.
type ChatSender interface {
	SendChatAttachment(ctx context.Context, recipient string, document DocumentHandle) error
}

// EventNotifier forwards committed domain events to an external subscriber.
type EventNotifier interface {
	Notify(ctx context.Context, eventType string, event any) error
}
