package collab

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/dispute-service/internal/domain"
)

// webhookClient posts JSON payloads using the fiber HTTP agent.
type webhookClient struct {
	url     string
	timeout time.Duration
}

func (w webhookClient) post(ctx context.Context, payload any, out any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	timeout := w.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); remaining < timeout {
			timeout = remaining
		}
	}

	agent := fiber.Post(w.url)
	agent.JSON(payload)
	agent.Timeout(timeout)
	if requestID, ok := ctx.Value(requestIDKey{}).(string); ok {
		agent.Set("X-Request-ID", requestID)
	}
	if err := agent.Parse(); err != nil {
		return fmt.Errorf("prepare request to %s: %w", w.url, err)
	}

	status, body, errs := agent.Bytes()
	if len(errs) > 0 {
		return fmt.Errorf("post %s: %w", w.url, errors.Join(errs...))
	}
	if status < fiber.StatusOK || status >= fiber.StatusMultipleChoices {
		return fmt.Errorf("post %s: unexpected status %d", w.url, status)
	}
	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("decode response from %s: %w", w.url, err)
		}
	}
	return nil
}

type requestIDKey struct{}

// WithRequestID attaches a correlation id forwarded on webhook calls.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

// WebhookLetterRenderer asks a document service to render hearing letters.
type WebhookLetterRenderer struct {
	client webhookClient
}

// NewWebhookLetterRenderer creates a renderer posting to url.
func NewWebhookLetterRenderer(url string, timeout time.Duration) *WebhookLetterRenderer {
	return &WebhookLetterRenderer{client: webhookClient{url: url, timeout: timeout}}
}

type letterRequest struct {
	InvitationID string    `json:"invitation_id"`
	DisputeID    string    `json:"dispute_id"`
	LetterType   string    `json:"letter_type"`
	MeetingDate  time.Time `json:"meeting_date"`
	Venue        string    `json:"venue"`
	Notes        string    `json:"notes,omitempty"`
	Invitees     []string  `json:"invitees"`
	District     string    `json:"district"`
}

func (r *WebhookLetterRenderer) RenderInvitationLetter(ctx context.Context, inv *domain.Invitation, params domain.LetterParams) (DocumentHandle, error) {
	var handle DocumentHandle
	err := r.client.post(ctx, letterRequest{
		InvitationID: inv.ID,
		DisputeID:    inv.DisputeID,
		LetterType:   params.LetterType,
		MeetingDate:  params.MeetingDate,
		Venue:        params.Venue,
		Notes:        params.Notes,
		Invitees:     inv.Invitees,
		District:     inv.District,
	}, &handle)
	if err != nil {
		return DocumentHandle{}, err
	}
	if handle.ID == "" {
		return DocumentHandle{}, errors.New("renderer returned no document id")
	}
	return handle, nil
}

// WebhookOTPDeliverer forwards codes to an SMS or email gateway.
type WebhookOTPDeliverer struct {
	client webhookClient
}

// NewWebhookOTPDeliverer creates a deliverer posting to url.
func NewWebhookOTPDeliverer(url string, timeout time.Duration) *WebhookOTPDeliverer {
	return &WebhookOTPDeliverer{client: webhookClient{url: url, timeout: timeout}}
}

func (d *WebhookOTPDeliverer) DeliverOTP(ctx context.Context, contact, code string) error {
	return d.client.post(ctx, map[string]string{"contact": contact, "code": code}, nil)
}

// WebhookChatSender forwards documents to a chat gateway.
type WebhookChatSender struct {
	client webhookClient
}

// NewWebhookChatSender creates a sender posting to url.
func NewWebhookChatSender(url string, timeout time.Duration) *WebhookChatSender {
	return &WebhookChatSender{client: webhookClient{url: url, timeout: timeout}}
}

func (s *WebhookChatSender) SendChatAttachment(ctx context.Context, recipient string, document DocumentHandle) error {
	return s.client.post(ctx, map[string]any{"recipient": recipient, "document": document}, nil)
}

// WebhookEventNotifier posts domain events to a subscriber endpoint.
type WebhookEventNotifier struct {
	client webhookClient
}

// NewWebhookEventNotifier creates a notifier posting to url.
func NewWebhookEventNotifier(url string, timeout time.Duration) *WebhookEventNotifier {
	return &WebhookEventNotifier{client: webhookClient{url: url, timeout: timeout}}
}

func (n *WebhookEventNotifier) Notify(ctx context.Context, eventType string, event any) error {
	return n.client.post(ctx, map[string]any{"type": eventType, "event": event}, nil)
}
