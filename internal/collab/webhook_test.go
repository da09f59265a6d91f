package collab

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/dispute-service/internal/domain"
)

func TestWebhookLetterRendererReturnsHandle(t *testing.T) {
	var received letterRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&received))
		assert.Equal(t, "req-1", r.Header.Get("X-Request-ID"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"doc-1","url":"https://docs.example/doc-1"}`))
	}))
	defer srv.Close()

	renderer := NewWebhookLetterRenderer(srv.URL, 2*time.Second)
	inv := &domain.Invitation{ID: "inv-1", DisputeID: "d-1", District: "Kigali", Invitees: []string{"u-1"}}
	meeting := time.Date(2026, 11, 2, 9, 0, 0, 0, time.UTC)

	handle, err := renderer.RenderInvitationLetter(WithRequestID(context.Background(), "req-1"), inv, domain.LetterParams{
		LetterType:  "hearing",
		MeetingDate: meeting,
		Venue:       "Sector office",
	})
	require.NoError(t, err)
	assert.Equal(t, "doc-1", handle.ID)
	assert.Equal(t, "inv-1", received.InvitationID)
	assert.Equal(t, "hearing", received.LetterType)
	assert.True(t, received.MeetingDate.Equal(meeting))
}

func TestWebhookFailsOnErrorStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	err := NewWebhookOTPDeliverer(srv.URL, time.Second).DeliverOTP(context.Background(), "+250788000000", "123456")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "502")
}

func TestWebhookRendererRejectsEmptyHandle(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	_, err := NewWebhookLetterRenderer(srv.URL, time.Second).RenderInvitationLetter(context.Background(), &domain.Invitation{ID: "inv"}, domain.LetterParams{})
	require.Error(t, err)
}

func TestWebhookHonorsCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewWebhookChatSender("http://127.0.0.1:1", time.Second).SendChatAttachment(ctx, "u-1", DocumentHandle{ID: "doc"})
	require.ErrorIs(t, err, context.Canceled)
}

func TestLogStubsSucceed(t *testing.T) {
	logger := zap.NewNop()
	handle, err := LogLetterRenderer{Logger: logger}.RenderInvitationLetter(context.Background(), &domain.Invitation{ID: "inv"}, domain.LetterParams{})
	require.NoError(t, err)
	assert.NotEmpty(t, handle.ID)
	assert.NoError(t, LogOTPDeliverer{Logger: logger}.DeliverOTP(context.Background(), "a@b.c", "000000"))
	assert.NoError(t, LogChatSender{Logger: logger}.SendChatAttachment(context.Background(), "u", handle))
}
