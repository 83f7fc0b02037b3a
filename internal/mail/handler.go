package mail

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"go.uber.org/zap"

	applog "github.com/tazhibayda/identity-service/internal/log"
	"github.com/tazhibayda/identity-service/internal/queue"
)

// Handler turns auth events into mail.
type Handler struct {
	Sender    Sender
	PublicURL string
	Log       *zap.Logger
}

func (h *Handler) Handle(ctx context.Context, m queue.Message) error {
	ctx = applog.WithRequestID(ctx, m.RequestID)
	switch m.Key {
	case queue.KeyPasswordResetRequested:
		var ev queue.PasswordResetRequested
		if err := json.Unmarshal(m.Body, &ev); err != nil || ev.Email == "" || ev.Token == "" {
			applog.From(ctx, h.Log).Warn("bad reset event", zap.Error(err))
			return queue.ErrDrop
		}
		return h.Sender.Send(ctx, ev.Email, "Reset your password", h.resetBody(ev))
	case queue.KeyUserRegistered:
		var ev queue.UserRegistered
		if err := json.Unmarshal(m.Body, &ev); err != nil || ev.Email == "" {
			applog.From(ctx, h.Log).Warn("bad registered event", zap.Error(err))
			return queue.ErrDrop
		}
		return h.Sender.Send(ctx, ev.Email, "Welcome", "Your account has been created.")
	default:
		return queue.ErrDrop
	}
}

func (h *Handler) resetBody(ev queue.PasswordResetRequested) string {
	link := strings.TrimRight(h.PublicURL, "/") + "/reset/" + ev.Token
	return fmt.Sprintf("You are receiving this because a password reset was requested for your account.\n\n"+
		"Open the following link to choose a new password:\n\n%s\n\n"+
		"The link expires at %s. If you did not request this, ignore this email.\n",
		link, ev.ExpiresAt.UTC().Format("2006-01-02 15:04 MST"))
}
