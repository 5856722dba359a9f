package auth

import (
	"context"
	"time"

	"confhub/internal/logging"
	"confhub/internal/mail"
	"confhub/internal/models"
)

const lockoutSubject = "Alert: Suspicious Login Attempts Detected"

// MailAlerter emails the account owner when a lock is applied.
type MailAlerter struct {
	dispatcher *mail.Dispatcher
	renderer   mail.Renderer
	log        logging.Logger
}

func NewMailAlerter(dispatcher *mail.Dispatcher, renderer mail.Renderer, log logging.Logger) *MailAlerter {
	return &MailAlerter{dispatcher: dispatcher, renderer: renderer, log: log}
}

// AccountLocked renders the lockout notice and hands it to the dispatcher.
// Accounts without a contact address are skipped.
func (a *MailAlerter) AccountLocked(ctx context.Context, u *models.User, until time.Time) {
	to := u.ContactEmail()
	if to == "" {
		return
	}
	name := u.PersonalInformation.FullName.String()
	if name == "" {
		name = to
	}
	html, err := a.renderer.Render(mail.TemplateLockout, map[string]any{
		"name":        name,
		"lockedUntil": until.Format(time.RFC1123),
	})
	if err != nil {
		a.log.Error(ctx, "failed to render lockout alert", "user_id", u.ID.Hex(), "error", err)
		return
	}
	a.dispatcher.Dispatch(ctx, mail.Message{To: to, Subject: lockoutSubject, HTML: html})
}
