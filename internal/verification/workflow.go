// Package verification implements the admin approval of attendees: the
// status change, credential provisioning and the approval email.
package verification

import (
	"context"
	"crypto/rand"
	"errors"
	"io"
	"time"

	"confhub/internal/auth"
	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/mail"
	"confhub/internal/models"
	"confhub/internal/notify"
	"confhub/internal/store"
	"confhub/internal/util"
)

// Settings configures the approval email.
type Settings struct {
	Subject       string
	InvoicePrefix string
	AmountDue     string
	InvoiceDueIn  time.Duration
}

// Workflow approves and rejects attendees.
type Workflow struct {
	users      store.Users
	hasher     auth.PasswordHasher
	renderer   mail.Renderer
	dispatcher *mail.Dispatcher
	publisher  notify.Publisher
	settings   Settings
	log        logging.Logger

	passwords *PasswordGenerator
	rand      io.Reader
	now       func() time.Time
}

// Option customises a Workflow.
type Option func(*Workflow)

// WithRandom replaces the randomness source for passwords and invoice numbers.
func WithRandom(r io.Reader) Option {
	return func(w *Workflow) {
		w.rand = r
		w.passwords = NewPasswordGenerator(r)
	}
}

// WithClock overrides the time source for verification stamps and invoices.
func WithClock(now func() time.Time) Option { return func(w *Workflow) { w.now = now } }

// NewWorkflow returns a Workflow generating passwords from crypto/rand.
func NewWorkflow(users store.Users, hasher auth.PasswordHasher, renderer mail.Renderer, dispatcher *mail.Dispatcher, publisher notify.Publisher, settings Settings, log logging.Logger, opts ...Option) *Workflow {
	w := &Workflow{
		users:      users,
		hasher:     hasher,
		renderer:   renderer,
		dispatcher: dispatcher,
		publisher:  publisher,
		settings:   settings,
		log:        log,
		passwords:  NewPasswordGenerator(nil),
		rand:       rand.Reader,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.publisher == nil {
		w.publisher = notify.Nop
	}
	return w
}

// Approve accepts the attendee, replaces their password with a fresh random
// one and emails it. The email is sent in the background; a delivery
// failure is logged and does not undo the approval. Approving an already
// accepted attendee issues a new password.
func (w *Workflow) Approve(ctx context.Context, userID, adminEmail string) (*models.User, error) {
	u, err := w.findAttendee(ctx, userID)
	if err != nil {
		return nil, err
	}

	password, err := w.passwords.Generate()
	if err != nil {
		return nil, common.Internal("generate password", err)
	}
	hash, err := w.hasher.Hash(password)
	if err != nil {
		return nil, common.Internal("hash password", err)
	}

	now := w.now()
	u.IsVerifiedByAdmin = true
	u.AdminVerification.Status = models.VerificationAccepted
	u.AdminVerification.AdminEmail = adminEmail
	u.AdminVerification.VerifiedAt = &now
	u.SetCredentialHash(hash)
	if err := w.users.Save(ctx, u); err != nil {
		return nil, common.Internal("save verification", err)
	}

	w.sendApproval(ctx, u, password, now)
	w.publisher.Publish(notify.EventUserVerified, map[string]string{"userId": u.ID.Hex()})
	return u, nil
}

// Reject marks the attendee rejected. Any provisioned password stays but the
// account no longer counts as verified.
func (w *Workflow) Reject(ctx context.Context, userID, adminEmail, remarks string) (*models.User, error) {
	u, err := w.findAttendee(ctx, userID)
	if err != nil {
		return nil, err
	}
	now := w.now()
	u.IsVerifiedByAdmin = false
	u.AdminVerification.Status = models.VerificationRejected
	u.AdminVerification.AdminEmail = adminEmail
	u.AdminVerification.Remarks = remarks
	u.AdminVerification.VerifiedAt = &now
	if err := w.users.Save(ctx, u); err != nil {
		return nil, common.Internal("save verification", err)
	}
	w.publisher.Publish(notify.EventUserRejected, map[string]string{"userId": u.ID.Hex()})
	return u, nil
}

// Wait blocks until queued approval emails are sent or ctx ends.
func (w *Workflow) Wait(ctx context.Context) error {
	return w.dispatcher.Wait(ctx)
}

func (w *Workflow) findAttendee(ctx context.Context, userID string) (*models.User, error) {
	id, err := util.ParseObjectID(userID)
	if err != nil {
		return nil, err
	}
	u, err := w.users.FindByID(ctx, id)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.Internal("find user", err)
	}
	if u.IsAdmin {
		return nil, common.ErrNotFound
	}
	return u, nil
}

func (w *Workflow) sendApproval(ctx context.Context, u *models.User, password string, now time.Time) {
	invoice, err := NewInvoice(w.rand, w.settings.InvoicePrefix, w.settings.AmountDue, now, w.settings.InvoiceDueIn)
	if err != nil {
		w.log.Error(ctx, "failed to number invoice", "user_id", u.ID.Hex(), "error", err)
		return
	}

	name := u.PersonalInformation.FullName
	bindings := invoice.bindings()
	bindings["firstName"] = name.FirstName
	bindings["middleName"] = name.MiddleName
	bindings["lastName"] = name.LastName
	bindings["fullName"] = name.String()
	bindings["password"] = password
	bindings["institution"] = u.PersonalInformation.Institution
	bindings["officeAddress"] = u.PersonalInformation.OfficeAddress
	bindings["isChiefDelegateOrSpeaker"] = u.ChiefDelegate

	html, err := w.renderer.Render(mail.TemplateApproval, bindings)
	if err != nil {
		w.log.Error(ctx, "failed to render approval email", "user_id", u.ID.Hex(), "error", err)
		return
	}
	w.dispatcher.Dispatch(ctx, mail.Message{
		To:      u.ContactEmail(),
		Subject: w.settings.Subject,
		HTML:    html,
	})
}
