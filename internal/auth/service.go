// Package auth authenticates admins, attendees and speakers, applies the
// lockout policy and issues bearer tokens.
package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/models"
	"confhub/internal/store"
	"confhub/internal/util"
)

// Settings holds the token lifetimes and provisioning defaults.
type Settings struct {
	AdminTTL        time.Duration
	UserTTL         time.Duration
	SpeakerTTL      time.Duration
	RegistrationTTL time.Duration
	TOTPIssuer      string
	DefaultPassword string
}

// LockAlerter is told when a failed login locks an account.
type LockAlerter interface {
	AccountLocked(ctx context.Context, u *models.User, until time.Time)
}

// LoginRequest is one authentication attempt. Method, Endpoint and Payload
// are only copied into the audit log; Payload must already be redacted.
type LoginRequest struct {
	Identity string
	Password string
	OTP      string
	Method   string
	Endpoint string
	Payload  string
}

// LoginResult is a successful authentication.
type LoginResult struct {
	Token     string
	ExpiresIn time.Duration
	User      *models.User
	Speaker   *models.Speaker
}

// Service authenticates accounts.
type Service struct {
	users    store.Users
	speakers store.Speakers
	hasher   PasswordHasher
	tokens   TokenIssuer
	settings Settings
	log      logging.Logger

	lockout LockoutPolicy
	audit   AuditSink
	alerter LockAlerter
	now     func() time.Time
}

// Option customises a Service.
type Option func(*Service)

// WithAuditSink sends every login attempt to s. The default discards them.
func WithAuditSink(s AuditSink) Option {
	return func(svc *Service) { svc.audit = s }
}

// WithLockAlerter notifies a when an account becomes locked.
func WithLockAlerter(a LockAlerter) Option {
	return func(svc *Service) { svc.alerter = a }
}

// WithLockout replaces the default lockout policy.
func WithLockout(p LockoutPolicy) Option {
	return func(svc *Service) { svc.lockout = p }
}

// WithClock overrides the time source used for lockouts and audit entries.
func WithClock(now func() time.Time) Option {
	return func(svc *Service) { svc.now = now }
}

// NewService returns a Service using DefaultLockout and a no-op audit sink
// unless opts say otherwise.
func NewService(users store.Users, speakers store.Speakers, hasher PasswordHasher, tokens TokenIssuer, settings Settings, log logging.Logger, opts ...Option) *Service {
	s := &Service{
		users:    users,
		speakers: speakers,
		hasher:   hasher,
		tokens:   tokens,
		settings: settings,
		log:      log,
		lockout:  DefaultLockout,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.audit = normalizeAuditSink(s.audit)
	return s
}

// LoginAttendee authenticates by first name. Several attendees may share a
// first name; candidates are tried in store order and the first password
// match wins. A miss counts against every candidate.
func (s *Service) LoginAttendee(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	name := strings.TrimSpace(req.Identity)
	if err := requireCredentials("firstName", name, req.Password); err != nil {
		return nil, err
	}

	candidates, err := s.users.FindByFirstName(ctx, name)
	if err != nil {
		return nil, common.Internal("find attendees", err)
	}
	if len(candidates) == 0 {
		err := &common.CredentialsError{RemainingAttempts: -1}
		s.record(ctx, req, models.RoleUser, err)
		return nil, err
	}

	var matched *models.User
	for _, u := range candidates {
		if s.hasher.Compare(req.Password, u.CredentialHash()) {
			matched = u
			break
		}
	}
	if matched == nil {
		err := s.registerFailure(ctx, candidates)
		s.record(ctx, req, models.RoleUser, err)
		return nil, err
	}

	res, err := s.accept(ctx, matched, Claims{UserID: matched.ID.Hex()}, s.settings.UserTTL)
	s.record(ctx, req, models.RoleUser, err)
	return res, err
}

// LoginAdmin authenticates an admin by email, then by TOTP code when one is
// enrolled. A missing or wrong code counts as a failed attempt.
func (s *Service) LoginAdmin(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Identity)
	if err := requireCredentials("email", email, req.Password); err != nil {
		return nil, err
	}

	admin, err := s.users.FindAdminByEmail(ctx, email)
	if errors.Is(err, common.ErrNotFound) {
		err := &common.CredentialsError{RemainingAttempts: -1}
		s.record(ctx, req, models.RoleAdmin, err)
		return nil, err
	}
	if err != nil {
		return nil, common.Internal("find admin", err)
	}

	ok := s.hasher.Compare(req.Password, admin.CredentialHash())
	if ok && admin.OTPSecret != "" {
		ok = ValidateTOTP(req.OTP, admin.OTPSecret, s.now())
	}
	if !ok {
		err := s.registerFailure(ctx, []*models.User{admin})
		s.record(ctx, req, models.RoleAdmin, err)
		return nil, err
	}

	res, err := s.accept(ctx, admin, Claims{UserID: admin.ID.Hex(), IsAdmin: true}, s.settings.AdminTTL)
	s.record(ctx, req, models.RoleAdmin, err)
	return res, err
}

// LoginSpeaker authenticates a speaker by email. Speakers have no lockout.
func (s *Service) LoginSpeaker(ctx context.Context, req LoginRequest) (*LoginResult, error) {
	email := normalizeEmail(req.Identity)
	if err := requireCredentials("email", email, req.Password); err != nil {
		return nil, err
	}

	sp, err := s.speakers.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, common.Internal("find speaker", err)
	}
	if sp == nil || !s.hasher.Compare(req.Password, sp.PasswordHash) {
		err := &common.CredentialsError{RemainingAttempts: -1}
		s.record(ctx, req, models.RoleSpeaker, err)
		return nil, err
	}

	token, err := s.tokens.Sign(Claims{UserID: sp.ID.Hex(), IsSpeaker: true}, s.settings.SpeakerTTL)
	if err != nil {
		return nil, common.Internal("sign token", err)
	}
	s.record(ctx, req, models.RoleSpeaker, nil)
	return &LoginResult{Token: token, ExpiresIn: s.settings.SpeakerTTL, Speaker: sp}, nil
}

// registerFailure bumps the counter on every candidate and locks those that
// reach the threshold. The owner is alerted only when an account goes from
// unlocked to locked. Remaining attempts are reported from the first
// candidate's counter.
func (s *Service) registerFailure(ctx context.Context, candidates []*models.User) error {
	now := s.now()
	locked := false
	for _, u := range candidates {
		wasLocked, _ := u.LockedAt(now)
		u.FailedAttempts++
		lock, until := s.lockout.OnFailure(u.FailedAttempts, now)
		if lock {
			u.LockUntil = &until
			locked = true
		}
		if err := s.users.Save(ctx, u); err != nil {
			return common.Internal("save failed attempt", err)
		}
		if lock && !wasLocked && s.alerter != nil {
			s.alerter.AccountLocked(ctx, u, until)
		}
	}
	if locked {
		return &common.LockedError{Remaining: s.lockout.Duration}
	}
	return &common.CredentialsError{RemainingAttempts: s.lockout.Remaining(candidates[0].FailedAttempts)}
}

// accept finishes a password match: an active lock still refuses, otherwise
// the counters are cleared and a token is issued.
func (s *Service) accept(ctx context.Context, u *models.User, claims Claims, ttl time.Duration) (*LoginResult, error) {
	now := s.now()
	if locked, remaining := u.LockedAt(now); locked {
		return nil, &common.LockedError{Remaining: remaining}
	}

	u.FailedAttempts = 0
	u.LockUntil = nil
	u.LastLogin = &now
	if err := s.users.Save(ctx, u); err != nil {
		return nil, common.Internal("save login", err)
	}

	token, err := s.tokens.Sign(claims, ttl)
	if err != nil {
		return nil, common.Internal("sign token", err)
	}
	return &LoginResult{Token: token, ExpiresIn: ttl, User: u}, nil
}

func (s *Service) record(ctx context.Context, req LoginRequest, role string, outcome error) {
	entry := &models.LoginActivity{
		Email:          strings.TrimSpace(req.Identity),
		Role:           role,
		Success:        outcome == nil,
		Message:        "login successful",
		Method:         req.Method,
		Endpoint:       req.Endpoint,
		RequestDetails: req.Payload,
		Timestamp:      s.now(),
	}
	if outcome != nil {
		entry.Message = outcome.Error()
		var ce *common.CredentialsError
		if errors.As(outcome, &ce) && ce.HasRemaining() {
			n := ce.RemainingAttempts
			entry.RemainingAttempts = &n
		}
	}
	if err := s.audit.Record(ctx, entry); err != nil {
		s.log.Warn(ctx, "failed to record login activity", "error", err)
	}
}

// RegisterAttendee creates a pending attendee with the default password and
// returns a registration token.
func (s *Service) RegisterAttendee(ctx context.Context, u *models.User) (*LoginResult, error) {
	email := normalizeEmail(u.PersonalInformation.EmailAddress)
	if !util.ValidateEmail(email) {
		return nil, common.NewValidationError("emailAddress", "invalid email format")
	}
	existing, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		return nil, common.Internal("check existing attendee", err)
	}
	if len(existing) > 0 {
		return nil, common.ErrConflict
	}

	hash, err := s.hasher.Hash(s.settings.DefaultPassword)
	if err != nil {
		return nil, common.Internal("hash default password", err)
	}
	now := s.now()
	u.IsAdmin = false
	u.PersonalInformation.EmailAddress = email
	u.SetCredentialHash(hash)
	u.IsVerifiedByAdmin = false
	u.AdminVerification = models.AdminVerification{Status: models.VerificationPending, RequestedAt: now}
	u.FailedAttempts = 0
	u.LockUntil = nil
	u.CreatedAt = now
	if err := s.users.Create(ctx, u); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, common.Internal("create attendee", err)
	}

	token, err := s.tokens.Sign(Claims{UserID: u.ID.Hex()}, s.settings.RegistrationTTL)
	if err != nil {
		return nil, common.Internal("sign token", err)
	}
	return &LoginResult{Token: token, ExpiresIn: s.settings.RegistrationTTL, User: u}, nil
}

// RegisterAdmin creates an admin account.
func (s *Service) RegisterAdmin(ctx context.Context, email, password string) (*LoginResult, error) {
	email = normalizeEmail(email)
	if !util.ValidateEmail(email) {
		return nil, common.NewValidationError("email", "invalid email format")
	}
	if password == "" {
		return nil, common.NewValidationError("password", "is required")
	}
	_, err := s.users.FindAdminByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, common.ErrConflict
	case !errors.Is(err, common.ErrNotFound):
		return nil, common.Internal("check existing admin", err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, common.Internal("hash password", err)
	}
	admin := &models.User{IsAdmin: true, Email: email, PasswordHash: hash, CreatedAt: s.now()}
	if err := s.users.Create(ctx, admin); err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, common.Internal("create admin", err)
	}

	token, err := s.tokens.Sign(Claims{UserID: admin.ID.Hex(), IsAdmin: true}, s.settings.AdminTTL)
	if err != nil {
		return nil, common.Internal("sign token", err)
	}
	return &LoginResult{Token: token, ExpiresIn: s.settings.AdminTTL, User: admin}, nil
}

// ChangePasswordRequest identifies an attendee by first name and email.
type ChangePasswordRequest struct {
	FirstName       string
	Email           string
	OldPassword     string
	NewPassword     string
	ConfirmPassword string
}

// MinPasswordLength applies to passwords chosen by attendees.
const MinPasswordLength = 6

// ChangePassword updates the first attendee with that email and first name
// whose current password matches. Locked accounts are refused even with the
// right password, and a wrong one is a failed attempt.
func (s *Service) ChangePassword(ctx context.Context, req ChangePasswordRequest) error {
	fields := map[string]string{}
	if strings.TrimSpace(req.FirstName) == "" {
		fields["firstName"] = "is required"
	}
	if strings.TrimSpace(req.Email) == "" {
		fields["email"] = "is required"
	}
	if req.OldPassword == "" {
		fields["oldPassword"] = "is required"
	}
	if len(req.NewPassword) < MinPasswordLength {
		fields["newPassword"] = "must be at least 6 characters"
	} else if req.NewPassword != req.ConfirmPassword {
		fields["confirmPassword"] = "does not match"
	}
	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}

	candidates, err := s.users.FindByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		return common.Internal("find attendees", err)
	}
	var named []*models.User
	for _, u := range candidates {
		if strings.EqualFold(u.PersonalInformation.FullName.FirstName, strings.TrimSpace(req.FirstName)) {
			named = append(named, u)
		}
	}
	if len(named) == 0 {
		return common.ErrNotFound
	}
	for _, u := range named {
		if !s.hasher.Compare(req.OldPassword, u.CredentialHash()) {
			continue
		}
		if locked, remaining := u.LockedAt(s.now()); locked {
			return &common.LockedError{Remaining: remaining}
		}
		hash, err := s.hasher.Hash(req.NewPassword)
		if err != nil {
			return common.Internal("hash password", err)
		}
		u.SetCredentialHash(hash)
		u.FailedAttempts = 0
		u.LockUntil = nil
		if err := s.users.Save(ctx, u); err != nil {
			return common.Internal("save password", err)
		}
		return nil
	}
	// A wrong old password counts toward the same lockout as a failed login.
	return s.registerFailure(ctx, named)
}

// EnrollTOTP gives an admin a fresh TOTP secret and returns its otpauth URL.
// Later logins for that admin require a code.
func (s *Service) EnrollTOTP(ctx context.Context, adminID string) (string, error) {
	admin, err := s.findAdmin(ctx, adminID)
	if err != nil {
		return "", err
	}
	key, err := GenerateTOTP(s.settings.TOTPIssuer, admin.Email)
	if err != nil {
		return "", common.Internal("generate totp", err)
	}
	admin.OTPSecret = key.Secret()
	if err := s.users.Save(ctx, admin); err != nil {
		return "", common.Internal("save totp secret", err)
	}
	return key.URL(), nil
}

func (s *Service) findAdmin(ctx context.Context, id string) (*models.User, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	u, err := s.users.FindByID(ctx, oid)
	if errors.Is(err, common.ErrNotFound) {
		return nil, common.ErrNotFound
	}
	if err != nil {
		return nil, common.Internal("find admin", err)
	}
	if !u.IsAdmin {
		return nil, common.ErrForbidden
	}
	return u, nil
}

func requireCredentials(identityField, identity, password string) error {
	fields := map[string]string{}
	if identity == "" {
		fields[identityField] = "is required"
	}
	if password == "" {
		fields["password"] = "is required"
	}
	if len(fields) > 0 {
		return &common.ValidationError{Fields: fields}
	}
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
