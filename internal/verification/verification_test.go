package verification

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"confhub/internal/auth"
	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/mail"
	"confhub/internal/models"
	"confhub/internal/notify"
	"confhub/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestPasswordGenerator_AlwaysSatisfiesPolicy(t *testing.T) {
	g := NewPasswordGenerator(nil)
	lengths := map[int]bool{}
	for i := 0; i < 2000; i++ {
		pw, err := g.Generate()
		require.NoError(t, err)
		require.NoError(t, ValidatePassword(pw), pw)
		assert.NotContains(t, pw, " ")
		lengths[len(pw)] = true
	}
	for n := minPasswordLen; n <= maxPasswordLen; n++ {
		assert.True(t, lengths[n], "length %d never generated", n)
	}
}

func TestValidatePassword(t *testing.T) {
	tests := []struct {
		pw    string
		valid bool
	}{
		{"Ab1!defg", true},
		{"Ab1!defghijk", true},
		{"Ab1!def", false},
		{"Ab1!defghijkl", false},
		{"ab1!defg", false},
		{"AB1!DEFG", false},
		{"Abc!defg", false},
		{"Ab1ddefg", false},
		{"Ab1! efg", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.pw, func(t *testing.T) {
			err := ValidatePassword(tt.pw)
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestPasswordGenerator_RandomFailure(t *testing.T) {
	_, err := NewPasswordGenerator(bytes.NewReader(nil)).Generate()
	assert.Error(t, err)
}

func TestNewInvoice(t *testing.T) {
	issued := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	inv, err := NewInvoice(strings.NewReader(strings.Repeat("\x00", 64)), "CONF-", "$300", issued, 7*24*time.Hour)
	require.NoError(t, err)

	assert.Equal(t, "CONF-000000", inv.Number)
	b := inv.bindings()
	assert.Equal(t, "2026-03-01", b["invoiceDate"])
	assert.Equal(t, "2026-03-08", b["dueDate"])
	assert.Equal(t, "$300", b["amountDue"])
}

type recordingSender struct {
	mu   sync.Mutex
	sent []mail.Message
	err  error
}

func (s *recordingSender) Send(_ context.Context, msg mail.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sent = append(s.sent, msg)
	return s.err
}

type fixture struct {
	store    *memstore.Manager
	sender   *recordingSender
	events   []string
	workflow *Workflow
	hasher   auth.PasswordHasher
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:  memstore.New(),
		sender: &recordingSender{},
		hasher: auth.NewBcryptHasher(bcrypt.MinCost),
	}
	var mu sync.Mutex
	pub := notify.PublisherFunc(func(event string, _ any) {
		mu.Lock()
		defer mu.Unlock()
		f.events = append(f.events, event)
	})
	log := logging.Discard()
	f.workflow = NewWorkflow(
		f.store.Users(),
		f.hasher,
		mail.NewRenderer(),
		mail.NewDispatcher(f.sender, time.Second, log),
		pub,
		Settings{Subject: "Registration Approved", InvoicePrefix: "CONF-", AmountDue: "$300", InvoiceDueIn: 7 * 24 * time.Hour},
		log,
	)
	return f
}

func (f *fixture) pendingAttendee(t *testing.T) *models.User {
	t.Helper()
	u := &models.User{}
	u.PersonalInformation.FullName = models.FullName{FirstName: "Alice", LastName: "Smith"}
	u.PersonalInformation.EmailAddress = "alice@example.com"
	u.PersonalInformation.Institution = "NRB"
	u.PersonalInformation.PasswordHash = "old-hash"
	u.AdminVerification.Status = models.VerificationPending
	require.NoError(t, f.store.Users().Create(context.Background(), u))
	return u
}

func TestApprove_FlipsStatusAndSendsOneEmail(t *testing.T) {
	f := newFixture(t)
	u := f.pendingAttendee(t)
	ctx := context.Background()

	got, err := f.workflow.Approve(ctx, u.ID.Hex(), "root@example.com")
	require.NoError(t, err)
	require.NoError(t, f.workflow.Wait(ctx))

	assert.True(t, got.IsVerifiedByAdmin)
	assert.Equal(t, models.VerificationAccepted, got.AdminVerification.Status)
	assert.Equal(t, "root@example.com", got.AdminVerification.AdminEmail)

	stored, err := f.store.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsVerifiedByAdmin)
	assert.Equal(t, models.VerificationAccepted, stored.AdminVerification.Status)
	assert.NotEqual(t, "old-hash", stored.PersonalInformation.PasswordHash)

	require.Len(t, f.sender.sent, 1)
	msg := f.sender.sent[0]
	assert.Equal(t, "alice@example.com", msg.To)
	assert.Equal(t, "Registration Approved", msg.Subject)
	assert.Contains(t, msg.HTML, "CONF-")

	assert.Equal(t, []string{notify.EventUserVerified}, f.events)
}

func TestApprove_EmailedPasswordMatchesStoredHash(t *testing.T) {
	f := newFixture(t)
	u := f.pendingAttendee(t)
	ctx := context.Background()

	_, err := f.workflow.Approve(ctx, u.ID.Hex(), "root@example.com")
	require.NoError(t, err)
	require.NoError(t, f.workflow.Wait(ctx))

	stored, _ := f.store.Users().FindByID(ctx, u.ID)
	html := f.sender.sent[0].HTML
	start := strings.Index(html, "<code>") + len("<code>")
	end := strings.Index(html, "</code>")
	require.Greater(t, end, start)
	emailed := html[start:end]

	// The template escapes HTML metacharacters; the generator's symbols
	// never need escaping.
	require.NoError(t, ValidatePassword(emailed))
	assert.True(t, f.hasher.Compare(emailed, stored.PersonalInformation.PasswordHash))
}

func TestApprove_EmailFailureDoesNotRollBack(t *testing.T) {
	f := newFixture(t)
	f.sender.err = errors.New("smtp down")
	u := f.pendingAttendee(t)
	ctx := context.Background()

	_, err := f.workflow.Approve(ctx, u.ID.Hex(), "root@example.com")
	require.NoError(t, err)
	require.NoError(t, f.workflow.Wait(ctx))

	stored, _ := f.store.Users().FindByID(ctx, u.ID)
	assert.True(t, stored.IsVerifiedByAdmin)
	assert.Equal(t, models.VerificationAccepted, stored.AdminVerification.Status)
	assert.Len(t, f.sender.sent, 1)
}

func TestApprove_Errors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.workflow.Approve(ctx, primitive.NewObjectID().Hex(), "root@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	_, err = f.workflow.Approve(ctx, "bogus", "root@example.com")
	assert.ErrorIs(t, err, common.ErrValidation)

	admin := &models.User{IsAdmin: true, Email: "root@example.com"}
	require.NoError(t, f.store.Users().Create(ctx, admin))
	_, err = f.workflow.Approve(ctx, admin.ID.Hex(), "root@example.com")
	assert.ErrorIs(t, err, common.ErrNotFound)

	require.NoError(t, f.workflow.Wait(ctx))
	assert.Empty(t, f.sender.sent)
}

func TestReject(t *testing.T) {
	f := newFixture(t)
	u := f.pendingAttendee(t)
	ctx := context.Background()

	got, err := f.workflow.Reject(ctx, u.ID.Hex(), "root@example.com", "incomplete receipt")
	require.NoError(t, err)
	assert.False(t, got.IsVerifiedByAdmin)
	assert.Equal(t, models.VerificationRejected, got.AdminVerification.Status)
	assert.Equal(t, "incomplete receipt", got.AdminVerification.Remarks)
	assert.Equal(t, []string{notify.EventUserRejected}, f.events)
	assert.Empty(t, f.sender.sent)
}
