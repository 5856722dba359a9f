package directory

import (
	"bytes"
	"context"
	"encoding/base64"
	"image/png"
	"strings"
	"sync"
	"testing"

	"confhub/internal/auth"
	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/models"
	"confhub/internal/store/memstore"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"
)

type mediaLog struct {
	mu      sync.Mutex
	deleted []string
}

func (m *mediaLog) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.deleted = append(m.deleted, key)
	return nil
}

func attendee(t *testing.T, m *memstore.Manager, first, last, institution string) *models.User {
	t.Helper()
	u := &models.User{}
	u.PersonalInformation.FullName = models.FullName{FirstName: first, LastName: last}
	u.PersonalInformation.Institution = institution
	require.NoError(t, m.Users().Create(context.Background(), u))
	return u
}

func TestUsers_ListReportsDuplicateNames(t *testing.T) {
	m := memstore.New()
	a := attendee(t, m, "Alice", "Smith", "NRB")
	b := attendee(t, m, "alice", "SMITH", "ICIMOD")
	attendee(t, m, "Alice", "Jones", "NRB")
	require.NoError(t, m.Users().Create(context.Background(), &models.User{IsAdmin: true, Email: "root@example.com"}))

	d := NewUsers(m.Users(), &mediaLog{}, logging.Discard())
	list, dups, err := d.List(context.Background(), "")
	require.NoError(t, err)
	assert.Len(t, list, 3, "admins are not listed")
	assert.ElementsMatch(t, []string{a.ID.Hex(), b.ID.Hex()}, dups)

	list, dups, err = d.List(context.Background(), "NRB")
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Empty(t, dups)
}

func TestUsers_Update(t *testing.T) {
	m := memstore.New()
	u := attendee(t, m, "Alice", "Smith", "NRB")
	u.PersonalInformation.PasswordHash = "keep-me"
	require.NoError(t, m.Users().Save(context.Background(), u))
	d := NewUsers(m.Users(), &mediaLog{}, logging.Discard())
	ctx := context.Background()

	inst := "ICIMOD"
	chief := true
	got, err := d.Update(ctx, u.ID.Hex(), UserUpdate{Institution: &inst, ChiefDelegate: &chief})
	require.NoError(t, err)
	assert.Equal(t, "ICIMOD", got.PersonalInformation.Institution)
	assert.True(t, got.ChiefDelegate)
	assert.Equal(t, "Alice", got.PersonalInformation.FullName.FirstName)

	stored, err := m.Users().FindByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "keep-me", stored.PersonalInformation.PasswordHash)

	_, err = d.Update(ctx, u.ID.Hex(), UserUpdate{FullName: &models.FullName{LastName: "Only"}})
	assert.ErrorIs(t, err, common.ErrValidation)

	_, err = d.Update(ctx, primitive.NewObjectID().Hex(), UserUpdate{})
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestUsers_DeleteRemovesMedia(t *testing.T) {
	m := memstore.New()
	u := attendee(t, m, "Alice", "Smith", "NRB")
	u.ProfilePicture = "/uploads/pic.png"
	u.PersonalInformation.PaymentReceipt = "/uploads/receipt.pdf"
	u.Accompanying = &models.AccompanyingPerson{HasAccompanyingPerson: true, PictureURL: "/uploads/guest.png"}
	require.NoError(t, m.Users().Save(context.Background(), u))

	media := &mediaLog{}
	d := NewUsers(m.Users(), media, logging.Discard())
	require.NoError(t, d.Delete(context.Background(), u.ID.Hex()))

	assert.ElementsMatch(t, []string{"/uploads/pic.png", "/uploads/receipt.pdf", "/uploads/guest.png"}, media.deleted)
	_, err := d.Get(context.Background(), u.ID.Hex())
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, d.Delete(context.Background(), u.ID.Hex()), common.ErrNotFound)
}

func TestUsers_QRCode(t *testing.T) {
	m := memstore.New()
	u := attendee(t, m, "Alice", "Smith", "NRB")
	d := NewUsers(m.Users(), &mediaLog{}, logging.Discard())

	url, err := d.QRCode(context.Background(), u.ID.Hex())
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(url, "data:image/png;base64,"))

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(url, "data:image/png;base64,"))
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(raw))
	require.NoError(t, err)
	assert.Equal(t, qrSize, img.Bounds().Dx())

	stored, err := m.Users().FindByID(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, url, stored.QRCode)
}

func newSpeakers(m *memstore.Manager, media *mediaLog) *Speakers {
	return NewSpeakers(m.Speakers(), auth.NewBcryptHasher(bcrypt.MinCost), media, "Speaker@123", logging.Discard())
}

func validSpeaker() SpeakerRequest {
	return SpeakerRequest{
		FullName:    "Dr Who",
		Institution: "Gallifrey",
		Designation: "Professor",
		Biography:   "Time traveller",
		Email:       "Who@Example.com",
		Image:       "/uploads/who.png",
	}
}

func TestSpeakers_Create(t *testing.T) {
	m := memstore.New()
	d := newSpeakers(m, &mediaLog{})
	ctx := context.Background()

	sp, err := d.Create(ctx, validSpeaker())
	require.NoError(t, err)
	assert.Equal(t, "who@example.com", sp.Email)
	assert.True(t, auth.NewBcryptHasher(bcrypt.MinCost).Compare("Speaker@123", sp.PasswordHash))

	_, err = d.Create(ctx, validSpeaker())
	assert.ErrorIs(t, err, common.ErrConflict)

	_, err = d.Create(ctx, SpeakerRequest{Email: "bad"})
	var ve *common.ValidationError
	require.ErrorAs(t, err, &ve)
	for _, f := range []string{"fullName", "institution", "designation", "biography", "email"} {
		assert.Contains(t, ve.Fields, f)
	}
}

func TestSpeakers_UpdateReplacesImage(t *testing.T) {
	m := memstore.New()
	media := &mediaLog{}
	d := newSpeakers(m, media)
	ctx := context.Background()
	sp, err := d.Create(ctx, validSpeaker())
	require.NoError(t, err)

	img := "/uploads/new.png"
	bio := "Updated"
	got, err := d.Update(ctx, sp.ID.Hex(), SpeakerUpdate{Image: &img, Biography: &bio})
	require.NoError(t, err)
	assert.Equal(t, "Updated", got.Biography)
	assert.Equal(t, []string{"/uploads/who.png"}, media.deleted)

	other := validSpeaker()
	other.Email = "other@example.com"
	o, err := d.Create(ctx, other)
	require.NoError(t, err)
	taken := "who@example.com"
	_, err = d.Update(ctx, o.ID.Hex(), SpeakerUpdate{Email: &taken})
	assert.ErrorIs(t, err, common.ErrConflict)
}

func TestSpeakers_Delete(t *testing.T) {
	m := memstore.New()
	media := &mediaLog{}
	d := newSpeakers(m, media)
	ctx := context.Background()
	sp, err := d.Create(ctx, validSpeaker())
	require.NoError(t, err)

	require.NoError(t, d.Delete(ctx, sp.ID.Hex()))
	assert.Equal(t, []string{"/uploads/who.png"}, media.deleted)
	_, err = d.Get(ctx, sp.ID.Hex())
	assert.ErrorIs(t, err, common.ErrNotFound)
	assert.ErrorIs(t, d.Delete(ctx, "zzz"), common.ErrValidation)
}
