package directory

import (
	"context"
	"errors"
	"strings"
	"time"

	"confhub/internal/auth"
	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/media"
	"confhub/internal/models"
	"confhub/internal/store"
	"confhub/internal/util"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

// SpeakerRequest creates a speaker.
type SpeakerRequest struct {
	FullName    string `json:"fullName"`
	Institution string `json:"institution"`
	Designation string `json:"designation"`
	Biography   string `json:"biography"`
	Email       string `json:"email"`
	Image       string `json:"image"`
}

func (r SpeakerRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.FullName, validation.Required),
		validation.Field(&r.Institution, validation.Required),
		validation.Field(&r.Designation, validation.Required),
		validation.Field(&r.Biography, validation.Required),
		validation.Field(&r.Email, is.Email),
	)
}

// SpeakerUpdate is the set of speaker fields an admin may edit.
type SpeakerUpdate struct {
	FullName    *string `json:"fullName"`
	Institution *string `json:"institution"`
	Designation *string `json:"designation"`
	Biography   *string `json:"biography"`
	Email       *string `json:"email"`
	Image       *string `json:"image"`
}

// Speakers serves the speaker directory.
type Speakers struct {
	speakers store.Speakers
	hasher   auth.PasswordHasher
	media    media.Store
	password string
	log      logging.Logger
	now      func() time.Time
}

// NewSpeakers returns a directory whose new speakers log in with password.
func NewSpeakers(speakers store.Speakers, hasher auth.PasswordHasher, mediaStore media.Store, password string, log logging.Logger) *Speakers {
	return &Speakers{
		speakers: speakers,
		hasher:   hasher,
		media:    mediaStore,
		password: password,
		log:      log,
		now:      time.Now,
	}
}

// Create adds a speaker with the shared speaker password.
func (d *Speakers) Create(ctx context.Context, req SpeakerRequest) (*models.Speaker, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := util.ValidationFields(req.Validate()); err != nil {
		return nil, err
	}
	if req.Email != "" {
		_, err := d.speakers.FindByEmail(ctx, req.Email)
		switch {
		case err == nil:
			return nil, common.ErrConflict
		case !errors.Is(err, common.ErrNotFound):
			return nil, common.Internal("check speaker email", err)
		}
	}

	hash, err := d.hasher.Hash(d.password)
	if err != nil {
		return nil, common.Internal("hash speaker password", err)
	}
	now := d.now()
	sp := &models.Speaker{
		FullName:     strings.TrimSpace(req.FullName),
		Institution:  req.Institution,
		Designation:  req.Designation,
		Biography:    req.Biography,
		Email:        req.Email,
		Image:        req.Image,
		PasswordHash: hash,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := d.speakers.Create(ctx, sp); err != nil {
		return nil, lookupErr(err, "create speaker")
	}
	return sp, nil
}

// Get returns a speaker by hex id.
func (d *Speakers) Get(ctx context.Context, id string) (*models.Speaker, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	sp, err := d.speakers.FindByID(ctx, oid)
	return sp, lookupErr(err, "find speaker")
}

// List returns every speaker.
func (d *Speakers) List(ctx context.Context) ([]*models.Speaker, error) {
	list, err := d.speakers.List(ctx)
	if err != nil {
		return nil, common.Internal("list speakers", err)
	}
	return list, nil
}

// Update edits a speaker. A replaced image is removed from media storage.
func (d *Speakers) Update(ctx context.Context, id string, patch SpeakerUpdate) (*models.Speaker, error) {
	sp, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	oldImage := sp.Image

	setString(&sp.FullName, patch.FullName)
	setString(&sp.Institution, patch.Institution)
	setString(&sp.Designation, patch.Designation)
	setString(&sp.Biography, patch.Biography)
	setString(&sp.Image, patch.Image)
	if patch.Email != nil {
		sp.Email = strings.ToLower(strings.TrimSpace(*patch.Email))
	}
	check := SpeakerRequest{FullName: sp.FullName, Institution: sp.Institution, Designation: sp.Designation, Biography: sp.Biography, Email: sp.Email}
	if err := util.ValidationFields(check.Validate()); err != nil {
		return nil, err
	}
	if sp.Email != "" {
		other, err := d.speakers.FindByEmail(ctx, sp.Email)
		switch {
		case err == nil && other.ID != sp.ID:
			return nil, common.ErrConflict
		case err != nil && !errors.Is(err, common.ErrNotFound):
			return nil, common.Internal("check speaker email", err)
		}
	}

	sp.UpdatedAt = d.now()
	if err := d.speakers.Save(ctx, sp); err != nil {
		return nil, lookupErr(err, "save speaker")
	}
	if oldImage != "" && oldImage != sp.Image {
		_ = media.DeleteAll(ctx, d.media, d.log, oldImage)
	}
	return sp, nil
}

// Delete removes a speaker and their image.
func (d *Speakers) Delete(ctx context.Context, id string) error {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return err
	}
	sp, err := d.speakers.DeleteByID(ctx, oid)
	if err != nil {
		return lookupErr(err, "delete speaker")
	}
	if sp.Image != "" {
		_ = media.DeleteAll(ctx, d.media, d.log, sp.Image)
	}
	d.log.Info(ctx, "speaker deleted", "speaker_id", id)
	return nil
}
