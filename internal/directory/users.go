// Package directory manages attendee profiles and the speaker directory:
// lookup, admin edits and deletion with media cleanup.
package directory

import (
	"context"
	"errors"
	"strings"

	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/media"
	"confhub/internal/models"
	"confhub/internal/store"
	"confhub/internal/util"
)

// UserUpdate is the set of profile fields an admin may edit. Nil fields are
// left unchanged.
type UserUpdate struct {
	Title               *string                     `json:"title"`
	FullName            *models.FullName            `json:"fullName"`
	Nationality         *string                     `json:"nationality"`
	Institution         *string                     `json:"nameOfInstitution"`
	JobPosition         *string                     `json:"jobPosition"`
	OfficeAddress       *string                     `json:"officeAddress"`
	PhoneNumber         *string                     `json:"phoneNumber"`
	MobileNumber        *string                     `json:"mobileNumber"`
	Accommodation       *models.Accommodation       `json:"accommodation"`
	DietaryRequirements *models.DietaryRequirements `json:"dietaryRequirements"`
	Accompanying        *models.AccompanyingPerson  `json:"accompanyingPerson"`
	Biography           *string                     `json:"biography"`
	ChiefDelegate       *bool                       `json:"chiefDelegate"`
}

func (p UserUpdate) apply(u *models.User) {
	info := &u.PersonalInformation
	setString(&info.Title, p.Title)
	if p.FullName != nil {
		info.FullName = *p.FullName
	}
	setString(&info.Nationality, p.Nationality)
	setString(&info.Institution, p.Institution)
	setString(&info.JobPosition, p.JobPosition)
	setString(&info.OfficeAddress, p.OfficeAddress)
	setString(&info.PhoneNumber, p.PhoneNumber)
	setString(&info.MobileNumber, p.MobileNumber)
	if p.Accommodation != nil {
		u.Accommodation = *p.Accommodation
	}
	if p.DietaryRequirements != nil {
		u.DietaryRequirements = *p.DietaryRequirements
	}
	if p.Accompanying != nil {
		a := *p.Accompanying
		u.Accompanying = &a
	}
	setString(&u.Biography, p.Biography)
	if p.ChiefDelegate != nil {
		u.ChiefDelegate = *p.ChiefDelegate
	}
}

func setString(dst *string, v *string) {
	if v != nil {
		*dst = *v
	}
}

// Users serves attendee profile operations.
type Users struct {
	users store.Users
	media media.Store
	log   logging.Logger
}

func NewUsers(users store.Users, mediaStore media.Store, log logging.Logger) *Users {
	return &Users{users: users, media: mediaStore, log: log}
}

// Get returns an attendee or admin by id.
func (d *Users) Get(ctx context.Context, id string) (*models.User, error) {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return nil, err
	}
	u, err := d.users.FindByID(ctx, oid)
	return u, lookupErr(err, "find user")
}

// List returns attendees, optionally for one institution, plus the ids of
// attendees whose full name is shared with another attendee.
func (d *Users) List(ctx context.Context, institution string) ([]*models.User, []string, error) {
	list, err := d.users.List(ctx, store.UserFilter{Institution: strings.TrimSpace(institution)})
	if err != nil {
		return nil, nil, common.Internal("list users", err)
	}
	return list, DuplicateNames(list), nil
}

// DuplicateNames returns, in input order, the ids of users whose full name
// (case-insensitive) appears more than once.
func DuplicateNames(users []*models.User) []string {
	counts := map[string]int{}
	for _, u := range users {
		counts[nameKey(u)]++
	}
	dups := []string{}
	for _, u := range users {
		if counts[nameKey(u)] > 1 {
			dups = append(dups, u.ID.Hex())
		}
	}
	return dups
}

func nameKey(u *models.User) string {
	return strings.ToLower(u.PersonalInformation.FullName.String())
}

// Update applies an admin edit to an attendee.
func (d *Users) Update(ctx context.Context, id string, patch UserUpdate) (*models.User, error) {
	u, err := d.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if u.IsAdmin {
		return nil, common.ErrNotFound
	}
	patch.apply(u)
	if strings.TrimSpace(u.PersonalInformation.FullName.FirstName) == "" {
		return nil, common.NewValidationError("fullName.firstName", "cannot be blank")
	}
	if err := d.users.Save(ctx, u); err != nil {
		return nil, lookupErr(err, "save user")
	}
	return u, nil
}

// Delete removes an attendee and their uploaded media. Media failures are
// logged; the account is gone either way.
func (d *Users) Delete(ctx context.Context, id string) error {
	oid, err := util.ParseObjectID(id)
	if err != nil {
		return err
	}
	u, err := d.users.DeleteByID(ctx, oid)
	if err != nil {
		return lookupErr(err, "delete user")
	}
	_ = media.DeleteAll(ctx, d.media, d.log, u.MediaKeys()...)
	d.log.Info(ctx, "user deleted", "user_id", id)
	return nil
}

// QRCode renders the attendee's check-in code, stores it on the account and
// returns it as a PNG data URL.
func (d *Users) QRCode(ctx context.Context, id string) (string, error) {
	u, err := d.Get(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := CheckInQR(u.ID.Hex())
	if err != nil {
		return "", common.Internal("render qr code", err)
	}
	u.QRCode = url
	if err := d.users.Save(ctx, u); err != nil {
		return "", lookupErr(err, "save qr code")
	}
	return url, nil
}

// lookupErr passes through not-found and conflict, wrapping the rest.
func lookupErr(err error, op string) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, common.ErrNotFound):
		return common.ErrNotFound
	case errors.Is(err, common.ErrConflict):
		return common.ErrConflict
	default:
		return common.Internal(op, err)
	}
}

