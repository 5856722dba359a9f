package models

import (
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// VerificationStatus is the admin review state of an attendee.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationAccepted VerificationStatus = "accepted"
	VerificationRejected VerificationStatus = "rejected"
)

// FullName is an attendee's name. Attendees are not unique by name.
type FullName struct {
	FirstName  string `bson:"firstName" json:"firstName"`
	MiddleName string `bson:"middleName,omitempty" json:"middleName,omitempty"`
	LastName   string `bson:"lastName" json:"lastName"`
}

// String joins the non-empty name parts with single spaces.
func (n FullName) String() string {
	parts := make([]string, 0, 3)
	for _, p := range []string{n.FirstName, n.MiddleName, n.LastName} {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " ")
}

// PersonalInformation groups the attendee's registration details.
type PersonalInformation struct {
	Title          string   `bson:"title,omitempty" json:"title,omitempty"`
	FullName       FullName `bson:"fullName" json:"fullName"`
	Nationality    string   `bson:"nationality,omitempty" json:"nationality,omitempty"`
	Institution    string   `bson:"nameOfInstitution,omitempty" json:"nameOfInstitution,omitempty"`
	JobPosition    string   `bson:"jobPosition,omitempty" json:"jobPosition,omitempty"`
	OfficeAddress  string   `bson:"officeAddress,omitempty" json:"officeAddress,omitempty"`
	EmailAddress   string   `bson:"emailAddress,omitempty" json:"emailAddress,omitempty"`
	PhoneNumber    string   `bson:"phoneNumber,omitempty" json:"phoneNumber,omitempty"`
	MobileNumber   string   `bson:"mobileNumber,omitempty" json:"mobileNumber,omitempty"`
	PaymentReceipt string   `bson:"uploadPaymentReceipt,omitempty" json:"uploadPaymentReceipt,omitempty"`
	PasswordHash   string   `bson:"userPassword,omitempty" json:"-"`
}

type Accommodation struct {
	CheckInDate  *time.Time `bson:"checkInDate,omitempty" json:"checkInDate,omitempty"`
	CheckOutDate *time.Time `bson:"checkOutDate,omitempty" json:"checkOutDate,omitempty"`
}

type DietaryRequirements struct {
	Vegetarian bool   `bson:"vegetarian" json:"vegetarian"`
	Halal      bool   `bson:"halal" json:"halal"`
	NonVeg     bool   `bson:"nonveg" json:"nonveg"`
	Other      string `bson:"other,omitempty" json:"other,omitempty"`
}

type AccompanyingPerson struct {
	HasAccompanyingPerson bool                `bson:"hasAccompanyingPerson" json:"hasAccompanyingPerson"`
	Title                 string              `bson:"title,omitempty" json:"title,omitempty"`
	FullName              FullName            `bson:"fullName" json:"fullName"`
	Relationship          string              `bson:"relationship,omitempty" json:"relationship,omitempty"`
	DietaryRequirements   DietaryRequirements `bson:"dietaryRequirements" json:"dietaryRequirements"`
	PictureURL            string              `bson:"pictureUrl,omitempty" json:"pictureUrl,omitempty"`
}

// AdminVerification tracks the review of an attendee registration.
type AdminVerification struct {
	Status      VerificationStatus `bson:"status" json:"status"`
	AdminEmail  string             `bson:"adminEmail,omitempty" json:"adminEmail,omitempty"`
	Remarks     string             `bson:"adminRemarks,omitempty" json:"adminRemarks,omitempty"`
	VerifiedAt  *time.Time         `bson:"verifiedDate,omitempty" json:"verifiedDate,omitempty"`
	RequestedAt time.Time          `bson:"verificationRequestDate" json:"verificationRequestDate"`
}

// User is an account: an admin (IsAdmin, keyed by Email) or an attendee
// (keyed by non-unique PersonalInformation.FullName).
type User struct {
	ID                  primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	PersonalInformation PersonalInformation `bson:"personalInformation" json:"personalInformation"`
	Accommodation       Accommodation       `bson:"accommodation" json:"accommodation"`
	DietaryRequirements DietaryRequirements `bson:"dietaryRequirements" json:"dietaryRequirements"`
	Accompanying        *AccompanyingPerson `bson:"accompanyingPerson,omitempty" json:"accompanyingPerson,omitempty"`
	ProfilePicture      string              `bson:"profilePicture,omitempty" json:"profilePicture,omitempty"`
	Biography           string              `bson:"biography,omitempty" json:"biography,omitempty"`
	ChiefDelegate       bool                `bson:"chiefDelegate" json:"chiefDelegate"`
	AdminVerification   AdminVerification   `bson:"adminVerification" json:"adminVerification"`
	IsVerifiedByAdmin   bool                `bson:"isVerifiedByAdmin" json:"isVerifiedByAdmin"`

	Email        string `bson:"email,omitempty" json:"email,omitempty"`
	PasswordHash string `bson:"password,omitempty" json:"-"`
	IsAdmin      bool   `bson:"isAdmin" json:"isAdmin"`
	OTPSecret    string `bson:"otpSecret,omitempty" json:"-"`

	FailedAttempts int        `bson:"failedAttempts" json:"-"`
	LockUntil      *time.Time `bson:"lockUntil,omitempty" json:"-"`
	LastLogin      *time.Time `bson:"lastLogin,omitempty" json:"lastLogin,omitempty"`

	SessionsAttended []primitive.ObjectID `bson:"sessionsAttended,omitempty" json:"sessionsAttended,omitempty"`
	QRCode           string               `bson:"qrCode,omitempty" json:"qrCode,omitempty"`
	CreatedAt        time.Time            `bson:"createdAt" json:"createdAt"`
}

// CredentialHash returns the stored hash for the account's role.
func (u *User) CredentialHash() string {
	if u.IsAdmin {
		return u.PasswordHash
	}
	return u.PersonalInformation.PasswordHash
}

// SetCredentialHash replaces the stored hash for the account's role.
func (u *User) SetCredentialHash(hash string) {
	if u.IsAdmin {
		u.PasswordHash = hash
		return
	}
	u.PersonalInformation.PasswordHash = hash
}

// ContactEmail is where notifications for this account go.
func (u *User) ContactEmail() string {
	if u.IsAdmin {
		return u.Email
	}
	return u.PersonalInformation.EmailAddress
}

// Identity is the claimed login identity, used in audit entries.
func (u *User) Identity() string {
	if u.IsAdmin {
		return u.Email
	}
	return u.PersonalInformation.FullName.FirstName
}

// LockedAt reports whether a lock is active at now and for how long.
func (u *User) LockedAt(now time.Time) (bool, time.Duration) {
	if u.LockUntil == nil || !u.LockUntil.After(now) {
		return false, 0
	}
	return true, u.LockUntil.Sub(now)
}

// MediaKeys lists the uploaded media owned by this account.
func (u *User) MediaKeys() []string {
	var keys []string
	for _, k := range []string{u.ProfilePicture, u.PersonalInformation.PaymentReceipt} {
		if k != "" {
			keys = append(keys, k)
		}
	}
	if u.Accompanying != nil && u.Accompanying.PictureURL != "" {
		keys = append(keys, u.Accompanying.PictureURL)
	}
	return keys
}
