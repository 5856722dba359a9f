package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"confhub/internal/auth"
	"confhub/internal/models"
	"confhub/internal/util"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/go-ozzo/ozzo-validation/is"
)

func tokenBody(res *auth.LoginResult, key string, account any) map[string]any {
	return map[string]any{
		"token":     res.Token,
		"expiresIn": int64(res.ExpiresIn / time.Second),
		key:         account,
	}
}

func (s *Server) adminRegister(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.RegisterAdmin(r.Context(), req.Email, req.Password)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Admin registered successfully", tokenBody(res, "admin", res.User))
}

func (s *Server) adminLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
		OTP      string `json:"otp"`
	}
	raw, err := decode(w, r, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.LoginAdmin(r.Context(), auth.LoginRequest{
		Identity: req.Email,
		Password: req.Password,
		OTP:      req.OTP,
		Method:   r.Method,
		Endpoint: r.URL.Path,
		Payload:  redactPayload(raw),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", tokenBody(res, "admin", res.User))
}

func (s *Server) enrollOTP(w http.ResponseWriter, r *http.Request) {
	url, err := s.auth.EnrollTOTP(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "TOTP enrolled", map[string]any{"otpauthUrl": url})
}

// registerUserRequest is the attendee self-registration payload.
type registerUserRequest struct {
	Title             string     `json:"title"`
	FirstName         string     `json:"firstName"`
	MiddleName        string     `json:"middleName"`
	LastName          string     `json:"lastName"`
	Nationality       string     `json:"nationality"`
	NameOfInstitution string     `json:"nameOfInstitution"`
	OtherInstitution  string     `json:"otherInstitution"`
	JobPosition       string     `json:"jobPosition"`
	OfficeAddress     string     `json:"officeAddress"`
	EmailAddress      string     `json:"emailAddress"`
	PhoneNumber       string     `json:"phoneNumber"`
	MobileNumber      string     `json:"mobileNumber"`
	CheckInDate       *time.Time `json:"checkInDate"`
	CheckOutDate      *time.Time `json:"checkOutDate"`
	Vegetarian        bool       `json:"vegetarian"`
	Halal             bool       `json:"halal"`
	NonVeg            bool       `json:"nonveg"`
	Other             string     `json:"other"`
	ChiefDelegate     bool       `json:"chiefDelegate"`
	Biography         string     `json:"biography"`
	ProfilePicture    string     `json:"profilePicture"`
	PaymentReceipt    string     `json:"uploadPaymentReceipt"`

	Accompanying *models.AccompanyingPerson `json:"accompanyingPerson"`
}

func (req registerUserRequest) Validate() error {
	return validation.ValidateStruct(&req,
		validation.Field(&req.FirstName, validation.Required),
		validation.Field(&req.LastName, validation.Required),
		validation.Field(&req.NameOfInstitution, validation.Required),
		validation.Field(&req.OtherInstitution, validation.By(func(any) error {
			if req.NameOfInstitution == "other" && strings.TrimSpace(req.OtherInstitution) == "" {
				return errors.New("is required when nameOfInstitution is other")
			}
			return nil
		})),
		validation.Field(&req.EmailAddress, validation.Required, is.Email),
		validation.Field(&req.CheckOutDate, validation.By(func(any) error {
			if req.CheckInDate != nil && req.CheckOutDate != nil && req.CheckOutDate.Before(*req.CheckInDate) {
				return errors.New("must not be before checkInDate")
			}
			return nil
		})),
	)
}

func (req registerUserRequest) user() *models.User {
	institution := req.NameOfInstitution
	if institution == "other" {
		institution = req.OtherInstitution
	}
	u := &models.User{
		PersonalInformation: models.PersonalInformation{
			Title: req.Title,
			FullName: models.FullName{
				FirstName:  strings.TrimSpace(req.FirstName),
				MiddleName: strings.TrimSpace(req.MiddleName),
				LastName:   strings.TrimSpace(req.LastName),
			},
			Nationality:    req.Nationality,
			Institution:    strings.TrimSpace(institution),
			JobPosition:    req.JobPosition,
			OfficeAddress:  req.OfficeAddress,
			EmailAddress:   req.EmailAddress,
			PhoneNumber:    req.PhoneNumber,
			MobileNumber:   req.MobileNumber,
			PaymentReceipt: req.PaymentReceipt,
		},
		Accommodation: models.Accommodation{CheckInDate: req.CheckInDate, CheckOutDate: req.CheckOutDate},
		DietaryRequirements: models.DietaryRequirements{
			Vegetarian: req.Vegetarian,
			Halal:      req.Halal,
			NonVeg:     req.NonVeg,
			Other:      req.Other,
		},
		ProfilePicture: req.ProfilePicture,
		Biography:      req.Biography,
		ChiefDelegate:  req.ChiefDelegate,
	}
	if req.Accompanying != nil && req.Accompanying.HasAccompanyingPerson {
		a := *req.Accompanying
		u.Accompanying = &a
	}
	return u
}

func (s *Server) userRegister(w http.ResponseWriter, r *http.Request) {
	var req registerUserRequest
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := util.ValidationFields(req.Validate()); err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.RegisterAttendee(r.Context(), req.user())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "User registered successfully", tokenBody(res, "user", res.User))
}

func (s *Server) userLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName string `json:"firstName"`
		Password  string `json:"password"`
	}
	raw, err := decode(w, r, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.LoginAttendee(r.Context(), auth.LoginRequest{
		Identity: req.FirstName,
		Password: req.Password,
		Method:   r.Method,
		Endpoint: r.URL.Path,
		Payload:  redactPayload(raw),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", tokenBody(res, "user", res.User))
}

func (s *Server) changePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		FirstName       string `json:"firstName"`
		Email           string `json:"email"`
		OldPassword     string `json:"oldPassword"`
		NewPassword     string `json:"newPassword"`
		ConfirmPassword string `json:"confirmPassword"`
	}
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	err := s.auth.ChangePassword(r.Context(), auth.ChangePasswordRequest{
		FirstName:       req.FirstName,
		Email:           req.Email,
		OldPassword:     req.OldPassword,
		NewPassword:     req.NewPassword,
		ConfirmPassword: req.ConfirmPassword,
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Password changed successfully", nil)
}

func (s *Server) speakerLogin(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	raw, err := decode(w, r, &req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	res, err := s.auth.LoginSpeaker(r.Context(), auth.LoginRequest{
		Identity: req.Email,
		Password: req.Password,
		Method:   r.Method,
		Endpoint: r.URL.Path,
		Payload:  redactPayload(raw),
	})
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login successful", tokenBody(res, "speaker", res.Speaker))
}
