package api

import (
	"errors"
	"net/http"
	"strconv"

	"confhub/internal/common"
	"confhub/internal/directory"
	"confhub/internal/models"
	"confhub/internal/util"

	"github.com/gorilla/mux"
)

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	u, err := s.users.Get(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User fetched successfully", map[string]any{"user": u})
}

// selfOrAdmin allows admins, and attendees acting on their own id.
func selfOrAdmin(r *http.Request, id string) error {
	c := claimsFrom(r.Context())
	if c.IsAdmin || (c.Role() == models.RoleUser && c.UserID == id) {
		return nil
	}
	return common.ErrForbidden
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := selfOrAdmin(r, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User fetched successfully", map[string]any{"user": u})
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	s.writeUserList(w, r, r.URL.Query().Get("institution"))
}

func (s *Server) usersByInstitution(w http.ResponseWriter, r *http.Request) {
	s.writeUserList(w, r, mux.Vars(r)["name"])
}

func (s *Server) writeUserList(w http.ResponseWriter, r *http.Request, institution string) {
	list, dups, err := s.users.List(r.Context(), institution)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Users fetched successfully", map[string]any{
		"users":            list,
		"count":            len(list),
		"duplicateUserIds": dups,
	})
}

func (s *Server) updateUser(w http.ResponseWriter, r *http.Request) {
	var patch directory.UserUpdate
	if _, err := decode(w, r, &patch); err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.users.Update(r.Context(), mux.Vars(r)["id"], patch)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User updated successfully", map[string]any{"user": u})
}

func (s *Server) deleteUser(w http.ResponseWriter, r *http.Request) {
	if err := s.users.Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
}

func (s *Server) userQRCode(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if err := selfOrAdmin(r, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	url, err := s.users.QRCode(r.Context(), id)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "QR code generated successfully", map[string]any{"qrCode": url})
}

// adminEmail resolves the acting admin for the verification record.
func (s *Server) adminEmail(r *http.Request) (string, error) {
	admin, err := s.users.Get(r.Context(), claimsFrom(r.Context()).UserID)
	if err != nil {
		return "", err
	}
	if !admin.IsAdmin {
		return "", common.ErrForbidden
	}
	return admin.Email, nil
}

func (s *Server) verifyUser(w http.ResponseWriter, r *http.Request) {
	email, err := s.adminEmail(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.verification.Approve(r.Context(), mux.Vars(r)["id"], email)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User verified successfully", map[string]any{"user": u})
}

func (s *Server) rejectUser(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Remarks string `json:"remarks"`
	}
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	email, err := s.adminEmail(r)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	u, err := s.verification.Reject(r.Context(), mux.Vars(r)["id"], email, req.Remarks)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "User rejected", map[string]any{"user": u})
}

func (s *Server) listLoginActivities(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			s.writeError(w, r, common.NewValidationError("limit", "must be a non-negative integer"))
			return
		}
		limit = n
	}
	list, err := s.activities.List(r.Context(), limit)
	if err != nil {
		s.writeError(w, r, common.Internal("list login activities", err))
		return
	}
	writeSuccess(w, http.StatusOK, "Login activities fetched successfully", map[string]any{"activities": list})
}

func (s *Server) deleteLoginActivity(w http.ResponseWriter, r *http.Request) {
	id, err := util.ParseObjectID(mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.activities.DeleteByID(r.Context(), id); err != nil {
		if !errors.Is(err, common.ErrNotFound) {
			err = common.Internal("delete login activity", err)
		}
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Login activity deleted successfully", nil)
}
