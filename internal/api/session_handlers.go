package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"confhub/internal/auth"
	"confhub/internal/common"
	"confhub/internal/models"
	"confhub/internal/sessions"
	"confhub/internal/util"

	"github.com/gorilla/mux"
)

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req sessions.CreateRequest
	if _, err := decode(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	sess, err := s.sessions.Create(r.Context(), req)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Session created successfully", map[string]any{"session": sess})
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.List(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Sessions fetched successfully", map[string]any{"sessions": list})
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.sessions.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Session fetched successfully", map[string]any{"session": sess})
}

type sessionOp func(ctx context.Context, id string) (*models.Session, error)

func (s *Server) sessionTransition(op sessionOp, message string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, err := op(r.Context(), mux.Vars(r)["id"])
		if err != nil {
			s.writeError(w, r, err)
			return
		}
		writeSuccess(w, http.StatusOK, message, map[string]any{"session": sess})
	}
}

func (s *Server) startSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.sessions.Start, "Session started successfully")(w, r)
}

func (s *Server) endSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.sessions.End, "Session ended successfully")(w, r)
}

func (s *Server) cancelSession(w http.ResponseWriter, r *http.Request) {
	s.sessionTransition(s.sessions.Cancel, "Session cancelled successfully")(w, r)
}

// attendeeBody names the attendee explicitly. Only admins may act for
// someone else; attendees and speakers always act as themselves.
type attendeeBody struct {
	UserID    string `json:"userId"`
	SpeakerID string `json:"speakerId"`
	Comment   string `json:"comment"`
}

func attendeeFor(c *auth.Claims, body attendeeBody) (models.AttendeeRef, error) {
	switch c.Role() {
	case models.RoleSpeaker:
		id, err := util.ParseObjectID(c.UserID)
		return models.SpeakerRef(id), err
	case models.RoleUser:
		id, err := util.ParseObjectID(c.UserID)
		return models.UserRef(id), err
	}
	u, sp := strings.TrimSpace(body.UserID), strings.TrimSpace(body.SpeakerID)
	switch {
	case u != "" && sp == "":
		id, err := util.ParseObjectID(u)
		return models.UserRef(id), err
	case sp != "" && u == "":
		id, err := util.ParseObjectID(sp)
		return models.SpeakerRef(id), err
	default:
		return models.AttendeeRef{}, common.NewValidationError("attendee", "exactly one of userId or speakerId is required")
	}
}

func (s *Server) resolveAttendee(w http.ResponseWriter, r *http.Request) (models.AttendeeRef, attendeeBody, bool) {
	var body attendeeBody
	raw, err := readBody(w, r)
	if err == nil && len(bytes.TrimSpace(raw)) > 0 && json.Unmarshal(raw, &body) != nil {
		err = common.NewValidationError("body", "invalid request payload")
	}
	if err != nil {
		s.writeError(w, r, err)
		return models.AttendeeRef{}, body, false
	}
	ref, err := attendeeFor(claimsFrom(r.Context()), body)
	if err != nil {
		s.writeError(w, r, err)
		return models.AttendeeRef{}, body, false
	}
	return ref, body, true
}

func (s *Server) markAttendance(w http.ResponseWriter, r *http.Request) {
	ref, _, ok := s.resolveAttendee(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.MarkAttendance(r.Context(), mux.Vars(r)["id"], ref)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Attendance marked successfully", map[string]any{"session": sess})
}

func (s *Server) listAttendance(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.Attendance(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Attendance fetched successfully", map[string]any{"attendance": list, "count": len(list)})
}

func (s *Server) addComment(w http.ResponseWriter, r *http.Request) {
	ref, body, ok := s.resolveAttendee(w, r)
	if !ok {
		return
	}
	sess, err := s.sessions.AddComment(r.Context(), mux.Vars(r)["id"], ref, body.Comment)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusCreated, "Comment added successfully", map[string]any{"session": sess})
}

func (s *Server) listComments(w http.ResponseWriter, r *http.Request) {
	list, err := s.sessions.Comments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeSuccess(w, http.StatusOK, "Comments fetched successfully", map[string]any{"comments": list})
}
