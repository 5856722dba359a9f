// Package api exposes the conference services over HTTP with gorilla/mux.
// Every handler answers with the JSON envelope {success, message, ...} or
// {success: false, error, code, ...}.
package api

import (
	"net/http"
	"time"

	"confhub/internal/auth"
	"confhub/internal/directory"
	"confhub/internal/logging"
	"confhub/internal/notify"
	"confhub/internal/sessions"
	"confhub/internal/store"
	"confhub/internal/verification"

	"github.com/gorilla/mux"
)

// Deps are the services the handlers call.
type Deps struct {
	Auth         *auth.Service
	Tokens       auth.TokenIssuer
	Verification *verification.Workflow
	Sessions     *sessions.Manager
	Users        *directory.Users
	Speakers     *directory.Speakers
	Activities   store.Activities
	Hub          *notify.Hub
	Log          logging.Logger

	// StreamHeartbeat is the idle interval between SSE keep-alive comments.
	StreamHeartbeat time.Duration
}

// Server holds the HTTP handlers.
type Server struct {
	auth         *auth.Service
	tokens       auth.TokenIssuer
	verification *verification.Workflow
	sessions     *sessions.Manager
	users        *directory.Users
	speakers     *directory.Speakers
	activities   store.Activities
	hub          *notify.Hub
	log          logging.Logger
	heartbeat    time.Duration
}

// NewServer applies a 25 second stream heartbeat when none is set.
func NewServer(d Deps) *Server {
	hb := d.StreamHeartbeat
	if hb <= 0 {
		hb = 25 * time.Second
	}
	return &Server{
		auth:         d.Auth,
		tokens:       d.Tokens,
		verification: d.Verification,
		sessions:     d.Sessions,
		users:        d.Users,
		speakers:     d.Speakers,
		activities:   d.Activities,
		hub:          d.Hub,
		log:          d.Log,
		heartbeat:    hb,
	}
}

// Routes builds the router. Access logging, CORS and panic recovery are
// applied by the caller.
func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(s.requestID)
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusNotFound, "not_found", "Route not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		writeJSONError(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeSuccess(w, http.StatusOK, "ok", nil)
	}).Methods(http.MethodGet)

	admin := s.authenticate(adminOnly...)
	anyone := s.authenticate()

	// Admin accounts and attendee review.
	r.HandleFunc("/api/admin/register", s.adminRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/login", s.adminLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/otp/enroll", admin(s.enrollOTP)).Methods(http.MethodPost)
	r.HandleFunc("/api/admin/users/{id}/verify", admin(s.verifyUser)).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/users/{id}/reject", admin(s.rejectUser)).Methods(http.MethodPut)
	r.HandleFunc("/api/admin/login-activities", admin(s.listLoginActivities)).Methods(http.MethodGet)
	r.HandleFunc("/api/admin/login-activities/{id}", admin(s.deleteLoginActivity)).Methods(http.MethodDelete)

	// Attendees.
	r.HandleFunc("/api/users/register", s.userRegister).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login", s.userLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/users/change-password", s.changePassword).Methods(http.MethodPost)
	r.HandleFunc("/api/users/me", s.authenticate(attendeeOnly...)(s.me)).Methods(http.MethodGet)
	r.HandleFunc("/api/users", admin(s.listUsers)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/institution/{name}", admin(s.usersByInstitution)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", anyone(s.getUser)).Methods(http.MethodGet)
	r.HandleFunc("/api/users/{id}", admin(s.updateUser)).Methods(http.MethodPut)
	r.HandleFunc("/api/users/{id}", admin(s.deleteUser)).Methods(http.MethodDelete)
	r.HandleFunc("/api/users/{id}/qr", anyone(s.userQRCode)).Methods(http.MethodGet)

	// Speakers.
	r.HandleFunc("/api/speakers/login", s.speakerLogin).Methods(http.MethodPost)
	r.HandleFunc("/api/speakers", s.listSpeakers).Methods(http.MethodGet)
	r.HandleFunc("/api/speakers", admin(s.createSpeaker)).Methods(http.MethodPost)
	r.HandleFunc("/api/speakers/{id}", s.getSpeaker).Methods(http.MethodGet)
	r.HandleFunc("/api/speakers/{id}", admin(s.updateSpeaker)).Methods(http.MethodPut)
	r.HandleFunc("/api/speakers/{id}", admin(s.deleteSpeaker)).Methods(http.MethodDelete)

	// Sessions.
	r.HandleFunc("/api/sessions", s.listSessions).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions", admin(s.createSession)).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}", s.getSession).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/start", admin(s.startSession)).Methods(http.MethodPut)
	r.HandleFunc("/api/sessions/{id}/end", admin(s.endSession)).Methods(http.MethodPut)
	r.HandleFunc("/api/sessions/{id}/cancel", admin(s.cancelSession)).Methods(http.MethodPut)
	r.HandleFunc("/api/sessions/{id}/attendance", anyone(s.markAttendance)).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/attendance", admin(s.listAttendance)).Methods(http.MethodGet)
	r.HandleFunc("/api/sessions/{id}/comments", anyone(s.addComment)).Methods(http.MethodPost)
	r.HandleFunc("/api/sessions/{id}/comments", s.listComments).Methods(http.MethodGet)

	// Notifications.
	r.HandleFunc("/api/notifications/stream", s.authenticateWith(true)(s.streamNotifications)).Methods(http.MethodGet)
	r.HandleFunc("/api/notifications/send", admin(s.sendNotification)).Methods(http.MethodPost)

	return r
}
