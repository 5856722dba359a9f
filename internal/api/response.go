package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"confhub/internal/common"
	"confhub/internal/logging"
)

const maxBodyBytes = 1 << 20

// errorBody is the failure envelope.
type errorBody struct {
	Success           bool              `json:"success"`
	Error             string            `json:"error"`
	Code              string            `json:"code"`
	LockDuration      *int64            `json:"lockDuration,omitempty"`
	RemainingAttempts *int              `json:"remainingAttempts,omitempty"`
	Fields            map[string]string `json:"fields,omitempty"`
}

// writeJSON writes v as the response body with status.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeSuccess writes {success: true, message, ...extra}.
func writeSuccess(w http.ResponseWriter, status int, message string, extra map[string]any) {
	body := map[string]any{"success": true, "message": message}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeJSONError writes a failure envelope without going through the error
// taxonomy.
func writeJSONError(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, errorBody{Error: message, Code: code})
}

// writeError maps a service error to its status and body. Internal causes
// are logged, never rendered.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	body := errorBody{}
	status := http.StatusInternalServerError

	var (
		ve *common.ValidationError
		ce *common.CredentialsError
		le *common.LockedError
	)
	switch {
	case errors.As(err, &ve):
		status, body.Code, body.Error = http.StatusBadRequest, "validation_error", "Validation failed"
		body.Fields = ve.Fields
	case errors.Is(err, common.ErrValidation):
		status, body.Code, body.Error = http.StatusBadRequest, "validation_error", err.Error()
	case errors.As(err, &ce):
		status, body.Code, body.Error = http.StatusUnauthorized, "invalid_credentials", "Invalid credentials"
		if ce.HasRemaining() {
			n := ce.RemainingAttempts
			body.RemainingAttempts = &n
		}
	case errors.As(err, &le):
		status, body.Code, body.Error = http.StatusForbidden, "account_locked", "Account is locked. Try again later."
		secs := le.Seconds()
		body.LockDuration = &secs
	case errors.Is(err, common.ErrInvalidToken):
		status, body.Code, body.Error = http.StatusUnauthorized, "invalid_token", "Invalid or expired token"
	case errors.Is(err, common.ErrForbidden):
		status, body.Code, body.Error = http.StatusForbidden, "forbidden", "Access denied"
	case errors.Is(err, common.ErrNotFound):
		status, body.Code, body.Error = http.StatusNotFound, "not_found", "Resource not found"
	case errors.Is(err, common.ErrInvalidTransition):
		status, body.Code, body.Error = http.StatusConflict, "invalid_transition", "Operation not allowed in the current state"
	case errors.Is(err, common.ErrConflict):
		status, body.Code, body.Error = http.StatusConflict, "conflict", "Conflicts with existing data"
	default:
		body.Code, body.Error = "internal_error", "Internal server error"
		logging.FromContext(r.Context(), s.log).Error(r.Context(), "request failed",
			"method", r.Method, "path", r.URL.Path, "error", err)
	}
	writeJSON(w, status, body)
}

// readBody returns the raw request body, capped at maxBodyBytes.
func readBody(w http.ResponseWriter, r *http.Request) ([]byte, error) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, common.NewValidationError("body", "could not read request body")
	}
	return raw, nil
}

// decode reads a JSON body into v. Malformed JSON is a validation error.
func decode(w http.ResponseWriter, r *http.Request, v any) ([]byte, error) {
	raw, err := readBody(w, r)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return nil, common.NewValidationError("body", "invalid request payload")
	}
	return raw, nil
}
