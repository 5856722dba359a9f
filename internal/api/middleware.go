package api

import (
	"context"
	"net/http"
	"strings"

	"confhub/internal/auth"
	"confhub/internal/common"
	"confhub/internal/logging"
	"confhub/internal/models"

	"github.com/google/uuid"
)

const requestIDHeader = "X-Request-ID"

type claimsKey struct{}

// claimsFrom returns the verified token claims stored by authenticate.
func claimsFrom(ctx context.Context) *auth.Claims {
	c, _ := ctx.Value(claimsKey{}).(*auth.Claims)
	return c
}

// requestID tags each request with an id, echoed in the response and
// attached to the request logger.
func (s *Server) requestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, id)
		ctx := logging.WithContext(r.Context(), s.log.With("request_id", id))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// bearerToken reads "Authorization: Bearer <token>". Event streams cannot
// set headers, so a token query parameter is accepted when allowQuery is set.
func bearerToken(r *http.Request, allowQuery bool) string {
	h := r.Header.Get("Authorization")
	if token, ok := strings.CutPrefix(h, "Bearer "); ok {
		return strings.TrimSpace(token)
	}
	if allowQuery {
		return r.URL.Query().Get("token")
	}
	return ""
}

// authenticate verifies the bearer token and, when roles are given,
// requires the token's role to be one of them.
func (s *Server) authenticate(roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return s.authenticateWith(false, roles...)
}

func (s *Server) authenticateWith(allowQuery bool, roles ...string) func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			token := bearerToken(r, allowQuery)
			if token == "" {
				writeJSONError(w, http.StatusUnauthorized, "invalid_token", "Authorization token required")
				return
			}
			claims, err := s.tokens.Verify(token)
			if err != nil {
				s.writeError(w, r, common.ErrInvalidToken)
				return
			}
			if len(roles) > 0 && !hasRole(claims, roles) {
				s.writeError(w, r, common.ErrForbidden)
				return
			}
			ctx := context.WithValue(r.Context(), claimsKey{}, claims)
			ctx = logging.WithContext(ctx, logging.FromContext(ctx, s.log).With("user_id", claims.UserID, "role", claims.Role()))
			next(w, r.WithContext(ctx))
		}
	}
}

func hasRole(c *auth.Claims, roles []string) bool {
	role := c.Role()
	for _, want := range roles {
		if want == role {
			return true
		}
	}
	return false
}

var (
	adminOnly    = []string{models.RoleAdmin}
	attendeeOnly = []string{models.RoleUser}
)
