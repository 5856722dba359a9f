package auth

import (
	"errors"
	"fmt"
	"time"

	"confhub/internal/common"
	"confhub/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the bearer token payload. Exactly one role flag is set for
// admins and speakers; attendee tokens carry neither.
type Claims struct {
	jwt.RegisteredClaims
	UserID    string `json:"userId"`
	IsAdmin   bool   `json:"isAdmin,omitempty"`
	IsSpeaker bool   `json:"isSpeaker,omitempty"`
}

// Role returns the role the claims grant.
func (c *Claims) Role() string {
	switch {
	case c.IsAdmin:
		return models.RoleAdmin
	case c.IsSpeaker:
		return models.RoleSpeaker
	default:
		return models.RoleUser
	}
}

// TokenIssuer signs and verifies bearer tokens.
type TokenIssuer interface {
	Sign(claims Claims, ttl time.Duration) (string, error)
	Verify(token string) (*Claims, error)
}

// JWTIssuer issues HS256 JWTs.
type JWTIssuer struct {
	secret []byte
	now    func() time.Time
}

func NewJWTIssuer(secret string) *JWTIssuer {
	return &JWTIssuer{secret: []byte(secret), now: time.Now}
}

// Sign stamps issue and expiry times on claims and signs them.
func (j *JWTIssuer) Sign(claims Claims, ttl time.Duration) (string, error) {
	now := j.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	s, err := token.SignedString(j.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

// Verify parses token and returns its claims. Any failure, including
// expiry, is reported as common.ErrInvalidToken.
func (j *JWTIssuer) Verify(token string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(token, claims,
		func(*jwt.Token) (interface{}, error) { return j.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(j.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, errors.Join(common.ErrInvalidToken, err)
	}
	if !parsed.Valid || claims.UserID == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
