// Package token signs and verifies the HS256 JWTs used for access and refresh sessions.
package token

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// ErrInvalid is returned when a token fails signature, expiry or format checks.
var ErrInvalid = errors.New("invalid token")

// Leeway tolerates small clock skew between issuer and verifier.
const Leeway = 30 * time.Second

// Claims carries the session identity. ID (jti) is set on refresh tokens only.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// NewClaims builds claims for a user; pass an empty jti for access tokens.
func NewClaims(userID int64, email string, roles []string, jti string) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject: strconv.FormatInt(userID, 10),
			ID:      jti,
		},
		Email: email,
		Roles: roles,
	}
}

// UserID parses the subject as a positive user id.
func (c *Claims) UserID() (int64, bool) {
	id, err := strconv.ParseInt(c.Subject, 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// Signer signs and verifies tokens. It holds no state besides the clock.
type Signer struct {
	now func() time.Time
}

// NewSigner returns a Signer using the wall clock.
func NewSigner() *Signer { return &Signer{now: time.Now} }

// Sign issues a token for claims that expires after ttl.
func (s *Signer) Sign(claims Claims, secret []byte, ttl time.Duration) (string, error) {
	now := s.now()
	claims.IssuedAt = jwt.NewNumericDate(now)
	claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString(secret)
}

// Verify parses token, checks the HS256 signature against secret and validates
// time-based claims. Every failure is reported as ErrInvalid.
func (s *Signer) Verify(token string, secret []byte) (*Claims, error) {
	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithLeeway(Leeway),
		jwt.WithTimeFunc(s.now),
	)
	if err != nil || !parsed.Valid {
		return nil, ErrInvalid
	}
	return &claims, nil
}
