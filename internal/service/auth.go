// Package service contains application services for authentication and the product catalog.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	pkgcrypto "github.com/and161185/storefront/internal/crypto"
	"github.com/and161185/storefront/internal/errs"
	"github.com/and161185/storefront/internal/limiter"
	"github.com/and161185/storefront/internal/metrics"
	"github.com/and161185/storefront/internal/model"
	"github.com/and161185/storefront/internal/repository"
	"github.com/and161185/storefront/internal/token"
	"github.com/gofrs/uuid/v5"
)

// Default token lifetimes.
const (
	DefaultAccessTTL  = 5 * time.Minute
	DefaultRefreshTTL = 7 * 24 * time.Hour
)

// AuthService defines registration and session lifecycle operations.
type AuthService interface {
	// Register creates an account with role "user". Fails with errs.ErrAlreadyExists on email collision.
	Register(ctx context.Context, email, name, password string) (model.PublicUser, error)
	// Login verifies credentials (rate-limited per email and client IP) and opens a session.
	Login(ctx context.Context, email, password, ip string) (model.Session, error)
	// Refresh rotates a refresh token: the presented one is revoked, a new pair is issued.
	Refresh(ctx context.Context, refreshToken string) (model.Session, error)
	// Logout revokes the presented refresh session and, with All, every session of the caller.
	Logout(ctx context.Context, req LogoutRequest) error
	// Me returns the account behind verified access claims.
	Me(ctx context.Context, claims *token.Claims) (model.PublicUser, error)
	// VerifyAccess checks an access token and returns its claims.
	VerifyAccess(accessToken string) (*token.Claims, error)
}

// LogoutRequest selects what to revoke. AccessUserID must come from a verified
// access token, never from the request body.
type LogoutRequest struct {
	RefreshToken string
	All          bool
	AccessUserID int64
}

// TokenSigner signs and verifies session tokens.
type TokenSigner interface {
	Sign(claims token.Claims, secret []byte, ttl time.Duration) (string, error)
	Verify(tok string, secret []byte) (*token.Claims, error)
}

// AuthConfig holds the token secrets and lifetimes.
type AuthConfig struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
}

type AuthServiceImpl struct {
	users  repository.UserRepository
	tokens TokenSigner
	cfg    AuthConfig
	lim    limiter.Limiter
	rec    metrics.Recorder

	// registerMu makes the email check and the insert one step.
	registerMu sync.Mutex
	// rotateMu makes a rotation (check, remove, add) one step, so a refresh
	// token is redeemed at most once and a logout never lands mid-rotation.
	rotateMu sync.Mutex

	dummyOnce sync.Once
	dummyHash string
}

// NewAuthService constructs AuthService with required dependencies.
// Zero TTLs fall back to the defaults; a nil recorder disables metrics.
func NewAuthService(users repository.UserRepository, tokens TokenSigner, cfg AuthConfig, lim limiter.Limiter, rec metrics.Recorder) *AuthServiceImpl {
	if cfg.AccessTTL <= 0 {
		cfg.AccessTTL = DefaultAccessTTL
	}
	if cfg.RefreshTTL <= 0 {
		cfg.RefreshTTL = DefaultRefreshTTL
	}
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &AuthServiceImpl{users: users, tokens: tokens, cfg: cfg, lim: lim, rec: rec}
}

// Register creates a new user record with an Argon2id password hash.
func (s *AuthServiceImpl) Register(ctx context.Context, email, name, password string) (model.PublicUser, error) {
	u, err := s.register(ctx, email, name, password)
	s.rec.AuthEvent("register", outcome(err))
	return u, err
}

func (s *AuthServiceImpl) register(ctx context.Context, email, name, password string) (model.PublicUser, error) {
	if email == "" || name == "" || password == "" {
		return model.PublicUser{}, fmt.Errorf("%w: empty email/name/password", errs.ErrValidation)
	}
	hash, err := pkgcrypto.HashPassword(password)
	if err != nil {
		return model.PublicUser{}, err
	}

	s.registerMu.Lock()
	defer s.registerMu.Unlock()

	_, err = s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return model.PublicUser{}, errs.ErrAlreadyExists
	case !errors.Is(err, errs.ErrNotFound):
		return model.PublicUser{}, err
	}

	u, err := s.users.Create(ctx, email, name, hash, []string{model.RoleUser})
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// Login authenticates with rate limiting by (email, ip).
func (s *AuthServiceImpl) Login(ctx context.Context, email, password, ip string) (model.Session, error) {
	sess, err := s.login(ctx, email, password, ip)
	s.rec.AuthEvent("login", outcome(err))
	return sess, err
}

func (s *AuthServiceImpl) login(ctx context.Context, email, password, ip string) (model.Session, error) {
	ipHash := limiter.HashIP(ip)

	// Check if requests are currently allowed for this (email, ip).
	allowed, retry, err := s.lim.Allow(ctx, email, ipHash)
	if err != nil {
		return model.Session{}, err
	}
	if !allowed {
		return model.Session{}, errs.RateLimited(retry)
	}

	u, err := s.users.FindByEmail(ctx, email)
	if err != nil && !errors.Is(err, errs.ErrNotFound) {
		return model.Session{}, err
	}

	ok, err := s.checkPassword(u, password)
	if err != nil {
		return model.Session{}, err
	}
	if !ok {
		// Record failure; if threshold reached, return rate-limited.
		if blocked, retry, ferr := s.lim.Failure(ctx, email, ipHash); ferr == nil && blocked {
			return model.Session{}, errs.RateLimited(retry)
		}
		// unknown email and wrong password look the same to the caller
		return model.Session{}, errs.ErrInvalidCredentials
	}

	// Success: reset counters (best-effort).
	_ = s.lim.Success(ctx, email, ipHash)

	return s.issueSession(ctx, u)
}

// checkPassword verifies password against u's hash. A nil u is checked
// against a throwaway hash so both failure paths cost the same.
func (s *AuthServiceImpl) checkPassword(u *model.User, password string) (bool, error) {
	if u == nil {
		s.dummyOnce.Do(func() {
			s.dummyHash, _ = pkgcrypto.HashPassword("not-a-real-password")
		})
		_, _ = pkgcrypto.VerifyPassword(s.dummyHash, password)
		return false, nil
	}
	ok, err := pkgcrypto.VerifyPassword(u.PasswordHash, password)
	if err != nil {
		return false, fmt.Errorf("user %d: %w", u.ID, err)
	}
	return ok, nil
}

// Refresh validates a refresh token and rotates its session.
func (s *AuthServiceImpl) Refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	sess, err := s.refresh(ctx, refreshToken)
	s.rec.AuthEvent("refresh", outcome(err))
	return sess, err
}

func (s *AuthServiceImpl) refresh(ctx context.Context, refreshToken string) (model.Session, error) {
	claims, err := s.tokens.Verify(refreshToken, s.cfg.RefreshSecret)
	if err != nil {
		return model.Session{}, errs.ErrInvalidToken
	}
	userID, ok := claims.UserID()
	if !ok || claims.ID == "" {
		return model.Session{}, errs.ErrMalformedToken
	}

	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	u, err := s.revoke(ctx, userID, claims.ID)
	if err != nil {
		return model.Session{}, err
	}
	return s.issueSession(ctx, u)
}

// revoke removes jti from the user's active set, failing if it is not active.
// The caller holds rotateMu.
func (s *AuthServiceImpl) revoke(ctx context.Context, userID int64, jti string) (*model.User, error) {
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return nil, errs.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if !u.HasRefreshJTI(jti) {
		return nil, errs.ErrTokenRevoked
	}
	if err := s.users.RemoveRefreshJTI(ctx, u.ID, jti); err != nil {
		return nil, err
	}
	return u, nil
}

// Logout revokes sessions. Bad or stale refresh tokens are ignored.
func (s *AuthServiceImpl) Logout(ctx context.Context, req LogoutRequest) error {
	err := s.logout(ctx, req)
	s.rec.AuthEvent("logout", outcome(err))
	return err
}

func (s *AuthServiceImpl) logout(ctx context.Context, req LogoutRequest) error {
	s.rotateMu.Lock()
	defer s.rotateMu.Unlock()

	if req.RefreshToken != "" {
		if claims, err := s.tokens.Verify(req.RefreshToken, s.cfg.RefreshSecret); err == nil {
			if userID, ok := claims.UserID(); ok && claims.ID != "" {
				if err := s.users.RemoveRefreshJTI(ctx, userID, claims.ID); err != nil {
					return err
				}
			}
		}
	}
	if req.All && req.AccessUserID > 0 {
		if err := s.users.ClearRefreshJTIs(ctx, req.AccessUserID); err != nil {
			return err
		}
	}
	return nil
}

// Me loads the public view of the caller.
func (s *AuthServiceImpl) Me(ctx context.Context, claims *token.Claims) (model.PublicUser, error) {
	if claims == nil {
		return model.PublicUser{}, errs.ErrMalformedToken
	}
	userID, ok := claims.UserID()
	if !ok {
		return model.PublicUser{}, errs.ErrMalformedToken
	}
	u, err := s.users.FindByID(ctx, userID)
	if errors.Is(err, errs.ErrNotFound) {
		return model.PublicUser{}, errs.ErrUserNotFound
	}
	if err != nil {
		return model.PublicUser{}, err
	}
	return u.Public(), nil
}

// VerifyAccess checks signature and expiry under the access secret.
func (s *AuthServiceImpl) VerifyAccess(accessToken string) (*token.Claims, error) {
	claims, err := s.tokens.Verify(accessToken, s.cfg.AccessSecret)
	if err != nil {
		return nil, errs.ErrInvalidToken
	}
	if _, ok := claims.UserID(); !ok {
		return nil, errs.ErrMalformedToken
	}
	return claims, nil
}

// issueSession mints a jti, signs both tokens and records the jti as active.
func (s *AuthServiceImpl) issueSession(ctx context.Context, u *model.User) (model.Session, error) {
	jti, err := uuid.NewV4()
	if err != nil {
		return model.Session{}, err
	}
	access, err := s.tokens.Sign(token.NewClaims(u.ID, u.Email, u.Roles, ""), s.cfg.AccessSecret, s.cfg.AccessTTL)
	if err != nil {
		return model.Session{}, fmt.Errorf("sign access: %w", err)
	}
	refresh, err := s.tokens.Sign(token.NewClaims(u.ID, u.Email, u.Roles, jti.String()), s.cfg.RefreshSecret, s.cfg.RefreshTTL)
	if err != nil {
		return model.Session{}, fmt.Errorf("sign refresh: %w", err)
	}
	if err := s.users.AddRefreshJTI(ctx, u.ID, jti.String()); err != nil {
		return model.Session{}, err
	}
	return model.Session{
		User:   u.Public(),
		Tokens: model.Tokens{AccessToken: access, RefreshToken: refresh},
	}, nil
}

func outcome(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeOK
	case errors.Is(err, errs.ErrUnauthorized),
		errors.Is(err, errs.ErrAlreadyExists),
		errors.Is(err, errs.ErrValidation),
		errors.Is(err, errs.ErrRateLimited):
		return metrics.OutcomeRejected
	default:
		return metrics.OutcomeError
	}
}

