package httpserver

import (
	"context"
	"net/http"
	"strings"

	"github.com/and161185/storefront/internal/token"
)

type ctxKey string

const (
	claimsKey    ctxKey = "sf.claims"
	requestIDKey ctxKey = "sf.requestID"
)

// WithClaims stores verified access claims in context.
func WithClaims(ctx context.Context, c *token.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, c)
}

// ClaimsFromCtx fetches access claims from context.
func ClaimsFromCtx(ctx context.Context) (*token.Claims, bool) {
	c, ok := ctx.Value(claimsKey).(*token.Claims)
	return c, ok && c != nil
}

// RequestIDFromCtx returns the request id assigned by RequestID.
func RequestIDFromCtx(ctx context.Context) string {
	id, _ := ctx.Value(requestIDKey).(string)
	return id
}

// Verifier checks access tokens.
type Verifier interface {
	VerifyAccess(accessToken string) (*token.Claims, error)
}

// Authenticate requires "Authorization: Bearer <access token>" and stores its claims.
func Authenticate(v Verifier) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tok, ok := bearerToken(r)
			if !ok {
				writeAPIError(w, apiUnauthorized)
				return
			}
			claims, err := v.VerifyAccess(tok)
			if err != nil {
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// RequireRoles lets the request through when the caller holds any of roles.
// It must run after Authenticate.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, ok := ClaimsFromCtx(r.Context())
			if !ok {
				writeAPIError(w, apiUnauthorized)
				return
			}
			if !HasAnyRole(claims.Roles, roles) {
				writeAPIError(w, apiForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// HasAnyRole reports whether have and want intersect. An empty want admits everyone.
func HasAnyRole(have, want []string) bool {
	if len(want) == 0 {
		return true
	}
	for _, w := range want {
		for _, h := range have {
			if h == w {
				return true
			}
		}
	}
	return false
}

func bearerToken(r *http.Request) (string, bool) {
	v := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(v) >= 7 && strings.EqualFold(v[:7], "bearer ") {
		if t := strings.TrimSpace(v[7:]); t != "" {
			return t, true
		}
	}
	return "", false
}
