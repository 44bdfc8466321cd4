package httpserver

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/and161185/storefront/internal/errs"
)

func TestRecover_CatchesPanic(t *testing.T) {
	t.Parallel()
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("oh no")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/boom", nil))

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	var body apiError
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "internal_error", body.Code)
	assert.NotContains(t, rec.Body.String(), "oh no")
}

func TestRecover_NoPanicPassThrough(t *testing.T) {
	t.Parallel()
	h := Recover(zaptest.NewLogger(t))(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusAccepted)
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusAccepted, rec.Code)
}

func TestRequestLogger_OneLinePerRequest(t *testing.T) {
	t.Parallel()
	core, logs := observer.New(zapcore.InfoLevel)
	log := zap.New(core)

	h := RequestID(RequestLogger(log)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/fail" {
			writeError(w, r, errors.New("disk on fire"))
			return
		}
		_, _ = w.Write([]byte("ok"))
	})))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ok", nil)
	req.RemoteAddr = "10.1.2.3:5555"
	h.ServeHTTP(rec, req)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "disk on fire")

	entries := logs.All()
	require.Len(t, entries, 2)

	ok := entries[0].ContextMap()
	assert.Equal(t, zapcore.InfoLevel, entries[0].Level)
	assert.Equal(t, "POST", ok["method"])
	assert.Equal(t, int64(200), ok["status"])
	assert.Equal(t, "10.1.2.3", ok["remote"])
	assert.Len(t, ok["request_id"], 26)

	fail := entries[1]
	assert.Equal(t, zapcore.ErrorLevel, fail.Level)
	assert.Equal(t, int64(500), fail.ContextMap()["status"])
	assert.Equal(t, "disk on fire", fail.ContextMap()["error"])
}

func TestRequestID(t *testing.T) {
	t.Parallel()
	var seen string
	h := RequestID(http.HandlerFunc(func(_ http.ResponseWriter, r *http.Request) {
		seen = RequestIDFromCtx(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Len(t, seen, 26)
	assert.Equal(t, seen, rec.Header().Get(requestIDHeader))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(requestIDHeader, "client-supplied")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, "client-supplied", seen)
}

func TestWriteError_Mapping(t *testing.T) {
	t.Parallel()
	tests := []struct {
		err    error
		status int
		code   string
		msg    string
	}{
		{fmt.Errorf("%w: name required", errs.ErrValidation), 400, "bad_request", "validation: name required"},
		{errs.ErrAlreadyExists, 409, "conflict", "already exists"},
		{errs.ErrInvalidCredentials, 401, "unauthorized", "invalid credentials"},
		{errs.ErrInvalidToken, 401, "unauthorized", "unauthorized"},
		{errs.ErrMalformedToken, 401, "unauthorized", "unauthorized"},
		{errs.ErrTokenRevoked, 401, "unauthorized", "unauthorized"},
		{errs.ErrUserNotFound, 401, "unauthorized", "unauthorized"},
		{errs.ErrForbidden, 403, "forbidden", "forbidden"},
		{fmt.Errorf("product 9: %w", errs.ErrNotFound), 404, "not_found", "not found"},
		{errs.RateLimited(90 * time.Second), 429, "rate_limited", "too many requests"},
		{errors.New("boom"), 500, "internal_error", "internal error"},
	}
	for _, tt := range tests {
		rec := httptest.NewRecorder()
		writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tt.err)

		var body apiError
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, tt.status, rec.Code, tt.err.Error())
		assert.Equal(t, tt.code, body.Code, tt.err.Error())
		assert.Equal(t, tt.msg, body.Message, tt.err.Error())
	}

	rec := httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errs.RateLimited(1500*time.Millisecond))
	assert.Equal(t, "2", rec.Header().Get("Retry-After"))

	rec = httptest.NewRecorder()
	writeError(rec, httptest.NewRequest(http.MethodGet, "/", nil), errs.ErrRateLimited)
	assert.Equal(t, "1", rec.Header().Get("Retry-After"))
}

func TestClientLimiter(t *testing.T) {
	t.Parallel()
	l := NewClientLimiter(0.001, 2)
	h := l.Middleware(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}))

	call := func(remote string) *httptest.ResponseRecorder {
		r := httptest.NewRequest(http.MethodGet, "/", nil)
		r.RemoteAddr = remote
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, r)
		return rec
	}

	assert.Equal(t, http.StatusNoContent, call("1.1.1.1:1000").Code)
	assert.Equal(t, http.StatusNoContent, call("1.1.1.1:2000").Code, "port does not split the bucket")
	limited := call("1.1.1.1:3000")
	assert.Equal(t, http.StatusTooManyRequests, limited.Code)
	assert.NotEmpty(t, limited.Header().Get("Retry-After"))

	assert.Equal(t, http.StatusNoContent, call("2.2.2.2:1000").Code, "other clients unaffected")
	assert.Equal(t, 2, l.Len())

	now := time.Now()
	l.now = func() time.Time { return now.Add(time.Hour) }
	assert.Equal(t, 2, l.Sweep())
	assert.Equal(t, 0, l.Len())
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()
	h := SecurityHeaders(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Equal(t, "DENY", rec.Header().Get("X-Frame-Options"))
}
