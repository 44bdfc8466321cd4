package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/and161185/storefront/internal/errs"
)

// apiError is the body of every error response.
type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	status  int
}

func (e apiError) withMessage(msg string) apiError {
	e.Message = msg
	return e
}

var (
	apiBadRequest   = apiError{Code: "bad_request", Message: "invalid request", status: http.StatusBadRequest}
	apiUnauthorized = apiError{Code: "unauthorized", Message: "unauthorized", status: http.StatusUnauthorized}
	apiForbidden    = apiError{Code: "forbidden", Message: "forbidden", status: http.StatusForbidden}
	apiNotFound     = apiError{Code: "not_found", Message: "not found", status: http.StatusNotFound}
	apiConflict     = apiError{Code: "conflict", Message: "already exists", status: http.StatusConflict}
	apiRateLimited  = apiError{Code: "rate_limited", Message: "too many requests", status: http.StatusTooManyRequests}
	apiInternal     = apiError{Code: "internal_error", Message: "internal error", status: http.StatusInternalServerError}
)

type okBody struct {
	OK bool `json:"ok"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeOK(w http.ResponseWriter) {
	writeJSON(w, http.StatusOK, okBody{OK: true})
}

func writeAPIError(w http.ResponseWriter, e apiError) {
	writeJSON(w, e.status, e)
}

// writeError maps a service error onto a status and a safe message. The
// cause is attached to the request so the access log can carry it.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	noteError(r.Context(), err)

	var rl *errs.RateLimitError
	if errors.As(err, &rl) {
		w.Header().Set("Retry-After", retryAfterSeconds(rl.RetryAfter))
	}

	switch {
	case errors.Is(err, errs.ErrValidation):
		writeAPIError(w, apiBadRequest.withMessage(err.Error()))
	case errors.Is(err, errs.ErrAlreadyExists):
		writeAPIError(w, apiConflict)
	case errors.Is(err, errs.ErrInvalidCredentials):
		writeAPIError(w, apiUnauthorized.withMessage("invalid credentials"))
	case errors.Is(err, errs.ErrUnauthorized):
		writeAPIError(w, apiUnauthorized)
	case errors.Is(err, errs.ErrForbidden):
		writeAPIError(w, apiForbidden)
	case errors.Is(err, errs.ErrNotFound):
		writeAPIError(w, apiNotFound)
	case errors.Is(err, errs.ErrRateLimited):
		if rl == nil {
			w.Header().Set("Retry-After", "1")
		}
		writeAPIError(w, apiRateLimited)
	default:
		writeAPIError(w, apiInternal)
	}
}

func retryAfterSeconds(d time.Duration) string {
	return strconv.Itoa(max(1, int(math.Ceil(d.Seconds()))))
}

// reqNote collects what handlers want the access log to see.
type reqNote struct {
	err error
}

const noteKey ctxKey = "sf.note"

func withNote(ctx context.Context) (context.Context, *reqNote) {
	n := &reqNote{}
	return context.WithValue(ctx, noteKey, n), n
}

func noteError(ctx context.Context, err error) {
	if n, ok := ctx.Value(noteKey).(*reqNote); ok {
		n.err = err
	}
}
