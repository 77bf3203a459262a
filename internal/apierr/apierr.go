package apierr

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/pkg"

	log "github.com/sirupsen/logrus"
)

// error kinds, every package level sentinel should wrap one of these
var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrNotFound        = errors.New("not found")
	ErrForbidden       = errors.New("forbidden")
	ErrValidation      = errors.New("validation error")
	ErrConflict        = errors.New("conflict")
)

// kindError is a sentinel with a public message, safe to show to the caller
type kindError struct {
	kind error
	msg  string
}

func (e *kindError) Error() string {
	return e.msg
}

func (e *kindError) Unwrap() error {
	return e.kind
}

func NotFound(msg string) error {
	return &kindError{kind: ErrNotFound, msg: msg}
}

func Forbidden(msg string) error {
	return &kindError{kind: ErrForbidden, msg: msg}
}

func Unauthenticated(msg string) error {
	return &kindError{kind: ErrUnauthenticated, msg: msg}
}

func Conflict(msg string) error {
	return &kindError{kind: ErrConflict, msg: msg}
}

func Validation(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// Status maps err to the http status and the message shown to the caller.
// Internals never leak: unknown errors become a generic 500.
func Status(err error) (int, string) {
	var ke *kindError
	publicMsg := func(fallback string) string {
		if errors.As(err, &ke) {
			return ke.msg
		}
		return fallback
	}

	switch {
	case err == nil:
		return http.StatusOK, ""
	case errors.Is(err, ErrValidation):
		return http.StatusBadRequest, publicMsg("invalid request")
	case errors.Is(err, ErrUnauthenticated):
		return http.StatusUnauthorized, publicMsg("not authenticated")
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden, publicMsg("forbidden")
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, publicMsg("not found")
	case errors.Is(err, ErrConflict):
		return http.StatusConflict, publicMsg("conflict")

	// upstream (strava)
	case errors.Is(err, strava.ErrUpstreamAuthFailed),
		errors.Is(err, strava.ErrRefreshFailed),
		errors.Is(err, strava.ErrNoRefreshToken):
		return http.StatusUnauthorized, "strava authorization expired, please reconnect"
	case errors.Is(err, strava.ErrUpstreamRateLimited):
		return http.StatusTooManyRequests, "strava rate limit exceeded, try again later"
	case errors.Is(err, strava.ErrUpstreamForbidden):
		return http.StatusForbidden, "strava denied access to this resource"
	case errors.Is(err, strava.ErrUpstreamNotFound):
		return http.StatusNotFound, "not found on strava"
	case errors.Is(err, strava.ErrUpstreamTimeout):
		return http.StatusGatewayTimeout, "strava request timed out"
	case errors.Is(err, strava.ErrUpstreamUnreachable),
		errors.Is(err, strava.ErrUpstreamServer),
		errors.Is(err, strava.ErrUpstreamBadStatus),
		errors.Is(err, strava.ErrUpstreamBadResponse):
		return http.StatusBadGateway, "strava request failed"
	case errors.Is(err, strava.ErrTokenExchangeFailed):
		var statusErr *strava.StatusError
		if errors.As(err, &statusErr) && statusErr.StatusCode >= 400 {
			return statusErr.StatusCode, "token exchange failed"
		}
		return http.StatusBadGateway, "token exchange failed"
	}

	return http.StatusInternalServerError, "internal server error"
}

// Write logs err and answers with {"error": "<public message>"}
func Write(w http.ResponseWriter, r *http.Request, err error) {
	status, msg := Status(err)
	if status >= http.StatusInternalServerError {
		log.Errorf("[%s %s] -> %d: %s", r.Method, r.URL.Path, status, err)
	} else {
		log.Debugf("[%s %s] -> %d: %s", r.Method, r.URL.Path, status, err)
	}
	pkg.SendErrorJson(w, status, msg)
}
