package strava

import (
	"errors"
	"fmt"
)

var (
	ErrUpstreamAuthFailed  = errors.New("upstream authorization failed")
	ErrUpstreamForbidden   = errors.New("upstream access forbidden")
	ErrUpstreamNotFound    = errors.New("upstream resource not found")
	ErrUpstreamRateLimited = errors.New("upstream rate limit exceeded")
	ErrUpstreamServer      = errors.New("upstream server error")
	ErrUpstreamBadStatus   = errors.New("unexpected upstream status")
	ErrUpstreamTimeout     = errors.New("upstream request timed out")
	ErrUpstreamUnreachable = errors.New("upstream unreachable")
	ErrUpstreamBadResponse = errors.New("malformed upstream response")

	ErrNoRefreshToken      = errors.New("no usable refresh token")
	ErrRefreshFailed       = errors.New("upstream token refresh failed")
	ErrTokenExchangeFailed = errors.New("upstream token exchange failed")
)

// StatusError carries the upstream status code next to its error kind
type StatusError struct {
	StatusCode int
	Kind       error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d", e.Kind, e.StatusCode)
}

func (e *StatusError) Unwrap() error {
	return e.Kind
}

func errorKindForStatus(statusCode int) error {
	switch {
	case statusCode == 401:
		return ErrUpstreamAuthFailed
	case statusCode == 403:
		return ErrUpstreamForbidden
	case statusCode == 404:
		return ErrUpstreamNotFound
	case statusCode == 429:
		return ErrUpstreamRateLimited
	case statusCode >= 500:
		return ErrUpstreamServer
	default:
		return ErrUpstreamBadStatus
	}
}
