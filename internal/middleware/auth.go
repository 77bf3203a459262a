package middleware

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/metrics"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/internal/users"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

//go:generate mockgen -source=$GOFILE -destination=auth_mocks_test.go -package=middleware_test

var errTokenRevoked = fmt.Errorf("%w: revoked", auth.ErrInvalidToken)

type sessionTokens interface {
	SessionToken(r *http.Request) string
	SetSessionToken(w http.ResponseWriter, r *http.Request, token string) error
}

type sessionIssuer interface {
	Issue(userID int64, username string) (string, error)
	Decode(token string, allowExpired bool) (*auth.SessionClaims, error)
}

type revocationChecker interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type userLookup interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

type upstreamTokens interface {
	IsExpired(expiresAt time.Time) bool
	EnsureFresh(ctx context.Context, creds *strava.Credentials) (string, error)
}

// SessionRenewal is a fresh session token issued in place of an expired one.
// Whoever serves the request hands it back to the caller.
type SessionRenewal struct {
	Token string
}

type AuthorizerParams struct {
	Sessions       sessionTokens
	Issuer         sessionIssuer
	Revoker        revocationChecker
	Users          userLookup
	Tokens         upstreamTokens
	MetricsManager *metrics.Manager
}

type Authorizer struct {
	sessions       sessionTokens
	issuer         sessionIssuer
	revoker        revocationChecker
	users          userLookup
	tokens         upstreamTokens
	metricsManager *metrics.Manager
}

func NewAuthorizer(params AuthorizerParams) *Authorizer {
	return &Authorizer{
		sessions:       params.Sessions,
		issuer:         params.Issuer,
		revoker:        params.Revoker,
		users:          params.Users,
		tokens:         params.Tokens,
		metricsManager: params.MetricsManager,
	}
}

// the cookie session wins over the bearer header
func (a *Authorizer) sessionToken(r *http.Request) string {
	if token := a.sessions.SessionToken(r); token != "" {
		return token
	}
	return auth.BearerToken(r)
}

// decode returns the claims of token, and whether they came from an expired
// token (which then has to be renewed)
func (a *Authorizer) decode(ctx context.Context, token string) (*auth.SessionClaims, bool, error) {
	revoked, err := a.revoker.IsRevoked(ctx, token)
	if err != nil {
		return nil, false, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, false, errTokenRevoked
	}

	claims, err := a.issuer.Decode(token, false)
	if err == nil {
		return claims, false, nil
	}
	if !errors.Is(err, auth.ErrTokenExpired) {
		return nil, false, err
	}

	// expired but genuine: only used to find out whose session it was
	claims, err = a.issuer.Decode(token, true)
	if err != nil {
		return nil, false, err
	}
	return claims, true, nil
}

// Authorize resolves the caller of r. A nil identity means the caller is not
// authenticated, which is not an error by itself.
func (a *Authorizer) Authorize(r *http.Request) (*auth.Identity, *SessionRenewal) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "middleware.auth.authorize")
	defer span.End()

	token := a.sessionToken(r)
	if token == "" {
		span.SetStatus(codes.Ok, "no-token")
		return nil, nil
	}

	claims, expired, err := a.decode(ctx, token)
	if err != nil {
		log.Tracef("[invalid token] [auth middleware] %s: %s", r.URL.Path, err)
		span.SetStatus(codes.Error, "invalid-token")
		return nil, nil
	}
	span.SetAttributes(
		attribute.Int64("user.id", claims.UserID),
		attribute.Bool("session.expired", expired),
	)

	user, err := a.users.GetByID(ctx, claims.UserID)
	if err != nil {
		if !errors.Is(err, users.ErrUserNotFound) {
			log.Errorf("[auth middleware] get user %d: %s", claims.UserID, err)
		}
		span.SetStatus(codes.Error, "user-not-resolved")
		return nil, nil
	}

	// a dead upstream grant is not an authorized session either
	if creds := user.Credentials(); a.tokens.IsExpired(creds.ExpiresAt) {
		if _, err := a.tokens.EnsureFresh(ctx, creds); err != nil {
			log.Warnf("[auth middleware] upstream tokens of user %d: %s", user.ID, err)
			span.SetStatus(codes.Error, "upstream-token-stale")
			span.RecordError(err)
			return nil, nil
		}
	}

	identity := &auth.Identity{
		UserID:      user.ID,
		StravaID:    user.StravaID,
		DisplayName: user.DisplayName(),
	}
	span.SetStatus(codes.Ok, "ok")

	if !expired {
		return identity, nil
	}

	renewed, err := a.issuer.Issue(user.ID, user.DisplayName())
	if err != nil {
		log.Errorf("[auth middleware] renew session token of user %d: %s", user.ID, err)
		return identity, nil
	}
	a.metricsManager.CounterSessionRenewals.Inc()
	return identity, &SessionRenewal{Token: renewed}
}

func (a *Authorizer) applyRenewal(w http.ResponseWriter, r *http.Request, renewal *SessionRenewal) {
	if renewal == nil {
		return
	}
	if err := a.sessions.SetSessionToken(w, r, renewal.Token); err != nil {
		log.Errorf("[auth middleware] save renewed session token: %s", err)
	}
	w.Header().Set(auth.SessionTokenHeader, renewal.Token)
}

// RequireAuth answers 401 to callers that cannot be resolved
func (a *Authorizer) RequireAuth() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, renewal := a.Authorize(r)
			if identity == nil {
				apierr.Write(w, r, apierr.Unauthenticated("authentication required"))
				return
			}

			a.applyRenewal(w, r, renewal)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}

// OptionalAuth attaches the identity when there is one
func (a *Authorizer) OptionalAuth() func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			identity, renewal := a.Authorize(r)
			if identity == nil {
				next.ServeHTTP(w, r)
				return
			}

			a.applyRenewal(w, r, renewal)
			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), identity)))
		})
	}
}
