package users

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/pkg"

	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=auth_handler_mocks_test.go -package=users_test

type accountStore interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	UpsertFromAthlete(ctx context.Context, athlete *strava.Athlete, tokens NewUserTokens) (*User, bool, error)
}

type oauthClient interface {
	AuthURL(state string, forcePrompt bool) string
	Exchange(ctx context.Context, code string) (*strava.TokenGrant, error)
}

type sessionStore interface {
	SessionToken(r *http.Request) string
	SetSessionToken(w http.ResponseWriter, r *http.Request, token string) error
	OAuthState(r *http.Request) string
	SetOAuthState(w http.ResponseWriter, r *http.Request, state string) error
	Clear(w http.ResponseWriter, r *http.Request) error
}

type sessionIssuer interface {
	Issue(userID int64, username string) (string, error)
	Decode(token string, allowExpired bool) (*auth.SessionClaims, error)
}

type tokenRevoker interface {
	Revoke(ctx context.Context, token string, expiresAt time.Time) error
}

type upstreamTokens interface {
	IsExpired(expiresAt time.Time) bool
	ForceRefresh(ctx context.Context, creds *strava.Credentials) (string, error)
}

type tokenEncrypter interface {
	Encrypt(plaintext string) string
}

const oauthStateLength = 32

type AuthStatusResponse struct {
	Authenticated bool  `json:"authenticated"`
	User          *User `json:"user,omitempty"`
}

type RefreshResponse struct {
	Message     string `json:"message"`
	NewJWTToken string `json:"new_jwt_token,omitempty"`
}

type AuthHandlerParams struct {
	Accounts    accountStore
	OAuth       oauthClient
	Sessions    sessionStore
	Issuer      sessionIssuer
	Revoker     tokenRevoker
	Tokens      upstreamTokens
	Vault       tokenEncrypter
	FrontendURL string
}

type AuthHandler struct {
	accounts    accountStore
	oauth       oauthClient
	sessions    sessionStore
	issuer      sessionIssuer
	revoker     tokenRevoker
	tokens      upstreamTokens
	vault       tokenEncrypter
	frontendURL string
}

func NewAuthHandler(params AuthHandlerParams) *AuthHandler {
	return &AuthHandler{
		accounts:    params.Accounts,
		oauth:       params.OAuth,
		sessions:    params.Sessions,
		issuer:      params.Issuer,
		revoker:     params.Revoker,
		tokens:      params.Tokens,
		vault:       params.Vault,
		frontendURL: strings.TrimSuffix(params.FrontendURL, "/"),
	}
}

func (handler *AuthHandler) newAuthURL(w http.ResponseWriter, r *http.Request, forcePrompt bool) (string, error) {
	state, err := pkg.GenerateRandomString(oauthStateLength)
	if err != nil {
		return "", err
	}
	if err := handler.sessions.SetOAuthState(w, r, state); err != nil {
		return "", err
	}
	return handler.oauth.AuthURL(state, forcePrompt), nil
}

func (handler *AuthHandler) HandleAuthorize(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.authorize")
	defer span.End()

	authURL, err := handler.newAuthURL(w, r, true)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	http.Redirect(w, r, authURL, http.StatusFound)
}

func (handler *AuthHandler) HandleAuthorizeURL(w http.ResponseWriter, r *http.Request) {
	_, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.authorizeUrl")
	defer span.End()

	authURL, err := handler.newAuthURL(w, r, false)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.WriteTextResponseOK(w, authURL)
}

// HandleExchangeToken is the oauth redirect target: it stores the athlete with
// encrypted tokens and sends the browser back to the frontend with a session token
func (handler *AuthHandler) HandleExchangeToken(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.exchangeToken")
	defer span.End()

	code := r.URL.Query().Get("code")
	if code == "" {
		apierr.Write(w, r, apierr.Validation("missing authorization code"))
		return
	}

	// only verified when this browser started the flow through /authorize
	if expectedState := handler.sessions.OAuthState(r); expectedState != "" {
		if r.URL.Query().Get("state") != expectedState {
			log.Warnf("exchange token: oauth state mismatch")
			apierr.Write(w, r, apierr.Validation("invalid oauth state"))
			return
		}
	}

	grant, err := handler.oauth.Exchange(ctx, code)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	user, created, err := handler.accounts.UpsertFromAthlete(ctx, grant.Athlete, NewUserTokens{
		AccessToken:  handler.vault.Encrypt(grant.AccessToken),
		RefreshToken: handler.vault.Encrypt(grant.RefreshToken),
		ExpiresAt:    grant.ExpiresAt,
	})
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	sessionToken, err := handler.issuer.Issue(user.ID, user.DisplayName())
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	if err := handler.sessions.SetOAuthState(w, r, ""); err != nil {
		log.Errorf("exchange token, reset oauth state: %s", err)
	}
	if err := handler.sessions.SetSessionToken(w, r, sessionToken); err != nil {
		apierr.Write(w, r, err)
		return
	}

	log.Infof("athlete %d logged in [user %d, new: %t]", user.StravaID, user.ID, created)
	redirectURL := handler.frontendURL + "/auth/success?token=" + url.QueryEscape(sessionToken)
	http.Redirect(w, r, redirectURL, http.StatusFound)
}

// HandleStatus never fails, an unresolved caller is just not authenticated
func (handler *AuthHandler) HandleStatus(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.status")
	defer span.End()

	identity, ok := auth.IdentityFromContext(ctx)
	if !ok {
		pkg.SendJsonResponse(w, http.StatusOK, AuthStatusResponse{Authenticated: false})
		return
	}

	user, err := handler.accounts.GetByID(ctx, identity.UserID)
	if err != nil {
		if !errors.Is(err, ErrUserNotFound) {
			log.Errorf("auth status, get user %d: %s", identity.UserID, err)
		}
		pkg.SendJsonResponse(w, http.StatusOK, AuthStatusResponse{Authenticated: false})
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, AuthStatusResponse{
		Authenticated: true,
		User:          user,
	})
}

func (handler *AuthHandler) HandleUser(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.user")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	user, err := handler.accounts.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			err = apierr.Unauthenticated("user not found")
		}
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, UserResponse{User: user})
}

// HandleLogout revokes the current session token and clears the cookie session.
// It always succeeds.
func (handler *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.logout")
	defer span.End()

	token := handler.sessions.SessionToken(r)
	if token == "" {
		token = auth.BearerToken(r)
	}

	if token != "" {
		// expired tokens still get revoked, the decode only recovers the expiry
		claims, err := handler.issuer.Decode(token, true)
		if err != nil {
			log.Debugf("logout: ignoring undecodable session token: %s", err)
		} else if err := handler.revoker.Revoke(ctx, token, claims.ExpiresAt.Time); err != nil {
			log.Errorf("logout: revoke session token of user %d: %s", claims.UserID, err)
		}
	}

	if err := handler.sessions.Clear(w, r); err != nil {
		log.Errorf("logout: clear session: %s", err)
	}

	pkg.SendJsonResponse(w, http.StatusOK, map[string]string{"message": "Logged out successfully"})
}

// HandleRefresh refreshes the upstream tokens when forced or expired, and hands
// out a new session token whenever something was refreshed
func (handler *AuthHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.auth.refresh")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	user, err := handler.accounts.GetByID(ctx, identity.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			err = apierr.Unauthenticated("user not found")
		}
		apierr.Write(w, r, err)
		return
	}

	creds := user.Credentials()
	if forceRefreshRequested(r) || handler.tokens.IsExpired(creds.ExpiresAt) {
		if _, err := handler.tokens.ForceRefresh(ctx, creds); err != nil {
			log.Warnf("refresh: upstream token refresh for user %d: %s", user.ID, err)
			apierr.Write(w, r, apierr.Unauthenticated("Token refresh failed"))
			return
		}

		sessionToken, err := handler.issueSession(w, r, user)
		if err != nil {
			apierr.Write(w, r, err)
			return
		}
		pkg.SendJsonResponse(w, http.StatusOK, RefreshResponse{
			Message:     "Tokens refreshed successfully",
			NewJWTToken: sessionToken,
		})
		return
	}

	// the authorization middleware already renewed an expired session token
	if renewed := w.Header().Get(auth.SessionTokenHeader); renewed != "" {
		pkg.SendJsonResponse(w, http.StatusOK, RefreshResponse{
			Message:     "JWT token refreshed successfully",
			NewJWTToken: renewed,
		})
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, RefreshResponse{Message: "Tokens are still valid"})
}

func (handler *AuthHandler) issueSession(w http.ResponseWriter, r *http.Request, user *User) (string, error) {
	sessionToken, err := handler.issuer.Issue(user.ID, user.DisplayName())
	if err != nil {
		return "", err
	}
	if err := handler.sessions.SetSessionToken(w, r, sessionToken); err != nil {
		return "", err
	}
	w.Header().Set(auth.SessionTokenHeader, sessionToken)
	return sessionToken, nil
}

// forceRefreshRequested reads ?force=, falling back to a {"force": true} json body
func forceRefreshRequested(r *http.Request) bool {
	if force, ok := r.URL.Query()["force"]; ok && len(force) > 0 {
		return pkg.ParseBoolFlag(force[0])
	}
	if r.Body == nil {
		return false
	}
	var body struct {
		Force bool `json:"force"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return false
	}
	return body.Force
}
