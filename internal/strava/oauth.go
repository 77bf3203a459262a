package strava

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	"golang.org/x/oauth2"
)

const DefaultOAuthBaseURL = "https://www.strava.com/oauth"

// comma separated, as strava expects it
const oauthScope = "read,activity:read_all"

type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
	BaseURL      string
}

// OAuthClient talks to the upstream oauth endpoints: authorize url,
// authorization code exchange and refresh token grant
type OAuthClient struct {
	config     *oauth2.Config
	httpClient *http.Client
}

func NewOAuthClient(cfg OAuthConfig, httpClient *http.Client) *OAuthClient {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultOAuthBaseURL
	}

	return &OAuthClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{oauthScope},
			Endpoint: oauth2.Endpoint{
				AuthURL:   baseURL + "/authorize",
				TokenURL:  baseURL + "/token",
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: httpClient,
	}
}

// AuthURL builds the upstream authorize url, forcePrompt makes the upstream
// show the consent screen even for already connected athletes
func (c *OAuthClient) AuthURL(state string, forcePrompt bool) string {
	approvalPrompt := "auto"
	if forcePrompt {
		approvalPrompt = "force"
	}
	return c.config.AuthCodeURL(state, oauth2.SetAuthURLParam("approval_prompt", approvalPrompt))
}

func (c *OAuthClient) clientCtx(ctx context.Context) context.Context {
	if c.httpClient == nil {
		return ctx
	}
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

// Exchange trades the authorization code for the first token set.
// Upstream rejections come back as *StatusError wrapping ErrTokenExchangeFailed.
func (c *OAuthClient) Exchange(ctx context.Context, code string) (_ *TokenGrant, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.oauth.exchange")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	tok, err := c.config.Exchange(c.clientCtx(ctx), code)
	if err != nil {
		var retrieveErr *oauth2.RetrieveError
		if errors.As(err, &retrieveErr) && retrieveErr.Response != nil {
			return nil, &StatusError{
				StatusCode: retrieveErr.Response.StatusCode,
				Kind:       ErrTokenExchangeFailed,
			}
		}
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}

	grant, err := grantFromToken(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrTokenExchangeFailed, err)
	}
	if grant.Athlete == nil || grant.Athlete.ID == 0 {
		return nil, fmt.Errorf("%w: missing athlete in token response", ErrTokenExchangeFailed)
	}

	return grant, nil
}

// Refresh performs the refresh_token grant. Any failure is ErrRefreshFailed.
func (c *OAuthClient) Refresh(ctx context.Context, refreshToken string) (_ *TokenGrant, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.oauth.refresh")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	// no access token, so the token source goes straight to the refresh grant
	tokenSource := c.config.TokenSource(c.clientCtx(ctx), &oauth2.Token{
		RefreshToken: refreshToken,
	})
	tok, err := tokenSource.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}

	grant, err := grantFromToken(tok)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrRefreshFailed, err)
	}
	return grant, nil
}

func grantFromToken(tok *oauth2.Token) (*TokenGrant, error) {
	if tok == nil || tok.AccessToken == "" {
		return nil, errors.New("empty access token")
	}

	grant := &TokenGrant{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		ExpiresAt:    tok.Expiry,
	}

	switch expiresAt := tok.Extra("expires_at").(type) {
	case float64:
		grant.ExpiresAt = time.Unix(int64(expiresAt), 0)
	case json.Number:
		if v, err := expiresAt.Int64(); err == nil {
			grant.ExpiresAt = time.Unix(v, 0)
		}
	}
	if grant.ExpiresAt.IsZero() {
		return nil, errors.New("missing token expiry")
	}

	if rawAthlete := tok.Extra("athlete"); rawAthlete != nil {
		athleteBytes, err := json.Marshal(rawAthlete)
		if err != nil {
			return nil, fmt.Errorf("marshal athlete: %w", err)
		}
		var athlete Athlete
		if err := json.Unmarshal(athleteBytes, &athlete); err != nil {
			return nil, fmt.Errorf("unmarshal athlete: %w", err)
		}
		grant.Athlete = &athlete
	}

	return grant, nil
}
