package strava

import (
	"context"
	"fmt"
	"time"

	"github.com/2beens/stravainsights/internal/telemetry/metrics"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
)

// ExpiryBuffer makes tokens count as expired slightly before they really are,
// so a token checked here cannot expire on its way upstream
const ExpiryBuffer = 5 * time.Minute

//go:generate mockgen -source=$GOFILE -destination=token_manager_mocks_test.go -package=strava_test

type tokenStore interface {
	UpdateTokens(ctx context.Context, userID int64, accessToken, refreshToken string, expiresAt time.Time) error
}

type tokenRefresher interface {
	Refresh(ctx context.Context, refreshToken string) (*TokenGrant, error)
}

type cipher interface {
	Encrypt(plaintext string) string
	Decrypt(ciphertext string) string
}

type TokenManager struct {
	store          tokenStore
	refresher      tokenRefresher
	vault          cipher
	metricsManager *metrics.Manager
	// injectable clock, used in tests
	Now func() time.Time
}

func NewTokenManager(
	store tokenStore,
	refresher tokenRefresher,
	vault cipher,
	metricsManager *metrics.Manager,
) *TokenManager {
	return &TokenManager{
		store:          store,
		refresher:      refresher,
		vault:          vault,
		metricsManager: metricsManager,
		Now:            time.Now,
	}
}

func IsExpired(expiresAt, now time.Time) bool {
	return !now.Before(expiresAt.Add(-ExpiryBuffer))
}

func (m *TokenManager) IsExpired(expiresAt time.Time) bool {
	return IsExpired(expiresAt, m.Now())
}

// EnsureFresh returns a plaintext access token for creds, refreshing it first
// when it is expired (or stored unusable)
func (m *TokenManager) EnsureFresh(ctx context.Context, creds *Credentials) (string, error) {
	if !m.IsExpired(creds.ExpiresAt) {
		if accessToken := m.vault.Decrypt(creds.AccessToken); accessToken != "" {
			return accessToken, nil
		}
		log.Warnf("token manager: stored access token of user %d unusable, refreshing", creds.UserID)
	}
	return m.ForceRefresh(ctx, creds)
}

// ForceRefresh runs the refresh token grant unconditionally, persists the new
// token set and updates creds in place. Concurrent refreshes for the same user
// are tolerated: the store write is a single update, last one wins.
func (m *TokenManager) ForceRefresh(ctx context.Context, creds *Credentials) (_ string, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.tokenManager.forceRefresh")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
		m.countRefresh(err)
	}()

	refreshToken := m.vault.Decrypt(creds.RefreshToken)
	if refreshToken == "" {
		return "", ErrNoRefreshToken
	}

	grant, err := m.refresher.Refresh(ctx, refreshToken)
	if err != nil {
		return "", err
	}

	newRefreshToken := grant.RefreshToken
	if newRefreshToken == "" {
		newRefreshToken = refreshToken
	}

	encAccessToken := m.vault.Encrypt(grant.AccessToken)
	encRefreshToken := m.vault.Encrypt(newRefreshToken)
	if encAccessToken == "" || encRefreshToken == "" {
		return "", fmt.Errorf("%w: encrypt refreshed tokens", ErrRefreshFailed)
	}

	if err := m.store.UpdateTokens(ctx, creds.UserID, encAccessToken, encRefreshToken, grant.ExpiresAt); err != nil {
		return "", fmt.Errorf("persist refreshed tokens: %w", err)
	}

	creds.AccessToken = encAccessToken
	creds.RefreshToken = encRefreshToken
	creds.ExpiresAt = grant.ExpiresAt
	log.Debugf("token manager: refreshed upstream tokens for user %d, expire at %s", creds.UserID, grant.ExpiresAt)

	return grant.AccessToken, nil
}

func (m *TokenManager) countRefresh(err error) {
	if m.metricsManager == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "failed"
	}
	m.metricsManager.CounterTokenRefreshes.WithLabelValues(outcome).Inc()
}
