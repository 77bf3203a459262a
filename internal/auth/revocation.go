package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strconv"
	"time"

	"github.com/go-redis/redis/v8"
	log "github.com/sirupsen/logrus"
)

const (
	revokedKeyPrefix = "stravainsights-revoked||"
	revokedSetKey    = "stravainsights-revoked-tokens"
)

// Revoker keeps a deny-list of logged out session tokens until they would
// expire anyway
type Revoker struct {
	redisClient *redis.Client
	Now         func() time.Time
}

func NewRevoker(redisClient *redis.Client) *Revoker {
	return &Revoker{
		redisClient: redisClient,
		Now:         time.Now,
	}
}

func tokenFingerprint(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

func (rv *Revoker) Revoke(ctx context.Context, token string, expiresAt time.Time) error {
	ttl := expiresAt.Sub(rv.Now())
	if ttl <= 0 {
		// already expired, nothing to deny
		return nil
	}

	fingerprint := tokenFingerprint(token)
	if err := rv.redisClient.Set(ctx, revokedKeyPrefix+fingerprint, expiresAt.Unix(), ttl).Err(); err != nil {
		return err
	}

	// tracking set, used by ScanAndClean
	return rv.redisClient.SAdd(ctx, revokedSetKey, fingerprint).Err()
}

func (rv *Revoker) IsRevoked(ctx context.Context, token string) (bool, error) {
	cmd := rv.redisClient.Exists(ctx, revokedKeyPrefix+tokenFingerprint(token))
	if err := cmd.Err(); err != nil {
		return false, err
	}
	return cmd.Val() > 0, nil
}

// ScanAndClean will run through the tracking set and remove the entries that
// are past their expiry (or whose keys redis already dropped)
func (rv *Revoker) ScanAndClean(ctx context.Context) {
	cmd := rv.redisClient.SMembers(ctx, revokedSetKey)
	if err := cmd.Err(); err != nil {
		log.Errorf("!!! revoker, scan and clean, get revoked tokens: %s", err)
		return
	}

	fingerprints := cmd.Val()
	if len(fingerprints) == 0 {
		log.Debugln("=> revoker, scan and clean abort, no revoked tokens")
		return
	}

	log.Debugf("=> revoker, scan and clean [%d revoked tokens] start ...", len(fingerprints))
	now := rv.Now()
	var toRemove []string
	for _, fingerprint := range fingerprints {
		getCmd := rv.redisClient.Get(ctx, revokedKeyPrefix+fingerprint)
		if err := getCmd.Err(); err != nil {
			if errors.Is(err, redis.Nil) {
				toRemove = append(toRemove, fingerprint)
				continue
			}
			log.Errorf("=> revoker, scan and clean %s: %s", fingerprint, err)
			continue
		}

		expiresAtUnix, err := strconv.ParseInt(getCmd.Val(), 10, 64)
		if err != nil {
			log.Errorf("=> revoker, scan and clean %s: %s", fingerprint, err)
			toRemove = append(toRemove, fingerprint)
			continue
		}

		if now.After(time.Unix(expiresAtUnix, 0)) {
			toRemove = append(toRemove, fingerprint)
		}
	}

	for _, fingerprint := range toRemove {
		if err := rv.redisClient.Del(ctx, revokedKeyPrefix+fingerprint).Err(); err != nil {
			log.Errorf("=> revoker, clean %s: %s", fingerprint, err)
			continue
		}
		if err := rv.redisClient.SRem(ctx, revokedSetKey, fingerprint).Err(); err != nil {
			log.Errorf("=> revoker, clean %s: %s", fingerprint, err)
			continue
		}
	}
	log.Debugf("=> revoker, scan and clean done, removed %d entries", len(toRemove))
}
