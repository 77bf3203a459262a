package strava

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	"github.com/coocood/freecache"
	log "github.com/sirupsen/logrus"
)

const (
	fifteenMinutes        = 15 * 60
	athleteStatsCacheTTL  = fifteenMinutes
	DefaultStatsCacheSize = 8 * 1024 * 1024
	MaxActivitiesPerPage  = 200
)

//go:generate mockgen -source=$GOFILE -destination=client_mocks_test.go -package=strava_test

type caller interface {
	Call(ctx context.Context, creds *Credentials, method, path string, params url.Values) ([]byte, error)
}

// Client is the typed view over the upstream resource api
type Client struct {
	gateway    caller
	statsCache *freecache.Cache
}

func NewClient(gateway caller, statsCache *freecache.Cache) *Client {
	if statsCache == nil {
		statsCache = freecache.NewCache(DefaultStatsCacheSize)
	}
	return &Client{
		gateway:    gateway,
		statsCache: statsCache,
	}
}

func (c *Client) Athlete(ctx context.Context, creds *Credentials) (*Athlete, error) {
	body, err := c.gateway.Call(ctx, creds, http.MethodGet, "/athlete", nil)
	if err != nil {
		return nil, err
	}

	var athlete Athlete
	if err := json.Unmarshal(body, &athlete); err != nil {
		return nil, fmt.Errorf("%w: athlete: %w", ErrUpstreamBadResponse, err)
	}
	return &athlete, nil
}

func (c *Client) ListActivities(ctx context.Context, creds *Credentials, params ListActivitiesParams) ([]Activity, error) {
	query := url.Values{}
	page := params.Page
	if page < 1 {
		page = 1
	}
	perPage := params.PerPage
	if perPage < 1 || perPage > MaxActivitiesPerPage {
		perPage = 30
	}
	query.Set("page", strconv.Itoa(page))
	query.Set("per_page", strconv.Itoa(perPage))
	if !params.After.IsZero() {
		query.Set("after", strconv.FormatInt(params.After.Unix(), 10))
	}
	if !params.Before.IsZero() {
		query.Set("before", strconv.FormatInt(params.Before.Unix(), 10))
	}

	body, err := c.gateway.Call(ctx, creds, http.MethodGet, "/athlete/activities", query)
	if err != nil {
		return nil, err
	}

	var rawActivities []json.RawMessage
	if err := json.Unmarshal(body, &rawActivities); err != nil {
		return nil, fmt.Errorf("%w: activities: %w", ErrUpstreamBadResponse, err)
	}

	activities := make([]Activity, 0, len(rawActivities))
	for _, raw := range rawActivities {
		activity, err := decodeActivity(raw)
		if err != nil {
			log.Warnf("strava client: skip undecodable activity: %s", err)
			continue
		}
		activities = append(activities, *activity)
	}
	return activities, nil
}

// Streams passes the upstream streams payload through, keyed by stream type
func (c *Client) Streams(ctx context.Context, creds *Credentials, activityID int64, keys []string) (json.RawMessage, error) {
	query := url.Values{}
	query.Set("key_by_type", "true")
	if len(keys) > 0 {
		query.Set("keys", strings.Join(keys, ","))
	}

	body, err := c.gateway.Call(ctx, creds, http.MethodGet, fmt.Sprintf("/activities/%d/streams", activityID), query)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: streams", ErrUpstreamBadResponse)
	}
	return body, nil
}

// AthleteStats returns the upstream totals of the athlete, cached for 15 minutes
func (c *Client) AthleteStats(ctx context.Context, creds *Credentials, athleteID int64) (_ json.RawMessage, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "strava.client.athleteStats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	cacheKey := []byte(fmt.Sprintf("athlete-stats::%d", athleteID))
	if cached, err := c.statsCache.Get(cacheKey); err == nil {
		log.Tracef("athlete stats for %d found in cache", athleteID)
		return cached, nil
	}

	body, err := c.gateway.Call(ctx, creds, http.MethodGet, fmt.Sprintf("/athletes/%d/stats", athleteID), nil)
	if err != nil {
		return nil, err
	}
	if !json.Valid(body) {
		return nil, fmt.Errorf("%w: athlete stats", ErrUpstreamBadResponse)
	}

	if err := c.statsCache.Set(cacheKey, body, athleteStatsCacheTTL); err != nil {
		log.Errorf("failed to cache athlete stats for %d: %s", athleteID, err)
	}

	return body, nil
}

func decodeActivity(raw []byte) (*Activity, error) {
	var activity Activity
	if err := json.Unmarshal(raw, &activity); err != nil {
		return nil, err
	}
	if activity.ID == 0 {
		return nil, fmt.Errorf("activity without id")
	}
	activity.Raw = append(json.RawMessage(nil), raw...)
	return &activity, nil
}
