package activities

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=activities_test

var defaultStreamKeys = []string{"time", "distance", "heartrate"}

type activitiesRepo interface {
	List(ctx context.Context, userID int64, params ListParams) ([]Activity, int, error)
	Recent(ctx context.Context, userID int64, limit int) ([]Activity, error)
	Find(ctx context.Context, userID int64, id Identifier) (*Activity, error)
	Notable(ctx context.Context, userID int64, kind NotableKind) (*Activity, error)
	Stats(ctx context.Context, userID int64) (*Stats, error)
}

type activitySyncer interface {
	Sync(ctx context.Context, creds *strava.Credentials, after, before time.Time) (SyncResult, error)
}

type credentialsSource interface {
	Credentials(ctx context.Context, userID int64) (*strava.Credentials, error)
}

type streamsClient interface {
	Streams(ctx context.Context, creds *strava.Credentials, activityID int64, keys []string) (json.RawMessage, error)
}

type Pagination struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
	Total   int `json:"total"`
	Pages   int `json:"pages"`
}

type ListResponse struct {
	Activities []Activity `json:"activities"`
	Pagination Pagination `json:"pagination"`
}

type ActivityResponse struct {
	Activity *Activity `json:"activity"`
}

type NotableActivities struct {
	Longest       *Summary `json:"longest_activity"`
	Fastest       *Summary `json:"fastest_activity"`
	MostElevation *Summary `json:"most_elevation_activity"`
}

type StatsResponse struct {
	Stats             *Stats            `json:"stats"`
	NotableActivities NotableActivities `json:"notable_activities"`
}

type SyncResponse struct {
	Message    string     `json:"message"`
	SyncResult SyncResult `json:"sync_result"`
	DateRange  DateRange  `json:"date_range"`
}

type Handler struct {
	repo        activitiesRepo
	syncer      activitySyncer
	credentials credentialsSource
	upstream    streamsClient
	now         func() time.Time
}

func NewHandler(
	repo activitiesRepo,
	syncer activitySyncer,
	credentials credentialsSource,
	upstream streamsClient,
) *Handler {
	return &Handler{
		repo:        repo,
		syncer:      syncer,
		credentials: credentials,
		upstream:    upstream,
		now:         time.Now,
	}
}

// accepts RFC 3339 timestamps and plain dates
func parseTimeParam(name, raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, apierr.Validation("invalid %s: expected an ISO-8601 date", name)
}

func parseStreamKeys(raw string) []string {
	var keys []string
	for _, key := range strings.Split(raw, ",") {
		if key = strings.TrimSpace(key); key != "" {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return defaultStreamKeys
	}
	return keys
}

func (handler *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.list")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	query := r.URL.Query()
	page, err := pkg.IntQueryParam(query.Get("page"), 1, 1, 1<<20)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid page: %s", err))
		return
	}
	perPage, err := pkg.IntQueryParam(query.Get("per_page"), 30, 1, 100)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid per_page: %s", err))
		return
	}
	after, err := parseTimeParam("after", query.Get("after"))
	if err != nil {
		apierr.Write(w, r, err)
		return
	}
	before, err := parseTimeParam("before", query.Get("before"))
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	params := ListParams{
		Filter: Filter{
			ActivityType: query.Get("activity_type"),
			After:        after,
			Before:       before,
		},
		Page:    page,
		PerPage: perPage,
	}
	span.SetAttributes(
		attribute.Int("page", page),
		attribute.Int("per_page", perPage),
	)

	activities, total, err := handler.repo.List(ctx, identity.UserID, params)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ListResponse{
		Activities: activities,
		Pagination: Pagination{
			Page:    page,
			PerPage: perPage,
			Total:   total,
			Pages:   (total + perPage - 1) / perPage,
		},
	})
}

func (handler *Handler) HandleRecent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.recent")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	limit, err := pkg.IntQueryParam(r.URL.Query().Get("limit"), 10, 1, 50)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid limit: %s", err))
		return
	}

	activities, err := handler.repo.Recent(ctx, identity.UserID, limit)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, map[string][]Activity{"activities": activities})
}

func (handler *Handler) notable(ctx context.Context, userID int64, kind NotableKind) (*Summary, error) {
	activity, err := handler.repo.Notable(ctx, userID, kind)
	if errors.Is(err, ErrActivityNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	summary := activity.Summary()
	return &summary, nil
}

func (handler *Handler) HandleStatsSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.statsSummary")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	stats, err := handler.repo.Stats(ctx, identity.UserID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	var notable NotableActivities
	for _, n := range []struct {
		kind NotableKind
		dst  **Summary
	}{
		{NotableLongest, &notable.Longest},
		{NotableFastest, &notable.Fastest},
		{NotableMostElevation, &notable.MostElevation},
	} {
		if *n.dst, err = handler.notable(ctx, identity.UserID, n.kind); err != nil {
			apierr.Write(w, r, err)
			return
		}
	}

	pkg.SendJsonResponse(w, http.StatusOK, StatsResponse{
		Stats:             stats,
		NotableActivities: notable,
	})
}

func (handler *Handler) HandleSync(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.sync")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	daysBack, err := pkg.IntQueryParam(r.URL.Query().Get("days_back"), 30, 1, 365)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid days_back: %s", err))
		return
	}
	span.SetAttributes(attribute.Int("days_back", daysBack))

	creds, err := handler.credentials.Credentials(ctx, identity.UserID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	window := TrailingWindow(handler.now(), daysBack)
	result, err := handler.syncer.Sync(ctx, creds, window.StartDate, window.EndDate)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	message := "Activities synced successfully"
	if result.Total == 0 {
		message = "No activities found in the specified date range"
	}

	log.Debugf("activities sync for user %d: %+v", identity.UserID, result)
	pkg.SendJsonResponse(w, http.StatusOK, SyncResponse{
		Message:    message,
		SyncResult: result,
		DateRange:  window,
	})
}

func (handler *Handler) HandleGetByStravaID(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.getByStravaId")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	stravaID, err := strconv.ParseInt(mux.Vars(r)["strava_id"], 10, 64)
	if err != nil || stravaID <= 0 {
		apierr.Write(w, r, ErrActivityNotFound)
		return
	}

	activity, err := handler.repo.Find(ctx, identity.UserID, ExternalID(stravaID))
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ActivityResponse{Activity: activity})
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.get")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	activity, err := Resolve(ctx, handler.repo, identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, ActivityResponse{Activity: activity})
}

func (handler *Handler) HandleStreams(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.activities.streams")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	activity, err := Resolve(ctx, handler.repo, identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	creds, err := handler.credentials.Credentials(ctx, identity.UserID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	streams, err := handler.upstream.Streams(ctx, creds, activity.StravaID, parseStreamKeys(r.URL.Query().Get("keys")))
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, map[string]any{
		"activity_id": strconv.FormatInt(activity.ID, 10),
		"strava_id":   activity.StravaID,
		"streams":     streams,
	})
}
