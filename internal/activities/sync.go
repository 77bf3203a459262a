package activities

import (
	"context"
	"time"

	"github.com/2beens/stravainsights/internal/events"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/metrics"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=sync_mocks_test.go -package=activities_test

const (
	syncPageSize = 100
	syncMaxPages = 10
)

type upstreamActivities interface {
	ListActivities(ctx context.Context, creds *strava.Credentials, params strava.ListActivitiesParams) ([]strava.Activity, error)
}

type activityUpserter interface {
	UpsertBatch(ctx context.Context, batch []Activity) (SyncResult, []Upserted, error)
}

type eventPublisher interface {
	Publish(ctx context.Context, evs ...events.Event) error
}

type SyncedEventPayload struct {
	ActivityID int64 `json:"activity_id,string"`
	StravaID   int64 `json:"strava_id"`
	Created    bool  `json:"created"`
}

// Syncer pulls a window of activities from strava into the record store
type Syncer struct {
	upstream       upstreamActivities
	store          activityUpserter
	publisher      eventPublisher
	metricsManager *metrics.Manager
}

func NewSyncer(
	upstream upstreamActivities,
	store activityUpserter,
	publisher eventPublisher,
	metricsManager *metrics.Manager,
) *Syncer {
	return &Syncer{
		upstream:       upstream,
		store:          store,
		publisher:      publisher,
		metricsManager: metricsManager,
	}
}

// Sync fetches [after, before] page by page until a short page (at most
// syncMaxPages pages) and upserts everything in one batch
func (s *Syncer) Sync(ctx context.Context, creds *strava.Credentials, after, before time.Time) (_ SyncResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "activities.syncer.sync")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", creds.UserID))

	started := time.Now()
	defer func() {
		s.metricsManager.HistogramSyncDuration.Observe(time.Since(started).Seconds())
	}()

	var toStore []Activity
	for page := 1; page <= syncMaxPages; page++ {
		fetched, err := s.upstream.ListActivities(ctx, creds, strava.ListActivitiesParams{
			Page:    page,
			PerPage: syncPageSize,
			After:   after,
			Before:  before,
		})
		if err != nil {
			return SyncResult{}, err
		}

		for i := range fetched {
			toStore = append(toStore, FromStrava(creds.UserID, &fetched[i]))
		}
		if len(fetched) < syncPageSize {
			break
		}
	}
	toStore = dedupeByStravaID(toStore)
	span.SetAttributes(attribute.Int("activities.fetched", len(toStore)))

	result, upserted, err := s.store.UpsertBatch(ctx, toStore)
	if err != nil {
		return SyncResult{}, err
	}

	s.metricsManager.CounterSyncedActivities.WithLabelValues("created").Add(float64(result.Created))
	s.metricsManager.CounterSyncedActivities.WithLabelValues("updated").Add(float64(result.Updated))
	s.metricsManager.CounterSyncedActivities.WithLabelValues("failed").Add(float64(result.Failed))

	s.publishSynced(ctx, creds.UserID, upserted)

	log.Debugf(
		"user %d synced: created %d, updated %d, failed %d, total %d",
		creds.UserID, result.Created, result.Updated, result.Failed, result.Total,
	)
	return result, nil
}

// pages can shift while paging, so an activity may be listed twice.
// The later copy wins and keeps the position of the first one.
func dedupeByStravaID(batch []Activity) []Activity {
	index := make(map[int64]int, len(batch))
	deduped := batch[:0]
	for _, a := range batch {
		if i, ok := index[a.StravaID]; ok {
			deduped[i] = a
			continue
		}
		index[a.StravaID] = len(deduped)
		deduped = append(deduped, a)
	}
	return deduped
}

// publishing is best effort, the records are stored already
func (s *Syncer) publishSynced(ctx context.Context, userID int64, upserted []Upserted) {
	if len(upserted) == 0 {
		return
	}

	syncedEvents := make([]events.Event, 0, len(upserted))
	for _, u := range upserted {
		event, err := events.NewEvent(events.TypeActivitySynced, userID, SyncedEventPayload{
			ActivityID: u.ID,
			StravaID:   u.StravaID,
			Created:    u.Created,
		})
		if err != nil {
			log.Errorf("new activity synced event: %s", err)
			continue
		}
		syncedEvents = append(syncedEvents, event)
	}

	if err := s.publisher.Publish(ctx, syncedEvents...); err != nil {
		log.Errorf("publish %d activity synced events for user %d: %s", len(syncedEvents), userID, err)
	}
}
