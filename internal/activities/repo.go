package activities

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/pkg"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

var ErrActivityNotFound = apierr.NotFound("activity not found")

var ErrOwnerGone = apierr.Unauthenticated("user not found")

// activity owned by another user, the upsert refuses to move it
var errForeignActivity = errors.New("activity belongs to another user")

var upsertColumns = []string{
	"strava_id", "user_id", "name", "description", "distance", "moving_time", "elapsed_time",
	"total_elevation_gain", "activity_type", "sport_type", "start_date", "start_date_local",
	"timezone", "utc_offset", "start_latlng", "end_latlng", "location_city", "location_state",
	"location_country", "achievement_count", "kudos_count", "comment_count", "athlete_count",
	"photo_count", "trainer", "commute", "manual", "private", "average_speed", "max_speed",
	"average_cadence", "average_temp", "average_watts", "weighted_average_watts", "kilojoules",
	"has_heartrate", "average_heartrate", "max_heartrate", "elev_high", "elev_low",
	"suffer_score", "calories", "gear_id", "raw_data",
}

var (
	listColumns   = "id, " + strings.Join(upsertColumns[:len(upsertColumns)-1], ", ") + ", insights, created_at, updated_at"
	detailColumns = listColumns + ", raw_data"

	upsertActivitySQL = buildUpsertSQL()
)

func buildUpsertSQL() string {
	placeholders := make([]string, len(upsertColumns))
	var updates []string
	for i, col := range upsertColumns {
		placeholders[i] = fmt.Sprintf("$%d", i+1)
		if col == "strava_id" || col == "user_id" {
			continue
		}
		updates = append(updates, col+" = EXCLUDED."+col)
	}
	updates = append(updates, "updated_at = now()")

	return `INSERT INTO activity (` + strings.Join(upsertColumns, ", ") + `)
		VALUES (` + strings.Join(placeholders, ", ") + `)
		ON CONFLICT (strava_id) DO UPDATE SET ` + strings.Join(updates, ", ") + `
		WHERE activity.user_id = EXCLUDED.user_id
		RETURNING id, (xmax = 0);`
}

func upsertArgs(a *Activity) []any {
	var rawData any
	if len(a.RawData) > 0 {
		rawData = []byte(a.RawData)
	}
	return []any{
		a.StravaID, a.UserID, a.Name, a.Description, a.Distance, a.MovingTime, a.ElapsedTime,
		a.TotalElevationGain, a.ActivityType, a.SportType, a.StartDate.UTC(), a.StartDateLocal,
		a.Timezone, a.UTCOffset, a.StartLatLng, a.EndLatLng, a.LocationCity, a.LocationState,
		a.LocationCountry, a.AchievementCount, a.KudosCount, a.CommentCount, a.AthleteCount,
		a.PhotoCount, a.Trainer, a.Commute, a.Manual, a.Private, a.AverageSpeed, a.MaxSpeed,
		a.AverageCadence, a.AverageTemp, a.AverageWatts, a.WeightedAverageWatts, a.Kilojoules,
		a.HasHeartrate, a.AverageHeartrate, a.MaxHeartrate, a.ElevHigh, a.ElevLow,
		a.SufferScore, a.Calories, a.GearID, rawData,
	}
}

func scanActivity(row pgx.Row, withRaw bool) (*Activity, error) {
	var a Activity
	var insightsJson []byte
	dest := []any{
		&a.ID, &a.StravaID, &a.UserID, &a.Name, &a.Description, &a.Distance, &a.MovingTime, &a.ElapsedTime,
		&a.TotalElevationGain, &a.ActivityType, &a.SportType, &a.StartDate, &a.StartDateLocal,
		&a.Timezone, &a.UTCOffset, &a.StartLatLng, &a.EndLatLng, &a.LocationCity, &a.LocationState,
		&a.LocationCountry, &a.AchievementCount, &a.KudosCount, &a.CommentCount, &a.AthleteCount,
		&a.PhotoCount, &a.Trainer, &a.Commute, &a.Manual, &a.Private, &a.AverageSpeed, &a.MaxSpeed,
		&a.AverageCadence, &a.AverageTemp, &a.AverageWatts, &a.WeightedAverageWatts, &a.Kilojoules,
		&a.HasHeartrate, &a.AverageHeartrate, &a.MaxHeartrate, &a.ElevHigh, &a.ElevLow,
		&a.SufferScore, &a.Calories, &a.GearID, &insightsJson, &a.CreatedAt, &a.UpdatedAt,
	}
	var rawData []byte
	if withRaw {
		dest = append(dest, &rawData)
	}

	if err := row.Scan(dest...); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("scan activity: %w", err)
	}

	if len(insightsJson) > 0 {
		var insight Insight
		if err := json.Unmarshal(insightsJson, &insight); err != nil {
			log.Warnf("activity %d: undecodable insights: %s", a.ID, err)
		} else {
			a.Insights = &insight
		}
	}
	if len(rawData) > 0 {
		a.RawData = rawData
	}

	return &a, nil
}

type Filter struct {
	ActivityType string
	// inclusive bounds on the start date, zero means unbounded
	After  time.Time
	Before time.Time
}

type ListParams struct {
	Filter
	Page    int
	PerPage int
}

type SyncResult struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Failed  int `json:"failed"`
	Total   int `json:"total"`
}

type Upserted struct {
	ID       int64
	StravaID int64
	Created  bool
}

type NotableKind string

const (
	NotableLongest       NotableKind = "longest"
	NotableFastest       NotableKind = "fastest"
	NotableMostElevation NotableKind = "most_elevation"
)

var notableColumns = map[NotableKind]string{
	NotableLongest:       "distance",
	NotableFastest:       "average_speed",
	NotableMostElevation: "total_elevation_gain",
}

type Repo struct {
	db *pgxpool.Pool
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{
		db: db,
	}
}

func nullableTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	utc := t.UTC()
	return &utc
}

// UpsertBatch stores the activities keyed by their strava id. All rows go in a
// single batch; if the batch fails it is replayed row by row, so a bad row is
// only counted as failed.
func (r *Repo) UpsertBatch(ctx context.Context, activities []Activity) (_ SyncResult, _ []Upserted, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.upsertBatch")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int("activities.count", len(activities)))

	result := SyncResult{Total: len(activities)}
	if len(activities) == 0 {
		return result, nil, nil
	}

	outcomes, batchErr := r.upsertBatch(ctx, activities)
	if pkg.IsForeignKeyViolationError(batchErr) {
		// the owner was deleted while syncing, replaying would fail every row
		return SyncResult{}, nil, ErrOwnerGone
	}
	if batchErr != nil {
		log.Warnf("activities batch upsert failed, replaying row by row: %s", batchErr)
		outcomes = make([]upsertOutcome, len(activities))
		for i := range activities {
			outcomes[i] = r.upsertOne(ctx, &activities[i])
		}
	}

	upserted := make([]Upserted, 0, len(activities))
	for i, outcome := range outcomes {
		if outcome.err != nil {
			log.Errorf("upsert activity %d of user %d: %s", activities[i].StravaID, activities[i].UserID, outcome.err)
			result.Failed++
			continue
		}
		if outcome.created {
			result.Created++
		} else {
			result.Updated++
		}
		upserted = append(upserted, Upserted{
			ID:       outcome.id,
			StravaID: activities[i].StravaID,
			Created:  outcome.created,
		})
	}

	span.SetAttributes(
		attribute.Int("activities.created", result.Created),
		attribute.Int("activities.updated", result.Updated),
		attribute.Int("activities.failed", result.Failed),
	)

	return result, upserted, nil
}

type upsertOutcome struct {
	id      int64
	created bool
	err     error
}

func scanUpsert(row pgx.Row) upsertOutcome {
	var outcome upsertOutcome
	if err := row.Scan(&outcome.id, &outcome.created); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			outcome.err = errForeignActivity
		} else {
			outcome.err = err
		}
	}
	return outcome
}

func (r *Repo) upsertBatch(ctx context.Context, activities []Activity) (_ []upsertOutcome, err error) {
	batch := &pgx.Batch{}
	for i := range activities {
		batch.Queue(upsertActivitySQL, upsertArgs(&activities[i])...)
	}

	br := r.db.SendBatch(ctx, batch)
	defer func() {
		if closeErr := br.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}()

	outcomes := make([]upsertOutcome, len(activities))
	for i := range activities {
		outcomes[i] = scanUpsert(br.QueryRow())
		// the batch runs in one implicit transaction, a server error undoes it all
		if outcomes[i].err != nil && !errors.Is(outcomes[i].err, errForeignActivity) {
			return nil, fmt.Errorf("activity %d: %w", activities[i].StravaID, outcomes[i].err)
		}
	}
	return outcomes, nil
}

func (r *Repo) upsertOne(ctx context.Context, activity *Activity) upsertOutcome {
	return scanUpsert(r.db.QueryRow(ctx, upsertActivitySQL, upsertArgs(activity)...))
}

const filterSQL = `user_id = $1
	AND ($2::text = '' OR activity_type = $2)
	AND ($3::timestamptz IS NULL OR start_date >= $3)
	AND ($4::timestamptz IS NULL OR start_date <= $4)`

func filterArgs(userID int64, filter Filter) []any {
	return []any{userID, filter.ActivityType, nullableTime(filter.After), nullableTime(filter.Before)}
}

func (r *Repo) queryActivities(ctx context.Context, sql string, args ...any) ([]Activity, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	activities := []Activity{}
	for rows.Next() {
		activity, err := scanActivity(rows, false)
		if err != nil {
			return nil, err
		}
		activities = append(activities, *activity)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return activities, nil
}

// List returns a page of the user's activities, newest first, and the total
// count of activities matching the filter
func (r *Repo) List(ctx context.Context, userID int64, params ListParams) (_ []Activity, total int, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.list")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("page", params.Page),
		attribute.Int("per_page", params.PerPage),
		attribute.String("activity_type", params.ActivityType),
	)

	if params.Page < 1 {
		params.Page = 1
	}
	if params.PerPage < 1 {
		params.PerPage = 30
	}

	args := filterArgs(userID, params.Filter)
	if err := r.db.QueryRow(
		ctx,
		`SELECT COUNT(*) FROM activity WHERE `+filterSQL+`;`,
		args...,
	).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count activities: %w", err)
	}

	activities, err := r.queryActivities(
		ctx,
		`SELECT `+listColumns+` FROM activity WHERE `+filterSQL+`
			ORDER BY start_date DESC, id DESC
			LIMIT $5 OFFSET $6;`,
		append(args, params.PerPage, (params.Page-1)*params.PerPage)...,
	)
	if err != nil {
		return nil, 0, err
	}

	return activities, total, nil
}

// ListAll returns every activity matching the filter, newest first
func (r *Repo) ListAll(ctx context.Context, userID int64, filter Filter) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.listAll")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	return r.queryActivities(
		ctx,
		`SELECT `+listColumns+` FROM activity WHERE `+filterSQL+` ORDER BY start_date DESC, id DESC;`,
		filterArgs(userID, filter)...,
	)
}

func (r *Repo) Recent(ctx context.Context, userID int64, limit int) ([]Activity, error) {
	activities, _, err := r.List(ctx, userID, ListParams{Page: 1, PerPage: limit})
	return activities, err
}

// Find returns the activity only when it belongs to userID
func (r *Repo) Find(ctx context.Context, userID int64, id Identifier) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.find")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	var column string
	var value int64
	switch v := id.(type) {
	case InternalID:
		column, value = "id", int64(v)
	case ExternalID:
		column, value = "strava_id", int64(v)
	default:
		return nil, fmt.Errorf("unknown identifier %T", id)
	}
	span.SetAttributes(attribute.Int64("activity."+column, value))

	return scanActivity(r.db.QueryRow(
		ctx,
		`SELECT `+detailColumns+` FROM activity WHERE user_id = $1 AND `+column+` = $2;`,
		userID, value,
	), true)
}

// Notable returns the single top activity for kind, ignoring activities
// without the measured field. Ties go to the most recent one.
func (r *Repo) Notable(ctx context.Context, userID int64, kind NotableKind) (_ *Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.notable")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.String("kind", string(kind)),
	)

	column, ok := notableColumns[kind]
	if !ok {
		return nil, fmt.Errorf("unknown notable kind: %s", kind)
	}

	return scanActivity(r.db.QueryRow(
		ctx,
		`SELECT `+listColumns+` FROM activity
			WHERE user_id = $1 AND `+column+` IS NOT NULL
			ORDER BY `+column+` DESC, start_date DESC, id DESC
			LIMIT 1;`,
		userID,
	), false)
}

// ListWithoutInsights returns the most recent activities with no cached insight
func (r *Repo) ListWithoutInsights(ctx context.Context, userID int64, limit int) (_ []Activity, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.listWithoutInsights")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("limit", limit),
	)

	return r.queryActivities(
		ctx,
		`SELECT `+listColumns+` FROM activity
			WHERE user_id = $1 AND insights IS NULL
			ORDER BY start_date DESC, id DESC
			LIMIT $2;`,
		userID, limit,
	)
}

func (r *Repo) SetInsights(ctx context.Context, userID, activityID int64, insight Insight) (err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.setInsights")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int64("activity.id", activityID),
	)

	insightJson, err := json.Marshal(insight)
	if err != nil {
		return fmt.Errorf("marshal insight: %w", err)
	}

	tag, err := r.db.Exec(
		ctx,
		`UPDATE activity SET insights = $1, updated_at = now() WHERE id = $2 AND user_id = $3;`,
		insightJson, activityID, userID,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrActivityNotFound
	}
	return nil
}

// Stats are the all-time totals of a user, computed in the store
type Stats struct {
	TotalActivities  int            `json:"total_activities"`
	TotalDistance    float64        `json:"total_distance"`
	TotalTime        int64          `json:"total_time"`
	TotalElevation   float64        `json:"total_elevation"`
	TotalCalories    float64        `json:"total_calories"`
	ActivitiesByType map[string]int `json:"activities_by_type"`
	AverageDistance  float64        `json:"average_distance"`
	AverageTime      float64        `json:"average_time"`
}

func (r *Repo) Stats(ctx context.Context, userID int64) (_ *Stats, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "repo.activities.stats")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(attribute.Int64("user.id", userID))

	rows, err := r.db.Query(
		ctx,
		`SELECT activity_type, COUNT(*),
			COALESCE(SUM(distance), 0),
			COALESCE(SUM(moving_time), 0),
			COALESCE(SUM(total_elevation_gain), 0),
			COALESCE(SUM(calories), 0)
		FROM activity WHERE user_id = $1
		GROUP BY activity_type;`,
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	stats := &Stats{ActivitiesByType: map[string]int{}}
	for rows.Next() {
		var (
			activityType string
			count        int
			distance     float64
			movingTime   int64
			elevation    float64
			calories     float64
		)
		if err := rows.Scan(&activityType, &count, &distance, &movingTime, &elevation, &calories); err != nil {
			return nil, fmt.Errorf("scan activity stats: %w", err)
		}
		stats.ActivitiesByType[activityType] = count
		stats.TotalActivities += count
		stats.TotalDistance += distance
		stats.TotalTime += movingTime
		stats.TotalElevation += elevation
		stats.TotalCalories += calories
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	if stats.TotalActivities > 0 {
		stats.AverageDistance = stats.TotalDistance / float64(stats.TotalActivities)
		stats.AverageTime = float64(stats.TotalTime) / float64(stats.TotalActivities)
	}

	return stats, nil
}
