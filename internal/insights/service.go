package insights

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/analytics"
	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/events"
	"github.com/2beens/stravainsights/internal/telemetry/metrics"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/internal/users"

	log "github.com/sirupsen/logrus"
	"github.com/sourcegraph/conc/pool"
	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=service_mocks_test.go -package=insights_test

const (
	bulkWorkers = 3

	outcomeCached    = "cached"
	outcomeGenerated = "generated"
	outcomeFallback  = "fallback"

	trendSnippetWeeks = 4
)

var ErrNoInsight = apierr.NotFound("no insights generated yet")

type activityStore interface {
	Find(ctx context.Context, userID int64, id activities.Identifier) (*activities.Activity, error)
	ListWithoutInsights(ctx context.Context, userID int64, limit int) ([]activities.Activity, error)
	SetInsights(ctx context.Context, userID, activityID int64, insight activities.Insight) error
}

type userStore interface {
	GetByID(ctx context.Context, id int64) (*users.User, error)
}

type aggregator interface {
	Overview(ctx context.Context, userID int64, filter activities.Filter) (*analytics.Overview, error)
	Trend(ctx context.Context, userID int64, metric analytics.Metric, period analytics.Period, filter activities.Filter) ([]analytics.TrendPoint, error)
}

type textGenerator interface {
	Generate(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, error)
	Provider() string
	Model() string
}

type eventPublisher interface {
	Publish(ctx context.Context, evs ...events.Event) error
}

type GeneratedEventPayload struct {
	ActivityID int64  `json:"activity_id,string"`
	StravaID   int64  `json:"strava_id"`
	Model      string `json:"model"`
	Fallback   bool   `json:"fallback"`
}

type BulkResult struct {
	Generated int `json:"generated"`
	Requested int `json:"requested"`
}

type PeriodInsight struct {
	DateRange activities.DateRange `json:"date_range"`
	Insight   activities.Insight   `json:"insight"`
}

// Service generates and caches insights. Generation failures never reach
// the caller, a fixed fallback insight is used instead.
type Service struct {
	activities     activityStore
	users          userStore
	engine         aggregator
	generator      textGenerator
	publisher      eventPublisher
	metricsManager *metrics.Manager
	now            func() time.Time
}

func NewService(
	store activityStore,
	users userStore,
	engine aggregator,
	generator textGenerator,
	publisher eventPublisher,
	metricsManager *metrics.Manager,
) *Service {
	return &Service{
		activities:     store,
		users:          users,
		engine:         engine,
		generator:      generator,
		publisher:      publisher,
		metricsManager: metricsManager,
		now:            time.Now,
	}
}

// GenerateForActivity returns the cached insight of the referenced activity,
// or generates (and stores) a new one when there is none or force is set
func (s *Service) GenerateForActivity(ctx context.Context, userID int64, ref string, force bool) (_ *activities.Insight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "insights.service.generateForActivity")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Bool("force", force),
	)

	activity, err := activities.Resolve(ctx, s.activities, userID, ref)
	if err != nil {
		return nil, err
	}

	if !force && activity.Insights != nil {
		s.metricsManager.CounterInsights.WithLabelValues(outcomeCached).Inc()
		return activity.Insights, nil
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	return s.generate(ctx, user, activity)
}

// CachedInsight never generates
func (s *Service) CachedInsight(ctx context.Context, userID int64, ref string) (*activities.Insight, error) {
	activity, err := activities.Resolve(ctx, s.activities, userID, ref)
	if err != nil {
		return nil, err
	}
	if activity.Insights == nil {
		return nil, ErrNoInsight
	}
	return activity.Insights, nil
}

func (s *Service) generate(ctx context.Context, user *users.User, activity *activities.Activity) (*activities.Insight, error) {
	snippets := s.trendSnippets(ctx, user.ID, activity)
	reply, outcome := s.ask(ctx, activitySystemPrompt, ActivityPrompt(user, activity, snippets))
	insight := Normalize(reply, s.generator.Model(), s.now())

	if err := s.activities.SetInsights(ctx, user.ID, activity.ID, insight); err != nil {
		return nil, fmt.Errorf("store insight of activity %d: %w", activity.ID, err)
	}
	s.metricsManager.CounterInsights.WithLabelValues(outcome).Inc()

	event, err := events.NewEvent(events.TypeInsightCreated, user.ID, GeneratedEventPayload{
		ActivityID: activity.ID,
		StravaID:   activity.StravaID,
		Model:      insight.Model,
		Fallback:   outcome == outcomeFallback,
	})
	if err != nil {
		log.Errorf("new insight event: %s", err)
	} else if err := s.publisher.Publish(ctx, event); err != nil {
		log.Errorf("publish insight event for activity %d: %s", activity.ID, err)
	}

	return &insight, nil
}

func (s *Service) ask(ctx context.Context, systemPrompt, userPrompt string) (map[string]any, string) {
	reply, err := s.generator.Generate(ctx, systemPrompt, userPrompt)
	if err != nil {
		log.Warnf("insight generation failed, using fallback: %s", err)
		return fallbackReply(s.generator.Provider(), s.generator.Model()), outcomeFallback
	}
	return reply, outcomeGenerated
}

// weekly distance of the same activity type in the weeks before the activity,
// most recent first. Missing context is not an error.
func (s *Service) trendSnippets(ctx context.Context, userID int64, activity *activities.Activity) []TrendSnippet {
	series, err := s.engine.Trend(ctx, userID, analytics.MetricDistance, analytics.PeriodWeek, activities.Filter{
		ActivityType: activity.ActivityType,
		After:        activity.StartDate.AddDate(0, 0, -7*trendSnippetWeeks),
		Before:       activity.StartDate,
	})
	if err != nil {
		log.Warnf("trend snippets for activity %d: %s", activity.ID, err)
		return nil
	}

	var snippets []TrendSnippet
	for i := len(series) - 1; i >= 0 && len(snippets) < maxTrendSnippets; i-- {
		snippets = append(snippets, TrendSnippet{
			Label: fmt.Sprintf("%s distance_m week of %s", activity.ActivityType, series[i].PeriodStart.Format(time.DateOnly)),
			Value: series[i].Value,
			Count: series[i].Count,
		})
	}
	return snippets
}

// GenerateForPeriod summarizes the trailing window. Period insights are not stored.
func (s *Service) GenerateForPeriod(ctx context.Context, userID int64, daysBack int) (_ *PeriodInsight, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "insights.service.generateForPeriod")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("days_back", daysBack),
	)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	window := activities.TrailingWindow(s.now(), daysBack)
	overview, err := s.engine.Overview(ctx, userID, activities.Filter{
		After:  window.StartDate,
		Before: window.EndDate,
	})
	if err != nil {
		return nil, err
	}

	reply, outcome := s.ask(ctx, periodSystemPrompt, PeriodPrompt(user, window, overview))
	s.metricsManager.CounterInsights.WithLabelValues(outcome).Inc()

	return &PeriodInsight{
		DateRange: window,
		Insight:   Normalize(reply, s.generator.Model(), s.now()),
	}, nil
}

// BulkRecent generates insights for up to limit of the most recent activities
// without one. Failures are logged and skipped.
func (s *Service) BulkRecent(ctx context.Context, userID int64, limit int) (_ BulkResult, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "insights.service.bulkRecent")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.Int64("user.id", userID),
		attribute.Int("limit", limit),
	)

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return BulkResult{}, err
	}

	pending, err := s.activities.ListWithoutInsights(ctx, userID, limit)
	if err != nil {
		return BulkResult{}, err
	}

	var generated atomic.Int64
	p := pool.New().WithMaxGoroutines(bulkWorkers)
	for i := range pending {
		activity := &pending[i]
		p.Go(func() {
			if _, err := s.generate(ctx, user, activity); err != nil {
				log.Errorf("bulk insights, activity %d: %s", activity.ID, err)
				return
			}
			generated.Add(1)
		})
	}
	p.Wait()

	result := BulkResult{
		Generated: int(generated.Load()),
		Requested: len(pending),
	}
	span.SetAttributes(attribute.Int("generated", result.Generated))
	return result, nil
}
