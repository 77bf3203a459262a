package analytics

import (
	"context"
	"net/http"
	"time"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/internal/users"
	"github.com/2beens/stravainsights/pkg"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=analytics_test

type aggregator interface {
	Overview(ctx context.Context, userID int64, filter activities.Filter) (*Overview, error)
	Trend(ctx context.Context, userID int64, metric Metric, period Period, filter activities.Filter) ([]TrendPoint, error)
}

type milestonesRepo interface {
	ListMilestones(ctx context.Context, userID int64) ([]users.Milestone, error)
}

type DashboardResponse struct {
	DateRange  activities.DateRange `json:"date_range"`
	Summary    Summary              `json:"summary"`
	BySport    []CategorySummary    `json:"by_sport"`
	Milestones []users.Milestone    `json:"milestones"`
}

type TrendsResponse struct {
	DateRange    activities.DateRange `json:"date_range"`
	Metric       Metric               `json:"metric"`
	Period       Period               `json:"period"`
	ActivityType *string              `json:"activity_type"`
	Series       []TrendPoint         `json:"series"`
}

type Handler struct {
	engine     aggregator
	milestones milestonesRepo
	now        func() time.Time
}

func NewHandler(engine aggregator, milestones milestonesRepo) *Handler {
	return &Handler{
		engine:     engine,
		milestones: milestones,
		now:        time.Now,
	}
}

func (handler *Handler) HandleDashboard(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.dashboard")
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

	window := activities.TrailingWindow(handler.now(), daysBack)
	overview, err := handler.engine.Overview(ctx, identity.UserID, activities.Filter{
		After:  window.StartDate,
		Before: window.EndDate,
	})
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	milestones, err := handler.milestones.ListMilestones(ctx, identity.UserID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, DashboardResponse{
		DateRange:  window,
		Summary:    overview.Summary,
		BySport:    overview.BySport,
		Milestones: milestones,
	})
}

func (handler *Handler) HandleTrends(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.analytics.trends")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	query := r.URL.Query()
	metric := MetricDistance
	if raw := query.Get("metric"); raw != "" {
		if metric, err = ParseMetric(raw); err != nil {
			apierr.Write(w, r, err)
			return
		}
	}
	period := PeriodDay
	if raw := query.Get("period"); raw != "" {
		if period, err = ParsePeriod(raw); err != nil {
			apierr.Write(w, r, err)
			return
		}
	}
	daysBack, err := pkg.IntQueryParam(query.Get("days_back"), 90, 1, 730)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid days_back: %s", err))
		return
	}

	var activityType *string
	if raw := query.Get("activity_type"); raw != "" {
		activityType = &raw
	}

	window := activities.TrailingWindow(handler.now(), daysBack)
	filter := activities.Filter{
		After:  window.StartDate,
		Before: window.EndDate,
	}
	if activityType != nil {
		filter.ActivityType = *activityType
	}

	series, err := handler.engine.Trend(ctx, identity.UserID, metric, period, filter)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, TrendsResponse{
		DateRange:    window,
		Metric:       metric,
		Period:       period,
		ActivityType: activityType,
		Series:       series,
	})
}
