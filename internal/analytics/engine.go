package analytics

import (
	"context"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"

	"go.opentelemetry.io/otel/attribute"
)

//go:generate mockgen -source=$GOFILE -destination=engine_mocks_test.go -package=analytics_test

type activitiesLister interface {
	ListAll(ctx context.Context, userID int64, filter activities.Filter) ([]activities.Activity, error)
}

// Overview is the summary and the per type breakdown of the same window
type Overview struct {
	Summary Summary           `json:"summary"`
	BySport []CategorySummary `json:"by_sport"`
}

// Engine runs the aggregations over activities loaded from the store
type Engine struct {
	activities activitiesLister
}

func NewEngine(activities activitiesLister) *Engine {
	return &Engine{
		activities: activities,
	}
}

func (e *Engine) Summary(ctx context.Context, userID int64, filter activities.Filter) (_ Summary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.engine.summary")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	acts, err := e.activities.ListAll(ctx, userID, filter)
	if err != nil {
		return Summary{}, err
	}
	return Summarize(acts), nil
}

func (e *Engine) ByCategory(ctx context.Context, userID int64, filter activities.Filter) (_ []CategorySummary, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.engine.byCategory")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	acts, err := e.activities.ListAll(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return ByCategory(acts), nil
}

// Overview computes Summary and ByCategory from a single load
func (e *Engine) Overview(ctx context.Context, userID int64, filter activities.Filter) (_ *Overview, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.engine.overview")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()

	acts, err := e.activities.ListAll(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("activities.count", len(acts)))

	return &Overview{
		Summary: Summarize(acts),
		BySport: ByCategory(acts),
	}, nil
}

func (e *Engine) Trend(
	ctx context.Context,
	userID int64,
	metric Metric,
	period Period,
	filter activities.Filter,
) (_ []TrendPoint, err error) {
	ctx, span := tracing.GlobalTracer.Start(ctx, "analytics.engine.trend")
	defer func() {
		tracing.EndSpanWithErrCheck(span, err)
	}()
	span.SetAttributes(
		attribute.String("metric", string(metric)),
		attribute.String("period", string(period)),
	)

	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	acts, err := e.activities.ListAll(ctx, userID, filter)
	if err != nil {
		return nil, err
	}
	return Trend(acts, metric, period)
}
