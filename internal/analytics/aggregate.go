package analytics

import (
	"slices"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/apierr"
)

type Metric string

const (
	MetricDistance  Metric = "distance"
	MetricTime      Metric = "time"
	MetricElevation Metric = "elevation"
	MetricCalories  Metric = "calories"
	MetricCount     Metric = "count"
)

type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
)

func ParseMetric(raw string) (Metric, error) {
	switch m := Metric(strings.ToLower(strings.TrimSpace(raw))); m {
	case MetricDistance, MetricTime, MetricElevation, MetricCalories, MetricCount:
		return m, nil
	}
	return "", apierr.Validation("invalid metric %q: expected distance, time, elevation, calories or count", raw)
}

func ParsePeriod(raw string) (Period, error) {
	switch p := Period(strings.ToLower(strings.TrimSpace(raw))); p {
	case PeriodDay, PeriodWeek, PeriodMonth:
		return p, nil
	}
	return "", apierr.Validation("invalid period %q: expected day, week or month", raw)
}

// Summary holds totals over a set of activities. Missing optional fields
// count as 0.
type Summary struct {
	Count           int     `json:"count"`
	TotalDistance   float64 `json:"total_distance"`
	TotalTime       int64   `json:"total_time"`
	TotalElevation  float64 `json:"total_elevation"`
	TotalCalories   float64 `json:"total_calories"`
	AverageDistance float64 `json:"average_distance"`
	AverageTime     float64 `json:"average_time"`
}

type CategorySummary struct {
	ActivityType string `json:"activity_type"`
	Summary
}

type TrendPoint struct {
	PeriodStart time.Time `json:"period_start"`
	Value       float64   `json:"value"`
	Count       int       `json:"count"`
}

func orZero[T int | float64](v *T) T {
	if v == nil {
		return 0
	}
	return *v
}

func (s *Summary) add(a *activities.Activity) {
	s.Count++
	s.TotalDistance += orZero(a.Distance)
	s.TotalTime += int64(orZero(a.MovingTime))
	s.TotalElevation += orZero(a.TotalElevationGain)
	s.TotalCalories += orZero(a.Calories)
}

func (s *Summary) finish() {
	if s.Count == 0 {
		s.AverageDistance, s.AverageTime = 0, 0
		return
	}
	s.AverageDistance = s.TotalDistance / float64(s.Count)
	s.AverageTime = float64(s.TotalTime) / float64(s.Count)
}

func Summarize(acts []activities.Activity) Summary {
	var s Summary
	for i := range acts {
		s.add(&acts[i])
	}
	s.finish()
	return s
}

// ByCategory summarizes per activity type, ordered by type ascending
func ByCategory(acts []activities.Activity) []CategorySummary {
	perType := make(map[string]*Summary)
	for i := range acts {
		s, ok := perType[acts[i].ActivityType]
		if !ok {
			s = &Summary{}
			perType[acts[i].ActivityType] = s
		}
		s.add(&acts[i])
	}

	categories := make([]CategorySummary, 0, len(perType))
	for activityType, s := range perType {
		s.finish()
		categories = append(categories, CategorySummary{
			ActivityType: activityType,
			Summary:      *s,
		})
	}
	slices.SortFunc(categories, func(a, b CategorySummary) int {
		return strings.Compare(a.ActivityType, b.ActivityType)
	})
	return categories
}

// BucketStart truncates t (in UTC) to the start of its period.
// Weeks start on Monday.
func BucketStart(t time.Time, period Period) time.Time {
	t = t.UTC()
	day := time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	switch period {
	case PeriodWeek:
		sinceMonday := (int(day.Weekday()) + 6) % 7
		return day.AddDate(0, 0, -sinceMonday)
	case PeriodMonth:
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	default:
		return day
	}
}

func metricValue(a *activities.Activity, metric Metric) float64 {
	switch metric {
	case MetricDistance:
		return orZero(a.Distance)
	case MetricTime:
		return float64(orZero(a.MovingTime))
	case MetricElevation:
		return orZero(a.TotalElevationGain)
	case MetricCalories:
		return orZero(a.Calories)
	default:
		return 1
	}
}

// Trend sums metric per period bucket. Only buckets with activities are
// returned, ordered by period start.
func Trend(acts []activities.Activity, metric Metric, period Period) ([]TrendPoint, error) {
	if _, err := ParseMetric(string(metric)); err != nil {
		return nil, err
	}
	if _, err := ParsePeriod(string(period)); err != nil {
		return nil, err
	}

	buckets := make(map[time.Time]*TrendPoint)
	for i := range acts {
		start := BucketStart(acts[i].StartDate, period)
		point, ok := buckets[start]
		if !ok {
			point = &TrendPoint{PeriodStart: start}
			buckets[start] = point
		}
		point.Value += metricValue(&acts[i], metric)
		point.Count++
	}

	series := make([]TrendPoint, 0, len(buckets))
	for _, point := range buckets {
		series = append(series, *point)
	}
	slices.SortFunc(series, func(a, b TrendPoint) int {
		return a.PeriodStart.Compare(b.PeriodStart)
	})
	return series, nil
}
