//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/analytics"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) syncActivities(ctx context.Context, token string) activities.SyncResponse {
	var syncResp activities.SyncResponse
	s.doJSON(ctx, http.MethodPost, "/api/activities/sync?days_back=7", token, nil, http.StatusOK, &syncResp)
	return syncResp
}

func (s *IntegrationTestSuite) TestActivitiesFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.login(ctx)

	syncResp := s.syncActivities(ctx, token)
	assert.Equal(t, "Activities synced successfully", syncResp.Message)
	assert.Equal(t, activities.SyncResult{Created: 3, Total: 3}, syncResp.SyncResult)

	// a second sync only updates
	syncResp = s.syncActivities(ctx, token)
	assert.Equal(t, 3, syncResp.SyncResult.Updated)
	assert.Zero(t, syncResp.SyncResult.Created)

	var list activities.ListResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities?per_page=2", token, nil, http.StatusOK, &list)
	require.Len(t, list.Activities, 2)
	assert.Equal(t, 3, list.Pagination.Total)
	assert.Equal(t, 2, list.Pagination.Pages)
	// newest first
	assert.Equal(t, int64(9003), list.Activities[0].StravaID)

	s.doJSON(ctx, http.MethodGet, "/api/activities?activity_type=Ride", token, nil, http.StatusOK, &list)
	require.Len(t, list.Activities, 1)
	assert.Equal(t, "Long Ride", list.Activities[0].Name)

	var recent map[string][]activities.Activity
	s.doJSON(ctx, http.MethodGet, "/api/activities/recent?limit=1", token, nil, http.StatusOK, &recent)
	require.Len(t, recent["activities"], 1)

	var stats activities.StatsResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities/stats/summary", token, nil, http.StatusOK, &stats)
	require.NotNil(t, stats.Stats)
	assert.Equal(t, 3, stats.Stats.TotalActivities)
	assert.InDelta(t, 75000.0, stats.Stats.TotalDistance, 0.001)
	assert.Equal(t, int64(12000), stats.Stats.TotalTime)
	assert.Equal(t, map[string]int{"Run": 2, "Ride": 1}, stats.Stats.ActivitiesByType)
	require.NotNil(t, stats.NotableActivities.Longest)
	assert.Equal(t, int64(9002), stats.NotableActivities.Longest.StravaID)
	require.NotNil(t, stats.NotableActivities.Fastest)
	assert.Equal(t, int64(9002), stats.NotableActivities.Fastest.StravaID)
	require.NotNil(t, stats.NotableActivities.MostElevation)
	assert.Equal(t, int64(9002), stats.NotableActivities.MostElevation.StravaID)

	var byStravaID activities.ActivityResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities/strava/9001", token, nil, http.StatusOK, &byStravaID)
	require.NotNil(t, byStravaID.Activity)
	assert.Equal(t, "Morning Run", byStravaID.Activity.Name)

	// the same record, by local id and by upstream id
	var byID activities.ActivityResponse
	s.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/activities/%d", byStravaID.Activity.ID), token, nil, http.StatusOK, &byID)
	assert.Equal(t, byStravaID.Activity.ID, byID.Activity.ID)
	s.doJSON(ctx, http.MethodGet, "/api/activities/9001", token, nil, http.StatusOK, &byID)
	assert.Equal(t, byStravaID.Activity.ID, byID.Activity.ID)

	var streams map[string]any
	s.doJSON(ctx, http.MethodGet, "/api/activities/9001/streams?keys=time,distance", token, nil, http.StatusOK, &streams)
	assert.Equal(t, float64(9001), streams["strava_id"])
	assert.Contains(t, streams["streams"], "time")

	s.doJSON(ctx, http.MethodGet, "/api/activities/123456789", token, nil, http.StatusNotFound, nil)
	s.doJSON(ctx, http.MethodGet, "/api/activities/sync-me", token, nil, http.StatusNotFound, nil)
	s.doJSON(ctx, http.MethodPost, "/api/activities/sync?days_back=400", token, nil, http.StatusBadRequest, nil)
}

func (s *IntegrationTestSuite) TestAnalytics() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.login(ctx)
	s.syncActivities(ctx, token)

	var dashboard analytics.DashboardResponse
	s.doJSON(ctx, http.MethodGet, "/api/analytics/dashboard?days_back=30", token, nil, http.StatusOK, &dashboard)
	assert.Equal(t, 3, dashboard.Summary.Count)
	assert.InDelta(t, 75000.0, dashboard.Summary.TotalDistance, 0.001)
	assert.Len(t, dashboard.BySport, 2)

	var trends analytics.TrendsResponse
	s.doJSON(ctx, http.MethodGet, "/api/analytics/trends?metric=distance&period=week&days_back=30", token, nil, http.StatusOK, &trends)
	assert.Equal(t, analytics.MetricDistance, trends.Metric)
	assert.Equal(t, analytics.PeriodWeek, trends.Period)
	var total float64
	for _, point := range trends.Series {
		total += point.Value
	}
	assert.InDelta(t, 75000.0, total, 0.001)

	s.doJSON(ctx, http.MethodGet, "/api/analytics/trends?metric=vibes", token, nil, http.StatusBadRequest, nil)
}
