//go:build integration_test || all_tests

package test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/2beens/stravainsights/internal/activities"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestSync_SecondPayloadWins() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.login(ctx)
	syncResp := s.syncActivities(ctx, token)
	require.Equal(t, activities.SyncResult{Created: 3, Total: 3}, syncResp.SyncResult)

	edited := defaultActivities()
	edited[0].Name = "Morning Run, edited"
	edited[0].Distance = 10500
	edited[0].Calories = nil
	s.upstream.setActivities(testAthleteID, edited)

	syncResp = s.syncActivities(ctx, token)
	assert.Equal(t, activities.SyncResult{Updated: 3, Total: 3}, syncResp.SyncResult)

	var activityResp activities.ActivityResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities/strava/9001", token, nil, http.StatusOK, &activityResp)
	require.NotNil(t, activityResp.Activity)
	assert.Equal(t, "Morning Run, edited", activityResp.Activity.Name)
	require.NotNil(t, activityResp.Activity.Distance)
	assert.Equal(t, 10500.0, *activityResp.Activity.Distance)
	assert.Nil(t, activityResp.Activity.Calories)

	var list activities.ListResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities", token, nil, http.StatusOK, &list)
	assert.Equal(t, 3, list.Pagination.Total)
}

func (s *IntegrationTestSuite) TestSync_BadRowDoesNotFailBatch() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	withBadRow := defaultActivities()
	// postgres text cannot hold a NUL byte, so this row is refused by the server
	withBadRow[1].Name = "Long Ride\x00"
	s.upstream.setActivities(testAthleteID, withBadRow)

	token := s.login(ctx)
	syncResp := s.syncActivities(ctx, token)
	assert.Equal(t, 3, syncResp.SyncResult.Total)
	assert.Equal(t, 1, syncResp.SyncResult.Failed)
	assert.Equal(t, 2, syncResp.SyncResult.Created+syncResp.SyncResult.Updated)

	var list activities.ListResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities", token, nil, http.StatusOK, &list)
	require.Len(t, list.Activities, 2)
	assert.Equal(t, int64(9003), list.Activities[0].StravaID)
	assert.Equal(t, int64(9001), list.Activities[1].StravaID)

	s.doJSON(ctx, http.MethodGet, "/api/activities/strava/9002", token, nil, http.StatusNotFound, nil)
}

func (s *IntegrationTestSuite) TestSync_ActivityOfAnotherUserIsKept() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	janeToken := s.login(ctx)
	s.syncActivities(ctx, janeToken)
	janeID := s.userID(ctx, janeToken)

	s.upstream.setActivities(otherAthleteID, []fakeActivity{
		{
			ID: 9001, Name: "Not my run", Type: "Run", SportType: "Run",
			Distance: 42195, MovingTime: 12000, ElapsedTime: 12500,
			StartDate: daysAgo(1),
		},
		{
			ID: 9101, Name: "Tempo Run", Type: "Run", SportType: "Run",
			Distance: 8000, MovingTime: 2400, ElapsedTime: 2450,
			TotalElevationGain: 20, AverageSpeed: floatPtr(3.5),
			StartDate: daysAgo(2),
		},
	})
	markoToken := s.loginAs(ctx, otherAuthCode)
	syncResp := s.syncActivities(ctx, markoToken)
	assert.Equal(t, activities.SyncResult{Created: 1, Failed: 1, Total: 2}, syncResp.SyncResult)

	var janeRun activities.ActivityResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities/strava/9001", janeToken, nil, http.StatusOK, &janeRun)
	require.NotNil(t, janeRun.Activity)
	assert.Equal(t, "Morning Run", janeRun.Activity.Name)
	assert.Equal(t, janeID, janeRun.Activity.UserID)
	require.NotNil(t, janeRun.Activity.Distance)
	assert.Equal(t, 10000.0, *janeRun.Activity.Distance)

	// not visible to marko by any id
	s.doJSON(ctx, http.MethodGet, "/api/activities/strava/9001", markoToken, nil, http.StatusNotFound, nil)
	s.doJSON(ctx, http.MethodGet, "/api/activities/9001", markoToken, nil, http.StatusNotFound, nil)
	s.doJSON(ctx, http.MethodGet, fmt.Sprintf("/api/activities/%d", janeRun.Activity.ID), markoToken, nil, http.StatusNotFound, nil)
	s.doJSON(ctx, http.MethodPost, "/api/insights/activity/9001/generate", markoToken, nil, http.StatusNotFound, nil)

	var list activities.ListResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities", markoToken, nil, http.StatusOK, &list)
	require.Len(t, list.Activities, 1)
	assert.Equal(t, int64(9101), list.Activities[0].StravaID)
}

func (s *IntegrationTestSuite) TestActivitiesRepo_ScopedToOwner() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// a manual swim without speed, it is never the fastest
	s.upstream.setActivities(testAthleteID, append(defaultActivities(), fakeActivity{
		ID: 9004, Name: "Pool Swim", Type: "Swim", SportType: "Swim",
		Distance: 2000, MovingTime: 2700, ElapsedTime: 3000,
		StartDate: daysAgo(4),
	}))
	s.upstream.setActivities(otherAthleteID, []fakeActivity{
		{
			ID: 9201, Name: "Treadmill", Type: "Run", SportType: "Run",
			Distance: 3000, MovingTime: 1200, ElapsedTime: 1200,
			StartDate: daysAgo(1),
		},
	})

	janeToken := s.login(ctx)
	s.syncActivities(ctx, janeToken)
	markoToken := s.loginAs(ctx, otherAuthCode)
	s.syncActivities(ctx, markoToken)
	janeID := s.userID(ctx, janeToken)
	markoID := s.userID(ctx, markoToken)

	repo := activities.NewRepo(s.DB)

	janeRun, err := repo.Find(ctx, janeID, activities.ExternalID(9001))
	require.NoError(t, err)
	assert.Equal(t, janeID, janeRun.UserID)

	_, err = repo.Find(ctx, markoID, activities.ExternalID(9001))
	assert.ErrorIs(t, err, activities.ErrActivityNotFound)
	_, err = repo.Find(ctx, markoID, activities.InternalID(janeRun.ID))
	assert.ErrorIs(t, err, activities.ErrActivityNotFound)

	err = repo.SetInsights(ctx, markoID, janeRun.ID, activities.Insight{Summary: "not yours"})
	assert.ErrorIs(t, err, activities.ErrActivityNotFound)
	janeRun, err = repo.Find(ctx, janeID, activities.InternalID(janeRun.ID))
	require.NoError(t, err)
	assert.Nil(t, janeRun.Insights)

	fastest, err := repo.Notable(ctx, janeID, activities.NotableFastest)
	require.NoError(t, err)
	assert.Equal(t, int64(9002), fastest.StravaID)

	longest, err := repo.Notable(ctx, markoID, activities.NotableLongest)
	require.NoError(t, err)
	assert.Equal(t, int64(9201), longest.StravaID)
	_, err = repo.Notable(ctx, markoID, activities.NotableFastest)
	assert.ErrorIs(t, err, activities.ErrActivityNotFound)

	var stats activities.StatsResponse
	s.doJSON(ctx, http.MethodGet, "/api/activities/stats/summary", markoToken, nil, http.StatusOK, &stats)
	require.NotNil(t, stats.Stats)
	assert.Equal(t, 1, stats.Stats.TotalActivities)
	assert.Nil(t, stats.NotableActivities.Fastest)
	require.NotNil(t, stats.NotableActivities.Longest)
	assert.Equal(t, int64(9201), stats.NotableActivities.Longest.StravaID)
}
