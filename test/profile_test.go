//go:build integration_test || all_tests

package test

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/2beens/stravainsights/internal/users"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func (s *IntegrationTestSuite) TestProfileFlow() {
	t := s.T()
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	token := s.login(ctx)

	var profile users.UserResponse
	s.doJSON(ctx, http.MethodGet, "/api/user/profile", token, nil, http.StatusOK, &profile)
	require.NotNil(t, profile.User)
	assert.Equal(t, "Novi Sad", profile.User.City)

	s.doJSON(ctx, http.MethodPut, "/api/user/profile", token, map[string]any{
		"city":   "Subotica",
		"weight": 60.0,
	}, http.StatusOK, &profile)
	assert.Equal(t, "Subotica", profile.User.City)
	assert.Equal(t, "Jane", profile.User.FirstName)

	// upstream says Belgrade
	s.doJSON(ctx, http.MethodPost, "/api/user/sync-profile", token, nil, http.StatusOK, &profile)
	assert.Equal(t, "Belgrade", profile.User.City)

	var stats map[string]json.RawMessage
	s.doJSON(ctx, http.MethodGet, "/api/user/stats", token, nil, http.StatusOK, &stats)
	assert.Contains(t, string(stats["stats"]), "all_run_totals")

	var created users.MilestoneResponse
	s.doJSON(ctx, http.MethodPost, "/api/user/milestones", token, map[string]any{
		"title":       "First half marathon",
		"type":        "distance",
		"achieved_at": time.Now().UTC().Add(-24 * time.Hour).Format(time.RFC3339),
	}, http.StatusCreated, &created)
	require.NotNil(t, created.Milestone)
	milestoneID := created.Milestone.ID
	require.NotEmpty(t, milestoneID)

	var listed map[string][]users.Milestone
	s.doJSON(ctx, http.MethodGet, "/api/user/milestones", token, nil, http.StatusOK, &listed)
	require.Len(t, listed["milestones"], 1)
	assert.Equal(t, "First half marathon", listed["milestones"][0].Title)

	var updated users.MilestoneResponse
	s.doJSON(ctx, http.MethodPut, "/api/user/milestones/"+milestoneID, token, map[string]any{
		"title": "First half marathon, sub 2h",
	}, http.StatusOK, &updated)
	require.NotNil(t, updated.Milestone)
	assert.Equal(t, "First half marathon, sub 2h", updated.Milestone.Title)
	assert.Equal(t, "distance", updated.Milestone.Type)

	s.doJSON(ctx, http.MethodDelete, "/api/user/milestones/"+milestoneID, token, nil, http.StatusOK, nil)
	s.doJSON(ctx, http.MethodGet, "/api/user/milestones/"+milestoneID, token, nil, http.StatusNotFound, nil)

	// account removal takes the session with it
	s.doJSON(ctx, http.MethodDelete, "/api/user", token, nil, http.StatusOK, nil)
	s.doJSON(ctx, http.MethodGet, "/api/user/profile", token, nil, http.StatusUnauthorized, nil)
}
