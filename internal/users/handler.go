package users

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/events"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/pkg"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=users_test

type usersRepo interface {
	GetByID(ctx context.Context, id int64) (*User, error)
	UpdateProfile(ctx context.Context, userID int64, update ProfileUpdate) (*User, error)
	SyncProfile(ctx context.Context, userID int64, athlete *strava.Athlete) (*User, error)
	Delete(ctx context.Context, userID int64) error
	ListMilestones(ctx context.Context, userID int64) ([]Milestone, error)
	AddMilestone(ctx context.Context, userID int64, milestone Milestone) error
	UpdateMilestone(ctx context.Context, userID int64, milestoneID string, input MilestoneInput) (*Milestone, error)
	DeleteMilestone(ctx context.Context, userID int64, milestoneID string) error
}

type athleteClient interface {
	Athlete(ctx context.Context, creds *strava.Credentials) (*strava.Athlete, error)
	AthleteStats(ctx context.Context, creds *strava.Credentials, athleteID int64) (json.RawMessage, error)
}

type sessionClearer interface {
	Clear(w http.ResponseWriter, r *http.Request) error
}

type eventPublisher interface {
	Publish(ctx context.Context, evs ...events.Event) error
}

type UserResponse struct {
	Message string `json:"message,omitempty"`
	User    *User  `json:"user"`
}

type MilestoneResponse struct {
	Message     string     `json:"message"`
	Milestone   *Milestone `json:"milestone,omitempty"`
	MilestoneID string     `json:"milestone_id,omitempty"`
}

type Handler struct {
	repo      usersRepo
	upstream  athleteClient
	sessions  sessionClearer
	publisher eventPublisher
	newID     func() string
}

func NewHandler(
	repo usersRepo,
	upstream athleteClient,
	sessions sessionClearer,
	publisher eventPublisher,
) *Handler {
	return &Handler{
		repo:      repo,
		upstream:  upstream,
		sessions:  sessions,
		publisher: publisher,
		newID:     uuid.NewString,
	}
}

func (handler *Handler) currentUser(ctx context.Context) (*User, error) {
	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		return nil, err
	}
	return handler.repo.GetByID(ctx, identity.UserID)
}

func (handler *Handler) HandleGetProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.getProfile")
	defer span.End()

	user, err := handler.currentUser(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, UserResponse{User: user})
}

func (handler *Handler) HandleUpdateProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.updateProfile")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	var update ProfileUpdate
	if err := json.NewDecoder(r.Body).Decode(&update); err != nil {
		log.Tracef("update profile, unmarshal json body: %s", err)
		apierr.Write(w, r, apierr.Validation("invalid profile update body"))
		return
	}
	if update.Empty() {
		apierr.Write(w, r, apierr.Validation("no fields to update"))
		return
	}

	user, err := handler.repo.UpdateProfile(ctx, identity.UserID, update)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, UserResponse{
		Message: "Profile updated successfully",
		User:    user,
	})
}

func (handler *Handler) HandleSyncProfile(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.syncProfile")
	defer span.End()

	user, err := handler.currentUser(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	athlete, err := handler.upstream.Athlete(ctx, user.Credentials())
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	updated, err := handler.repo.SyncProfile(ctx, user.ID, athlete)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	log.Debugf("profile synced for user %d", user.ID)
	pkg.SendJsonResponse(w, http.StatusOK, UserResponse{
		Message: "Profile synced successfully from Strava",
		User:    updated,
	})
}

func (handler *Handler) HandleStats(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.stats")
	defer span.End()

	user, err := handler.currentUser(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	stats, err := handler.upstream.AthleteStats(ctx, user.Credentials(), user.StravaID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, map[string]json.RawMessage{"stats": stats})
}

func (handler *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.delete")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	if err := handler.repo.Delete(ctx, identity.UserID); err != nil {
		apierr.Write(w, r, err)
		return
	}

	if err := handler.sessions.Clear(w, r); err != nil {
		log.Errorf("clear session after account delete: %s", err)
	}

	if event, err := events.NewEvent(events.TypeUserDeleted, identity.UserID, map[string]int64{
		"strava_id": identity.StravaID,
	}); err != nil {
		log.Errorf("new user deleted event: %s", err)
	} else if err := handler.publisher.Publish(ctx, event); err != nil {
		// the account is gone either way
		log.Errorf("publish user deleted event: %s", err)
	}

	log.Infof("user %d deleted", identity.UserID)
	pkg.SendJsonResponse(w, http.StatusOK, map[string]string{"message": "Account deleted successfully"})
}

func (handler *Handler) HandleListMilestones(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.listMilestones")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	milestones, err := handler.repo.ListMilestones(ctx, identity.UserID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, map[string][]Milestone{"milestones": milestones})
}

func (handler *Handler) HandleGetMilestone(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.getMilestone")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	milestoneID := mux.Vars(r)["id"]
	milestones, err := handler.repo.ListMilestones(ctx, identity.UserID)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	for i := range milestones {
		if milestones[i].ID == milestoneID {
			pkg.SendJsonResponse(w, http.StatusOK, map[string]Milestone{"milestone": milestones[i]})
			return
		}
	}

	apierr.Write(w, r, ErrMilestoneNotFound)
}

func (handler *Handler) HandleCreateMilestone(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.createMilestone")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	var input MilestoneInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Tracef("create milestone, unmarshal json body: %s", err)
		apierr.Write(w, r, apierr.Validation("invalid milestone body"))
		return
	}
	if input.Title == nil || strings.TrimSpace(*input.Title) == "" {
		apierr.Write(w, r, apierr.Validation("milestone title is required"))
		return
	}
	if input.Type == nil || strings.TrimSpace(*input.Type) == "" {
		apierr.Write(w, r, apierr.Validation("milestone type is required"))
		return
	}

	now := time.Now().UTC()
	milestone := Milestone{
		ID:         handler.newID(),
		AchievedAt: now,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	applyMilestoneInput(&milestone, input)

	if err := handler.repo.AddMilestone(ctx, identity.UserID, milestone); err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusCreated, MilestoneResponse{
		Message:   "Milestone created successfully",
		Milestone: &milestone,
	})
}

func (handler *Handler) HandleUpdateMilestone(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.updateMilestone")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	milestoneID := mux.Vars(r)["id"]
	var input MilestoneInput
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		log.Tracef("update milestone, unmarshal json body: %s", err)
		apierr.Write(w, r, apierr.Validation("invalid milestone body"))
		return
	}
	if input.empty() {
		apierr.Write(w, r, apierr.Validation("no fields to update"))
		return
	}

	milestone, err := handler.repo.UpdateMilestone(ctx, identity.UserID, milestoneID, input)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, MilestoneResponse{
		Message:     "Milestone updated successfully",
		Milestone:   milestone,
		MilestoneID: milestoneID,
	})
}

func (handler *Handler) HandleDeleteMilestone(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.users.deleteMilestone")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	milestoneID := mux.Vars(r)["id"]
	if err := handler.repo.DeleteMilestone(ctx, identity.UserID, milestoneID); err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, MilestoneResponse{
		Message:     "Milestone deleted successfully",
		MilestoneID: milestoneID,
	})
}
