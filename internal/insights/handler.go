package insights

import (
	"context"
	"net/http"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/apierr"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/pkg"

	"github.com/gorilla/mux"
	log "github.com/sirupsen/logrus"
)

//go:generate mockgen -source=$GOFILE -destination=handler_mocks_test.go -package=insights_test

type orchestrator interface {
	GenerateForActivity(ctx context.Context, userID int64, ref string, force bool) (*activities.Insight, error)
	CachedInsight(ctx context.Context, userID int64, ref string) (*activities.Insight, error)
	GenerateForPeriod(ctx context.Context, userID int64, daysBack int) (*PeriodInsight, error)
	BulkRecent(ctx context.Context, userID int64, limit int) (BulkResult, error)
}

type Handler struct {
	service orchestrator
}

func NewHandler(service orchestrator) *Handler {
	return &Handler{
		service: service,
	}
}

func (handler *Handler) HandleGenerate(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.insights.generate")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	force := pkg.ParseBoolFlag(r.URL.Query().Get("force"))
	insight, err := handler.service.GenerateForActivity(ctx, identity.UserID, mux.Vars(r)["id"], force)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, insight)
}

func (handler *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.insights.get")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	insight, err := handler.service.CachedInsight(ctx, identity.UserID, mux.Vars(r)["id"])
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, insight)
}

func (handler *Handler) HandleBulkRecent(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.insights.bulkRecent")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	limit, err := pkg.IntQueryParam(r.URL.Query().Get("limit"), 5, 1, 20)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid limit: %s", err))
		return
	}

	result, err := handler.service.BulkRecent(ctx, identity.UserID, limit)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	log.Debugf("bulk insights for user %d: %d/%d", identity.UserID, result.Generated, result.Requested)
	pkg.SendJsonResponse(w, http.StatusOK, result)
}

func (handler *Handler) HandleSummary(w http.ResponseWriter, r *http.Request) {
	ctx, span := tracing.GlobalTracer.Start(r.Context(), "handler.insights.summary")
	defer span.End()

	identity, err := auth.RequireIdentity(ctx)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	daysBack, err := pkg.IntQueryParam(r.URL.Query().Get("days_back"), 30, 7, 180)
	if err != nil {
		apierr.Write(w, r, apierr.Validation("invalid days_back: %s", err))
		return
	}

	summary, err := handler.service.GenerateForPeriod(ctx, identity.UserID, daysBack)
	if err != nil {
		apierr.Write(w, r, err)
		return
	}

	pkg.SendJsonResponse(w, http.StatusOK, summary)
}
