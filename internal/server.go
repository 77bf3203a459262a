package internal

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/IBM/pgxpoolprometheus"
	"github.com/coocood/freecache"
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/multierr"

	"github.com/2beens/stravainsights/internal/activities"
	"github.com/2beens/stravainsights/internal/analytics"
	"github.com/2beens/stravainsights/internal/auth"
	"github.com/2beens/stravainsights/internal/config"
	"github.com/2beens/stravainsights/internal/db"
	"github.com/2beens/stravainsights/internal/events"
	"github.com/2beens/stravainsights/internal/insights"
	"github.com/2beens/stravainsights/internal/middleware"
	"github.com/2beens/stravainsights/internal/strava"
	"github.com/2beens/stravainsights/internal/telemetry/metrics"
	"github.com/2beens/stravainsights/internal/telemetry/tracing"
	"github.com/2beens/stravainsights/internal/users"
	"github.com/2beens/stravainsights/internal/vault"
	"github.com/2beens/stravainsights/pkg"
)

const (
	revokedTokensCleanupInterval = 8 * time.Hour
	dbPingAttempts               = 10
)

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config  *config.Config
	secrets *config.Secrets
	dbPool  *pgxpool.Pool

	redisClient *redis.Client
	publisher   events.Publisher

	vault        *vault.Vault
	issuer       *auth.Issuer
	sessions     *auth.SessionStore
	revoker      *auth.Revoker
	oauthClient  *strava.OAuthClient
	tokenManager *strava.TokenManager
	stravaClient *strava.Client
	generator    *insights.ChatGenerator

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config  *config.Config
	Secrets *config.Secrets
}

func tracedHttpClient(timeoutSeconds int) *http.Client {
	return &http.Client{
		Transport: otelhttp.NewTransport(http.DefaultTransport),
		Timeout:   time.Duration(timeoutSeconds) * time.Second,
	}
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config
	secrets := params.Secrets

	credentialsVault, err := vault.New(secrets.EncryptionKey)
	if err != nil {
		return nil, fmt.Errorf("new vault: %w", err)
	}

	dbParams := db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBUser:         cfg.PostgresUser,
		DBPassword:     secrets.PostgresPassword,
		DBName:         cfg.PostgresDBName,
		TracingEnabled: secrets.HoneycombEnabled,
		PingAttempts:   dbPingAttempts,
	}
	dbPool, err := db.NewDBPool(ctx, dbParams)
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if cfg.RunMigrations {
		if err := db.Migrate(ctx, db.ConnString(dbParams)); err != nil {
			dbPool.Close()
			return nil, fmt.Errorf("migrate db: %w", err)
		}
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	rdb := redis.NewClient(&redis.Options{
		Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
		Password: secrets.RedisPassword,
		DB:       0, // use default DB
	})

	rdbStatus := rdb.Ping(ctx)
	if err := rdbStatus.Err(); err != nil {
		log.Errorf("--> failed to ping redis: %s", err)
	} else {
		log.Debugf("redis ping: %s", rdbStatus.Val())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(secrets.HoneycombEnabled, "stravainsights-backend", rdb)
	if err != nil {
		return nil, err
	}

	usersRepo := users.NewRepo(dbPool)
	stravaHttpClient := tracedHttpClient(cfg.StravaTimeoutSeconds)
	oauthClient := strava.NewOAuthClient(strava.OAuthConfig{
		ClientID:     secrets.StravaClientID,
		ClientSecret: secrets.StravaClientSecret,
		RedirectURI:  secrets.StravaRedirectURI,
		BaseURL:      cfg.StravaOAuthBaseURL,
	}, stravaHttpClient)
	tokenManager := strava.NewTokenManager(usersRepo, oauthClient, credentialsVault, metricsManager)
	gateway := strava.NewGateway(cfg.StravaAPIBaseURL, stravaHttpClient, tokenManager, metricsManager)

	revoker := auth.NewRevoker(rdb)
	go func() {
		ticker := time.NewTicker(revokedTokensCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				revoker.ScanAndClean(ctx)
			}
		}
	}()

	s := &Server{
		config:  cfg,
		secrets: secrets,
		dbPool:  dbPool,

		redisClient: rdb,
		publisher:   events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaTopic),

		vault:        credentialsVault,
		issuer:       auth.NewIssuer(secrets.JWTSecret),
		sessions:     auth.NewSessionStore(secrets.SessionSecret, cfg.CookieSecure),
		revoker:      revoker,
		oauthClient:  oauthClient,
		tokenManager: tokenManager,
		stravaClient: strava.NewClient(gateway, freecache.NewCache(strava.DefaultStatsCacheSize)),
		generator: insights.NewChatGenerator(insights.GeneratorConfig{
			Provider: cfg.AIProvider,
			Model:    cfg.AIModel,
			BaseURL:  cfg.AIBaseURL,
			APIKey:   secrets.AIApiKey(cfg.AIProvider),
		}, tracedHttpClient(cfg.AITimeoutSeconds)),

		// telemetry
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
		otelShutdown:   otelShutdown,
	}

	return s, nil
}

func (s *Server) routerSetup() *mux.Router {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("stravainsights-router"))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		pkg.SendErrorJson(w, http.StatusNotFound, "not found")
	})

	usersRepo := users.NewRepo(s.dbPool)
	activitiesRepo := activities.NewRepo(s.dbPool)
	engine := analytics.NewEngine(activitiesRepo)
	reqRateLimiter := redis_rate.NewLimiter(s.redisClient)

	authorizer := middleware.NewAuthorizer(middleware.AuthorizerParams{
		Sessions:       s.sessions,
		Issuer:         s.issuer,
		Revoker:        s.revoker,
		Users:          usersRepo,
		Tokens:         s.tokenManager,
		MetricsManager: s.metricsManager,
	})

	authHandler := users.NewAuthHandler(users.AuthHandlerParams{
		Accounts:    usersRepo,
		OAuth:       s.oauthClient,
		Sessions:    s.sessions,
		Issuer:      s.issuer,
		Revoker:     s.revoker,
		Tokens:      s.tokenManager,
		Vault:       s.vault,
		FrontendURL: s.config.FrontendURL,
	})
	usersHandler := users.NewHandler(usersRepo, s.stravaClient, s.sessions, s.publisher)
	activitiesHandler := activities.NewHandler(
		activitiesRepo,
		activities.NewSyncer(s.stravaClient, activitiesRepo, s.publisher, s.metricsManager),
		usersRepo,
		s.stravaClient,
	)
	analyticsHandler := analytics.NewHandler(engine, usersRepo)
	insightsHandler := insights.NewHandler(
		insights.NewService(activitiesRepo, usersRepo, engine, s.generator, s.publisher, s.metricsManager),
	)

	r.HandleFunc("/health", s.handleHealth).Methods("GET")

	// oauth flow, no session needed
	oauthRouter := r.NewRoute().Subrouter()
	oauthRouter.Use(middleware.RateLimit(reqRateLimiter, s.metricsManager, "oauth", s.config.AuthRateLimitAllowedPerMin))
	oauthRouter.HandleFunc("/api/auth/strava/authorize", authHandler.HandleAuthorize).Methods("GET", "OPTIONS").Name("auth-authorize")
	oauthRouter.HandleFunc("/api/auth/strava/authorize-url", authHandler.HandleAuthorizeURL).Methods("GET", "OPTIONS").Name("auth-authorize-url")
	oauthRouter.HandleFunc("/exchange_token", authHandler.HandleExchangeToken).Methods("GET").Name("auth-exchange-token")
	r.HandleFunc("/api/auth/logout", authHandler.HandleLogout).Methods("POST", "OPTIONS").Name("auth-logout")

	optionalAuthRouter := r.NewRoute().Subrouter()
	optionalAuthRouter.Use(authorizer.OptionalAuth())
	optionalAuthRouter.HandleFunc("/api/auth/status", authHandler.HandleStatus).Methods("GET", "OPTIONS").Name("auth-status")

	private := r.NewRoute().Subrouter()
	private.Use(authorizer.RequireAuth())

	private.HandleFunc("/api/auth/user", authHandler.HandleUser).Methods("GET", "OPTIONS").Name("auth-user")
	private.HandleFunc("/api/auth/refresh", authHandler.HandleRefresh).Methods("POST", "OPTIONS").Name("auth-refresh")

	private.HandleFunc("/api/user/profile", usersHandler.HandleGetProfile).Methods("GET", "OPTIONS").Name("get-profile")
	private.HandleFunc("/api/user/profile", usersHandler.HandleUpdateProfile).Methods("PUT", "OPTIONS").Name("update-profile")
	private.HandleFunc("/api/user/sync-profile", usersHandler.HandleSyncProfile).Methods("POST", "OPTIONS").Name("sync-profile")
	private.HandleFunc("/api/user/stats", usersHandler.HandleStats).Methods("GET", "OPTIONS").Name("user-stats")
	private.HandleFunc("/api/user", usersHandler.HandleDelete).Methods("DELETE", "OPTIONS").Name("delete-user")
	private.HandleFunc("/api/user/milestones", usersHandler.HandleListMilestones).Methods("GET", "OPTIONS").Name("list-milestones")
	private.HandleFunc("/api/user/milestones", usersHandler.HandleCreateMilestone).Methods("POST", "OPTIONS").Name("new-milestone")
	private.HandleFunc("/api/user/milestones/{id}", usersHandler.HandleGetMilestone).Methods("GET", "OPTIONS").Name("get-milestone")
	private.HandleFunc("/api/user/milestones/{id}", usersHandler.HandleUpdateMilestone).Methods("PUT", "OPTIONS").Name("update-milestone")
	private.HandleFunc("/api/user/milestones/{id}", usersHandler.HandleDeleteMilestone).Methods("DELETE", "OPTIONS").Name("remove-milestone")

	// fixed paths before /api/activities/{id}
	private.HandleFunc("/api/activities", activitiesHandler.HandleList).Methods("GET", "OPTIONS").Name("list-activities")
	private.HandleFunc("/api/activities/recent", activitiesHandler.HandleRecent).Methods("GET", "OPTIONS").Name("recent-activities")
	private.HandleFunc("/api/activities/stats/summary", activitiesHandler.HandleStatsSummary).Methods("GET", "OPTIONS").Name("activities-stats")
	private.HandleFunc("/api/activities/sync", activitiesHandler.HandleSync).Methods("POST", "OPTIONS").Name("sync-activities")
	private.HandleFunc("/api/activities/strava/{strava_id}", activitiesHandler.HandleGetByStravaID).Methods("GET", "OPTIONS").Name("get-activity-by-strava-id")
	private.HandleFunc("/api/activities/{id}", activitiesHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-activity")
	private.HandleFunc("/api/activities/{id}/streams", activitiesHandler.HandleStreams).Methods("GET", "OPTIONS").Name("activity-streams")

	private.HandleFunc("/api/analytics/dashboard", analyticsHandler.HandleDashboard).Methods("GET", "OPTIONS").Name("analytics-dashboard")
	private.HandleFunc("/api/analytics/trends", analyticsHandler.HandleTrends).Methods("GET", "OPTIONS").Name("analytics-trends")

	private.HandleFunc("/api/insights/activity/{id}", insightsHandler.HandleGet).Methods("GET", "OPTIONS").Name("get-insight")
	// text generation is the expensive part, rate limited per client
	generation := private.NewRoute().Subrouter()
	generation.Use(middleware.RateLimit(reqRateLimiter, s.metricsManager, "insights", s.config.InsightRateLimitAllowedPerMin))
	generation.HandleFunc("/api/insights/activity/{id}/generate", insightsHandler.HandleGenerate).Methods("POST", "OPTIONS").Name("generate-insight")
	generation.HandleFunc("/api/insights/bulk/recent", insightsHandler.HandleBulkRecent).Methods("POST", "OPTIONS").Name("bulk-insights")
	generation.HandleFunc("/api/insights/summary", insightsHandler.HandleSummary).Methods("GET", "OPTIONS").Name("period-insight")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())

	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	pkg.SendJsonResponse(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Serve(host string, port int) {
	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:      s.routerSetup(),
		Addr:         ipAndPort,
		WriteTimeout: 2 * time.Minute,
		ReadTimeout:  time.Minute,
		ConnState:    s.connStateMetrics,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:    metricsAddr,
		Handler: metricsRouter,
	}

	go func() {
		log.Infof(" > server listening on: [%s]", ipAndPort)
		err := s.httpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("main service, listen and serve: %s", err)
		}
	}()

	go func() {
		log.Debugf(" > metrics listening on: [%s]", metricsAddr)
		err := s.metricsHttpServer.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("metrics service, listen and serve: %s", err)
		}
	}()

	s.metricsManager.GaugeLifeSignal.Set(1)
}

func (s *Server) GracefulShutdown() {
	log.Debug("graceful shutdown initiated ...")
	s.metricsManager.GaugeLifeSignal.Set(0)

	maxWaitDuration := time.Second * 15
	ctx, timeoutCancel := context.WithTimeout(context.Background(), maxWaitDuration)
	defer timeoutCancel()

	// stop taking requests first, the rest is still used by in-flight ones
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown http server: %s", err)
		}
		log.Warnln("server shut down")
	}

	s.otelShutdown()
	log.Trace("otel shut down ...")

	if err := multierr.Combine(
		s.publisher.Close(),
		s.redisClient.Close(),
	); err != nil {
		log.Errorf("failed to close publisher / redis client: %s", err)
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Errorf(" >>> failed to gracefully shutdown metrics http server: %s", err)
		}
		log.Warnln("metrics server shut down")
	}
}

func (s *Server) connStateMetrics(_ net.Conn, state http.ConnState) {
	switch state {
	case http.StateNew:
		s.metricsManager.GaugeRequests.Add(1)
	case http.StateClosed:
		s.metricsManager.GaugeRequests.Add(-1)
	default:
		// do nothing
	}
}
