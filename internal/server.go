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
	"github.com/getsentry/sentry-go"
	"github.com/go-redis/redis/v8"
	"github.com/go-redis/redis_rate/v9"
	"github.com/gorilla/mux"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gorilla/mux/otelmux"

	"github.com/2beens/workoutlog/internal/auth"
	"github.com/2beens/workoutlog/internal/config"
	"github.com/2beens/workoutlog/internal/db"
	"github.com/2beens/workoutlog/internal/middleware"
	"github.com/2beens/workoutlog/internal/routines"
	"github.com/2beens/workoutlog/internal/telemetry/metrics"
	"github.com/2beens/workoutlog/internal/telemetry/tracing"
	"github.com/2beens/workoutlog/internal/tracker"
	"github.com/2beens/workoutlog/internal/users"
	"github.com/2beens/workoutlog/internal/workouts"
	"github.com/2beens/workoutlog/pkg"
)

const sessionsCleanupInterval = 8 * time.Hour

type Server struct {
	httpServer        *http.Server
	metricsHttpServer *http.Server

	config      *config.Config
	dbPool      *pgxpool.Pool
	redisClient *redis.Client // nil with the memory session backend

	sessions   auth.Registry
	liveStates tracker.StateStore

	// metrics
	metricsManager *metrics.Manager
	promRegistry   *prometheus.Registry
	otelShutdown   func()
}

type NewServerParams struct {
	Config                  *config.Config
	RedisPassword           string
	PostgresPassword        string
	HoneycombTracingEnabled bool
}

func NewServer(
	ctx context.Context,
	params NewServerParams,
) (*Server, error) {
	cfg := params.Config

	dbPool, err := db.NewDBPool(ctx, db.NewDBPoolParams{
		DBHost:         cfg.PostgresHost,
		DBPort:         cfg.PostgresPort,
		DBName:         cfg.PostgresDBName,
		DBUser:         cfg.PostgresUser,
		DBPassword:     params.PostgresPassword,
		TracingEnabled: params.HoneycombTracingEnabled,
	})
	if err != nil {
		return nil, fmt.Errorf("new db pool: %w", err)
	}

	if err := dbPool.Ping(ctx); err != nil {
		log.Warnf("failed to ping db: %s", err)
	}

	pgxpoolCollector := pgxpoolprometheus.NewCollector(
		dbPool,
		map[string]string{"db_name": cfg.PostgresDBName},
	)
	promRegistry := metrics.SetupPrometheus(pgxpoolCollector)
	metricsManager := metrics.NewManager("backend", "main", promRegistry)
	metricsManager.GaugeLifeSignal.Set(0)

	s := &Server{
		config:         cfg,
		dbPool:         dbPool,
		metricsManager: metricsManager,
		promRegistry:   promRegistry,
	}

	switch cfg.SessionBackend {
	case "memory":
		log.Warnln("using in-memory sessions and live workouts, state is lost on restart")
		s.sessions = auth.NewMemoryRegistry(cfg.SessionTTL())
		s.liveStates = tracker.NewMemoryStateStore()
	default:
		rdb := redis.NewClient(&redis.Options{
			Addr:     net.JoinHostPort(cfg.RedisHost, cfg.RedisPort),
			Password: params.RedisPassword,
			DB:       0, // use default DB
		})

		rdbStatus := rdb.Ping(ctx)
		if err := rdbStatus.Err(); err != nil {
			log.Errorf("--> failed to ping redis: %s", err)
		} else {
			log.Debugf("redis ping: %s", rdbStatus.Val())
		}

		s.redisClient = rdb
		authService := auth.NewAuthService(cfg.SessionTTL(), cfg.SessionCacheTTL(), rdb)
		go authService.EvictRevokedSessions(ctx)
		s.sessions = authService
		s.liveStates = tracker.NewRedisStateStore(rdb, cfg.LiveWorkoutTTL())
	}

	// use honeycomb distro to setup OpenTelemetry SDK
	otelShutdown, err := tracing.HoneycombSetup(params.HoneycombTracingEnabled, "workoutlog-backend", s.redisClient)
	if err != nil {
		return nil, err
	}
	s.otelShutdown = otelShutdown

	go s.cleanSessionsPeriodically(ctx, sessionsCleanupInterval)

	return s, nil
}

func (s *Server) cleanSessionsPeriodically(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sessions.ScanAndClean(ctx)
		}
	}
}

func (s *Server) routerSetup() (*mux.Router, error) {
	r := mux.NewRouter()
	r.Use(otelmux.Middleware("workoutlog-router"))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, http.StatusNotFound, "not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		pkg.WriteJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
	})

	usersRepo := users.NewRepo(s.dbPool)
	routinesRepo := routines.NewRepo(s.dbPool)
	workoutsRepo := workouts.NewRepo(s.dbPool)

	authHandler := auth.NewHandler(usersRepo, s.sessions, s.metricsManager, s.config.PasswordHashCost)
	routinesHandler := routines.NewHandler(routinesRepo)
	workoutsHandler := workouts.NewHandler(workoutsRepo, s.metricsManager)
	liveHandler := tracker.NewHandler(tracker.NewService(
		tracker.NewRepoStore(routinesRepo, workoutsRepo),
		s.liveStates,
		s.metricsManager,
	))
	authMiddleware := middleware.NewAuthMiddlewareHandler(s.sessions)

	// preflight requests, answered by the cors middleware
	r.Methods(http.MethodOptions).HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}).Name("preflight")

	r.HandleFunc("/health", s.handleHealth).Methods("GET").Name("health")

	api := r.PathPrefix("/api").Subrouter()

	authRouter := api.PathPrefix("/auth").Subrouter()
	if s.redisClient != nil {
		authRouter.Use(middleware.RateLimit(
			redis_rate.NewLimiter(s.redisClient),
			"auth",
			s.config.LoginRateLimitAllowedPerMin,
			s.metricsManager,
		))
	}
	authRouter.HandleFunc("/signup", authHandler.HandleSignup).Methods("POST").Name("signup")
	authRouter.HandleFunc("/signin", authHandler.HandleSignin).Methods("POST").Name("signin")

	authedRouter := authRouter.NewRoute().Subrouter()
	authedRouter.Use(authMiddleware.AuthCheck())
	authedRouter.HandleFunc("/signout", authHandler.HandleSignout).Methods("POST").Name("signout")
	authedRouter.HandleFunc("/me", authHandler.HandleMe).Methods("GET").Name("me")
	authedRouter.HandleFunc("/me", authHandler.HandleDeleteMe).Methods("DELETE").Name("delete-me")

	protected := api.NewRoute().Subrouter()
	protected.Use(authMiddleware.AuthCheck())

	protected.HandleFunc("/routines", routinesHandler.HandleList).Methods("GET").Name("list-routines")
	protected.HandleFunc("/routines", routinesHandler.HandleCreate).Methods("POST").Name("new-routine")
	protected.HandleFunc("/routines/{id}", routinesHandler.HandleGet).Methods("GET").Name("get-routine")
	protected.HandleFunc("/routines/{id}", routinesHandler.HandleDelete).Methods("DELETE").Name("delete-routine")
	protected.HandleFunc("/routines/{id}/exercises", routinesHandler.HandleListExercises).Methods("GET").Name("list-routine-exercises")
	protected.HandleFunc("/routines/{id}/exercises", routinesHandler.HandleAddExercise).Methods("POST").Name("new-routine-exercise")
	protected.HandleFunc("/routine-exercises/{id}", routinesHandler.HandleDeleteExercise).Methods("DELETE").Name("delete-routine-exercise")

	protected.HandleFunc("/workouts", workoutsHandler.HandleList).Methods("GET").Name("list-workouts")
	protected.HandleFunc("/workouts", workoutsHandler.HandleCreate).Methods("POST").Name("new-workout")
	protected.HandleFunc("/workouts/{id}", workoutsHandler.HandleGet).Methods("GET").Name("get-workout")
	protected.HandleFunc("/workouts/{id}", workoutsHandler.HandleFinish).Methods("PATCH").Name("finish-workout")
	protected.HandleFunc("/workouts/{id}", workoutsHandler.HandleDelete).Methods("DELETE").Name("delete-workout")
	protected.HandleFunc("/workouts/{id}/sets", workoutsHandler.HandleListSets).Methods("GET").Name("list-sets")
	protected.HandleFunc("/workouts/{id}/sets", workoutsHandler.HandleAddSet).Methods("POST").Name("new-set")
	protected.HandleFunc("/workout-sets/{id}", workoutsHandler.HandleUpdateSet).Methods("PATCH").Name("update-set")
	protected.HandleFunc("/workout-sets/{id}", workoutsHandler.HandleDeleteSet).Methods("DELETE").Name("delete-set")
	protected.HandleFunc("/exercises/history", workoutsHandler.HandleExerciseHistory).Methods("GET").Name("exercise-history")

	protected.HandleFunc("/live-workout", liveHandler.HandleStart).Methods("POST").Name("live-start")
	protected.HandleFunc("/live-workout", liveHandler.HandleGet).Methods("GET").Name("live-get")
	protected.HandleFunc("/live-workout", liveHandler.HandleDiscard).Methods("DELETE").Name("live-discard")
	protected.HandleFunc("/live-workout/slots/{slot}", liveHandler.HandleSetDraft).Methods("PUT").Name("live-set-draft")
	protected.HandleFunc("/live-workout/flush", liveHandler.HandleFlush).Methods("POST").Name("live-flush")
	protected.HandleFunc("/live-workout/next", liveHandler.HandleNext).Methods("POST").Name("live-next")
	protected.HandleFunc("/live-workout/previous", liveHandler.HandlePrevious).Methods("POST").Name("live-previous")
	protected.HandleFunc("/live-workout/select/{index}", liveHandler.HandleSelect).Methods("POST").Name("live-select")
	protected.HandleFunc("/live-workout/finish", liveHandler.HandleFinish).Methods("POST").Name("live-finish")

	r.Use(middleware.PanicRecovery(s.metricsManager))
	r.Use(middleware.LogRequest())
	r.Use(middleware.RequestMetrics(s.metricsManager))
	r.Use(middleware.Cors(s.config.AllowedOrigins))
	r.Use(middleware.DrainAndCloseRequest())

	return r, nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	pkg.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) Serve(host string, port int) {
	router, err := s.routerSetup()
	if err != nil {
		log.Fatalf("failed to setup router: %s", err)
	}

	ipAndPort := net.JoinHostPort(host, strconv.Itoa(port))
	s.httpServer = &http.Server{
		Handler:           router,
		Addr:              ipAndPort,
		WriteTimeout:      time.Minute,
		ReadTimeout:       time.Minute,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}

	metricsRouter := mux.NewRouter()
	metricsRouter.Handle("/metrics", promhttp.InstrumentMetricHandler(
		s.promRegistry,
		promhttp.HandlerFor(s.promRegistry, promhttp.HandlerOpts{}),
	))
	metricsAddr := net.JoinHostPort(s.config.PrometheusMetricsHost, s.config.PrometheusMetricsPort)
	s.metricsHttpServer = &http.Server{
		Addr:              metricsAddr,
		Handler:           metricsRouter,
		ReadHeaderTimeout: 10 * time.Second,
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

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown http server")
		}
		log.Warnln("server shut down")
	}

	if s.metricsHttpServer != nil {
		if err := s.metricsHttpServer.Shutdown(ctx); err != nil {
			log.Error(" >>> failed to gracefully shutdown metrics http server")
		}
		log.Warnln("metrics server shut down")
	}

	if s.otelShutdown != nil {
		s.otelShutdown()
		log.Trace("otel shut down ...")
	}

	if s.redisClient != nil {
		if err := s.redisClient.Close(); err != nil {
			log.Errorf("failed to close redis client conn: %s", err)
		}
	}

	if s.dbPool != nil {
		log.Debugln("closing db pool ...")
		s.dbPool.Close() // blocking operation
		log.Debugln("db pool closed")
	}

	if ok := sentry.Flush(5 * time.Second); ok {
		log.Debugf("sentry flush ok: %t", ok)
	}
}
