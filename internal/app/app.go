package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"github.com/valyala/fasthttp"

	"github.com/riskibarqy/livescore-sync/external/footballdata"
	"github.com/riskibarqy/livescore-sync/external/jobqueue"
	"github.com/riskibarqy/livescore-sync/external/onesignal"
	"github.com/riskibarqy/livescore-sync/internal/config"
	"github.com/riskibarqy/livescore-sync/internal/domain/fixture"
	"github.com/riskibarqy/livescore-sync/internal/domain/prediction"
	"github.com/riskibarqy/livescore-sync/internal/domain/runlock"
	"github.com/riskibarqy/livescore-sync/internal/infrastructure/lock"
	cacherepo "github.com/riskibarqy/livescore-sync/internal/infrastructure/repository/cache"
	"github.com/riskibarqy/livescore-sync/internal/infrastructure/repository/memory"
	"github.com/riskibarqy/livescore-sync/internal/infrastructure/repository/postgres"
	"github.com/riskibarqy/livescore-sync/internal/interfaces/httpapi"
	"github.com/riskibarqy/livescore-sync/internal/observability"
	"github.com/riskibarqy/livescore-sync/internal/platform/cache"
	"github.com/riskibarqy/livescore-sync/internal/platform/logging"
	"github.com/riskibarqy/livescore-sync/internal/usecase"
)

// guard is what the live sync cycle and the lock inspection route share.
type guard interface {
	usecase.RunGuard
	usecase.LockInspector
}

// App owns every long-lived dependency of one process.
type App struct {
	cfg     config.Config
	logger  *logging.Logger
	db      *sqlx.DB
	redis   *redis.Client
	guard   guard
	metrics *observability.RunMetrics

	LiveSync *usecase.LiveSyncService
}

func New(ctx context.Context, cfg config.Config, logger *logging.Logger) (*App, error) {
	if logger == nil {
		logger = logging.Default()
	}
	a := &App{cfg: cfg, logger: logger}

	data, err := a.buildDataAccess(ctx)
	if err != nil {
		a.Close()
		return nil, err
	}
	if a.guard, err = a.buildGuard(data.RunLocks); err != nil {
		a.Close()
		return nil, err
	}
	if a.metrics, err = observability.NewRunMetrics("livescore"); err != nil {
		a.Close()
		return nil, err
	}
	queue, err := a.buildJobQueue()
	if err != nil {
		a.Close()
		return nil, err
	}

	scores := footballdata.NewClient(footballdata.ClientConfig{
		HTTPClient:     &http.Client{Timeout: cfg.ScoreAPITimeout},
		BaseURL:        cfg.ScoreAPIBaseURL,
		Token:          cfg.ScoreAPIToken,
		Timeout:        cfg.ScoreAPITimeout,
		MaxRetries:     cfg.ScoreAPIMaxRetries,
		Logger:         logger,
		CircuitBreaker: cfg.ScoreCircuit,
	})
	push := onesignal.NewClient(onesignal.ClientConfig{
		HTTPClient: &fasthttp.Client{
			Name:                "livescore-sync",
			MaxConnsPerHost:     cfg.DispatchWorkers * 2,
			ReadTimeout:         cfg.PushAPITimeout,
			WriteTimeout:        cfg.PushAPITimeout,
			MaxIdleConnDuration: time.Minute,
		},
		BaseURL:        cfg.PushAPIBaseURL,
		AppID:          cfg.PushAppID,
		APIKey:         cfg.PushAPIKey,
		Timeout:        cfg.PushAPITimeout,
		Logger:         logger,
		CircuitBreaker: cfg.PushCircuit,
	})

	a.LiveSync = usecase.NewLiveSyncService(data, a.guard, scores, push, queue, a.metrics, usecase.LiveSyncConfig{
		PollDelay:         cfg.PollIntervalDelay,
		GameweekLookahead: cfg.GameweekLookahead,
		KickoffSlot:       cfg.KickoffBucket,
		HealthCacheTTL:    cfg.HealthCacheTTL,
		DispatchWorkers:   cfg.DispatchWorkers,
		PushPerSecond:     cfg.PushRatePerSecond,
		ScheduleNext:      cfg.QStashEnabled,
		LiveInterval:      cfg.JobLiveInterval,
		PreKickoffLead:    cfg.JobPreKickoffLead,
	}, logger)

	logger.Info("app initialized",
		"env", cfg.AppEnv,
		"database", cfg.UsesDatabase(),
		"lock_backend", cfg.RunLockBackend,
		"qstash", cfg.QStashEnabled,
	)
	return a, nil
}

func (a *App) buildDataAccess(ctx context.Context) (usecase.DataAccess, error) {
	store := cache.NewStore(a.cfg.CacheTTL)

	if !a.cfg.UsesDatabase() {
		a.logger.Warn("DB_URL not set, using seeded in-memory repositories")
		return usecase.DataAccess{
			FixtureSources: []fixture.Source{
				memory.NewFixtureSource(memory.SeedFixtureSource, memory.SeedFixtures(time.Now())),
			},
			Gameweeks:  cacherepo.NewGameweekReader(memory.NewGameweekReader(memory.SeedGameweek), store),
			LiveScores: memory.NewLiveScoreRepository(),
			States:     memory.NewNotificationStateRepository(),
			Logs:       memory.NewNotificationLogRepository(),
			PredictionSources: []prediction.Source{
				cacherepo.NewPredictionSource(memory.NewPredictionSource(memory.SeedPredictionSource, memory.SeedPredictions()), store),
			},
			Subscriptions: memory.NewSubscriptionRepository(memory.SeedSubscriptions()...),
			RunLocks:      memory.NewRunLockRepository(),
		}, nil
	}

	db, err := openDB(ctx, a.cfg.DBURL, a.cfg.DBDisablePreparedBinary)
	if err != nil {
		return usecase.DataAccess{}, err
	}
	a.db = db

	fixtureSources := make([]fixture.Source, 0, len(a.cfg.FixtureSourceTables))
	for _, table := range a.cfg.FixtureSourceTables {
		source, err := postgres.NewFixtureSource(db, table)
		if err != nil {
			return usecase.DataAccess{}, fmt.Errorf("fixture source %q: %w", table, err)
		}
		fixtureSources = append(fixtureSources, source)
	}
	predictionSources := make([]prediction.Source, 0, len(a.cfg.PredictionSourceTables))
	for _, table := range a.cfg.PredictionSourceTables {
		source, err := postgres.NewPredictionSource(db, table)
		if err != nil {
			return usecase.DataAccess{}, fmt.Errorf("prediction source %q: %w", table, err)
		}
		predictionSources = append(predictionSources, cacherepo.NewPredictionSource(source, store))
	}

	return usecase.DataAccess{
		FixtureSources:    fixtureSources,
		Gameweeks:         cacherepo.NewGameweekReader(postgres.NewGameweekReader(db), store),
		LiveScores:        postgres.NewLiveScoreRepository(db),
		States:            postgres.NewNotificationStateRepository(db),
		Logs:              postgres.NewNotificationLogRepository(db),
		PredictionSources: predictionSources,
		Subscriptions:     postgres.NewSubscriptionRepository(db),
		RunLocks:          postgres.NewRunLockRepository(db),
	}, nil
}

func (a *App) buildGuard(repo runlock.Repository) (guard, error) {
	switch a.cfg.RunLockBackend {
	case config.LockBackendRedis:
		opts, err := redis.ParseURL(a.cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse REDIS_URL: %w", err)
		}
		a.redis = redis.NewClient(opts)
		return lock.NewRedisGuard(a.redis, runlock.LiveScoresLock, a.cfg.RunMinInterval, a.logger), nil
	case config.LockBackendPostgres:
		if a.db == nil {
			return nil, errors.New("RUN_LOCK_BACKEND=postgres requires DB_URL")
		}
	}
	return usecase.NewRunLock(repo, usecase.RunLockConfig{
		Name:        runlock.LiveScoresLock,
		MinInterval: a.cfg.RunMinInterval,
		SettleDelay: a.cfg.LockSettleDelay,
		Tolerance:   a.cfg.LockTolerance,
	}, a.logger), nil
}

func (a *App) buildJobQueue() (usecase.JobQueue, error) {
	if !a.cfg.QStashEnabled {
		return usecase.NewNoopJobQueue(), nil
	}
	publisher, err := jobqueue.NewQStashPublisher(jobqueue.QStashPublisherConfig{
		BaseURL:          a.cfg.QStashBaseURL,
		Token:            a.cfg.QStashToken,
		TargetBaseURL:    a.cfg.QStashTargetBaseURL,
		Retries:          a.cfg.QStashRetries,
		InternalJobToken: a.cfg.InternalJobToken,
		CircuitBreaker:   a.cfg.QStashCircuit,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("build qstash publisher: %w", err)
	}
	return publisher, nil
}

func (a *App) LockInspector() usecase.LockInspector {
	return a.guard
}

// NewHTTPServer builds the trigger, health and metrics server.
func (a *App) NewHTTPServer() (*http.Server, error) {
	if a.cfg.HTTPAddr == "" {
		return nil, fmt.Errorf("http server addr cannot be empty")
	}

	handler := httpapi.NewHandler(a.LiveSync, a.guard, a.logger)
	router := httpapi.NewRouter(handler, a.metrics.Handler(), a.logger, a.cfg.InternalJobToken)

	return &http.Server{
		Addr:              a.cfg.HTTPAddr,
		Handler:           router,
		ReadTimeout:       a.cfg.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      a.cfg.WriteTimeout,
	}, nil
}

func (a *App) Close() {
	if a.redis != nil {
		if err := a.redis.Close(); err != nil {
			a.logger.Warn("close redis failed", "error", err)
		}
	}
	if a.db != nil {
		if err := a.db.Close(); err != nil {
			a.logger.Warn("close database failed", "error", err)
		}
	}
}
