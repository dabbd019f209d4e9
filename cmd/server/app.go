package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/parlohq/parlo-api/internal/config"
	"github.com/parlohq/parlo-api/internal/domain"
	"github.com/parlohq/parlo-api/internal/events"
	"github.com/parlohq/parlo-api/internal/platform/gemini"
	"github.com/parlohq/parlo-api/internal/platform/postgres"
	"github.com/parlohq/parlo-api/internal/platform/redis"
	"github.com/parlohq/parlo-api/internal/service"
	"github.com/parlohq/parlo-api/internal/service/auth"
	"github.com/parlohq/parlo-api/internal/service/subscription"
	"github.com/parlohq/parlo-api/internal/store"
	"github.com/parlohq/parlo-api/internal/task"
)

// topicTaskAdapter exposes the slice of topic operations the generation task
// needs on top of the topic store. The task factory cannot depend on the
// topic service itself: the topic service holds the factory for the request
// path, which would close a construction cycle.
type topicTaskAdapter struct {
	topics store.TopicStore
}

func (a *topicTaskAdapter) GetTopic(
	ctx context.Context,
	userID, topicID uuid.UUID,
) (*domain.Topic, error) {
	topic, err := a.topics.GetByID(ctx, topicID)
	if err != nil {
		return nil, err
	}
	if topic.UserID != userID {
		return nil, store.ErrTopicNotFound
	}
	return topic, nil
}

func (a *topicTaskAdapter) SetGenerationStatus(
	ctx context.Context,
	topicID uuid.UUID,
	status domain.GenerationStatus,
) error {
	return a.topics.UpdateGenerationStatus(ctx, topicID, status)
}

// application holds the shared application dependencies so wiring happens in
// one place and cleanup can release them in order on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	userStore    store.UserStore
	topicStore   store.TopicStore
	cardStore    store.CardStore
	sessionStore store.StudySessionStore
	usageStore   store.UsageStore
	taskStore    task.TaskStore

	// Platform services
	jwtService       auth.JWTService
	passwordVerifier auth.PasswordVerifier
	generator        task.Generator
	snapshotCache    *redis.SnapshotCache

	// Domain services
	subscriptionService *subscription.Service
	cardService         service.CardService
	topicService        service.TopicService
	studyService        service.StudyService

	// Event system and background processing
	eventEmitter *events.InMemoryEventEmitter
	taskRunner   *task.TaskRunner
}

// plansFromConfig builds the plan set from the configured daily limits. The
// unlimited plan carries no limits, so only the flag matters.
func plansFromConfig(cfg config.QuotaConfig) domain.Plans {
	return domain.Plans{
		{
			Name:              domain.PlanFree,
			SessionsPerDay:    cfg.FreeSessionsPerDay,
			GenerationsPerDay: cfg.FreeGenerationsPerDay,
		},
		{
			Name:              domain.PlanPro,
			SessionsPerDay:    cfg.ProSessionsPerDay,
			GenerationsPerDay: cfg.ProGenerationsPerDay,
		},
		{
			Name:      domain.PlanUnlimited,
			Unlimited: true,
		},
	}
}

// newApplication creates an application instance with all dependencies
// initialized. The configuration, logger, and database connection must
// already be established; everything else is wired here.
func newApplication(
	ctx context.Context,
	cfg *config.Config,
	logger *slog.Logger,
	db *sql.DB,
) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	var err error
	app.jwtService, err = auth.NewJWTService(cfg.Auth)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize JWT service: %w", err)
	}
	logger.Info("JWT authentication service initialized",
		"token_lifetime_minutes", cfg.Auth.TokenLifetimeMinutes)

	app.passwordVerifier = auth.NewBcryptVerifier()

	// Stores
	app.userStore = postgres.NewPostgresUserStore(db, cfg.Auth.BcryptCost, logger)
	app.topicStore = postgres.NewPostgresTopicStore(db, logger)
	app.cardStore = postgres.NewPostgresCardStore(db, logger)
	app.sessionStore = postgres.NewPostgresStudySessionStore(db, logger)
	app.usageStore = postgres.NewPostgresUsageStore(db, logger)
	app.taskStore = postgres.NewPostgresTaskStore(db, logger)

	// Snapshot cache
	app.snapshotCache, err = redis.NewSnapshotCache(cfg.Redis, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize snapshot cache: %w", err)
	}

	// Event system. The plan-change publisher carries the gate's navigation
	// signal to any registered listeners.
	app.eventEmitter = events.NewInMemoryEventEmitter(logger)
	planNotifier := events.NewPlanChangePublisher(app.eventEmitter, logger)

	// Subscription service owns quota decisions for every metered action.
	app.subscriptionService, err = subscription.NewService(
		app.userStore,
		app.usageStore,
		plansFromConfig(cfg.Quota),
		app.snapshotCache,
		planNotifier,
		cfg.Quota.GateCacheSize,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize subscription service: %w", err)
	}

	// LLM generator
	app.generator, err = gemini.NewGeminiGenerator(
		ctx,
		logger.With("component", "llm_generator"),
		cfg.LLM,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM generator: %w", err)
	}

	// Card service persists generation output and serves card reads, so it
	// exists before the task factory that depends on it.
	app.cardService, err = service.NewCardService(db, app.cardStore, app.topicStore, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create card service: %w", err)
	}

	taskFactory := task.NewCardGenerationTaskFactory(
		&topicTaskAdapter{topics: app.topicStore},
		app.generator,
		app.cardService,
		logger,
	)

	// Task runner recovers unfinished rows on Start, so the reconstructor
	// must be registered first.
	app.taskRunner = task.NewTaskRunner(app.taskStore, task.TaskRunnerConfig{
		WorkerCount:  cfg.Task.WorkerCount,
		QueueSize:    cfg.Task.QueueSize,
		StuckTaskAge: time.Duration(cfg.Task.StuckTaskAgeMinutes) * time.Minute,
	}, logger)
	app.taskRunner.RegisterReconstructor(task.TaskTypeCardGeneration, taskFactory.Reconstruct)
	if err := app.taskRunner.Start(); err != nil {
		return nil, fmt.Errorf("failed to start task runner: %w", err)
	}

	generationHandler := task.NewGenerationEventHandler(
		taskFactory.Reconstruct,
		app.taskRunner,
		logger,
	)
	app.eventEmitter.RegisterHandler(generationHandler)

	app.topicService, err = service.NewTopicService(
		db,
		app.topicStore,
		app.taskStore,
		app.subscriptionService,
		taskFactory,
		app.eventEmitter,
		cfg.LLM.CardsPerTopic,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create topic service: %w", err)
	}

	app.studyService, err = service.NewStudyService(
		db,
		app.sessionStore,
		app.topicStore,
		app.subscriptionService,
		logger,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create study service: %w", err)
	}

	logger.Info("application initialized")
	return app, nil
}

// Run starts the HTTP server and blocks until shutdown completes.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// cleanup releases application resources in dependency order: background
// workers first, then the cache connection, then the database.
func (app *application) cleanup() {
	if app.taskRunner != nil {
		app.taskRunner.Stop()
	}

	if app.snapshotCache != nil {
		if err := app.snapshotCache.Close(); err != nil {
			app.logger.Error("error closing snapshot cache", "error", err)
		}
	}

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error("error closing database connection", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
