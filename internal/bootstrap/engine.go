package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/sourcegraph/conc/pool"

	"github.com/example/interview-scheduler/internal/application"
	"github.com/example/interview-scheduler/internal/config"
	"github.com/example/interview-scheduler/internal/directory"
	"github.com/example/interview-scheduler/internal/notify"
	"github.com/example/interview-scheduler/internal/persistence/sqlite"
)

// Options tune how NewEngine assembles its parts. Zero values select production defaults.
type Options struct {
	Config config.Config
	Logger *slog.Logger
	Now    func() time.Time
	IDs    func() string
	// SQLite replaces the settings derived from Config.SQLitePath.
	SQLite *sqlite.Config
	// DirectorySource replaces the HTTP directory client.
	DirectorySource directory.Source
	// SkipMigrations leaves the schema untouched.
	SkipMigrations bool
}

// Engine is the assembled scheduler: storage, directory cache, notification outbox and
// the services built on them.
type Engine struct {
	Config    config.Config
	Logger    *slog.Logger
	Storage   *sqlite.Storage
	Directory *directory.Cache
	Breaker   *directory.Breaker
	Outbox    *notify.Outbox

	Dispatcher     *notify.Dispatcher
	Slots          *application.SlotService
	Interviews     *application.InterviewService
	ChangeRequests *application.ChangeRequestService
}

// NewEngine opens storage, applies migrations and wires the services.
func NewEngine(ctx context.Context, opts Options) (*Engine, error) {
	cfg := opts.Config
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	ids := opts.IDs
	if ids == nil {
		ids = uuid.NewString
	}

	source := opts.DirectorySource
	if source == nil {
		if err := cfg.RequireDirectory(); err != nil {
			return nil, err
		}
		client, err := directory.NewClient(cfg.DirectoryURL, cfg.DirectoryTimeout, directory.WithRateLimit(cfg.DirectoryRateLimit, 1))
		if err != nil {
			return nil, err
		}
		source = client
	}

	dbConfig := sqlite.DefaultConfig(cfg.SQLitePath)
	if opts.SQLite != nil {
		dbConfig = *opts.SQLite
	}
	storage, err := sqlite.OpenWithConfig(dbConfig, logger)
	if err != nil {
		return nil, err
	}
	if !opts.SkipMigrations {
		if err := storage.Migrate(ctx); err != nil {
			_ = storage.Close()
			return nil, fmt.Errorf("bootstrap: apply migrations: %w", err)
		}
	}

	breaker := directory.NewBreaker(source, directory.BreakerSettings{
		FailureThreshold: cfg.DirectoryFailureThreshold,
		OpenTimeout:      cfg.DirectoryOpenTimeout,
		CallTimeout:      cfg.DirectoryTimeout,
	}, logger)
	cache := directory.NewCache(breaker,
		directory.WithRefreshInterval(cfg.DirectoryRefreshInterval),
		directory.WithNow(now),
		directory.WithLogger(logger),
	)

	outbox := notify.NewOutbox(storage, notify.WithOutboxClock(now))
	dispatcher, err := notify.NewDispatcher(storage, cfg.NotificationWebhookURL, cfg.NotificationTimeout,
		notify.WithInterval(cfg.NotificationInterval),
		notify.WithBatchSize(cfg.NotificationBatchSize),
		notify.WithClock(now),
		notify.WithLogger(logger),
	)
	if err != nil {
		_ = storage.Close()
		return nil, err
	}

	store := newStoreAdapter(storage)
	people := newDirectoryAdapter(cache)
	slots := application.NewSlotServiceWithLogger(store, people, ids, now, logger)
	interviews := application.NewInterviewServiceWithLogger(store, slots, people, outbox, ids, now, logger)
	requests := application.NewChangeRequestServiceWithLogger(store, interviews, slots, ids, now, logger)

	return &Engine{
		Config:         cfg,
		Logger:         logger,
		Storage:        storage,
		Directory:      cache,
		Breaker:        breaker,
		Outbox:         outbox,
		Dispatcher:     dispatcher,
		Slots:          slots,
		Interviews:     interviews,
		ChangeRequests: requests,
	}, nil
}

// Run keeps the directory cache fresh and drains the notification outbox until ctx is done.
func (e *Engine) Run(ctx context.Context) error {
	workers := pool.New().WithContext(ctx).WithCancelOnError()
	workers.Go(e.Directory.Run)
	workers.Go(e.Dispatcher.Run)

	e.Logger.InfoContext(ctx, "scheduler engine running",
		"sqlite_path", e.Config.SQLitePath,
		"webhook_enabled", e.Dispatcher.Enabled(),
	)
	err := workers.Wait()
	e.Logger.InfoContext(context.WithoutCancel(ctx), "scheduler engine stopped", "error", err)
	return err
}

// Close releases storage.
func (e *Engine) Close() error {
	if e == nil {
		return nil
	}
	return e.Storage.Close()
}
