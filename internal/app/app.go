package app

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"

	"NewsHarvester/internal/config"
	"NewsHarvester/internal/dedup"
	"NewsHarvester/internal/infrastructure/feed"
	"NewsHarvester/internal/infrastructure/llm"
	"NewsHarvester/internal/infrastructure/scheduler"
	"NewsHarvester/internal/infrastructure/storage"
	"NewsHarvester/internal/infrastructure/telegram"
	"NewsHarvester/internal/logging"
	"NewsHarvester/internal/ports"
	"NewsHarvester/internal/retry"
	"NewsHarvester/internal/usecase"
)

// Application wires configs to use cases and lifecycle orchestration.
type Application struct {
	cfg       config.Config
	db        *sql.DB
	ingestor  *usecase.Ingestor
	scheduler *usecase.Scheduler
	tracker   *retry.Tracker
	logger    *slog.Logger
}

// New builds a runnable application instance.
func New(cfg config.Config, baseLogger *slog.Logger) (*Application, error) {
	if baseLogger == nil {
		baseLogger = logging.New(cfg.Logging.Level, cfg.Logging.Format)
	}

	db, err := sql.Open("postgres", cfg.Database.DSN)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	repo := storage.NewRepository(db)
	tracker := retry.NewTracker(repo, baseLogger.With("component", "retry"))
	tracker.Configure(cfg.Ingestion.MaxRetries, cfg.Ingestion.InitialDelay())

	var classifier ports.Classifier
	if cfg.Classifier.APIKey != "" {
		classifier = llm.NewClient(cfg.Classifier)
	}

	fetcher := feed.NewFetcher(nil)

	detector := dedup.NewDetector(repo, classifier, tracker,
		baseLogger.With("component", "dedup"))

	// Without a classifier the analysis batch is skipped entirely;
	// harvesting and dedup still run.
	var analyzer *usecase.Analyzer
	if classifier != nil {
		analyzer = usecase.NewAnalyzer(usecase.AnalyzerDeps{
			Articles:   repo,
			Drafts:     repo,
			Classifier: classifier,
			Tracker:    tracker,
			Logger:     baseLogger.With("component", "analyzer"),
		})
	} else {
		baseLogger.Warn("classifier api key missing, analysis disabled")
	}

	var notifier ports.Notifier
	if cfg.Notifications.Telegram.BotToken != "" {
		notifier = telegram.NewNotifier(
			cfg.Notifications.Telegram.BotToken,
			cfg.Notifications.Telegram.ChatID)
	}

	ingestor := usecase.NewIngestor(usecase.IngestorDeps{
		Sources:         repo,
		Articles:        repo,
		Fetcher:         fetcher,
		Detector:        detector,
		Analyzer:        analyzer,
		Tracker:         tracker,
		Notifier:        notifier,
		Logger:          baseLogger.With("component", "ingestor"),
		FreshnessWindow: cfg.Ingestion.FreshnessWindow(),
		AnalysisLimit:   cfg.Ingestion.AnalysisBatchLimit,
	})

	driver := scheduler.NewIntervalScheduler(cfg.Scheduler.Interval())

	return &Application{
		cfg:       cfg,
		db:        db,
		ingestor:  ingestor,
		scheduler: usecase.NewScheduler(driver, ingestor),
		tracker:   tracker,
		logger:    baseLogger,
	}, nil
}

// ResolveErrors marks every tracked unresolved error resolved. Operator
// action for clearing stale bookkeeping after a manual fix.
func (a *Application) ResolveErrors(ctx context.Context) error {
	return a.tracker.ResolveAll(ctx)
}

// RunOnce executes a single harvest run, for external schedulers.
func (a *Application) RunOnce(ctx context.Context) error {
	summary := a.ingestor.Run(ctx, time.Now().UTC())
	if len(summary.Errors) > 0 {
		a.logger.Warn("run finished with errors", "run_id", summary.RunID, "errors", len(summary.Errors))
	}
	return nil
}

// Run starts the interval scheduler and blocks until the context is done.
func (a *Application) Run(ctx context.Context) error {
	if err := a.scheduler.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}
	<-ctx.Done()
	return a.scheduler.Stop(context.Background())
}

// Close releases held resources.
func (a *Application) Close() error {
	if a.db == nil {
		return nil
	}
	return a.db.Close()
}
