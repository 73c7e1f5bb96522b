package retry

import (
	"context"
	"log/slog"
	"time"

	"NewsHarvester/internal/domain"
	"NewsHarvester/internal/ports"
)

const (
	// DefaultMaxRetries bounds how often a failed operation is reattempted.
	DefaultMaxRetries = 3
	// DefaultInitialDelay seeds the exponential backoff between attempts.
	DefaultInitialDelay = 2 * time.Second
)

// Options key an operation to its error-record bookkeeping.
type Options struct {
	Type         domain.ErrorType
	SourceID     *int64
	ArticleID    *int64
	MaxRetries   int
	InitialDelay time.Duration
}

func (o Options) withDefaults() Options {
	if o.MaxRetries <= 0 {
		o.MaxRetries = DefaultMaxRetries
	}
	if o.InitialDelay <= 0 {
		o.InitialDelay = DefaultInitialDelay
	}
	return o
}

// Tracker persists failure bookkeeping across retries and runs. The sleep
// function is injectable so tests can observe backoff without waiting.
type Tracker struct {
	errors ports.ErrorRepository
	logger *slog.Logger
	sleep  func(context.Context, time.Duration)

	maxRetries   int
	initialDelay time.Duration
}

// NewTracker wires an error repository; logger may be nil.
func NewTracker(errors ports.ErrorRepository, logger *slog.Logger) *Tracker {
	return &Tracker{
		errors: errors,
		logger: logger,
		sleep:  sleepContext,
	}
}

// Configure overrides the tracker-wide retry defaults. Options that set
// their own values still win.
func (t *Tracker) Configure(maxRetries int, initialDelay time.Duration) {
	t.maxRetries = maxRetries
	t.initialDelay = initialDelay
}

// SetSleep overrides the backoff sleeper. Intended for tests.
func (t *Tracker) SetSleep(fn func(context.Context, time.Duration)) {
	if fn != nil {
		t.sleep = fn
	}
}

func (t *Tracker) fill(opts Options) Options {
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = t.maxRetries
	}
	if opts.InitialDelay <= 0 {
		opts.InitialDelay = t.initialDelay
	}
	return opts.withDefaults()
}

func sleepContext(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}

// Do invokes fn with bounded exponential-backoff retries, updating the
// unresolved error record for the options key on every failure. Whether to
// retry is decided from the persisted retry count, so failures that span
// runs still respect the bound. On success after at least one recorded
// failure, every unresolved record for the entity pair is resolved. The
// wrapper never touches the owning entity's business status; that stays
// with the caller.
func Do[T any](ctx context.Context, t *Tracker, opts Options, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	opts = t.fill(opts)

	var lastErr error
	hadFailure := false
	for attempt := 0; ; attempt++ {
		result, err := fn(ctx)
		if err == nil {
			if hadFailure {
				t.resolve(ctx, opts)
			}
			return result, nil
		}

		lastErr = err
		hadFailure = true
		retryCount := t.recordFailure(ctx, opts, err)
		if retryCount < attempt {
			// Bookkeeping degraded; the in-call attempt count still bounds us.
			retryCount = attempt
		}
		if retryCount >= opts.MaxRetries {
			t.log(slog.LevelError, "retries exhausted", opts, "error", err, "attempts", attempt+1)
			return zero, lastErr
		}

		delay := opts.InitialDelay * (1 << attempt)
		t.log(slog.LevelWarn, "operation failed, backing off", opts,
			"error", err, "attempt", attempt+1, "delay", delay)
		t.sleep(ctx, delay)
		if ctx.Err() != nil {
			return zero, ctx.Err()
		}
	}
}

// Record performs the increment-or-create bookkeeping for a single failure
// without retrying. Used for best-effort sub-calls whose errors are
// swallowed locally, such as semantic duplicate comparison.
func (t *Tracker) Record(ctx context.Context, opts Options, cause error) {
	opts = t.fill(opts)
	t.recordFailure(ctx, opts, cause)
}

// recordFailure upserts the unresolved record for the key and returns its
// retry count after the update. Bookkeeping failures degrade to in-memory
// counting so the retry bound still holds.
func (t *Tracker) recordFailure(ctx context.Context, opts Options, cause error) int {
	record, err := t.errors.FindUnresolved(ctx, opts.Type, opts.SourceID, opts.ArticleID)
	if err != nil {
		t.log(slog.LevelError, "error record lookup failed", opts, "error", err)
		return 0
	}

	if record == nil {
		err = t.errors.Create(ctx, domain.ErrorRecord{
			Type:       opts.Type,
			SourceID:   opts.SourceID,
			ArticleID:  opts.ArticleID,
			Message:    cause.Error(),
			RetryCount: 0,
			MaxRetries: opts.MaxRetries,
		})
		if err != nil {
			t.log(slog.LevelError, "error record create failed", opts, "error", err)
		}
		return 0
	}

	if err := t.errors.IncrementRetry(ctx, record.ID, cause.Error()); err != nil {
		t.log(slog.LevelError, "error record increment failed", opts, "error", err)
	}
	return record.RetryCount + 1
}

func (t *Tracker) resolve(ctx context.Context, opts Options) {
	if err := t.errors.ResolveFor(ctx, opts.SourceID, opts.ArticleID); err != nil {
		t.log(slog.LevelError, "error record resolve failed", opts, "error", err)
	}
}

// Stats reports aggregate error-record counts, including the most recent n.
func (t *Tracker) Stats(ctx context.Context, recent int) (domain.ErrorStats, error) {
	return t.errors.Stats(ctx, recent)
}

// ResolveAll marks every unresolved record resolved (operator bulk action).
func (t *Tracker) ResolveAll(ctx context.Context) error {
	return t.errors.ResolveAll(ctx)
}

// DeleteResolvedOlderThan prunes resolved records older than the given age.
func (t *Tracker) DeleteResolvedOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	return t.errors.DeleteResolvedOlderThan(ctx, age)
}

func (t *Tracker) log(level slog.Level, msg string, opts Options, args ...any) {
	if t.logger == nil {
		return
	}
	keyArgs := []any{"error_type", string(opts.Type)}
	if opts.SourceID != nil {
		keyArgs = append(keyArgs, "source_id", *opts.SourceID)
	}
	if opts.ArticleID != nil {
		keyArgs = append(keyArgs, "article_id", *opts.ArticleID)
	}
	t.logger.Log(context.Background(), level, msg, append(keyArgs, args...)...)
}
