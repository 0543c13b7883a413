package workflow

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/gofrs/flock"

	"subforge/internal/config"
	"subforge/internal/logging"
	"subforge/internal/outputstore"
	"subforge/internal/pipeline"
	"subforge/internal/queue"
	"subforge/internal/services"
)

const defaultPollInterval = 2 * time.Second

// Options tune runner behavior.
type Options struct {
	// PollInterval is the idle wait between queue checks.
	PollInterval time.Duration
	// Workers is the number of jobs processed concurrently.
	Workers int
}

// Runner drains the job queue, walking each claimed job through the pipeline
// and mirroring its lifecycle back into queue rows. A file lock enforces a
// single runner per work directory.
type Runner struct {
	cfg          *config.Config
	store        *queue.Store
	outputs      *outputstore.Store
	orchestrator *pipeline.Orchestrator
	logger       *slog.Logger
	pollInterval time.Duration
	workers      int

	lockPath string
	lock     *flock.Flock

	mu      sync.Mutex
	running bool
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

// NewRunner wires the pipeline stages to the queue.
func NewRunner(cfg *config.Config, store *queue.Store, deps pipeline.Deps, logger *slog.Logger, opts Options) (*Runner, error) {
	if cfg == nil || store == nil {
		return nil, services.Wrap(services.ErrConfiguration, "workflow", "new", "runner requires config and queue store", nil)
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	if opts.PollInterval <= 0 {
		opts.PollInterval = defaultPollInterval
	}
	if opts.Workers <= 0 {
		opts.Workers = 1
	}

	lockPath := filepath.Join(cfg.Paths.WorkDir, "subforge.lock")
	r := &Runner{
		cfg:          cfg,
		store:        store,
		outputs:      deps.Store,
		logger:       logging.NewComponentLogger(logger, "workflow"),
		pollInterval: opts.PollInterval,
		workers:      opts.Workers,
		lockPath:     lockPath,
		lock:         flock.New(lockPath),
	}

	orchestrator, err := pipeline.New(deps, pipeline.Options{
		Workers:                cfg.Pipeline.Workers,
		SerializeTranscription: opts.Workers > 1,
		OnState:                r.mirrorState,
	})
	if err != nil {
		return nil, err
	}
	r.orchestrator = orchestrator
	return r, nil
}

// LockPath returns the single-instance lock file location.
func (r *Runner) LockPath() string { return r.lockPath }

// Running reports whether background workers are active.
func (r *Runner) Running() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.running
}

// Start acquires the work-dir lock, requeues jobs a crashed run abandoned,
// and launches the worker goroutines.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.running {
		return errors.New("workflow runner already running")
	}

	ok, err := r.lock.TryLock()
	if err != nil {
		return services.Wrap(services.ErrConfiguration, "workflow", "start", "acquire work-dir lock", err)
	}
	if !ok {
		return services.Wrap(services.ErrConfiguration, "workflow", "start", "another runner holds "+r.lockPath, nil)
	}

	if reclaimed, err := r.store.ResetStuck(ctx); err != nil {
		_ = r.lock.Unlock()
		return err
	} else if reclaimed > 0 {
		r.logger.Info("requeued abandoned jobs", logging.Int64("count", reclaimed))
	}
	r.sweepStaging()

	runCtx, cancel := context.WithCancel(ctx)
	r.cancel = cancel
	r.running = true
	r.wg.Add(r.workers)
	for i := 0; i < r.workers; i++ {
		go r.runWorker(runCtx, i)
	}
	r.logger.Info("workflow runner started",
		logging.Int("workers", r.workers),
		logging.String("lock", r.lockPath))
	return nil
}

// Stop cancels the workers, waits for in-flight jobs, and releases the lock.
func (r *Runner) Stop() {
	r.mu.Lock()
	if !r.running {
		r.mu.Unlock()
		return
	}
	cancel := r.cancel
	r.running = false
	r.cancel = nil
	r.mu.Unlock()

	cancel()
	r.wg.Wait()
	if err := r.lock.Unlock(); err != nil {
		r.logger.Warn("failed to release work-dir lock", logging.Error(err))
	}
	r.logger.Info("workflow runner stopped")
}

// Drain processes queued jobs inline until the queue is empty and returns
// the number handled. It holds the same single-instance lock as Start.
func (r *Runner) Drain(ctx context.Context) (int, error) {
	ok, err := r.lock.TryLock()
	if err != nil {
		return 0, services.Wrap(services.ErrConfiguration, "workflow", "drain", "acquire work-dir lock", err)
	}
	if !ok {
		return 0, services.Wrap(services.ErrConfiguration, "workflow", "drain", "another runner holds "+r.lockPath, nil)
	}
	defer func() { _ = r.lock.Unlock() }()

	if _, err := r.store.ResetStuck(ctx); err != nil {
		return 0, err
	}
	r.sweepStaging()

	handled := 0
	for {
		if err := ctx.Err(); err != nil {
			return handled, err
		}
		item, err := r.store.ClaimNext(ctx)
		if err != nil {
			return handled, err
		}
		if item == nil {
			return handled, nil
		}
		r.processItem(ctx, r.logger, item)
		handled++
	}
}

func (r *Runner) runWorker(ctx context.Context, id int) {
	defer r.wg.Done()
	logger := r.logger.With(logging.Int("worker", id))
	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		item, err := r.store.ClaimNext(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			logger.Error("claim next job failed",
				logging.Error(err),
				logging.String(logging.FieldEventType, "queue_claim_failed"))
			r.waitOrShutdown(ctx)
			continue
		}
		if item == nil {
			r.waitOrShutdown(ctx)
			continue
		}
		r.processItem(ctx, logger, item)
	}
}

const staleStagingAge = 24 * time.Hour

// sweepStaging clears staging directories a crashed run left behind.
func (r *Runner) sweepStaging() {
	if r.outputs == nil {
		return
	}
	if removed := r.outputs.CleanStaleStaging(staleStagingAge); len(removed) > 0 {
		r.logger.Info("removed stale staging directories", logging.Int("count", len(removed)))
	}
}

func (r *Runner) waitOrShutdown(ctx context.Context) {
	select {
	case <-ctx.Done():
	case <-time.After(r.pollInterval):
	}
}

func (r *Runner) processItem(ctx context.Context, logger *slog.Logger, item *queue.Item) {
	logger = logger.With(logging.String(logging.FieldJobID, item.JobID))

	job, err := jobFromItem(item, r.cfg)
	if err != nil {
		logger.Error("job rejected", logging.Error(err))
		r.finalizeFailed(ctx, item.JobID, err, pipeline.Result{JobID: item.JobID, SourcePath: item.SourcePath})
		return
	}

	logger.Info("job claimed", logging.String("source", item.SourcePath))
	result, err := r.orchestrator.Run(ctx, job)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			// Shutdown mid-job: hand it back for the next run.
			if setErr := r.store.SetStatus(context.WithoutCancel(ctx), item.JobID, queue.StatusPending); setErr != nil {
				logger.Warn("failed to requeue interrupted job", logging.Error(setErr))
			}
			return
		}
		logger.Error("job failed", logging.Error(err))
		r.finalizeFailed(ctx, item.JobID, err, result)
		return
	}

	r.finalizeCompleted(ctx, item.JobID, result)
	logger.Info("job finished",
		logging.Int("artifacts", len(result.Artifacts)),
		logging.Bool("degraded", result.Degraded))
}

func (r *Runner) finalizeCompleted(ctx context.Context, jobID string, result pipeline.Result) {
	ctx = context.WithoutCancel(ctx)
	if err := r.store.MarkCompleted(ctx, jobID, encodeResult(result), strings.Join(result.Warnings, "; ")); err != nil {
		r.logger.Error("failed to record completion",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}

func (r *Runner) finalizeFailed(ctx context.Context, jobID string, jobErr error, result pipeline.Result) {
	ctx = context.WithoutCancel(ctx)
	if err := r.store.MarkFailed(ctx, jobID, jobErr.Error(), encodeResult(result), strings.Join(result.Warnings, "; ")); err != nil {
		r.logger.Error("failed to record failure",
			logging.String(logging.FieldJobID, jobID),
			logging.Error(err))
	}
}

var stateStatus = map[pipeline.State]queue.Status{
	pipeline.StateProbing:      queue.StatusProbing,
	pipeline.StateExtracting:   queue.StatusExtracting,
	pipeline.StateTranscribing: queue.StatusTranscribing,
	pipeline.StateFormatting:   queue.StatusFormatting,
	pipeline.StateRendering:    queue.StatusRendering,
	pipeline.StateFinalizing:   queue.StatusFinalizing,
}

// mirrorState forwards intermediate pipeline transitions to the queue row.
// Terminal states are written by finalizeCompleted/finalizeFailed with the
// full result payload.
func (r *Runner) mirrorState(ctx context.Context, jobID string, state pipeline.State) {
	status, ok := stateStatus[state]
	if !ok {
		return
	}
	if err := r.store.SetStatus(context.WithoutCancel(ctx), jobID, status); err != nil {
		r.logger.Warn("queue status update failed",
			logging.String(logging.FieldJobID, jobID),
			logging.String(logging.FieldStage, string(status)),
			logging.Error(err))
	}
}

// jobFromItem rebuilds the pipeline job a queue row describes, keeping the
// row's public identifier so results stay joinable.
func jobFromItem(item *queue.Item, cfg *config.Config) (pipeline.Job, error) {
	job, err := pipeline.NewJob(item.SourcePath, splitList(item.Formats), splitList(item.Languages),
		item.StyleName, item.BurnIn, cfg.Dub.EmbedSubtitles)
	if err != nil {
		return pipeline.Job{}, err
	}
	job.ID = item.JobID
	return job, nil
}

func splitList(value string) []string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func encodeResult(result pipeline.Result) string {
	payload, err := json.Marshal(result)
	if err != nil {
		return ""
	}
	return string(payload)
}
