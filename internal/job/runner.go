package job

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/smera-app/smera/internal/config"
	"github.com/smera-app/smera/internal/redact"
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

var (
	// ErrQueueFull is returned by Submit when the in-memory queue has no room.
	// The job is already persisted and will run after the next recovery.
	ErrQueueFull = errors.New("job queue is full, try again later")

	// ErrRunnerStopped is returned by Submit after Stop.
	ErrRunnerStopped = errors.New("job runner is stopped")
)

// statusUpdateTimeout bounds status writes made outside a request.
const statusUpdateTimeout = 10 * time.Second

// RunnerConfig holds configuration for the Runner.
type RunnerConfig struct {
	// WorkerCount is the number of jobs processed concurrently.
	WorkerCount int

	// QueueSize is the buffer size of the in-memory queue.
	QueueSize int

	// StuckJobAge is how long a job may stay processing before it is reset.
	StuckJobAge time.Duration

	// StuckJobCheckInterval is how often to look for stuck jobs.
	StuckJobCheckInterval time.Duration
}

// DefaultRunnerConfig returns a RunnerConfig with reasonable defaults.
func DefaultRunnerConfig() RunnerConfig {
	return RunnerConfig{
		WorkerCount:           2,
		QueueSize:             100,
		StuckJobAge:           30 * time.Minute,
		StuckJobCheckInterval: 5 * time.Minute,
	}
}

// RunnerConfigFrom converts the jobs section of the server configuration.
func RunnerConfigFrom(cfg config.JobsConfig) RunnerConfig {
	return RunnerConfig{
		WorkerCount:           cfg.WorkerCount,
		QueueSize:             cfg.QueueSize,
		StuckJobAge:           cfg.StuckJobAge,
		StuckJobCheckInterval: cfg.StuckJobCheckInterval,
	}
}

// Runner executes jobs on a fixed pool of workers.
type Runner struct {
	store   Store
	builder Builder
	queue   chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      conc.WaitGroup
	config  RunnerConfig
	logger  *slog.Logger

	mu      sync.RWMutex
	stopped bool

	errHandler func(job Job, err error)
}

// NewRunner creates a Runner. builder is used to rebuild jobs found in the
// store during recovery.
func NewRunner(store Store, builder Builder, cfg RunnerConfig, logger *slog.Logger) *Runner {
	defaults := DefaultRunnerConfig()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = defaults.WorkerCount
	}
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = defaults.QueueSize
	}
	if cfg.StuckJobAge <= 0 {
		cfg.StuckJobAge = defaults.StuckJobAge
	}
	if cfg.StuckJobCheckInterval <= 0 {
		cfg.StuckJobCheckInterval = defaults.StuckJobCheckInterval
	}
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "job_runner")

	ctx, cancel := context.WithCancel(context.Background())

	return &Runner{
		store:   store,
		builder: builder,
		queue:   make(chan Job, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		config:  cfg,
		logger:  logger,
		errHandler: func(job Job, err error) {
			logger.Error("job failed",
				"job_id", job.ID(),
				"job_type", job.Type(),
				redact.Attr("error", err))
		},
	}
}

// SetErrorHandler replaces the function called when a job fails.
func (r *Runner) SetErrorHandler(handler func(job Job, err error)) {
	r.errHandler = handler
}

// Submit persists job and queues it for execution.
func (r *Runner) Submit(ctx context.Context, job Job) error {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.stopped {
		return ErrRunnerStopped
	}

	if err := r.store.SaveJob(ctx, job); err != nil {
		return fmt.Errorf("failed to save job: %w", err)
	}

	select {
	case r.queue <- job:
		return nil
	default:
		return ErrQueueFull
	}
}

// Start recovers unfinished jobs, then starts the workers and the stuck-job
// monitor.
func (r *Runner) Start() error {
	if err := r.Recover(); err != nil {
		return fmt.Errorf("failed to recover jobs: %w", err)
	}

	for i := 0; i < r.config.WorkerCount; i++ {
		id := i
		r.wg.Go(func() { r.worker(id) })
	}
	r.wg.Go(r.stuckJobMonitor)

	r.logger.Info("job runner started",
		"worker_count", r.config.WorkerCount,
		"queue_size", r.config.QueueSize)
	return nil
}

// Stop cancels in-flight jobs and waits for the workers to exit. Jobs that
// were interrupted stay processing and are picked up by the next recovery.
func (r *Runner) Stop() {
	r.mu.Lock()
	if r.stopped {
		r.mu.Unlock()
		return
	}
	r.stopped = true
	r.mu.Unlock()

	r.cancel()
	r.wg.Wait()
	close(r.queue)
	r.logger.Info("job runner stopped")
}

// Recover queues jobs left pending by a previous run and resets jobs that
// were processing when it ended.
func (r *Runner) Recover() error {
	ctx := r.ctx

	pending, err := r.store.GetPendingJobs(ctx)
	if err != nil {
		return fmt.Errorf("failed to get pending jobs: %w", err)
	}

	// all processing jobs, regardless of age
	processing, err := r.store.GetProcessingJobs(ctx, 0)
	if err != nil {
		return fmt.Errorf("failed to get processing jobs: %w", err)
	}

	r.logger.Info("recovering unfinished jobs",
		"pending_count", len(pending),
		"processing_count", len(processing))

	for _, rec := range pending {
		r.requeue(ctx, rec, "")
	}
	for _, rec := range processing {
		r.requeue(ctx, rec, "reset after recovery")
	}
	return nil
}

// requeue rebuilds rec and puts it back on the queue. A non-empty reason
// resets the job to pending first.
func (r *Runner) requeue(ctx context.Context, rec Record, reason string) {
	log := r.logger.With("job_id", rec.ID, "job_type", rec.Type)

	job, err := r.builder.Rebuild(rec)
	if err != nil {
		log.Error("cannot rebuild job, marking it failed", redact.Attr("error", err))
		if uerr := r.store.UpdateJobStatus(ctx, rec.ID, StatusFailed, err.Error()); uerr != nil {
			log.Error("failed to mark job failed", redact.Attr("error", uerr))
		}
		return
	}

	if reason != "" {
		if err := r.store.UpdateJobStatus(ctx, rec.ID, StatusPending, reason); err != nil {
			log.Error("failed to reset job status", redact.Attr("error", err))
			return
		}
	}

	select {
	case r.queue <- job:
		log.Debug("requeued job")
	default:
		log.Error("failed to requeue job, queue is full")
	}
}

func (r *Runner) worker(id int) {
	r.logger.Debug("starting worker", "worker_id", id)

	for {
		select {
		case <-r.ctx.Done():
			r.logger.Debug("stopping worker", "worker_id", id)
			return
		case job := <-r.queue:
			r.processJob(job, id)
		}
	}
}

func (r *Runner) processJob(job Job, workerID int) {
	log := r.logger.With(
		"job_id", job.ID(),
		"job_type", job.Type(),
		"worker_id", workerID,
	)

	if err := r.setStatus(job, StatusProcessing, ""); err != nil {
		log.Error("failed to update job status to processing", redact.Attr("error", err))
		return
	}

	log.Info("processing job")
	start := time.Now()

	var pc panics.Catcher
	var err error
	pc.Try(func() { err = job.Execute(r.ctx) })
	if rec := pc.Recovered(); rec != nil {
		err = rec.AsError()
	}

	if err != nil && r.ctx.Err() != nil {
		log.Warn("job interrupted by shutdown", redact.Attr("error", err))
		return
	}

	if err != nil {
		if uerr := r.setStatus(job, StatusFailed, redact.Error(err)); uerr != nil {
			log.Error("failed to update job status to failed", redact.Attr("error", uerr))
		}
		r.errHandler(job, err)
		return
	}

	log.Info("job completed", "duration_ms", time.Since(start).Milliseconds())
	if uerr := r.setStatus(job, StatusCompleted, ""); uerr != nil {
		log.Error("failed to update job status to completed", redact.Attr("error", uerr))
	}
}

func (r *Runner) setStatus(job Job, status Status, msg string) error {
	ctx, cancel := context.WithTimeout(context.Background(), statusUpdateTimeout)
	defer cancel()
	return r.store.UpdateJobStatus(ctx, job.ID(), status, msg)
}

// stuckJobMonitor resets jobs that have been processing for too long.
func (r *Runner) stuckJobMonitor() {
	ticker := time.NewTicker(r.config.StuckJobCheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.ctx.Done():
			return
		case <-ticker.C:
			stuck, err := r.store.GetProcessingJobs(r.ctx, r.config.StuckJobAge)
			if err != nil {
				r.logger.Error("failed to check for stuck jobs", redact.Attr("error", err))
				continue
			}
			if len(stuck) == 0 {
				continue
			}

			r.logger.Info("found stuck jobs", "count", len(stuck))
			for _, rec := range stuck {
				r.requeue(r.ctx, rec, "reset after being stuck in processing state")
			}
		}
	}
}
