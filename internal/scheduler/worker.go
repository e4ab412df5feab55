package scheduler

import (
	"context"
	"fmt"
	"time"

	"studio_sales_backend/platform/config"
	"studio_sales_backend/platform/logger"

	"github.com/hibiken/asynq"
)

const defaultSweepInterval = time.Minute

// Worker runs the asynq server that executes sweeps and the periodic
// scheduler that enqueues them.
type Worker struct {
	server    *asynq.Server
	scheduler *asynq.Scheduler
	mux       *asynq.ServeMux
	sweeper   Sweeper
	log       *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, sweeper Sweeper, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL(), cfg.GetRedisTLSInsecure())
	if err != nil {
		return nil, err
	}

	queue := queueName(cfg)
	concurrency := cfg.GetAsynqConcurrency()
	if concurrency < 1 {
		concurrency = 2
	}
	interval := cfg.GetHoldSweepInterval()
	if interval <= 0 {
		interval = defaultSweepInterval
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: concurrency,
		Queues: map[string]int{
			queue: 1,
		},
	})

	scheduler := asynq.NewScheduler(opt, nil)
	task, err := NewHoldSweepTask(HoldSweepPayload{Reason: "periodic"})
	if err != nil {
		return nil, err
	}
	// Unique keeps a slow sweep from piling up behind itself.
	if _, err := scheduler.Register(fmt.Sprintf("@every %s", interval), task,
		asynq.Queue(queue), asynq.MaxRetry(0), asynq.Unique(interval)); err != nil {
		return nil, fmt.Errorf("register hold sweep: %w", err)
	}

	w := &Worker{
		server:    server,
		scheduler: scheduler,
		mux:       asynq.NewServeMux(),
		sweeper:   sweeper,
		log:       log,
	}
	w.mux.HandleFunc(TaskHoldSweep, w.handleHoldSweep)
	return w, nil
}

// Run blocks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) error {
	if err := w.server.Start(w.mux); err != nil {
		return fmt.Errorf("start worker: %w", err)
	}
	if err := w.scheduler.Start(); err != nil {
		w.server.Shutdown()
		return fmt.Errorf("start scheduler: %w", err)
	}
	w.log.Info("hold sweep worker started")

	<-ctx.Done()
	w.scheduler.Shutdown()
	w.server.Shutdown()
	return nil
}

func (w *Worker) handleHoldSweep(ctx context.Context, task *asynq.Task) error {
	payload, err := ParseHoldSweepPayload(task)
	if err != nil {
		return fmt.Errorf("%w: %v", asynq.SkipRetry, err)
	}
	return runSweep(ctx, w.sweeper, w.log, payload.Reason)
}

func runSweep(ctx context.Context, sweeper Sweeper, log *logger.Logger, reason string) error {
	report, err := sweeper.Sweep(ctx)
	if err != nil {
		log.Warn("hold sweep incomplete", "reason", reason, "error", err)
		return err
	}
	if report.Warned+report.Released+report.Retried+report.Failed > 0 {
		log.Info("hold sweep finished",
			"reason", reason,
			"visited", report.Visited,
			"skipped", report.Skipped,
			"warned", report.Warned,
			"released", report.Released,
			"retried", report.Retried,
			"failed", report.Failed,
		)
	}
	return nil
}
