package scheduler

import (
	"context"

	"crm_automation_backend/internal/crm/scoring"
	"crm_automation_backend/internal/sequences/tracker"
	"crm_automation_backend/platform/config"
	"crm_automation_backend/platform/logger"

	"github.com/hibiken/asynq"
)

// Worker executes scheduled tasks. Task failures are logged and reported to
// asynq for retry; they never stop the worker itself.
type Worker struct {
	server  *asynq.Server
	mux     *asynq.ServeMux
	tracker *tracker.Tracker
	scoring *scoring.Service
	log     *logger.Logger
}

func NewWorker(cfg config.SchedulerConfig, trk *tracker.Tracker, scoringSvc *scoring.Service, log *logger.Logger) (*Worker, error) {
	opt, err := redisClientOpt(cfg.GetRedisURL())
	if err != nil {
		return nil, err
	}

	server := asynq.NewServer(opt, asynq.Config{
		Concurrency: 2,
		Queues: map[string]int{
			"default": 1,
		},
	})

	mux := asynq.NewServeMux()
	w := &Worker{
		server:  server,
		mux:     mux,
		tracker: trk,
		scoring: scoringSvc,
		log:     log,
	}

	mux.HandleFunc(TaskSequenceTick, w.handleSequenceTick)
	mux.HandleFunc(TaskScoreRefresh, w.handleScoreRefresh)

	return w, nil
}

func (w *Worker) handleSequenceTick(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseSequenceTickPayload(task); err != nil {
		return err
	}

	_, err := w.tracker.ProcessAll(ctx)
	if err != nil {
		w.log.Error("sequence tick failed", "error", err)
	}
	return err
}

func (w *Worker) handleScoreRefresh(ctx context.Context, task *asynq.Task) error {
	if _, err := ParseScoreRefreshPayload(task); err != nil {
		return err
	}

	summary, err := w.scoring.RefreshAll(ctx)
	if err != nil {
		w.log.Error("score refresh failed", "error", err)
		return err
	}

	w.log.Info("score refresh complete",
		"processed", summary.Processed,
		"failed", summary.Failed,
		"wentCold", summary.WentCold,
	)
	return nil
}

func (w *Worker) Run(ctx context.Context) {
	if w == nil || w.server == nil {
		return
	}

	go func() {
		<-ctx.Done()
		w.server.Shutdown()
	}()

	if err := w.server.Run(w.mux); err != nil {
		w.log.Error("scheduler worker stopped", "error", err)
	}
}
