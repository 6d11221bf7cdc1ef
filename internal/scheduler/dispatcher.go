package scheduler

import (
	"context"
	"time"

	"crm_automation_backend/platform/config"
	"crm_automation_backend/platform/logger"
)

// TickDispatcher enqueues the periodic tasks: a sequence tick every
// TickInterval and a score refresh every ScoreRefreshInterval.
type TickDispatcher struct {
	client               *Client
	tickInterval         time.Duration
	scoreRefreshInterval time.Duration
	log                  *logger.Logger
}

func NewTickDispatcher(cfg config.SchedulerConfig, client *Client, log *logger.Logger) *TickDispatcher {
	return &TickDispatcher{
		client:               client,
		tickInterval:         cfg.GetTickInterval(),
		scoreRefreshInterval: cfg.GetScoreRefreshInterval(),
		log:                  log,
	}
}

func (d *TickDispatcher) Run(ctx context.Context) {
	if d == nil || d.client == nil {
		return
	}

	tick := time.NewTicker(d.tickInterval)
	defer tick.Stop()
	refresh := time.NewTicker(d.scoreRefreshInterval)
	defer refresh.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-tick.C:
			if err := d.client.EnqueueSequenceTick(ctx, SequenceTickPayload{RequestedAt: now.UTC()}); err != nil {
				d.log.Warn("sequence tick enqueue failed", "error", err)
			}
		case now := <-refresh.C:
			if err := d.client.EnqueueScoreRefresh(ctx, ScoreRefreshPayload{RequestedAt: now.UTC()}); err != nil {
				d.log.Warn("score refresh enqueue failed", "error", err)
			}
		}
	}
}
