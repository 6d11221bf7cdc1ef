// The scheduler binary runs the background side of the system: a dispatcher
// that enqueues periodic work and an asynq worker that executes it.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	crmrepo "crm_automation_backend/internal/crm/repository"
	"crm_automation_backend/internal/crm/scoring"
	"crm_automation_backend/internal/email"
	"crm_automation_backend/internal/events"
	"crm_automation_backend/internal/notifier"
	"crm_automation_backend/internal/scheduler"
	"crm_automation_backend/internal/sequences/catalog"
	seqrepo "crm_automation_backend/internal/sequences/repository"
	"crm_automation_backend/internal/sequences/template"
	"crm_automation_backend/internal/sequences/tracker"
	"crm_automation_backend/internal/sms"
	"crm_automation_backend/platform/config"
	"crm_automation_backend/platform/db"
	"crm_automation_backend/platform/logger"

	"github.com/jackc/pgx/v5/pgxpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	log := logger.New(cfg.Env)
	log.Info("starting scheduler", "env", cfg.Env)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var pool *pgxpool.Pool
	if err := withRetry(ctx, log, "database connection", 5, 2*time.Second, func() error {
		p, err := db.NewPool(ctx, cfg)
		if err != nil {
			return err
		}
		pool = p
		return nil
	}); err != nil {
		log.Error("failed to connect to database", "error", err)
		panic("failed to connect to database: " + err.Error())
	}
	defer pool.Close()

	eventBus := events.NewInMemoryBus(log)

	sender, err := email.NewSender(cfg)
	if err != nil {
		log.Error("failed to initialize email sender", "error", err)
		panic("failed to initialize email sender: " + err.Error())
	}
	smsClient := sms.NewClient(cfg)
	notifierSvc := notifier.New(sender, smsClient, cfg, cfg.GetSalesAlertPhone(), log)
	notifierSvc.SubscribeSalesAlerts(eventBus)

	renderer, err := template.New()
	if err != nil {
		log.Error("failed to initialize templates", "error", err)
		panic("failed to initialize templates: " + err.Error())
	}

	repo := crmrepo.New(pool)
	scoringSvc := scoring.NewService(repo, scoring.NewEngine(), eventBus, log)

	trk := tracker.New(seqrepo.New(pool), catalog.New(), repo, renderer, notifierSvc, eventBus, log,
		tracker.WithParallelism(cfg.GetNotifierParallelism()))

	client, err := scheduler.NewClient(cfg)
	if err != nil {
		log.Error("failed to initialize scheduler client", "error", err)
		panic("failed to initialize scheduler client: " + err.Error())
	}
	defer func() {
		_ = client.Close()
	}()

	worker, err := scheduler.NewWorker(cfg, trk, scoringSvc, log)
	if err != nil {
		log.Error("failed to initialize scheduler worker", "error", err)
		panic("failed to initialize scheduler worker: " + err.Error())
	}

	dispatcher := scheduler.NewTickDispatcher(cfg, client, log)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		dispatcher.Run(ctx)
	}()
	go func() {
		defer wg.Done()
		worker.Run(ctx)
	}()

	<-ctx.Done()
	log.Info("shutdown signal received, waiting for workers")
	wg.Wait()
	eventBus.Wait()
}

func withRetry(ctx context.Context, log *logger.Logger, name string, attempts int, baseDelay time.Duration, fn func() error) error {
	if attempts < 1 {
		return fmt.Errorf("%s: invalid retry attempts", name)
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		if err := fn(); err == nil {
			return nil
		} else {
			lastErr = err
			log.Warn("retryable operation failed", "operation", name, "attempt", attempt, "error", err)
		}

		if attempt < attempts {
			delay := time.Duration(attempt*attempt) * baseDelay
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return errors.New(name + ": " + lastErr.Error())
}
