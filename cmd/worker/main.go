package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"campusbus/internal/config"
	"campusbus/internal/entitlement"
	"campusbus/internal/ledger"
	"campusbus/internal/queue"
	"campusbus/internal/scan"
	"campusbus/internal/store"
	"campusbus/internal/summary"
)

// Worker folds committed ledger events into the cached live summary and runs
// the end-of-day finalization pass.
func main() {
	cfg := config.Load()
	log := config.NewLogger(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		log.Info("shutdown signal received")
		cancel()
	}()

	db, err := store.NewDB(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	defer db.Close()

	redisClient := store.NewRedis(cfg.RedisAddr)

	var q queue.Queue
	if cfg.QueueBackend == "memory" {
		q = queue.NewInMemory(64)
	} else {
		q = queue.NewRedisQueue(redisClient.Client, queue.DefaultKey)
	}

	projector := summary.NewProjector(summary.NewRepository(db.Client))
	cache := summary.NewCache(redisClient.Client, 48*time.Hour)
	ledgerRepo := ledger.NewRepository(db.Client)

	if cfg.FinalizeAfter != "" {
		go runFinalizer(ctx, cfg, log, ledgerRepo)
	} else {
		log.Info("FINALIZE_AFTER not set, end-of-day finalization disabled")
	}

	messages, err := q.Consume(ctx)
	if err != nil {
		log.Fatalf("queue consume init failed: %v", err)
	}

	log.Info("worker started, waiting for ledger events...")
	for msg := range messages {
		if msg.Type != scan.EventType {
			continue
		}
		evt, err := scan.DecodeEvent(msg.Body)
		if err != nil {
			log.WithError(err).Warn("bad ledger event, dropping")
			continue
		}

		rows, err := projector.Summarize(ctx, evt.Date)
		if err != nil {
			log.WithError(err).WithField("date", evt.Date).Error("summary rebuild failed")
			continue
		}
		if err := cache.Store(ctx, evt.Date, rows); err != nil {
			log.WithError(err).Warn("summary cache update failed")
			continue
		}
		log.WithFields(logrus.Fields{
			"date":  evt.Date,
			"route": evt.RouteID,
			"slot":  string(evt.Slot),
		}).Debug("summary refreshed")
	}

	log.Info("worker stopped")
}

// runFinalizer freezes attendance records once the configured wall-clock
// cutoff has passed. Records with every slot stamped close as COMPLETED; a
// student who boarded the return leg but never reached home stays
// IN_PROGRESS, never promoted. Each pass sweeps through the most recent due
// date, so days left open while the worker was down are closed on restart.
func runFinalizer(ctx context.Context, cfg config.App, log *logrus.Logger, repo *ledger.Repository) {
	cutoff, err := time.Parse("15:04", cfg.FinalizeAfter)
	if err != nil {
		log.Errorf("invalid FINALIZE_AFTER %q: %v, finalization disabled", cfg.FinalizeAfter, err)
		return
	}
	loc := cfg.Location()

	var lastDone string
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		date := finalizeTarget(time.Now().In(loc), cutoff)
		if date == lastDone {
			continue
		}

		n, err := repo.FinalizeThrough(ctx, date)
		if err != nil {
			log.WithError(err).WithField("date", date).Error("finalization failed, will retry")
			continue
		}
		lastDone = date
		log.WithFields(logrus.Fields{"through": date, "records": n}).Info("attendance finalized")
	}
}

// finalizeTarget returns the most recent service date whose cutoff has
// passed. Before today's cutoff that is yesterday, which is what makes a
// post-midnight restart still close out the prior day.
func finalizeTarget(now, cutoff time.Time) string {
	gate := time.Date(now.Year(), now.Month(), now.Day(), cutoff.Hour(), cutoff.Minute(), 0, 0, now.Location())
	if now.Before(gate) {
		now = now.AddDate(0, 0, -1)
	}
	return now.Format(entitlement.DateLayout)
}
