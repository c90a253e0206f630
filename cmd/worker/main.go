// Command worker runs the background jobs: it drains reservation events
// into the audit log and replenishes membership benefits on schedule.
package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/iliyamo/gym-session-reservation/internal/config"
	"github.com/iliyamo/gym-session-reservation/internal/database"
	"github.com/iliyamo/gym-session-reservation/internal/queue"
	"github.com/iliyamo/gym-session-reservation/internal/repository"
	"github.com/iliyamo/gym-session-reservation/internal/service"
)

func main() {
	config.LoadDotEnv()
	cfg := config.Load()
	logger := cfg.NewLogger("gym-worker")

	db, err := database.Open(cfg.DatabaseOptions())
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	replenisher, err := service.NewBenefitReplenisher(cfg.BenefitResetRule, cfg.Location,
		repository.NewMemberRepo(db), logger)
	if err != nil {
		log.Fatalf("benefit schedule: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var wg sync.WaitGroup
	run := func(name string, fn func(context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := fn(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("job stopped", "job", name, "error", err)
			}
		}()
	}

	logger.Info("worker started", "next_benefit_reset", replenisher.NextRun(time.Now()).Format(time.RFC3339))
	run("benefits", replenisher.Run)
	if cfg.RabbitURL != "" {
		c := &queue.Consumer{URL: cfg.RabbitURL, LogPath: cfg.EventLogPath, Logger: logger}
		run("events", c.Run)
	} else {
		logger.Warn("RABBITMQ_URL not set; event consumer disabled")
	}

	wg.Wait()
	logger.Info("worker stopped")
}
