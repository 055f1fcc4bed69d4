package main

import (
	"log"

	"bikeshop-backend/internal/infrastructure/queue"
	"bikeshop-backend/pkg/logger"
)

type asynqScheduler struct {
	*queue.Scheduler
}

func setupScheduler(cfg *Config) *asynqScheduler {
	scheduler := queue.NewScheduler(cfg.Redis, cfg.Jobs)

	if err := scheduler.RegisterJobs(); err != nil {
		log.Fatalf("Failed to register scheduled jobs: %v", err)
	}

	go func() {
		logger.Info("Scheduler starting", nil)
		if err := scheduler.Start(); err != nil {
			log.Fatalf("Scheduler failed: %v", err)
		}
	}()

	return &asynqScheduler{Scheduler: scheduler}
}

func (s *asynqScheduler) Shutdown() {
	s.Scheduler.Shutdown()
	logger.Info("Scheduler stopped", nil)
}
