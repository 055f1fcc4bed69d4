package main

import (
	"github.com/hibiken/asynq"

	"bikeshop-backend/internal/config"
	"bikeshop-backend/pkg/container"
	"bikeshop-backend/pkg/logger"
)

// Config holds the worker-specific view of the application config.
type Config struct {
	Redis       asynq.RedisClientOpt
	Concurrency int
	HealthPort  string
	Jobs        config.JobConfig
}

func loadConfig(c *container.Container) *Config {
	cfg := &Config{
		Redis:       c.RedisConnOpt(),
		Concurrency: c.Config.Jobs.WorkerConcurrency,
		HealthPort:  c.Config.Jobs.HealthPort,
		Jobs:        c.Config.Jobs,
	}
	if cfg.Concurrency < 1 {
		cfg.Concurrency = 1
	}

	logger.Info("Worker config loaded", map[string]interface{}{
		"redis":       cfg.Redis.Addr,
		"concurrency": cfg.Concurrency,
		"sweep_cron":  cfg.Jobs.ExpirySweepCron,
	})
	return cfg
}
