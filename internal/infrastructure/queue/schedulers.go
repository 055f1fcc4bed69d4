package queue

import (
	"time"

	"github.com/hibiken/asynq"

	"bikeshop-backend/internal/config"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/logger"
)

// Registrar is the part of *asynq.Scheduler used to register cron entries.
type Registrar interface {
	Register(cronspec string, task *asynq.Task, opts ...asynq.Option) (string, error)
}

type Scheduler struct {
	scheduler *asynq.Scheduler
	jobConfig config.JobConfig
}

func NewScheduler(redisOpt asynq.RedisConnOpt, jobConfig config.JobConfig) *Scheduler {
	scheduler := asynq.NewScheduler(
		redisOpt,
		&asynq.SchedulerOpts{
			Location: time.UTC,
			LogLevel: asynq.InfoLevel,
		},
	)

	return &Scheduler{
		scheduler: scheduler,
		jobConfig: jobConfig,
	}
}

func (s *Scheduler) RegisterJobs() error {
	return RegisterExpirySweep(s.scheduler, s.jobConfig)
}

// ================================================
// JOB: Sweep expired requests (every minute by default)
// ================================================
// The per-request delayed task covers the common case; the sweep catches
// requests whose task was lost or never enqueued.
func RegisterExpirySweep(r Registrar, jobConfig config.JobConfig) error {
	task, err := utils.MarshalTask(shared.TypeSweepExpiredRequests, shared.SweepExpiredPayload{
		BatchSize: jobConfig.SweepBatchSize,
	})
	if err != nil {
		return err
	}

	_, err = r.Register(
		jobConfig.ExpirySweepCron,
		task,
		asynq.Queue(shared.QueueDefault),
		asynq.MaxRetry(1),
		asynq.Timeout(2*time.Minute),
		// A slow run must not pile up behind itself
		asynq.Unique(time.Minute),
	)
	if err != nil {
		logger.Error("Failed to register SweepExpiredRequests job", err)
		return err
	}

	logger.Info("Registered SweepExpiredRequests", map[string]interface{}{
		"cron":       jobConfig.ExpirySweepCron,
		"batch_size": jobConfig.SweepBatchSize,
	})
	return nil
}

func (s *Scheduler) Start() error {
	return s.scheduler.Run()
}

func (s *Scheduler) Shutdown() {
	s.scheduler.Shutdown()
}
