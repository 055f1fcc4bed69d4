package queue

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/hibiken/asynq"

	"bikeshop-backend/internal/shared"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/logger"
)

// expiryGrace delays the expiry task slightly past expires_at so the
// request is unambiguously stale when the worker picks it up.
const expiryGrace = time.Second

// Enqueuer is the part of *asynq.Client the scheduler needs.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// ExpiryScheduler enqueues one delayed expiry task per request.
type ExpiryScheduler struct {
	client Enqueuer
}

func NewExpiryScheduler(client Enqueuer) *ExpiryScheduler {
	return &ExpiryScheduler{client: client}
}

func expiryTaskID(requestID uuid.UUID) string {
	return "expire:" + requestID.String()
}

// ScheduleExpiry is idempotent: the task id is derived from the request,
// so a duplicate enqueue is accepted silently.
func (s *ExpiryScheduler) ScheduleExpiry(ctx context.Context, requestID uuid.UUID, expiresAt time.Time) error {
	task, err := utils.MarshalTask(shared.TypeExpireRequest, shared.ExpireRequestPayload{
		RequestID: requestID,
		ExpiresAt: expiresAt,
	})
	if err != nil {
		return err
	}

	runAt := expiresAt.Add(expiryGrace)
	_, err = s.client.EnqueueContext(ctx, task,
		asynq.Queue(shared.QueueCritical),
		asynq.ProcessAt(runAt),
		asynq.TaskID(expiryTaskID(requestID)),
		asynq.MaxRetry(5),
		asynq.Timeout(30*time.Second),
		asynq.Retention(time.Hour),
	)
	if err != nil {
		if errors.Is(err, asynq.ErrTaskIDConflict) {
			return nil
		}
		return fmt.Errorf("enqueue expiry for %s: %w", requestID, err)
	}

	logger.Debug("Enqueued request expiry", map[string]interface{}{
		"request_id": requestID,
		"execute_at": runAt.Format(time.RFC3339),
	})
	return nil
}
