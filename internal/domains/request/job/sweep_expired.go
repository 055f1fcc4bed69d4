package job

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"

	"bikeshop-backend/internal/domains/request/service"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/logger"
)

// ================================================
// SWEEP EXPIRED REQUESTS JOB HANDLER
// ================================================

type SweepExpiredHandler struct {
	requests service.ServiceInterface
}

func NewSweepExpiredHandler(requests service.ServiceInterface) *SweepExpiredHandler {
	return &SweepExpiredHandler{requests: requests}
}

func (h *SweepExpiredHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p shared.SweepExpiredPayload
	if len(t.Payload()) > 0 {
		if err := utils.UnmarshalTask(t, &p); err != nil {
			return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
		}
	}

	expired, err := h.requests.Sweep(ctx, p.BatchSize)
	if err != nil {
		return fmt.Errorf("sweep expired requests: %w", err)
	}

	logger.Info("Completed SweepExpiredRequests job", map[string]interface{}{
		"expired_count": expired,
	})
	return nil
}
