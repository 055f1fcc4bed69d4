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
// EXPIRE REQUEST JOB HANDLER
// ================================================

// ExpireRequestHandler runs the delayed task enqueued at submit time.
// It is a no-op when the request was approved, rejected or already expired.
type ExpireRequestHandler struct {
	requests service.ServiceInterface
}

func NewExpireRequestHandler(requests service.ServiceInterface) *ExpireRequestHandler {
	return &ExpireRequestHandler{requests: requests}
}

func (h *ExpireRequestHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var p shared.ExpireRequestPayload
	if err := utils.UnmarshalTask(t, &p); err != nil {
		return fmt.Errorf("%v: %w", err, asynq.SkipRetry)
	}

	expired, err := h.requests.ExpireIfStale(ctx, p.RequestID)
	if err != nil {
		return fmt.Errorf("expire request %s: %w", p.RequestID, err)
	}

	logger.Debug("Processed ExpireRequest task", map[string]interface{}{
		"request_id": p.RequestID,
		"expired":    expired,
	})
	return nil
}
