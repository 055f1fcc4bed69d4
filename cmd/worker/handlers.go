package main

import (
	"github.com/hibiken/asynq"

	requestJob "bikeshop-backend/internal/domains/request/job"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/pkg/container"
)

// HandlerRegistry holds all job handlers
type HandlerRegistry struct {
	expireRequest *requestJob.ExpireRequestHandler
	sweepExpired  *requestJob.SweepExpiredHandler
}

func initializeHandlers(c *container.Container) *HandlerRegistry {
	return &HandlerRegistry{
		expireRequest: requestJob.NewExpireRequestHandler(c.RequestService),
		sweepExpired:  requestJob.NewSweepExpiredHandler(c.RequestService),
	}
}

// RegisterHandlers registers all handlers with the mux
func (h *HandlerRegistry) RegisterHandlers(mux *asynq.ServeMux) {
	mux.HandleFunc(shared.TypeExpireRequest, h.expireRequest.ProcessTask)
	mux.HandleFunc(shared.TypeSweepExpiredRequests, h.sweepExpired.ProcessTask)
}
