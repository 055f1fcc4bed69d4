package shared

import (
	"time"

	"github.com/google/uuid"
)

// Queue names, highest priority first.
const (
	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// Task types handled by the worker.
const (
	TypeExpireRequest        = "request:expire"
	TypeSweepExpiredRequests = "request:sweep_expired"
)

// ExpireRequestPayload is enqueued at submit time and delivered once the
// request's payment/approval window has closed.
type ExpireRequestPayload struct {
	RequestID uuid.UUID `json:"request_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SweepExpiredPayload drives the periodic expiry sweep.
type SweepExpiredPayload struct {
	BatchSize int `json:"batch_size"`
}
