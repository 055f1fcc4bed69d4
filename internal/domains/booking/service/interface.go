package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"bikeshop-backend/internal/domains/booking/model"
)

type ServiceInterface interface {
	// Submit prices the booking, applies the coupon and persists the
	// request and its ledger row atomically.
	Submit(ctx context.Context, userID uuid.UUID, req *model.SubmitBookingRequest) (*model.SubmitResult, error)
	// Quote prices the booking and previews the coupon without writing.
	Quote(ctx context.Context, userID uuid.UUID, req *model.SubmitBookingRequest) (*model.QuoteResponse, error)
}

// ExpiryScheduler arranges for a request to be expired once its window closes.
type ExpiryScheduler interface {
	ScheduleExpiry(ctx context.Context, requestID uuid.UUID, expiresAt time.Time) error
}
