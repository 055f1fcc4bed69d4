package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bikeshop-backend/internal/domains/request/model"
)

type ServiceInterface interface {
	// Create inserts a pending request inside tx with expires_at = now + window.
	Create(ctx context.Context, tx pgx.Tx, in *model.CreateRequestInput) (*model.Request, error)
	// Get returns the request with its effective status: a stale
	// pending/unpaid request reads as expired.
	Get(ctx context.Context, id uuid.UUID) (*model.Request, error)
	// GetForUser is Get restricted to the owner.
	GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter *model.ListRequestsFilter) ([]*model.Request, int, error)
	Transition(ctx context.Context, id uuid.UUID, req *model.TransitionStatusRequest) (*model.Request, error)
	IsCompleted(ctx context.Context, id uuid.UUID) (bool, error)

	// ExpireIfStale persists expiry of one request; false when nothing changed.
	ExpireIfStale(ctx context.Context, id uuid.UUID) (bool, error)
	// Sweep persists expiry of every stale request and returns the count.
	// batchSize <= 0 uses the configured batch size.
	Sweep(ctx context.Context, batchSize int) (int, error)
}
