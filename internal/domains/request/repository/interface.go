package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bikeshop-backend/internal/domains/request/model"
)

// RequestRepository persists requests. Status is only ever written through
// conditional updates; a false result means the row was not in the
// expected state (or its window had closed) and nothing changed.
type RequestRepository interface {
	Create(ctx context.Context, tx pgx.Tx, r *model.Request) error
	// FindByID yields model.ErrRequestNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error)
	List(ctx context.Context, filter *model.ListRequestsFilter) ([]*model.Request, int, error)

	// UpdateStatus moves id from -> to. When from is pending or
	// waiting_payment the update also requires expires_at >= now, so an
	// approval never lands on a request whose window has closed.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to model.Status, note *string, now time.Time) (bool, error)
	// ExpireOne persists expiry of a single stale request.
	ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) (*model.StatusChange, error)
	// ExpireStale persists expiry for up to limit stale requests.
	ExpireStale(ctx context.Context, now time.Time, limit int) ([]*model.StatusChange, error)
}
