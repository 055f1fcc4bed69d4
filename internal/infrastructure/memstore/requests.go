package memstore

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/domains/request/repository"
	"bikeshop-backend/internal/shared/utils"
)

type requestRepo struct {
	s *Store
}

// Requests returns the request table.
func (s *Store) Requests() repository.RequestRepository {
	return &requestRepo{s: s}
}

func (r *requestRepo) Create(ctx context.Context, tx pgx.Tx, req *model.Request) error {
	defer r.s.write(tx)()

	if req.ID == uuid.Nil {
		req.ID = uuid.New()
	}
	if _, exists := r.s.requests[req.ID]; exists {
		return fmt.Errorf("create request: id %s already exists", req.ID)
	}
	req.UpdatedAt = req.CreatedAt

	r.s.requests[req.ID] = cloneRequest(req)
	return nil
}

func (r *requestRepo) FindByID(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	defer r.s.read(nil)()

	req, ok := r.s.requests[id]
	if !ok {
		return nil, model.ErrRequestNotFound
	}
	return cloneRequest(req), nil
}

func (r *requestRepo) List(ctx context.Context, filter *model.ListRequestsFilter) ([]*model.Request, int, error) {
	defer r.s.read(nil)()

	matched := make([]*model.Request, 0)
	for _, req := range r.s.requests {
		if filter.UserID != nil && req.UserID != *filter.UserID {
			continue
		}
		if filter.Status != "" && req.EffectiveStatus(filter.Now) != filter.Status {
			continue
		}
		if filter.Type != "" && req.Type != filter.Type {
			continue
		}
		matched = append(matched, cloneRequest(req))
	}
	sortNewestFirst(matched, func(req *model.Request) time.Time { return req.CreatedAt })

	pageNum, limit := utils.NormalizePage(filter.Page, filter.Limit)
	return page(matched, utils.Offset(pageNum, limit), limit), len(matched), nil
}

// UpdateStatus applies the same predicate as the SQL update: the row must
// still be in from, and an expirable from must still be inside its window
// unless the target is expired.
func (r *requestRepo) UpdateStatus(
	ctx context.Context,
	id uuid.UUID,
	from, to model.Status,
	note *string,
	now time.Time,
) (bool, error) {
	defer r.s.write(nil)()

	req, ok := r.s.requests[id]
	if !ok || req.Status != from {
		return false, nil
	}
	if from.IsExpirable() && to != model.StatusExpired && req.ExpiresAt.Before(now) {
		return false, nil
	}

	req.Status = to
	if note != nil {
		n := *note
		req.RejectionNote = &n
	}
	if to == model.StatusCompleted {
		at := now
		req.CompletedAt = &at
	}
	req.UpdatedAt = now
	return true, nil
}

func (r *requestRepo) expire(req *model.Request, now time.Time) *model.StatusChange {
	change := &model.StatusChange{
		RequestID: req.ID,
		UserID:    req.UserID,
		Type:      req.Type,
		From:      req.Status,
		To:        model.StatusExpired,
		ChangedAt: now,
	}
	req.Status = model.StatusExpired
	req.UpdatedAt = now
	return change
}

func stale(req *model.Request, now time.Time) bool {
	return req.Status.IsExpirable() && req.ExpiresAt.Before(now)
}

func (r *requestRepo) ExpireOne(ctx context.Context, id uuid.UUID, now time.Time) (*model.StatusChange, error) {
	defer r.s.write(nil)()

	req, ok := r.s.requests[id]
	if !ok || !stale(req, now) {
		return nil, nil
	}
	return r.expire(req, now), nil
}

func (r *requestRepo) ExpireStale(ctx context.Context, now time.Time, limit int) ([]*model.StatusChange, error) {
	defer r.s.write(nil)()

	candidates := make([]*model.Request, 0)
	for _, req := range r.s.requests {
		if stale(req, now) {
			candidates = append(candidates, req)
		}
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].ExpiresAt.Before(candidates[j].ExpiresAt)
	})
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	changes := make([]*model.StatusChange, 0, len(candidates))
	for _, req := range candidates {
		changes = append(changes, r.expire(req, now))
	}
	return changes, nil
}
