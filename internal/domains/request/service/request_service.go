package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/domains/request/repository"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/pkg/apperror"
	"bikeshop-backend/pkg/logger"
)

const (
	DefaultExpiryWindow   = 15 * time.Minute
	DefaultSweepBatchSize = 200
)

type requestService struct {
	repo         repository.RequestRepository
	publisher    shared.EventPublisher
	now          func() time.Time
	expiryWindow time.Duration
	sweepBatch   int
}

type Option func(*requestService)

func WithClock(now func() time.Time) Option {
	return func(s *requestService) { s.now = now }
}

func WithPublisher(p shared.EventPublisher) Option {
	return func(s *requestService) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithExpiryWindow(d time.Duration) Option {
	return func(s *requestService) {
		if d > 0 {
			s.expiryWindow = d
		}
	}
}

func WithSweepBatchSize(n int) Option {
	return func(s *requestService) {
		if n > 0 {
			s.sweepBatch = n
		}
	}
}

func NewRequestService(repo repository.RequestRepository, opts ...Option) ServiceInterface {
	s := &requestService{
		repo:         repo,
		publisher:    shared.NopPublisher{},
		now:          time.Now,
		expiryWindow: DefaultExpiryWindow,
		sweepBatch:   DefaultSweepBatchSize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -------------------------------------------------------------------
// CREATE & READ
// -------------------------------------------------------------------

func (s *requestService) Create(ctx context.Context, tx pgx.Tx, in *model.CreateRequestInput) (*model.Request, error) {
	if in.UserID == uuid.Nil {
		return nil, apperror.Validation("user id is required", nil)
	}
	if !in.Type.IsValid() {
		return nil, apperror.Validation("invalid request type", map[string]interface{}{"request_type": in.Type})
	}
	if !in.PaymentMethod.IsValid() {
		return nil, apperror.Validation("invalid payment method", map[string]interface{}{"payment_method": in.PaymentMethod})
	}
	if in.TotalAmount.IsNegative() || in.DiscountAmount.IsNegative() || in.DiscountAmount.GreaterThan(in.TotalAmount) {
		return nil, apperror.Validation("invalid amounts", map[string]interface{}{
			"total_amount":    in.TotalAmount,
			"discount_amount": in.DiscountAmount,
		})
	}

	now := s.now().UTC()
	req := &model.Request{
		ID:             uuid.New(),
		UserID:         in.UserID,
		Type:           in.Type,
		Status:         model.StatusPending,
		PaymentMethod:  in.PaymentMethod,
		TotalAmount:    in.TotalAmount,
		DiscountAmount: in.DiscountAmount,
		NetAmount:      in.TotalAmount.Sub(in.DiscountAmount),
		CouponID:       in.CouponID,
		CouponCode:     in.CouponCode,
		Details:        in.Details,
		ExpiresAt:      now.Add(s.expiryWindow),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.repo.Create(ctx, tx, req); err != nil {
		return nil, wrapRepoErr("create request", err)
	}
	return req, nil
}

func (s *requestService) Get(ctx context.Context, id uuid.UUID) (*model.Request, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("find request", err)
	}
	return s.withEffectiveStatus(req), nil
}

func (s *requestService) GetForUser(ctx context.Context, id, userID uuid.UUID) (*model.Request, error) {
	req, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	// Other users' requests are reported as absent
	if req.UserID != userID {
		return nil, model.ErrRequestNotFound
	}
	return req, nil
}

func (s *requestService) List(ctx context.Context, filter *model.ListRequestsFilter) ([]*model.Request, int, error) {
	if err := filter.Validate(); err != nil {
		return nil, 0, apperror.FromValidation(err)
	}

	filter.Now = s.now()
	requests, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, wrapRepoErr("list requests", err)
	}
	for i, req := range requests {
		requests[i] = s.withEffectiveStatus(req)
	}
	return requests, total, nil
}

func (s *requestService) IsCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return false, wrapRepoErr("find request", err)
	}
	return req.IsCompleted(), nil
}

// withEffectiveStatus applies the lazy expiry check without persisting it.
func (s *requestService) withEffectiveStatus(req *model.Request) *model.Request {
	req.Status = req.EffectiveStatus(s.now())
	return req
}

// -------------------------------------------------------------------
// TRANSITIONS
// -------------------------------------------------------------------

// Transition applies an admin status change.
//
// A request whose window has closed is expired first and the change is
// refused. The write is a conditional update; when it matches nothing the
// row is re-read: already at the target is a no-op, anything else is an
// invalid transition.
func (s *requestService) Transition(ctx context.Context, id uuid.UUID, in *model.TransitionStatusRequest) (*model.Request, error) {
	if err := in.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}
	note := in.Note()
	if in.TargetStatus == model.StatusRejected && note == nil {
		return nil, apperror.Validation("rejection note is required when rejecting", map[string]interface{}{
			"rejection_note": "cannot be blank",
		})
	}

	req, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("find request", err)
	}

	now := s.now()
	if req.IsLogicallyExpired(now) {
		return nil, s.refuseExpired(ctx, req, in.TargetStatus, now)
	}

	from := req.Status
	if !model.CanTransition(req.Type, req.PaymentMethod, from, in.TargetStatus) {
		return nil, model.InvalidTransition(from, in.TargetStatus)
	}

	updated, err := s.repo.UpdateStatus(ctx, id, from, in.TargetStatus, note, now)
	if err != nil {
		return nil, wrapRepoErr("update request status", err)
	}

	if !updated {
		return s.resolveLostRace(ctx, id, from, in.TargetStatus, now)
	}

	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("reload request", err)
	}

	logger.Info("request status changed", map[string]interface{}{
		"request_id": id,
		"from":       from,
		"to":         in.TargetStatus,
	})
	s.publishChange(ctx, &model.StatusChange{
		RequestID: id,
		UserID:    current.UserID,
		Type:      current.Type,
		From:      from,
		To:        in.TargetStatus,
		ChangedAt: now,
	})
	return current, nil
}

// resolveLostRace handles a conditional update that matched no row.
func (s *requestService) resolveLostRace(
	ctx context.Context,
	id uuid.UUID,
	from, target model.Status,
	now time.Time,
) (*model.Request, error) {
	current, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("reload request", err)
	}

	if current.Status == target {
		logger.Debug("request already at target status", map[string]interface{}{
			"request_id": id,
			"status":     target,
		})
		return current, nil
	}

	if current.IsLogicallyExpired(now) {
		return nil, s.refuseExpired(ctx, current, target, now)
	}

	logger.Warn("request status changed concurrently", map[string]interface{}{
		"request_id": id,
		"expected":   from,
		"actual":     current.Status,
		"target":     target,
	})
	return nil, model.InvalidTransition(current.Status, target)
}

// refuseExpired persists the expiry and returns the refusal.
func (s *requestService) refuseExpired(ctx context.Context, req *model.Request, target model.Status, now time.Time) error {
	change, err := s.repo.ExpireOne(ctx, req.ID, now)
	if err != nil {
		return wrapRepoErr("expire request", err)
	}
	if change != nil {
		s.publishChange(ctx, change)
	}

	return model.ErrRequestExpired.WithDetails(map[string]interface{}{
		"from":       model.StatusExpired,
		"to":         target,
		"expired_at": req.ExpiresAt,
	})
}

// -------------------------------------------------------------------
// EXPIRY
// -------------------------------------------------------------------

func (s *requestService) ExpireIfStale(ctx context.Context, id uuid.UUID) (bool, error) {
	change, err := s.repo.ExpireOne(ctx, id, s.now())
	if err != nil {
		return false, wrapRepoErr("expire request", err)
	}
	if change == nil {
		return false, nil
	}

	logger.Info("request expired", map[string]interface{}{
		"request_id": id,
		"from":       change.From,
	})
	s.publishChange(ctx, change)
	return true, nil
}

func (s *requestService) Sweep(ctx context.Context, batchSize int) (int, error) {
	if batchSize <= 0 {
		batchSize = s.sweepBatch
	}

	total := 0
	for {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		changes, err := s.repo.ExpireStale(ctx, s.now(), batchSize)
		if err != nil {
			return total, wrapRepoErr("expire stale requests", err)
		}

		for _, change := range changes {
			s.publishChange(ctx, change)
		}
		total += len(changes)

		if len(changes) < batchSize {
			break
		}
	}

	if total > 0 {
		logger.Info("expiry sweep finished", map[string]interface{}{"expired": total})
	}
	return total, nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

func (s *requestService) publishChange(ctx context.Context, change *model.StatusChange) {
	event := shared.NewEvent(shared.EventRequestStatusChanged, change.RequestID.String(), change)
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.ErrorWithFields("publish status change", err, map[string]interface{}{
			"request_id": change.RequestID,
			"to":         change.To,
		})
	}
}

func wrapRepoErr(op string, err error) error {
	var appErr *apperror.AppError
	if errors.As(err, &appErr) {
		return err
	}
	return apperror.Persistence(op, err)
}
