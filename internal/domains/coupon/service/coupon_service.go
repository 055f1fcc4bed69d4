package service

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/internal/domains/coupon/repository"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/apperror"
	"bikeshop-backend/pkg/cache"
	"bikeshop-backend/pkg/logger"
)

const (
	activeCouponsKey = "coupons:active"
	defaultCacheTTL  = 5 * time.Minute
)

type couponService struct {
	repo       repository.CouponRepository
	ledger     repository.UsageLedger
	calculator *DiscountCalculator
	cache      cache.Cache
	cacheTTL   time.Duration
	now        func() time.Time
}

type Option func(*couponService)

// WithCache enables caching of the active coupon list.
func WithCache(c cache.Cache) Option {
	return func(s *couponService) { s.cache = c }
}

func WithCacheTTL(ttl time.Duration) Option {
	return func(s *couponService) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *couponService) { s.now = now }
}

func NewCouponService(
	repo repository.CouponRepository,
	ledger repository.UsageLedger,
	opts ...Option,
) ServiceInterface {
	s := &couponService{
		repo:       repo,
		ledger:     ledger,
		calculator: NewDiscountCalculator(),
		cacheTTL:   defaultCacheTTL,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -------------------------------------------------------------------
// EVALUATION
// -------------------------------------------------------------------

func (s *couponService) Evaluate(ctx context.Context, in *model.EvaluateInput) (*model.EvaluationResult, error) {
	applied, err := s.Apply(ctx, nil, in)
	if err != nil {
		appErr, ok := apperror.As(err)
		if !ok || appErr.Kind != apperror.KindCoupon {
			return nil, err
		}
		return &model.EvaluationResult{
			Valid:          false,
			Code:           in.Code,
			DiscountAmount: decimal.Zero,
			NetAmount:      in.Total,
			Reason:         string(appErr.Code),
			Message:        appErr.Message,
		}, nil
	}

	return &model.EvaluationResult{
		Valid:          true,
		Code:           applied.Coupon.Code,
		DiscountAmount: applied.DiscountAmount,
		NetAmount:      in.Total.Sub(applied.DiscountAmount),
	}, nil
}

// Apply checks, short-circuiting on the first failure:
//  1. code exists and is active
//  2. not expired
//  3. user's usage count below the limit
//  4. some order tag is covered
//  5. total reaches min_amount
//
// and then computes the discount.
func (s *couponService) Apply(ctx context.Context, tx pgx.Tx, in *model.EvaluateInput) (*model.AppliedCoupon, error) {
	code := strings.TrimSpace(in.Code)
	if code == "" {
		return nil, apperror.Validation("coupon code is required", map[string]interface{}{"code": "cannot be blank"})
	}
	if in.Total.IsNegative() {
		return nil, apperror.Validation("total amount must not be negative", map[string]interface{}{"total_amount": in.Total})
	}

	// Step 1: lookup
	coupon, err := s.repo.FindByCode(ctx, tx, code)
	if err != nil {
		return nil, wrapRepoErr("find coupon", err)
	}
	if !coupon.IsActive {
		return nil, model.ErrCouponNotFound
	}

	// Step 2: expiry
	now := s.now()
	if coupon.IsExpiredAt(now) {
		return nil, model.ErrCouponExpired.WithDetails(map[string]interface{}{
			"expired_at": coupon.ExpiresAt,
		})
	}

	// Step 3: per-user usage
	used, err := s.ledger.CountFor(ctx, tx, coupon.ID, in.UserID)
	if err != nil {
		return nil, wrapRepoErr("count coupon usage", err)
	}
	if used >= coupon.UsageLimit {
		return nil, model.ErrCouponUsageLimitReached.WithDetails(map[string]interface{}{
			"usage_limit": coupon.UsageLimit,
			"used":        used,
		})
	}

	// Step 4: applicability
	if !coupon.AppliesTo(in.ItemTags) {
		return nil, model.ErrCouponNotApplicable.WithDetails(map[string]interface{}{
			"applicable_items": coupon.ApplicableItems,
		})
	}

	// Step 5: minimum amount
	if coupon.MinAmount.IsPositive() && in.Total.LessThan(coupon.MinAmount) {
		return nil, model.ErrCouponBelowMinimum.WithDetails(map[string]interface{}{
			"min_amount":    coupon.MinAmount,
			"needed_amount": coupon.MinAmount.Sub(in.Total),
		})
	}

	// Step 6: discount
	breakdown := s.calculator.CalculateWithBreakdown(coupon, in.Total)
	logger.Debug("coupon evaluated", map[string]interface{}{
		"code":           coupon.Code,
		"user_id":        in.UserID,
		"request_type":   in.RequestType,
		"total":          breakdown.Total,
		"raw_discount":   breakdown.RawDiscount,
		"final_discount": breakdown.FinalDiscount,
		"cap_reason":     breakdown.CapReason,
	})

	return &model.AppliedCoupon{
		Coupon:         coupon,
		DiscountAmount: breakdown.FinalDiscount,
	}, nil
}

func (s *couponService) CalculateDiscount(coupon *model.Coupon, total decimal.Decimal) decimal.Decimal {
	return s.calculator.Calculate(coupon, total)
}

// -------------------------------------------------------------------
// AVAILABLE COUPONS
// -------------------------------------------------------------------

// ListAvailable returns the coupons the user can still redeem. Only the
// user-independent active list is cached; ledger counts are read on every
// call so a redemption is reflected immediately.
func (s *couponService) ListAvailable(ctx context.Context, userID uuid.UUID) ([]*model.PublicCoupon, error) {
	now := s.now()

	coupons, err := s.activeCoupons(ctx, now)
	if err != nil {
		return nil, err
	}

	counts, err := s.ledger.CountsByUser(ctx, userID)
	if err != nil {
		return nil, wrapRepoErr("count user coupon usage", err)
	}

	out := make([]*model.PublicCoupon, 0, len(coupons))
	for _, c := range coupons {
		if c == nil || !c.IsUsableAt(now) || counts[c.ID] >= c.UsageLimit {
			continue
		}
		out = append(out, c.ToPublic(counts[c.ID]))
	}
	return out, nil
}

// activeCoupons reads the active list through the cache. Cached coupons are
// re-checked against now by the caller, so expiry needs no invalidation.
func (s *couponService) activeCoupons(ctx context.Context, now time.Time) ([]*model.Coupon, error) {
	if s.cache != nil {
		var cached []*model.Coupon
		found, err := s.cache.Get(ctx, activeCouponsKey, &cached)
		if err != nil {
			logger.Warn("active coupons cache read failed", map[string]interface{}{
				"key":   activeCouponsKey,
				"error": err.Error(),
			})
		} else if found {
			return cached, nil
		}
	}

	coupons, err := s.repo.ListActive(ctx, now)
	if err != nil {
		return nil, wrapRepoErr("list active coupons", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, activeCouponsKey, coupons, s.cacheTTL); err != nil {
			logger.Warn("active coupons cache write failed", map[string]interface{}{
				"key":   activeCouponsKey,
				"error": err.Error(),
			})
		}
	}
	return coupons, nil
}

// invalidateAll drops the cached active list after an admin write.
func (s *couponService) invalidateAll(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, activeCouponsKey); err != nil {
		logger.Warn("active coupons cache flush failed", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

// -------------------------------------------------------------------
// USAGE RECORDING
// -------------------------------------------------------------------

func (s *couponService) RecordUsage(ctx context.Context, tx pgx.Tx, usage *model.CouponUsage) error {
	if usage.CouponID == uuid.Nil || usage.UserID == uuid.Nil || usage.RequestID == uuid.Nil {
		return apperror.Validation("coupon usage is missing references", map[string]interface{}{
			"coupon_id":  usage.CouponID,
			"user_id":    usage.UserID,
			"request_id": usage.RequestID,
		})
	}
	if !usage.RequestType.IsValid() {
		return apperror.Validation("invalid request type", map[string]interface{}{"request_type": usage.RequestType})
	}
	if usage.DiscountAmount.IsNegative() {
		return apperror.Validation("discount amount must not be negative", nil)
	}

	if err := s.ledger.Append(ctx, tx, usage); err != nil {
		return wrapRepoErr("record coupon usage", err)
	}

	logger.Info("coupon usage recorded", map[string]interface{}{
		"coupon_id":  usage.CouponID,
		"user_id":    usage.UserID,
		"request_id": usage.RequestID,
		"slot":       usage.Slot,
		"discount":   usage.DiscountAmount.String(),
	})
	return nil
}

// -------------------------------------------------------------------
// ADMIN
// -------------------------------------------------------------------

func (s *couponService) CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	exists, err := s.repo.CodeExists(ctx, req.Code, nil)
	if err != nil {
		return nil, wrapRepoErr("check coupon code", err)
	}
	if exists {
		return nil, model.ErrCouponDuplicateCode.WithDetails(map[string]interface{}{"code": req.Code})
	}

	coupon := req.ToCoupon()
	coupon.ApplicableItems = normalizeTags(coupon.ApplicableItems)
	if err := s.repo.Create(ctx, coupon); err != nil {
		return nil, wrapRepoErr("create coupon", err)
	}

	s.invalidateAll(ctx)
	logger.Info("coupon created", map[string]interface{}{
		"coupon_id": coupon.ID,
		"code":      coupon.Code,
	})
	return coupon, nil
}

func (s *couponService) UpdateCoupon(ctx context.Context, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("find coupon", err)
	}

	req.Apply(coupon)
	if len(coupon.ApplicableItems) == 0 {
		return nil, apperror.Validation("applicable items cannot be empty", map[string]interface{}{
			"applicable_items": "cannot be blank",
		})
	}
	coupon.ApplicableItems = normalizeTags(coupon.ApplicableItems)

	if err := s.repo.Update(ctx, coupon); err != nil {
		return nil, wrapRepoErr("update coupon", err)
	}

	s.invalidateAll(ctx)
	return coupon, nil
}

func (s *couponService) GetCoupon(ctx context.Context, id uuid.UUID) (*model.Coupon, error) {
	coupon, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, wrapRepoErr("find coupon", err)
	}
	return coupon, nil
}

func (s *couponService) ListCoupons(ctx context.Context, filter *model.ListCouponsFilter) ([]*model.Coupon, int, error) {
	coupons, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, 0, wrapRepoErr("list coupons", err)
	}
	return coupons, total, nil
}

// DeleteCoupon refuses to drop a coupon that has ledger rows; those rows
// back users' usage limits.
func (s *couponService) DeleteCoupon(ctx context.Context, id uuid.UUID) error {
	if _, err := s.repo.FindByID(ctx, id); err != nil {
		return wrapRepoErr("find coupon", err)
	}

	used, err := s.ledger.CountByCoupon(ctx, id)
	if err != nil {
		return wrapRepoErr("count coupon usages", err)
	}
	if used > 0 {
		return model.ErrCouponInUse.WithDetails(map[string]interface{}{"usages": used})
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return wrapRepoErr("delete coupon", err)
	}

	s.invalidateAll(ctx)
	return nil
}

// -------------------------------------------------------------------
// HELPERS
// -------------------------------------------------------------------

// wrapRepoErr passes AppErrors through and turns anything else into a
// persistence error.
func wrapRepoErr(op string, err error) error {
	if _, ok := apperror.As(err); ok {
		return err
	}
	return apperror.Persistence(op, err)
}

func normalizeTags(tags []string) []string {
	trimmed := make([]string, len(tags))
	for i, t := range tags {
		trimmed[i] = strings.TrimSpace(t)
	}
	return utils.UniqueStrings(trimmed)
}
