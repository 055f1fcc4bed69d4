package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bikeshop-backend/internal/domains/coupon/model"
)

// Every method taking a pgx.Tx runs on that transaction when it is
// non-nil and on the pool otherwise.

// CouponRepository is the data access for admin-defined coupons.
type CouponRepository interface {
	// FindByCode is case-sensitive; a missing code yields model.ErrCouponNotFound.
	FindByCode(ctx context.Context, tx pgx.Tx, code string) (*model.Coupon, error)
	// FindByID yields model.ErrCouponRecordNotFound when absent.
	FindByID(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	// ListActive returns active coupons not expired at now.
	ListActive(ctx context.Context, now time.Time) ([]*model.Coupon, error)
	List(ctx context.Context, filter *model.ListCouponsFilter) ([]*model.Coupon, int, error)

	Create(ctx context.Context, c *model.Coupon) error
	Update(ctx context.Context, c *model.Coupon) error
	Delete(ctx context.Context, id uuid.UUID) error
	CodeExists(ctx context.Context, code string, excludeID *uuid.UUID) (bool, error)
}

// UsageLedger is the append-only record of coupon redemptions.
type UsageLedger interface {
	CountFor(ctx context.Context, tx pgx.Tx, couponID, userID uuid.UUID) (int, error)
	// CountsByUser maps coupon id to the user's redemption count.
	CountsByUser(ctx context.Context, userID uuid.UUID) (map[uuid.UUID]int, error)
	// Append inserts one row only while the user's count is below the
	// coupon's usage limit. It fills Slot and UsedAt, returns
	// model.ErrCouponUsageLimitReached when the limit is hit and
	// apperror.KindConcurrencyConflict when a concurrent insert took the slot.
	Append(ctx context.Context, tx pgx.Tx, usage *model.CouponUsage) error
	ListByCoupon(ctx context.Context, couponID uuid.UUID) ([]*model.CouponUsage, error)
	CountByCoupon(ctx context.Context, couponID uuid.UUID) (int, error)
}
