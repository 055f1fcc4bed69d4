package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"bikeshop-backend/internal/domains/coupon/model"
)

type ServiceInterface interface {
	// Evaluate is the side-effect-free preview. Coupon rejections come back
	// as a result with Valid=false; only infrastructure failures are errors.
	Evaluate(ctx context.Context, in *model.EvaluateInput) (*model.EvaluationResult, error)
	// Apply runs the same checks strictly: any rejection is returned as a
	// coupon error. Pass the booking transaction so reads see its snapshot.
	Apply(ctx context.Context, tx pgx.Tx, in *model.EvaluateInput) (*model.AppliedCoupon, error)
	ListAvailable(ctx context.Context, userID uuid.UUID) ([]*model.PublicCoupon, error)
	// RecordUsage appends one ledger row inside tx. Booking finalization is the only caller.
	RecordUsage(ctx context.Context, tx pgx.Tx, usage *model.CouponUsage) error
	CalculateDiscount(coupon *model.Coupon, total decimal.Decimal) decimal.Decimal

	// Admin methods
	CreateCoupon(ctx context.Context, req *model.CreateCouponRequest) (*model.Coupon, error)
	UpdateCoupon(ctx context.Context, id uuid.UUID, req *model.UpdateCouponRequest) (*model.Coupon, error)
	GetCoupon(ctx context.Context, id uuid.UUID) (*model.Coupon, error)
	ListCoupons(ctx context.Context, filter *model.ListCouponsFilter) ([]*model.Coupon, int, error)
	DeleteCoupon(ctx context.Context, id uuid.UUID) error
	ExportUsages(ctx context.Context, id uuid.UUID) (*excelize.File, *model.Coupon, error)
}
