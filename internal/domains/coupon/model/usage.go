package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/shared"
)

// CouponUsage is one ledger row: a user redeemed a coupon on a booking.
// Slot numbers a user's redemptions of the coupon from 1 to UsageLimit and
// backs the (coupon_id, user_id, slot) unique constraint.
type CouponUsage struct {
	ID             uuid.UUID          `json:"id"`
	CouponID       uuid.UUID          `json:"coupon_id"`
	UserID         uuid.UUID          `json:"user_id"`
	RequestType    shared.RequestType `json:"request_type"`
	RequestID      uuid.UUID          `json:"request_id"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	Slot           int                `json:"slot"`
	UsedAt         time.Time          `json:"used_at"`
}

// AppliedCoupon is the outcome of a strict evaluation inside a booking:
// the coupon that passed every check and the discount it grants.
type AppliedCoupon struct {
	Coupon         *Coupon
	DiscountAmount decimal.Decimal
}
