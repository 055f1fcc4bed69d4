package service

import (
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/domains/coupon/model"
)

// MoneyPlaces is the number of fractional digits kept on money amounts.
const MoneyPlaces = 2

var hundred = decimal.NewFromInt(100)

// DiscountCalculator computes the discount a coupon grants on a total.
type DiscountCalculator struct{}

func NewDiscountCalculator() *DiscountCalculator {
	return &DiscountCalculator{}
}

// Calculate returns the discount for total:
//   - percentage: total × value / 100, clipped to max_discount when positive
//   - fixed: value verbatim
//
// The result is then clipped to total so the net amount never goes
// negative, and rounded half away from zero to MoneyPlaces.
func (c *DiscountCalculator) Calculate(coupon *model.Coupon, total decimal.Decimal) decimal.Decimal {
	return c.CalculateWithBreakdown(coupon, total).FinalDiscount
}

// CalculateWithBreakdown exposes every step, used for logging.
func (c *DiscountCalculator) CalculateWithBreakdown(coupon *model.Coupon, total decimal.Decimal) DiscountBreakdown {
	breakdown := DiscountBreakdown{
		Total:        total,
		DiscountType: string(coupon.DiscountType),
	}

	if !total.IsPositive() {
		return breakdown
	}

	discount := decimal.Zero
	switch coupon.DiscountType {
	case model.DiscountTypePercentage:
		discount = total.Mul(coupon.DiscountValue).Div(hundred)
		breakdown.RawDiscount = discount

		if coupon.HasCap() && discount.GreaterThan(*coupon.MaxDiscount) {
			discount = *coupon.MaxDiscount
			breakdown.Capped = true
			breakdown.CapReason = CapReasonMaxDiscount
		}

	case model.DiscountTypeFixed:
		discount = coupon.DiscountValue
		breakdown.RawDiscount = discount

	default:
		return breakdown
	}

	if discount.GreaterThan(total) {
		discount = total
		breakdown.Capped = true
		breakdown.CapReason = CapReasonOrderTotal
	}
	if discount.IsNegative() {
		discount = decimal.Zero
	}

	breakdown.FinalDiscount = discount.Round(MoneyPlaces)
	return breakdown
}

const (
	CapReasonMaxDiscount = "max_discount"
	CapReasonOrderTotal  = "order_total"
)

// DiscountBreakdown records how a discount was derived.
type DiscountBreakdown struct {
	Total         decimal.Decimal `json:"total"`
	DiscountType  string          `json:"discount_type"`
	RawDiscount   decimal.Decimal `json:"raw_discount"`
	FinalDiscount decimal.Decimal `json:"final_discount"`
	Capped        bool            `json:"capped"`
	CapReason     string          `json:"cap_reason,omitempty"`
}
