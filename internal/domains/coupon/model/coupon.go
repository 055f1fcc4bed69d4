package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DiscountType represents how a coupon's value is applied
type DiscountType string

const (
	DiscountTypePercentage DiscountType = "percentage"
	DiscountTypeFixed      DiscountType = "fixed"
)

func (t DiscountType) IsValid() bool {
	switch t {
	case DiscountTypePercentage, DiscountTypeFixed:
		return true
	}
	return false
}

// TagAll in ApplicableItems matches every cost category.
const TagAll = "all"

// Coupon is an admin-defined discount rule identified by a unique,
// case-sensitive code. The booking flow never mutates it; redemptions are
// tracked in the usage ledger.
type Coupon struct {
	ID              uuid.UUID        `json:"id"`
	Code            string           `json:"code"`
	Description     *string          `json:"description,omitempty"`
	DiscountType    DiscountType     `json:"discount_type"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	MinAmount       decimal.Decimal  `json:"min_amount"`
	MaxDiscount     *decimal.Decimal `json:"max_discount,omitempty"`
	ApplicableItems []string         `json:"applicable_items"`
	UsageLimit      int              `json:"usage_limit"` // per user
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	IsActive        bool             `json:"is_active"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
}

// IsExpiredAt reports whether the coupon's expiry lies before now.
// A nil ExpiresAt never expires.
func (c *Coupon) IsExpiredAt(now time.Time) bool {
	return c.ExpiresAt != nil && c.ExpiresAt.Before(now)
}

// IsUsableAt reports whether the coupon is active and unexpired.
func (c *Coupon) IsUsableAt(now time.Time) bool {
	return c.IsActive && !c.IsExpiredAt(now)
}

// AppliesTo reports whether any of the order's cost tags is covered.
func (c *Coupon) AppliesTo(itemTags []string) bool {
	for _, applicable := range c.ApplicableItems {
		if applicable == TagAll {
			return true
		}
		for _, tag := range itemTags {
			if tag == applicable {
				return true
			}
		}
	}
	return false
}

// HasCap reports whether a positive max discount is configured.
func (c *Coupon) HasCap() bool {
	return c.MaxDiscount != nil && c.MaxDiscount.IsPositive()
}

// PublicCoupon is the customer-facing projection: no ids, no ledger rows.
type PublicCoupon struct {
	Code            string           `json:"code"`
	Description     *string          `json:"description,omitempty"`
	DiscountType    DiscountType     `json:"discount_type"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	MinAmount       decimal.Decimal  `json:"min_amount"`
	MaxDiscount     *decimal.Decimal `json:"max_discount,omitempty"`
	ApplicableItems []string         `json:"applicable_items"`
	ExpiresAt       *time.Time       `json:"expires_at,omitempty"`
	RemainingUses   int              `json:"remaining_uses"`
}

// ToPublic projects the coupon for a user who has used it usedCount times.
func (c *Coupon) ToPublic(usedCount int) *PublicCoupon {
	remaining := c.UsageLimit - usedCount
	if remaining < 0 {
		remaining = 0
	}

	var maxDiscount *decimal.Decimal
	if c.HasCap() {
		maxDiscount = c.MaxDiscount
	}

	return &PublicCoupon{
		Code:            c.Code,
		Description:     c.Description,
		DiscountType:    c.DiscountType,
		DiscountValue:   c.DiscountValue,
		MinAmount:       c.MinAmount,
		MaxDiscount:     maxDiscount,
		ApplicableItems: append([]string(nil), c.ApplicableItems...),
		ExpiresAt:       c.ExpiresAt,
		RemainingUses:   remaining,
	}
}
