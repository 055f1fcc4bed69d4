package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/shared"
)

// -------------------------------------------------------------------
// EVALUATION
// -------------------------------------------------------------------

// EvaluateCouponRequest is the body of the preview endpoint. Items are the
// cost-category tags present in the candidate order.
type EvaluateCouponRequest struct {
	Code        string             `json:"code"`
	RequestType shared.RequestType `json:"request_type"`
	Items       []string           `json:"items"`
	TotalAmount decimal.Decimal    `json:"total_amount"`
}

func (r EvaluateCouponRequest) Validate() error {
	// Unknown codes and orders with no matching tag are evaluation
	// outcomes, not malformed requests.
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code, validation.Required.Error("coupon code is required")),
		validation.Field(&r.RequestType,
			validation.Required.Error("request type is required"),
			validation.In(shared.RequestTypeRepair, shared.RequestTypeRental).Error("request type must be repair or rental"),
		),
		validation.Field(&r.Items, validation.Each(validation.Required, validation.Length(1, 64))),
		validation.Field(&r.TotalAmount, validation.By(nonNegativeDecimal)),
	)
}

// ToInput binds the request to the authenticated user.
func (r EvaluateCouponRequest) ToInput(userID uuid.UUID) *EvaluateInput {
	return &EvaluateInput{
		Code:        strings.TrimSpace(r.Code),
		UserID:      userID,
		RequestType: r.RequestType,
		ItemTags:    r.Items,
		Total:       r.TotalAmount,
	}
}

// EvaluateInput is the engine's view of a candidate order.
type EvaluateInput struct {
	Code        string
	UserID      uuid.UUID
	RequestType shared.RequestType
	ItemTags    []string
	Total       decimal.Decimal
}

// EvaluationResult is returned by the preview. A rejected coupon is a
// valid result with Valid=false and the rejection code in Reason.
type EvaluationResult struct {
	Valid          bool            `json:"valid"`
	Code           string          `json:"code"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	NetAmount      decimal.Decimal `json:"net_amount"`
	Reason         string          `json:"reason,omitempty"`
	Message        string          `json:"message,omitempty"`
}

// -------------------------------------------------------------------
// ADMIN REQUESTS
// -------------------------------------------------------------------

// CreateCouponRequest creates a coupon. Codes are case-sensitive and stored verbatim.
type CreateCouponRequest struct {
	Code            string           `json:"code"`
	Description     *string          `json:"description"`
	DiscountType    DiscountType     `json:"discount_type"`
	DiscountValue   decimal.Decimal  `json:"discount_value"`
	MinAmount       decimal.Decimal  `json:"min_amount"`
	MaxDiscount     *decimal.Decimal `json:"max_discount"`
	ApplicableItems []string         `json:"applicable_items"`
	UsageLimit      int              `json:"usage_limit"`
	ExpiresAt       *time.Time       `json:"expires_at"`
	IsActive        *bool            `json:"is_active"`
}

func (r CreateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Code,
			validation.Required.Error("coupon code is required"),
			validation.Length(3, 50).Error("coupon code must be 3-50 characters"),
			validation.By(noSurroundingSpace),
		),
		validation.Field(&r.Description, validation.NilOrNotEmpty, validation.Length(0, 1000)),
		validation.Field(&r.DiscountType,
			validation.Required.Error("discount type is required"),
			validation.In(DiscountTypePercentage, DiscountTypeFixed).Error("discount type must be 'percentage' or 'fixed'"),
		),
		validation.Field(&r.DiscountValue, validation.By(positiveDecimal)),
		validation.Field(&r.MinAmount, validation.By(nonNegativeDecimal)),
		validation.Field(&r.MaxDiscount, validation.By(optionalPositiveDecimal)),
		validation.Field(&r.ApplicableItems,
			validation.Required.Error("at least one applicable item tag is required"),
			validation.Each(validation.Required, validation.Length(1, 64)),
		),
		validation.Field(&r.UsageLimit, validation.Min(1).Error("usage limit must be >= 1")),
	)
}

// ToCoupon builds the entity; new coupons are active unless stated otherwise.
func (r CreateCouponRequest) ToCoupon() *Coupon {
	active := true
	if r.IsActive != nil {
		active = *r.IsActive
	}
	return &Coupon{
		Code:            r.Code,
		Description:     r.Description,
		DiscountType:    r.DiscountType,
		DiscountValue:   r.DiscountValue,
		MinAmount:       r.MinAmount,
		MaxDiscount:     r.MaxDiscount,
		ApplicableItems: r.ApplicableItems,
		UsageLimit:      r.UsageLimit,
		ExpiresAt:       r.ExpiresAt,
		IsActive:        active,
	}
}

// UpdateCouponRequest patches a coupon; nil fields are left unchanged.
// ClearExpiry removes the expiry date.
type UpdateCouponRequest struct {
	Description     *string          `json:"description"`
	DiscountType    *DiscountType    `json:"discount_type"`
	DiscountValue   *decimal.Decimal `json:"discount_value"`
	MinAmount       *decimal.Decimal `json:"min_amount"`
	MaxDiscount     *decimal.Decimal `json:"max_discount"`
	ApplicableItems []string         `json:"applicable_items"`
	UsageLimit      *int             `json:"usage_limit"`
	ExpiresAt       *time.Time       `json:"expires_at"`
	ClearExpiry     bool             `json:"clear_expiry"`
	IsActive        *bool            `json:"is_active"`
}

func (r UpdateCouponRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Description, validation.NilOrNotEmpty, validation.Length(0, 1000)),
		validation.Field(&r.DiscountType,
			validation.When(r.DiscountType != nil,
				validation.In(DiscountTypePercentage, DiscountTypeFixed).Error("discount type must be 'percentage' or 'fixed'"),
			),
		),
		validation.Field(&r.DiscountValue, validation.By(optionalPositiveDecimal)),
		validation.Field(&r.MinAmount, validation.By(optionalNonNegativeDecimal)),
		validation.Field(&r.MaxDiscount, validation.By(optionalPositiveDecimal)),
		validation.Field(&r.ApplicableItems, validation.Each(validation.Required, validation.Length(1, 64))),
		validation.Field(&r.UsageLimit, validation.When(r.UsageLimit != nil, validation.Min(1))),
		validation.Field(&r.ExpiresAt, validation.When(r.ClearExpiry, validation.Nil.Error("expires_at conflicts with clear_expiry"))),
	)
}

// Apply copies the set fields onto c.
func (r UpdateCouponRequest) Apply(c *Coupon) {
	if r.Description != nil {
		c.Description = r.Description
	}
	if r.DiscountType != nil {
		c.DiscountType = *r.DiscountType
	}
	if r.DiscountValue != nil {
		c.DiscountValue = *r.DiscountValue
	}
	if r.MinAmount != nil {
		c.MinAmount = *r.MinAmount
	}
	if r.MaxDiscount != nil {
		c.MaxDiscount = r.MaxDiscount
	}
	if r.ApplicableItems != nil {
		c.ApplicableItems = r.ApplicableItems
	}
	if r.UsageLimit != nil {
		c.UsageLimit = *r.UsageLimit
	}
	if r.ExpiresAt != nil {
		c.ExpiresAt = r.ExpiresAt
	}
	if r.ClearExpiry {
		c.ExpiresAt = nil
	}
	if r.IsActive != nil {
		c.IsActive = *r.IsActive
	}
}

// ListCouponsFilter is the admin listing query.
type ListCouponsFilter struct {
	IsActive *bool  `form:"is_active"`
	Search   string `form:"search"`
	Page     int    `form:"page"`
	Limit    int    `form:"limit"`
}

// -------------------------------------------------------------------
// RULES
// -------------------------------------------------------------------

func noSurroundingSpace(value interface{}) error {
	s, _ := value.(string)
	if s != strings.TrimSpace(s) {
		return errors.New("must not start or end with whitespace")
	}
	return nil
}

func positiveDecimal(value interface{}) error {
	d, _ := value.(decimal.Decimal)
	if !d.IsPositive() {
		return errors.New("must be greater than 0")
	}
	return nil
}

func nonNegativeDecimal(value interface{}) error {
	d, _ := value.(decimal.Decimal)
	if d.IsNegative() {
		return errors.New("must be no less than 0")
	}
	return nil
}

func optionalPositiveDecimal(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d == nil {
		return nil
	}
	return positiveDecimal(*d)
}

func optionalNonNegativeDecimal(value interface{}) error {
	d, _ := value.(*decimal.Decimal)
	if d == nil {
		return nil
	}
	return nonNegativeDecimal(*d)
}
