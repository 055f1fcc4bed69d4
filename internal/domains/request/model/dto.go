package model

import (
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/shared"
)

// TransitionStatusRequest is the admin status update body. Expiry is
// system-driven and cannot be requested.
type TransitionStatusRequest struct {
	TargetStatus  Status  `json:"target_status"`
	RejectionNote *string `json:"rejection_note"`
}

func (r TransitionStatusRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.TargetStatus,
			validation.Required.Error("target status is required"),
			validation.In(
				StatusWaitingPayment, StatusActive, StatusArrangingDelivery,
				StatusActiveRental, StatusCompleted, StatusRejected,
			).Error("target status is not a valid admin target"),
		),
		validation.Field(&r.RejectionNote,
			validation.When(r.TargetStatus == StatusRejected,
				validation.Required.Error("rejection note is required when rejecting"),
			),
			validation.Length(0, 1000),
		),
	)
}

// Note returns the trimmed rejection note, nil when absent or blank.
func (r TransitionStatusRequest) Note() *string {
	if r.RejectionNote == nil {
		return nil
	}
	note := strings.TrimSpace(*r.RejectionNote)
	if note == "" {
		return nil
	}
	return &note
}

// ListRequestsFilter is shared by the owner and admin listings. UserID is
// set by the handler, never bound from the query. Now is set by the service;
// when non-zero, Status matches the effective status at Now, so a pending
// request past its window lists as expired.
type ListRequestsFilter struct {
	UserID *uuid.UUID         `form:"-"`
	Now    time.Time          `form:"-"`
	Status Status             `form:"status"`
	Type   shared.RequestType `form:"type"`
	Page   int                `form:"page"`
	Limit  int                `form:"limit"`
}

func (f ListRequestsFilter) Validate() error {
	return validation.ValidateStruct(&f,
		validation.Field(&f.Status, validation.By(func(v interface{}) error {
			s, _ := v.(Status)
			if s != "" && !s.IsValid() {
				return validation.NewError("validation_invalid_status", "unknown status")
			}
			return nil
		})),
		validation.Field(&f.Type, validation.In(shared.RequestTypeRepair, shared.RequestTypeRental)),
		validation.Field(&f.Page, validation.Min(0)),
		validation.Field(&f.Limit, validation.Min(0), validation.Max(100)),
	)
}

// CreateRequestInput carries a priced booking into the lifecycle.
type CreateRequestInput struct {
	UserID         uuid.UUID
	Type           shared.RequestType
	PaymentMethod  PaymentMethod
	TotalAmount    decimal.Decimal
	DiscountAmount decimal.Decimal
	CouponID       *uuid.UUID
	CouponCode     *string
	Details        Details
}
