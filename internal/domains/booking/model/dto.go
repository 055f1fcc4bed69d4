package model

import (
	"errors"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	couponModel "bikeshop-backend/internal/domains/coupon/model"
	requestModel "bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/shared"
)

// BookingItem references a catalog entry. For rentals DurationHours is the
// rental length per bicycle.
type BookingItem struct {
	Code          string `json:"code"`
	Quantity      int    `json:"quantity"`
	DurationHours int    `json:"duration_hours"`
}

func (i BookingItem) Validate() error {
	return validation.ValidateStruct(&i,
		validation.Field(&i.Code, validation.Required.Error("item code is required"), validation.Length(1, 64)),
		validation.Field(&i.Quantity, validation.Min(0), validation.Max(20)),
		validation.Field(&i.DurationHours, validation.Min(0), validation.Max(24*30)),
	)
}

// SubmitBookingRequest is the body of both submit and quote. Prices are
// never taken from the client.
type SubmitBookingRequest struct {
	RequestType   shared.RequestType         `json:"request_type"`
	Items         []BookingItem              `json:"items"`
	CouponCode    *string                    `json:"coupon_code"`
	PaymentMethod requestModel.PaymentMethod `json:"payment_method"`
	ScheduledAt   *time.Time                 `json:"scheduled_at"`
	MechanicVisit bool                       `json:"mechanic_visit"`
	Delivery      bool                       `json:"delivery"`
	Address       string                     `json:"address"`
	Notes         string                     `json:"notes"`
}

func (r SubmitBookingRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RequestType,
			validation.Required.Error("request type is required"),
			validation.In(shared.RequestTypeRepair, shared.RequestTypeRental).Error("request type must be repair or rental"),
		),
		validation.Field(&r.Items,
			validation.Required.Error("at least one item is required"),
			validation.Length(1, 20),
			validation.When(r.RequestType == shared.RequestTypeRental, validation.By(requireDurations)),
		),
		validation.Field(&r.CouponCode, validation.NilOrNotEmpty, validation.Length(3, 50)),
		validation.Field(&r.PaymentMethod,
			validation.Required.Error("payment method is required"),
			validation.In(requestModel.PaymentMethodOnline, requestModel.PaymentMethodOffline).Error("payment method must be online or offline"),
		),
		validation.Field(&r.MechanicVisit,
			validation.When(r.RequestType == shared.RequestTypeRental, validation.Empty.Error("mechanic visit applies to repairs only")),
		),
		validation.Field(&r.Delivery,
			validation.When(r.RequestType == shared.RequestTypeRepair, validation.Empty.Error("delivery applies to rentals only")),
		),
		validation.Field(&r.Address,
			validation.When(r.MechanicVisit || r.Delivery, validation.Required.Error("address is required for visits and deliveries")),
			validation.Length(0, 500),
		),
		validation.Field(&r.Notes, validation.Length(0, 2000)),
	)
}

func requireDurations(value interface{}) error {
	items, _ := value.([]BookingItem)
	for _, item := range items {
		if item.DurationHours < 1 {
			return errors.New("rental items need duration_hours >= 1")
		}
	}
	return nil
}

// Coupon returns the trimmed coupon code, empty when none was supplied.
func (r SubmitBookingRequest) Coupon() string {
	if r.CouponCode == nil {
		return ""
	}
	return strings.TrimSpace(*r.CouponCode)
}

// Quote is the server-side pricing of a booking.
type Quote struct {
	RequestType shared.RequestType      `json:"request_type"`
	Currency    string                  `json:"currency"`
	Lines       []requestModel.LineItem `json:"lines"`
	Tags        []string                `json:"tags"`
	TotalAmount decimal.Decimal         `json:"total_amount"`
}

// QuoteResponse previews a booking without persisting anything.
type QuoteResponse struct {
	*Quote
	Coupon         *couponModel.EvaluationResult `json:"coupon,omitempty"`
	DiscountAmount decimal.Decimal               `json:"discount_amount"`
	NetAmount      decimal.Decimal               `json:"net_amount"`
}

// SubmitResult is returned once a booking is persisted.
type SubmitResult struct {
	RequestID      uuid.UUID           `json:"request_id"`
	TotalAmount    decimal.Decimal     `json:"total_amount"`
	DiscountAmount decimal.Decimal     `json:"discount_amount"`
	NetAmount      decimal.Decimal     `json:"net_amount"`
	Status         requestModel.Status `json:"status"`
	ExpiresAt      time.Time           `json:"expires_at"`
	CouponCode     *string             `json:"coupon_code,omitempty"`
}

// BookingSubmitted is the payload of a booking.submitted event.
type BookingSubmitted struct {
	RequestID      uuid.UUID          `json:"request_id"`
	UserID         uuid.UUID          `json:"user_id"`
	RequestType    shared.RequestType `json:"request_type"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	NetAmount      decimal.Decimal    `json:"net_amount"`
	CouponCode     *string            `json:"coupon_code,omitempty"`
	ExpiresAt      time.Time          `json:"expires_at"`
}

// CouponRedeemed is the payload of a coupon.redeemed event.
type CouponRedeemed struct {
	CouponID       uuid.UUID       `json:"coupon_id"`
	Code           string          `json:"code"`
	UserID         uuid.UUID       `json:"user_id"`
	RequestID      uuid.UUID       `json:"request_id"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	Slot           int             `json:"slot"`
}
