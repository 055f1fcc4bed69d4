package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/shared"
)

// Status is a request's position in its lifecycle.
type Status string

const (
	StatusPending           Status = "pending"
	StatusWaitingPayment    Status = "waiting_payment"
	StatusActive            Status = "active"             // repair
	StatusArrangingDelivery Status = "arranging_delivery" // rental
	StatusActiveRental      Status = "active_rental"      // rental
	StatusCompleted         Status = "completed"
	StatusRejected          Status = "rejected"
	StatusExpired           Status = "expired"
)

func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusWaitingPayment, StatusActive, StatusArrangingDelivery,
		StatusActiveRental, StatusCompleted, StatusRejected, StatusExpired:
		return true
	}
	return false
}

// IsTerminal reports states no transition leaves.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusRejected || s == StatusExpired
}

// IsExpirable reports the states in which expires_at is enforced.
func (s Status) IsExpirable() bool {
	return s == StatusPending || s == StatusWaitingPayment
}

type PaymentMethod string

const (
	PaymentMethodOnline  PaymentMethod = "online"
	PaymentMethodOffline PaymentMethod = "offline"
)

func (p PaymentMethod) IsValid() bool {
	return p == PaymentMethodOnline || p == PaymentMethodOffline
}

// LineItem is one priced line of a booking, tagged with its cost category.
type LineItem struct {
	Code          string          `json:"code"`
	Name          string          `json:"name"`
	Tag           string          `json:"tag"`
	Quantity      int             `json:"quantity"`
	DurationHours int             `json:"duration_hours,omitempty"`
	UnitPrice     decimal.Decimal `json:"unit_price"`
	Amount        decimal.Decimal `json:"amount"`
}

// Details is the type-specific part of a request, stored as JSONB.
type Details struct {
	Lines         []LineItem `json:"lines"`
	ScheduledAt   *time.Time `json:"scheduled_at,omitempty"`
	MechanicVisit bool       `json:"mechanic_visit,omitempty"`
	Delivery      bool       `json:"delivery,omitempty"`
	Address       string     `json:"address,omitempty"`
	Notes         string     `json:"notes,omitempty"`
}

// Request is a repair or rental booking. TotalAmount is the pre-discount
// total; DiscountAmount and NetAmount are kept alongside it. ExpiresAt is
// fixed at creation.
type Request struct {
	ID             uuid.UUID          `json:"id"`
	UserID         uuid.UUID          `json:"user_id"`
	Type           shared.RequestType `json:"request_type"`
	Status         Status             `json:"status"`
	PaymentMethod  PaymentMethod      `json:"payment_method"`
	TotalAmount    decimal.Decimal    `json:"total_amount"`
	DiscountAmount decimal.Decimal    `json:"discount_amount"`
	NetAmount      decimal.Decimal    `json:"net_amount"`
	CouponID       *uuid.UUID         `json:"coupon_id,omitempty"`
	CouponCode     *string            `json:"coupon_code,omitempty"`
	Details        Details            `json:"details"`
	RejectionNote  *string            `json:"rejection_note,omitempty"`
	ExpiresAt      time.Time          `json:"expires_at"`
	CreatedAt      time.Time          `json:"created_at"`
	UpdatedAt      time.Time          `json:"updated_at"`
	CompletedAt    *time.Time         `json:"completed_at,omitempty"`
}

// IsLogicallyExpired reports a pending/unpaid request past its window,
// whether or not the expiry has been persisted yet.
func (r *Request) IsLogicallyExpired(now time.Time) bool {
	return r.Status.IsExpirable() && now.After(r.ExpiresAt)
}

// EffectiveStatus is the status a reader should see at now.
func (r *Request) EffectiveStatus(now time.Time) Status {
	if r.IsLogicallyExpired(now) {
		return StatusExpired
	}
	return r.Status
}

// IsCompleted is the fact revenue reporting relies on.
func (r *Request) IsCompleted() bool {
	return r.Status == StatusCompleted
}

// StatusChange is the payload of a request.status_changed event.
type StatusChange struct {
	RequestID uuid.UUID          `json:"request_id"`
	UserID    uuid.UUID          `json:"user_id"`
	Type      shared.RequestType `json:"request_type"`
	From      Status             `json:"from"`
	To        Status             `json:"to"`
	ChangedAt time.Time          `json:"changed_at"`
}
