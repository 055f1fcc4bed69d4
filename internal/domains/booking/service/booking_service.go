package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"bikeshop-backend/internal/domains/booking/model"
	couponModel "bikeshop-backend/internal/domains/coupon/model"
	couponService "bikeshop-backend/internal/domains/coupon/service"
	requestModel "bikeshop-backend/internal/domains/request/model"
	requestService "bikeshop-backend/internal/domains/request/service"
	"bikeshop-backend/internal/shared"
	"bikeshop-backend/pkg/apperror"
	"bikeshop-backend/pkg/database"
	"bikeshop-backend/pkg/logger"
)

// maxAttempts bounds the retry of a transaction that lost a race.
const maxAttempts = 2

type bookingService struct {
	pricer    *Pricer
	coupons   couponService.ServiceInterface
	requests  requestService.ServiceInterface
	tx        database.Transactor
	expiry    ExpiryScheduler
	publisher shared.EventPublisher
}

type Option func(*bookingService)

func WithExpiryScheduler(s ExpiryScheduler) Option {
	return func(b *bookingService) { b.expiry = s }
}

func WithPublisher(p shared.EventPublisher) Option {
	return func(b *bookingService) {
		if p != nil {
			b.publisher = p
		}
	}
}

func NewBookingService(
	pricer *Pricer,
	coupons couponService.ServiceInterface,
	requests requestService.ServiceInterface,
	tx database.Transactor,
	opts ...Option,
) ServiceInterface {
	s := &bookingService{
		pricer:    pricer,
		coupons:   coupons,
		requests:  requests,
		tx:        tx,
		publisher: shared.NopPublisher{},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// -------------------------------------------------------------------
// SUBMIT
// -------------------------------------------------------------------

// finalized is what a committed booking transaction produced.
type finalized struct {
	request *requestModel.Request
	applied *couponModel.AppliedCoupon
	usage   *couponModel.CouponUsage
}

// Submit flow:
//  1. validate and price the items from the catalog
//  2. evaluate the coupon; a rejection fails the submission
//  3. in one transaction: re-apply the coupon against the transaction's
//     view of the ledger, create the pending request, append the usage row
//  4. retry once when the transaction lost a race
//  5. after commit: invalidate caches, schedule expiry, publish events
func (s *bookingService) Submit(ctx context.Context, userID uuid.UUID, req *model.SubmitBookingRequest) (*model.SubmitResult, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	quote, err := s.pricer.Price(req)
	if err != nil {
		return nil, err
	}

	var evalInput *couponModel.EvaluateInput
	if code := req.Coupon(); code != "" {
		evalInput = &couponModel.EvaluateInput{
			Code:        code,
			UserID:      userID,
			RequestType: req.RequestType,
			ItemTags:    quote.Tags,
			Total:       quote.TotalAmount,
		}
		// Fail fast outside the transaction; the authoritative check is repeated inside it
		if _, err := s.coupons.Apply(ctx, nil, evalInput); err != nil {
			return nil, err
		}
	}

	var result *finalized
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		result, err = s.finalize(ctx, userID, req, quote, evalInput)
		if err == nil || !apperror.IsKind(err, apperror.KindConcurrencyConflict) || attempt == maxAttempts {
			break
		}
		logger.Warn("booking transaction conflicted, retrying", map[string]interface{}{
			"user_id": userID,
			"attempt": attempt,
		})
	}
	if err != nil {
		if _, ok := apperror.As(err); !ok {
			err = apperror.Persistence("submit booking", err)
		}
		return nil, err
	}

	s.afterCommit(ctx, result)

	r := result.request
	logger.Info("booking submitted", map[string]interface{}{
		"request_id":   r.ID,
		"user_id":      userID,
		"request_type": r.Type,
		"total":        r.TotalAmount.String(),
		"discount":     r.DiscountAmount.String(),
	})

	return &model.SubmitResult{
		RequestID:      r.ID,
		TotalAmount:    r.TotalAmount,
		DiscountAmount: r.DiscountAmount,
		NetAmount:      r.NetAmount,
		Status:         r.Status,
		ExpiresAt:      r.ExpiresAt,
		CouponCode:     r.CouponCode,
	}, nil
}

func (s *bookingService) finalize(
	ctx context.Context,
	userID uuid.UUID,
	req *model.SubmitBookingRequest,
	quote *model.Quote,
	evalInput *couponModel.EvaluateInput,
) (*finalized, error) {
	var result *finalized

	err := s.tx.WithinTransaction(ctx, func(tx pgx.Tx) error {
		result = &finalized{}
		discount := decimal.Zero

		in := &requestModel.CreateRequestInput{
			UserID:        userID,
			Type:          req.RequestType,
			PaymentMethod: req.PaymentMethod,
			TotalAmount:   quote.TotalAmount,
			Details: requestModel.Details{
				Lines:         quote.Lines,
				ScheduledAt:   req.ScheduledAt,
				MechanicVisit: req.MechanicVisit,
				Delivery:      req.Delivery,
				Address:       req.Address,
				Notes:         req.Notes,
			},
		}

		if evalInput != nil {
			applied, err := s.coupons.Apply(ctx, tx, evalInput)
			if err != nil {
				return err
			}
			result.applied = applied
			discount = applied.DiscountAmount

			couponID, code := applied.Coupon.ID, applied.Coupon.Code
			in.CouponID = &couponID
			in.CouponCode = &code
		}
		in.DiscountAmount = discount

		created, err := s.requests.Create(ctx, tx, in)
		if err != nil {
			return err
		}
		result.request = created

		if result.applied == nil {
			return nil
		}

		usage := &couponModel.CouponUsage{
			CouponID:       result.applied.Coupon.ID,
			UserID:         userID,
			RequestType:    req.RequestType,
			RequestID:      created.ID,
			DiscountAmount: discount,
		}
		if err := s.coupons.RecordUsage(ctx, tx, usage); err != nil {
			return err
		}
		result.usage = usage
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// afterCommit runs best-effort side effects; none of them can undo the booking.
func (s *bookingService) afterCommit(ctx context.Context, result *finalized) {
	r := result.request

	if s.expiry != nil {
		if err := s.expiry.ScheduleExpiry(ctx, r.ID, r.ExpiresAt); err != nil {
			// The periodic sweep still expires the request
			logger.ErrorWithFields("schedule request expiry", err, map[string]interface{}{
				"request_id": r.ID,
			})
		}
	}

	s.publish(ctx, shared.NewEvent(shared.EventBookingSubmitted, r.ID.String(), &model.BookingSubmitted{
		RequestID:      r.ID,
		UserID:         r.UserID,
		RequestType:    r.Type,
		TotalAmount:    r.TotalAmount,
		DiscountAmount: r.DiscountAmount,
		NetAmount:      r.NetAmount,
		CouponCode:     r.CouponCode,
		ExpiresAt:      r.ExpiresAt,
	}))

	if result.usage != nil {
		s.publish(ctx, shared.NewEvent(shared.EventCouponRedeemed, r.ID.String(), &model.CouponRedeemed{
			CouponID:       result.usage.CouponID,
			Code:           result.applied.Coupon.Code,
			UserID:         r.UserID,
			RequestID:      r.ID,
			DiscountAmount: result.usage.DiscountAmount,
			Slot:           result.usage.Slot,
		}))
	}
}

func (s *bookingService) publish(ctx context.Context, event shared.Event) {
	if err := s.publisher.Publish(ctx, event); err != nil {
		logger.ErrorWithFields("publish booking event", err, map[string]interface{}{
			"type": event.Type,
			"key":  event.Key,
		})
	}
}

// -------------------------------------------------------------------
// QUOTE
// -------------------------------------------------------------------

func (s *bookingService) Quote(ctx context.Context, userID uuid.UUID, req *model.SubmitBookingRequest) (*model.QuoteResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, apperror.FromValidation(err)
	}

	quote, err := s.pricer.Price(req)
	if err != nil {
		return nil, err
	}

	resp := &model.QuoteResponse{
		Quote:          quote,
		DiscountAmount: decimal.Zero,
		NetAmount:      quote.TotalAmount,
	}

	code := req.Coupon()
	if code == "" {
		return resp, nil
	}

	evaluation, err := s.coupons.Evaluate(ctx, &couponModel.EvaluateInput{
		Code:        code,
		UserID:      userID,
		RequestType: req.RequestType,
		ItemTags:    quote.Tags,
		Total:       quote.TotalAmount,
	})
	if err != nil {
		return nil, err
	}

	resp.Coupon = evaluation
	if evaluation.Valid {
		resp.DiscountAmount = evaluation.DiscountAmount
		resp.NetAmount = evaluation.NetAmount
	}
	return resp, nil
}
