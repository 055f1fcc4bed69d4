package model

import (
	"net/http"

	"bikeshop-backend/pkg/apperror"
)

const (
	// Evaluation failures (422), in the order they are checked
	ErrCodeCouponNotFound          apperror.ErrorCode = "COUPON_NOT_FOUND"
	ErrCodeCouponExpired           apperror.ErrorCode = "COUPON_EXPIRED"
	ErrCodeCouponUsageLimitReached apperror.ErrorCode = "COUPON_USAGE_LIMIT_REACHED"
	ErrCodeCouponNotApplicable     apperror.ErrorCode = "COUPON_NOT_APPLICABLE"
	ErrCodeCouponBelowMinimum      apperror.ErrorCode = "COUPON_BELOW_MINIMUM"

	// Admin operations
	ErrCodeCouponRecordNotFound apperror.ErrorCode = "COUPON_RECORD_NOT_FOUND" // 404
	ErrCodeCouponDuplicateCode  apperror.ErrorCode = "COUPON_DUPLICATE_CODE"   // 409
	ErrCodeCouponInUse          apperror.ErrorCode = "COUPON_IN_USE"           // 409
)

// Predefined errors
var (
	ErrCouponNotFound = apperror.New(apperror.KindCoupon, ErrCodeCouponNotFound,
		"coupon does not exist or is inactive", 0)

	ErrCouponExpired = apperror.New(apperror.KindCoupon, ErrCodeCouponExpired,
		"coupon has expired", 0)

	ErrCouponUsageLimitReached = apperror.New(apperror.KindCoupon, ErrCodeCouponUsageLimitReached,
		"coupon usage limit reached for this user", 0)

	ErrCouponNotApplicable = apperror.New(apperror.KindCoupon, ErrCodeCouponNotApplicable,
		"coupon does not apply to any item in this order", 0)

	ErrCouponBelowMinimum = apperror.New(apperror.KindCoupon, ErrCodeCouponBelowMinimum,
		"order total is below the coupon minimum", 0)

	ErrCouponRecordNotFound = apperror.New(apperror.KindNotFound, ErrCodeCouponRecordNotFound,
		"coupon not found", 0)

	ErrCouponDuplicateCode = apperror.New(apperror.KindValidation, ErrCodeCouponDuplicateCode,
		"a coupon with this code already exists", http.StatusConflict)

	ErrCouponInUse = apperror.New(apperror.KindValidation, ErrCodeCouponInUse,
		"coupon has recorded usages and cannot be deleted; deactivate it instead", http.StatusConflict)
)
