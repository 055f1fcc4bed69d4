package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/internal/domains/coupon/service"
	"bikeshop-backend/internal/shared/middleware"
	"bikeshop-backend/internal/shared/response"
	"bikeshop-backend/pkg/apperror"
)

// PublicHandler serves the customer-facing coupon endpoints.
type PublicHandler struct {
	service service.ServiceInterface
}

func NewPublicHandler(couponService service.ServiceInterface) *PublicHandler {
	return &PublicHandler{service: couponService}
}

// Evaluate previews a coupon against a candidate order.
//
// @Summary  Preview a coupon
// @Tags     coupons
// @Accept   json
// @Produce  json
// @Param    request body model.EvaluateCouponRequest true "Evaluate request"
// @Success  200 {object} response.Response{data=model.EvaluationResult}
// @Failure  400 {object} response.Response
// @Router   /v1/coupons/evaluate [post]
func (h *PublicHandler) Evaluate(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.EvaluateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperror.Validation("invalid request body", map[string]interface{}{
			"body": err.Error(),
		}))
		return
	}

	if err := req.Validate(); err != nil {
		response.HandleError(c, apperror.FromValidation(err))
		return
	}

	result, err := h.service.Evaluate(c.Request.Context(), req.ToInput(userID))
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListAvailable returns the coupons the caller can still redeem.
//
// @Summary  List available coupons
// @Tags     coupons
// @Produce  json
// @Success  200 {object} response.Response{data=[]model.PublicCoupon}
// @Router   /v1/coupons/available [get]
func (h *PublicHandler) ListAvailable(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	coupons, err := h.service.ListAvailable(c.Request.Context(), userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, coupons)
}
