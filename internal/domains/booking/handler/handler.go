package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"bikeshop-backend/internal/domains/booking/model"
	"bikeshop-backend/internal/domains/booking/service"
	"bikeshop-backend/internal/shared/middleware"
	"bikeshop-backend/internal/shared/response"
	"bikeshop-backend/pkg/apperror"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(bookingService service.ServiceInterface) *Handler {
	return &Handler{service: bookingService}
}

// Submit creates a repair or rental request, redeeming the coupon if one is given.
//
// @Summary  Submit a booking
// @Tags     bookings
// @Accept   json
// @Produce  json
// @Param    request body model.SubmitBookingRequest true "Booking"
// @Success  201 {object} response.Response{data=model.SubmitResult}
// @Failure  400 {object} response.Response
// @Failure  409 {object} response.Response
// @Failure  422 {object} response.Response
// @Router   /v1/bookings [post]
func (h *Handler) Submit(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.SubmitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperror.Validation("invalid request body", map[string]interface{}{
			"body": err.Error(),
		}))
		return
	}

	result, err := h.service.Submit(c.Request.Context(), userID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// Quote prices a candidate booking and previews its coupon. Nothing is written.
// @Router /v1/bookings/quote [post]
func (h *Handler) Quote(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var req model.SubmitBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperror.Validation("invalid request body", map[string]interface{}{
			"body": err.Error(),
		}))
		return
	}

	quote, err := h.service.Quote(c.Request.Context(), userID, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, quote)
}
