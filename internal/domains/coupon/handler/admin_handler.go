package handler

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bikeshop-backend/internal/domains/coupon/model"
	"bikeshop-backend/internal/domains/coupon/service"
	"bikeshop-backend/internal/shared/response"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/apperror"
	"bikeshop-backend/pkg/logger"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// AdminHandler serves coupon management for administrators.
type AdminHandler struct {
	service service.ServiceInterface
}

func NewAdminHandler(couponService service.ServiceInterface) *AdminHandler {
	return &AdminHandler{service: couponService}
}

// CreateCoupon
// @Router /v1/admin/coupons [post]
func (h *AdminHandler) CreateCoupon(c *gin.Context) {
	var req model.CreateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, bindError(err))
		return
	}

	coupon, err := h.service.CreateCoupon(c.Request.Context(), &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, coupon)
}

// UpdateCoupon
// @Router /v1/admin/coupons/{id} [put]
func (h *AdminHandler) UpdateCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.UpdateCouponRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, bindError(err))
		return
	}

	coupon, err := h.service.UpdateCoupon(c.Request.Context(), id, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, coupon)
}

// GetCoupon
// @Router /v1/admin/coupons/{id} [get]
func (h *AdminHandler) GetCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	coupon, err := h.service.GetCoupon(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, coupon)
}

// ListCoupons
// @Router /v1/admin/coupons [get]
func (h *AdminHandler) ListCoupons(c *gin.Context) {
	var filter model.ListCouponsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.HandleError(c, bindError(err))
		return
	}
	filter.Page, filter.Limit = utils.NormalizePage(filter.Page, filter.Limit)

	coupons, total, err := h.service.ListCoupons(c.Request.Context(), &filter)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, coupons, &response.Meta{
		Page:  filter.Page,
		Limit: filter.Limit,
		Total: total,
	})
}

// DeleteCoupon
// @Router /v1/admin/coupons/{id} [delete]
func (h *AdminHandler) DeleteCoupon(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if err := h.service.DeleteCoupon(c.Request.Context(), id); err != nil {
		response.HandleError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

// ExportUsages streams the coupon's usage ledger as an xlsx workbook.
// @Router /v1/admin/coupons/{id}/usages/export [get]
func (h *AdminHandler) ExportUsages(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	f, coupon, err := h.service.ExportUsages(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("coupon_%s_usages_%s.xlsx", coupon.Code, time.Now().Format("20060102"))
	c.Header("Content-Type", xlsxContentType)
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Status(http.StatusOK)

	if err := f.Write(c.Writer); err != nil {
		logger.Error("write coupon usage export", err)
	}
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.HandleError(c, apperror.Validation("invalid coupon id", map[string]interface{}{
			"id": c.Param("id"),
		}))
		return uuid.Nil, false
	}
	return id, true
}

func bindError(err error) error {
	return apperror.Validation("invalid request", map[string]interface{}{"body": err.Error()})
}
