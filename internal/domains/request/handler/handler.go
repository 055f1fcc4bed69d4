package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"bikeshop-backend/internal/domains/request/model"
	"bikeshop-backend/internal/domains/request/service"
	"bikeshop-backend/internal/shared/middleware"
	"bikeshop-backend/internal/shared/response"
	"bikeshop-backend/internal/shared/utils"
	"bikeshop-backend/pkg/apperror"
)

type Handler struct {
	service service.ServiceInterface
}

func NewHandler(requestService service.ServiceInterface) *Handler {
	return &Handler{service: requestService}
}

// ListMine lists the caller's requests.
// @Router /v1/requests [get]
func (h *Handler) ListMine(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	var filter model.ListRequestsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.HandleError(c, apperror.Validation("invalid query", map[string]interface{}{"query": err.Error()}))
		return
	}
	filter.UserID = &userID

	h.list(c, &filter)
}

// GetMine returns one of the caller's requests.
// @Router /v1/requests/{id} [get]
func (h *Handler) GetMine(c *gin.Context) {
	userID, ok := middleware.UserIDFromContext(c)
	if !ok {
		response.Unauthorized(c, "authentication required")
		return
	}

	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.service.GetForUser(c.Request.Context(), id, userID)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, req)
}

// AdminList lists every request, filterable by status and type.
// @Router /v1/admin/requests [get]
func (h *Handler) AdminList(c *gin.Context) {
	var filter model.ListRequestsFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.HandleError(c, apperror.Validation("invalid query", map[string]interface{}{"query": err.Error()}))
		return
	}
	filter.UserID = nil

	h.list(c, &filter)
}

// AdminGet returns any request.
// @Router /v1/admin/requests/{id} [get]
func (h *Handler) AdminGet(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	req, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, req)
}

// TransitionStatus applies an admin status change.
// @Router /v1/admin/requests/{id}/status [patch]
func (h *Handler) TransitionStatus(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req model.TransitionStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.HandleError(c, apperror.Validation("invalid request body", map[string]interface{}{"body": err.Error()}))
		return
	}

	updated, err := h.service.Transition(c.Request.Context(), id, &req)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	response.Success(c, http.StatusOK, updated)
}

func (h *Handler) list(c *gin.Context, filter *model.ListRequestsFilter) {
	requests, total, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.HandleError(c, err)
		return
	}

	page, limit := utils.NormalizePage(filter.Page, filter.Limit)
	response.SuccessWithMeta(c, http.StatusOK, requests, &response.Meta{
		Page:  page,
		Limit: limit,
		Total: total,
	})
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.HandleError(c, apperror.Validation("invalid request id", map[string]interface{}{"id": c.Param("id")}))
		return uuid.Nil, false
	}
	return id, true
}
