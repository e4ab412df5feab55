package handler

import (
	"net/http"

	"studio_sales_backend/internal/appointments/service"
	"studio_sales_backend/internal/appointments/transport"
	"studio_sales_backend/platform/httpkit"
	"studio_sales_backend/platform/validator"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

const (
	msgInvalidRequest   = "invalid request"
	msgValidationFailed = "validation failed"
)

// Handler serves the studio's calendar administration.
type Handler struct {
	svc *service.Service
	val *validator.Validator
}

// New creates a new calendar handler
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val}
}

// RegisterRoutes registers the availability routes
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/availability/rules", h.ListAvailabilityRules)
	rg.POST("/availability/rules", h.CreateAvailabilityRule)
	rg.DELETE("/availability/rules/:id", h.DeleteAvailabilityRule)
	rg.GET("/availability/slots", h.GetFreeSlots)
}

// ListAvailabilityRules handles GET /availability/rules
func (h *Handler) ListAvailabilityRules(c *gin.Context) {
	var req transport.ListAvailabilityRulesRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	rules, err := h.svc.ListAvailabilityRules(c.Request.Context(), req.ResourceID)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, gin.H{"items": rules})
}

// CreateAvailabilityRule handles POST /availability/rules
func (h *Handler) CreateAvailabilityRule(c *gin.Context) {
	var req transport.CreateAvailabilityRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	rule, err := h.svc.CreateAvailabilityRule(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.JSON(c, http.StatusCreated, rule)
}

// DeleteAvailabilityRule handles DELETE /availability/rules/:id
func (h *Handler) DeleteAvailabilityRule(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, "invalid rule ID", nil)
		return
	}
	if httpkit.HandleError(c, h.svc.DeleteAvailabilityRule(c.Request.Context(), id)) {
		return
	}
	c.Status(http.StatusNoContent)
}

// GetFreeSlots handles GET /availability/slots
func (h *Handler) GetFreeSlots(c *gin.Context) {
	var req transport.FreeSlotsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest, err.Error())
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgValidationFailed, err.Error())
		return
	}
	resp, err := h.svc.GetFreeSlots(c.Request.Context(), req)
	if httpkit.HandleError(c, err) {
		return
	}
	httpkit.OK(c, resp)
}
