package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// FeeRateHandler wires the fee rate approval workflow to HTTP endpoints.
type FeeRateHandler struct {
	service *service.FeeRateService
}

// NewFeeRateHandler constructs the handler.
func NewFeeRateHandler(svc *service.FeeRateService) *FeeRateHandler {
	return &FeeRateHandler{service: svc}
}

// Propose godoc
// @Summary Propose a fee rate
// @Description Create a platform service-fee proposal awaiting counter-approval
// @Tags FeeRates
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeeRateRequest true "Proposal payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /fee-rates [post]
func (h *FeeRateHandler) Propose(c *gin.Context) {
	var req dto.CreateFeeRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	rate, err := h.service.Propose(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, rate)
}

// Approve godoc
// @Summary Approve a pending fee rate
// @Description Activate a pending rate, superseding the school's current active rate
// @Tags FeeRates
// @Produce json
// @Param id path string true "Fee rate ID"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fee-rates/{id}/approve [post]
func (h *FeeRateHandler) Approve(c *gin.Context) {
	rate, err := h.service.Approve(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// Reject godoc
// @Summary Reject a pending fee rate
// @Tags FeeRates
// @Accept json
// @Produce json
// @Param id path string true "Fee rate ID"
// @Param payload body dto.RejectFeeRateRequest false "Rejection reason"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fee-rates/{id}/reject [post]
func (h *FeeRateHandler) Reject(c *gin.Context) {
	var req dto.RejectFeeRateRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}
	rate, err := h.service.Reject(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// List godoc
// @Summary List fee rates
// @Tags FeeRates
// @Produce json
// @Param school_id query string false "School filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fee-rates [get]
func (h *FeeRateHandler) List(c *gin.Context) {
	query := dto.FeeRateQuery{
		SchoolID: c.Query("school_id"),
		Status:   models.FeeRateStatus(c.Query("status")),
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		query.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("page_size", "20")); err == nil {
		query.PageSize = size
	}

	rates, total, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, rates, pagination)
}

// Get godoc
// @Summary Get fee rate detail
// @Tags FeeRates
// @Produce json
// @Param id path string true "Fee rate ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-rates/{id} [get]
func (h *FeeRateHandler) Get(c *gin.Context) {
	rate, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, rate, nil)
}

// Stats godoc
// @Summary Fee rate workflow statistics
// @Tags FeeRates
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fee-rates/stats [get]
func (h *FeeRateHandler) Stats(c *gin.Context) {
	stats, err := h.service.Stats(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, stats, nil)
}
