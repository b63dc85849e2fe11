package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/models"
	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// FeeStructureHandler exposes fee structure and installment plan management.
type FeeStructureHandler struct {
	service *service.FeeStructureService
}

// NewFeeStructureHandler constructs the handler.
func NewFeeStructureHandler(svc *service.FeeStructureService) *FeeStructureHandler {
	return &FeeStructureHandler{service: svc}
}

// Create godoc
// @Summary Create a draft fee structure
// @Description Derives the installment schedule from the selected plan type
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param payload body dto.CreateFeeStructureRequest true "Structure payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /fee-structures [post]
func (h *FeeStructureHandler) Create(c *gin.Context) {
	var req dto.CreateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	structure, err := h.service.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, structure)
}

// List godoc
// @Summary List fee structures
// @Tags FeeStructures
// @Produce json
// @Param school_id query string false "School filter"
// @Param academic_year query string false "Academic year filter"
// @Param status query string false "Status filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fee-structures [get]
func (h *FeeStructureHandler) List(c *gin.Context) {
	query := dto.FeeStructureQuery{
		SchoolID:     c.Query("school_id"),
		AcademicYear: c.Query("academic_year"),
		Status:       models.FeeStructureStatus(c.Query("status")),
		Page:         queryInt(c, "page", 1),
		PageSize:     queryInt(c, "page_size", 20),
	}
	structures, total, err := h.service.List(c.Request.Context(), query, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	pagination := &models.Pagination{Page: query.Page, PageSize: query.PageSize, TotalCount: total}
	response.JSON(c, http.StatusOK, structures, pagination)
}

// Get godoc
// @Summary Get fee structure detail with installments
// @Tags FeeStructures
// @Produce json
// @Param id path string true "Fee structure ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /fee-structures/{id} [get]
func (h *FeeStructureHandler) Get(c *gin.Context) {
	structure, err := h.service.Get(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// Update godoc
// @Summary Update a draft fee structure
// @Tags FeeStructures
// @Accept json
// @Produce json
// @Param id path string true "Fee structure ID"
// @Param payload body dto.UpdateFeeStructureRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fee-structures/{id} [put]
func (h *FeeStructureHandler) Update(c *gin.Context) {
	var req dto.UpdateFeeStructureRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	structure, err := h.service.Update(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}

// Publish godoc
// @Summary Publish a fee structure
// @Description Freezes the structure so it can be referenced by payments
// @Tags FeeStructures
// @Produce json
// @Param id path string true "Fee structure ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /fee-structures/{id}/publish [post]
func (h *FeeStructureHandler) Publish(c *gin.Context) {
	structure, err := h.service.Publish(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, structure, nil)
}
