package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/school-fees-api/internal/dto"
	"github.com/noah-isme/school-fees-api/internal/service"
	appErrors "github.com/noah-isme/school-fees-api/pkg/errors"
	"github.com/noah-isme/school-fees-api/pkg/response"
)

// ReceiptTemplateHandler manages per-school receipt branding.
type ReceiptTemplateHandler struct {
	service *service.ReceiptService
}

// NewReceiptTemplateHandler constructs the handler.
func NewReceiptTemplateHandler(svc *service.ReceiptService) *ReceiptTemplateHandler {
	return &ReceiptTemplateHandler{service: svc}
}

// List godoc
// @Summary List receipt templates for a school
// @Tags ReceiptTemplates
// @Produce json
// @Param school_id query string true "School ID"
// @Success 200 {object} response.Envelope
// @Router /receipt-templates [get]
func (h *ReceiptTemplateHandler) List(c *gin.Context) {
	templates, err := h.service.ListTemplates(c.Request.Context(), c.Query("school_id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, templates, nil)
}

// Create godoc
// @Summary Create a receipt template
// @Tags ReceiptTemplates
// @Accept json
// @Produce json
// @Param payload body dto.CreateReceiptTemplateRequest true "Template payload"
// @Success 201 {object} response.Envelope
// @Router /receipt-templates [post]
func (h *ReceiptTemplateHandler) Create(c *gin.Context) {
	var req dto.CreateReceiptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.service.CreateTemplate(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, template)
}

// Update godoc
// @Summary Update a receipt template
// @Tags ReceiptTemplates
// @Accept json
// @Produce json
// @Param id path string true "Template ID"
// @Param payload body dto.UpdateReceiptTemplateRequest true "Changes"
// @Success 200 {object} response.Envelope
// @Router /receipt-templates/{id} [put]
func (h *ReceiptTemplateHandler) Update(c *gin.Context) {
	var req dto.UpdateReceiptTemplateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	template, err := h.service.UpdateTemplate(c.Request.Context(), c.Param("id"), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// SetDefault godoc
// @Summary Mark a template as the school default
// @Tags ReceiptTemplates
// @Produce json
// @Param id path string true "Template ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /receipt-templates/{id}/default [post]
func (h *ReceiptTemplateHandler) SetDefault(c *gin.Context) {
	template, err := h.service.SetDefaultTemplate(c.Request.Context(), c.Param("id"), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, template, nil)
}

// Delete godoc
// @Summary Delete a receipt template
// @Tags ReceiptTemplates
// @Produce json
// @Param id path string true "Template ID"
// @Success 204
// @Failure 409 {object} response.Envelope
// @Router /receipt-templates/{id} [delete]
func (h *ReceiptTemplateHandler) Delete(c *gin.Context) {
	if err := h.service.DeleteTemplate(c.Request.Context(), c.Param("id"), claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
