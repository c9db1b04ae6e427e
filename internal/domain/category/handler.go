package category

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"advisoryhub/internal/domain/auth"
	"advisoryhub/internal/pkg/response"
	"advisoryhub/internal/pkg/validator"
)

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// List godoc
// @Summary List categories
// @Tags Categories
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Router /categories [get]
func (h *Handler) List(c *gin.Context) {
	items, err := h.service.List(c.Request.Context())
	if err != nil {
		response.CustomError(c, http.StatusInternalServerError, "LIST_FAILED", "Failed to list categories")
		return
	}
	if items == nil {
		items = []Category{}
	}
	response.Success(c, http.StatusOK, items)
}

// Create godoc
// @Summary Create a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body CategoryRequest true "name"
// @Success 201 {object} map[string]interface{}
// @Failure 400,403,409 {object} map[string]interface{}
// @Router /categories [post]
func (h *Handler) Create(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	cat, err := h.service.Create(c.Request.Context(), auth.CurrentSession(c), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, cat)
}

// Rename godoc
// @Summary Rename a category
// @Tags Categories
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Param body body CategoryRequest true "name"
// @Success 200 {object} map[string]interface{}
// @Failure 400,403,404,409 {object} map[string]interface{}
// @Router /categories/{id} [patch]
func (h *Handler) Rename(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	cat, err := h.service.Rename(c.Request.Context(), auth.CurrentSession(c), c.Param("id"), req.Name)
	if err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, cat)
}

// Delete godoc
// @Summary Delete a category and its content associations
// @Tags Categories
// @Security BearerAuth
// @Param id path string true "Category ID"
// @Success 200 {object} map[string]interface{}
// @Failure 403,404 {object} map[string]interface{}
// @Router /categories/{id} [delete]
func (h *Handler) Delete(c *gin.Context) {
	if err := h.service.Delete(c.Request.Context(), auth.CurrentSession(c), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	response.Success(c, http.StatusOK, gin.H{"status": "deleted"})
}

func bindRequest(c *gin.Context) (CategoryRequest, bool) {
	var req CategoryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", "Invalid request body")
		return req, false
	}
	if errs := validator.Validate(req); errs != nil {
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", errs)
		return req, false
	}
	return req, true
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrForbidden):
		response.CustomError(c, http.StatusForbidden, "FORBIDDEN", err)
	case errors.Is(err, ErrInvalidName):
		response.CustomError(c, http.StatusBadRequest, "VALIDATION_ERROR", err)
	case errors.Is(err, ErrCategoryNotFound):
		response.CustomError(c, http.StatusNotFound, "NOT_FOUND", err)
	case errors.Is(err, ErrCategoryExists):
		response.CustomError(c, http.StatusConflict, "CATEGORY_EXISTS", err)
	default:
		response.CustomError(c, http.StatusInternalServerError, "CATEGORY_FAILED", "Failed to update categories")
	}
}
