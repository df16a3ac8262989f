package handler

import (
	"net/http"

	"cashpos/internal/dto"
	"cashpos/internal/service"

	"github.com/gin-gonic/gin"
)

type RegistersHandler struct{ svc service.RegisterService }

func NewRegistersHandler(svc service.RegisterService) *RegistersHandler {
	return &RegistersHandler{svc: svc}
}

// Create godoc
// @Summary Creates a register
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param body body dto.RegisterRequest true "Register"
// @Success 201 {object} dto.RegisterResponse
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers [post]
func (h *RegistersHandler) Create(c *gin.Context) {
	var req dto.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary Lists registers
// @Tags registers
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.RegisterResponse
// @Router /v1/registers [get]
func (h *RegistersHandler) List(c *gin.Context) {
	resp, err := h.svc.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Get godoc
// @Summary Returns one register
// @Tags registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Success 200 {object} dto.RegisterResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/registers/{id} [get]
func (h *RegistersHandler) Get(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Rename godoc
// @Summary Renames a register
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param body body dto.RegisterRequest true "New name"
// @Success 200 {object} dto.RegisterResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers/{id} [put]
func (h *RegistersHandler) Rename(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	var req dto.RegisterRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Rename(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Remove godoc
// @Summary Removes a register that has no history
// @Tags registers
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Success 204
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/registers/{id} [delete]
func (h *RegistersHandler) Remove(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	if err := h.svc.Remove(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
