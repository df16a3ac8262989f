package handler

import (
	"net/http"

	"cashpos/internal/apierror"
	"cashpos/internal/dto"
	"cashpos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CajaHandler struct {
	svc   service.CajaService
	recon service.ReconciliationService
}

func NewCajaHandler(svc service.CajaService, recon service.ReconciliationService) *CajaHandler {
	return &CajaHandler{svc: svc, recon: recon}
}

// Open godoc
// @Summary Opens a session on the register
// @Description Starting cash is the previous session's ending cash plus the adjustment.
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param body body dto.OpenRequest false "Opening adjustment"
// @Success 201 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers/{id}/open [post]
func (h *CajaHandler) Open(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	var req dto.OpenRequest
	if !bindOptional(c, &req) {
		return
	}
	resp, err := h.svc.Open(c.Request.Context(), id, employeeID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Close godoc
// @Summary Closes the open session and reconciles the drawer
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param body body dto.CloseRequest true "Counted cash and adjustment"
// @Success 200 {object} dto.CloseResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers/{id}/close [post]
func (h *CajaHandler) Close(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	var req dto.CloseRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Close(c.Request.Context(), id, employeeID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// PreviewClose godoc
// @Summary Computes the close-out figures without closing
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param body body dto.PreviewRequest true "Counted cash and adjustment"
// @Success 200 {object} dto.PreviewResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers/{id}/close/preview [post]
func (h *CajaHandler) PreviewClose(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	var req dto.PreviewRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.recon.PreviewClose(c.Request.Context(), id, req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RecordMovement godoc
// @Summary Records a CASH_IN or CASH_OUT against the open session
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param body body dto.MovementRequest true "Movement"
// @Success 201 {object} dto.EventResponse
// @Failure 409 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers/{id}/movements [post]
func (h *CajaHandler) RecordMovement(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	var req dto.MovementRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordCashMovement(c.Request.Context(), id, employeeID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// RecordDrop godoc
// @Summary Records a counted drop taken from the drawer
// @Tags registers
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param body body dto.DropRequest true "Counted drop"
// @Success 201 {object} dto.EventResponse
// @Failure 404 {object} apierror.APIError
// @Failure 422 {object} apierror.ValidationError
// @Router /v1/registers/{id}/drops [post]
func (h *CajaHandler) RecordDrop(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	var req dto.DropRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.RecordDrop(c.Request.Context(), id, employeeID(c), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// ExpectedCash godoc
// @Summary Expected cash in the drawer for the open session
// @Tags registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Success 200 {object} dto.ExpectedCashResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/registers/{id}/expected-cash [get]
func (h *CajaHandler) ExpectedCash(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	resp, err := h.recon.ExpectedCash(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetActive godoc
// @Summary Returns the open session of the register
// @Tags registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Success 200 {object} dto.SessionResponse
// @Failure 404 {object} apierror.APIError
// @Failure 409 {object} apierror.APIError
// @Router /v1/registers/{id}/session [get]
func (h *CajaHandler) GetActive(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	resp, err := h.svc.GetActive(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListSessions godoc
// @Summary Session history of the register, newest first
// @Tags registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param page query int false "Page" default(1)
// @Param limit query int false "Page size" default(20)
// @Success 200 {object} dto.SessionListResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/registers/{id}/sessions [get]
func (h *CajaHandler) ListSessions(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	page, ok := queryInt(c, "page")
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	resp, err := h.svc.ListSessions(c.Request.Context(), id, page, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ListEvents godoc
// @Summary Latest ledger events of the register, oldest first
// @Tags registers
// @Produce json
// @Security BearerAuth
// @Param id path int true "Register ID"
// @Param limit query int false "Number of events" default(50)
// @Success 200 {array} dto.EventResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/registers/{id}/events [get]
func (h *CajaHandler) ListEvents(c *gin.Context) {
	id, ok := registerID(c)
	if !ok {
		return
	}
	limit, ok := queryInt(c, "limit")
	if !ok {
		return
	}
	resp, err := h.svc.ListEvents(c.Request.Context(), id, limit)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Report godoc
// @Summary Session with its ledger events and reconciliation
// @Tags sessions
// @Produce json
// @Security BearerAuth
// @Param id path string true "Session ID"
// @Success 200 {object} dto.SessionReportResponse
// @Failure 404 {object} apierror.APIError
// @Router /v1/sessions/{id}/report [get]
func (h *CajaHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid session id"))
		return
	}
	resp, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
