package handler

import (
	"net/http"

	"cortepos/internal/apierror"
	"cortepos/internal/dto"
	"cortepos/internal/middleware"
	"cortepos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type DrawerHandler struct{ svc *service.LedgerService }

func NewDrawerHandler(svc *service.LedgerService) *DrawerHandler {
	return &DrawerHandler{svc: svc}
}

// Open starts a new drawer cut with the counted opening float.
// A second open while one exists returns 409.
func (h *DrawerHandler) Open(c *gin.Context) {
	var req dto.OpenDrawerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	cut, err := h.svc.Open(c.Request.Context(), claims.Username, req.OpeningAmount)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, cut)
}

// AppendEntry records one sale/expense/adjustment against the open cut.
func (h *DrawerHandler) AppendEntry(c *gin.Context) {
	var req dto.AppendEntryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cutID, err := uuid.Parse(req.CutID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cut id"))
		return
	}
	var refID *uuid.UUID
	if req.ReferenceID != nil {
		parsed, err := uuid.Parse(*req.ReferenceID)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid reference id"))
			return
		}
		refID = &parsed
	}

	cut, err := h.svc.AppendEntry(c.Request.Context(), cutID, req.Type, req.Amount, refID, req.Note)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cut)
}

// Close seals the cut against the counted closing amount and reports the
// expected amount and signed difference.
func (h *DrawerHandler) Close(c *gin.Context) {
	var req dto.CloseDrawerRequest
	if !bindAndValidate(c, &req) {
		return
	}
	cutID, err := uuid.Parse(req.CutID)
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cut id"))
		return
	}
	claims := middleware.GetClaims(c)

	cut, err := h.svc.CloseCut(c.Request.Context(), cutID, req.ClosingAmount, claims.Username)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cut)
}

// Report returns a cut together with its reconciliation breakdown.
func (h *DrawerHandler) Report(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cut id"))
		return
	}
	report, err := h.svc.Report(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Active returns the currently open cut, 404 when none.
func (h *DrawerHandler) Active(c *gin.Context) {
	cut, err := h.svc.Active(c.Request.Context())
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cut)
}
