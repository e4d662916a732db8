package handler

import (
	"net/http"
	"strconv"
	"time"

	"cortepos/internal/apierror"
	"cortepos/internal/dto"
	"cortepos/internal/middleware"
	"cortepos/internal/repository"
	"cortepos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type CutsHandler struct {
	coordinator *service.CutCoordinator
	ledger      *service.LedgerService
}

func NewCutsHandler(coordinator *service.CutCoordinator, ledger *service.LedgerService) *CutsHandler {
	return &CutsHandler{coordinator: coordinator, ledger: ledger}
}

// Trigger runs a manual cash cut. An idempotency key may come from the body
// or the X-Idempotency-Key header; a replayed trigger returns the original
// cut with a 200 instead of an error.
func (h *CutsHandler) Trigger(c *gin.Context) {
	var req dto.TriggerCutRequest
	if !bindAndValidate(c, &req) {
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = c.GetHeader("X-Idempotency-Key")
	}
	claims := middleware.GetClaims(c)

	cut, created, err := h.coordinator.TriggerManual(c.Request.Context(), claims.Username, req.Notes, key)
	if err != nil {
		writeError(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, dto.TriggerCutResponse{Cut: cut, Replayed: !created})
}

// List returns non-deleted cuts, newest first.
// Query: status, kind, from, to (RFC 3339), limit.
func (h *CutsHandler) List(c *gin.Context) {
	f := repository.CutFilter{
		Status: c.Query("status"),
		Kind:   c.Query("kind"),
	}
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid 'from' timestamp"))
			return
		}
		f.From = t
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.New("invalid 'to' timestamp"))
			return
		}
		f.To = t
	}
	f.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))

	cuts, err := h.ledger.List(c.Request.Context(), f)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.CutListResponse{Data: cuts, Count: len(cuts)})
}

func (h *CutsHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cut id"))
		return
	}
	cut, err := h.ledger.Get(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, cut)
}

// Delete soft-deletes a closed cut. Route is admin-gated.
func (h *CutsHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.New("invalid cut id"))
		return
	}
	if err := h.ledger.SoftDelete(c.Request.Context(), id); err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.String()})
}

