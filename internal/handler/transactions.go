package handler

import (
	"net/http"
	"time"

	"cortepos/internal/dto"
	"cortepos/internal/middleware"
	"cortepos/internal/service"

	"github.com/gin-gonic/gin"
)

type TransactionsHandler struct{ svc *service.TransactionService }

func NewTransactionsHandler(svc *service.TransactionService) *TransactionsHandler {
	return &TransactionsHandler{svc: svc}
}

// Record appends one finalized sale or expense to the transaction stream.
func (h *TransactionsHandler) Record(c *gin.Context) {
	var req dto.RecordTransactionRequest
	if !bindAndValidate(c, &req) {
		return
	}
	claims := middleware.GetClaims(c)

	var occurredAt time.Time
	if req.OccurredAt != nil {
		occurredAt = *req.OccurredAt
	}

	rec, err := h.svc.Record(c.Request.Context(), service.RecordInput{
		Kind:          req.Kind,
		OccurredAt:    occurredAt,
		Total:         req.Total,
		Cost:          req.Cost,
		PaymentMethod: req.PaymentMethod,
		ServiceType:   req.ServiceType,
		ProductName:   req.ProductName,
		Quantity:      req.Quantity,
		Revenue:       req.Revenue,
		CreatedBy:     claims.Username,
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, rec)
}
