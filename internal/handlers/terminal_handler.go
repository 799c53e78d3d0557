package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/httpresp"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/payment"
	"github.com/BruksfildServices01/salon-platform/internal/stripeterminal"
)

// TerminalPayments is implemented by *payment.TerminalService.
type TerminalPayments interface {
	ConnectionToken(ctx context.Context, tenantID string) (string, error)
	Readers(ctx context.Context, tenantID string) ([]stripeterminal.Reader, error)
	Start(ctx context.Context, tenantID string, in payment.TerminalInput) (*models.Payment, error)
	Sync(ctx context.Context, tenantID, intentID string) (*models.Payment, error)
	Cancel(ctx context.Context, tenantID, intentID string) error
}

type TerminalHandler struct {
	terminal TerminalPayments
	audit    *audit.Dispatcher
	log      logrus.FieldLogger
}

func NewTerminalHandler(terminal TerminalPayments, dispatcher *audit.Dispatcher, log logrus.FieldLogger) *TerminalHandler {
	return &TerminalHandler{terminal: terminal, audit: dispatcher, log: log}
}

type StartTerminalPaymentRequest struct {
	ReaderID      string  `json:"reader_id" binding:"required"`
	Amount        float64 `json:"amount" binding:"required"`
	Currency      string  `json:"currency"`
	AppointmentID *uint   `json:"appointment_id"`
}

func (h *TerminalHandler) ConnectionToken(c *gin.Context) {
	secret, err := h.terminal.ConnectionToken(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"secret": secret})
}

func (h *TerminalHandler) Readers(c *gin.Context) {
	readers, err := h.terminal.Readers(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	httpresp.List(c, readers)
}

func (h *TerminalHandler) StartPayment(c *gin.Context) {
	var req StartTerminalPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	p, err := h.terminal.Start(c.Request.Context(), tenantIDFrom(c), payment.TerminalInput{
		ReaderID:      req.ReaderID,
		Amount:        req.Amount,
		Currency:      req.Currency,
		AppointmentID: req.AppointmentID,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	recordAudit(h.audit, c, "payment_started", "payment", &p.ID, map[string]any{
		"provider":  p.Provider,
		"reference": p.Reference,
		"amount":    p.Amount,
	})

	c.JSON(http.StatusAccepted, p)
}

// GetPayment reconciles the record with Stripe before answering.
func (h *TerminalHandler) GetPayment(c *gin.Context) {
	p, err := h.terminal.Sync(c.Request.Context(), tenantIDFrom(c), c.Param("id"))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, p)
}

func (h *TerminalHandler) CancelPayment(c *gin.Context) {
	id := c.Param("id")
	if err := h.terminal.Cancel(c.Request.Context(), tenantIDFrom(c), id); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	recordAudit(h.audit, c, "payment_canceled", "payment", nil, map[string]string{"reference": id})

	c.JSON(http.StatusOK, gin.H{"status": models.PaymentCanceled})
}
