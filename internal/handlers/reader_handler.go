package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/httpresp"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/payment"
)

// ReaderLinks is implemented by *readerlink.Service.
type ReaderLinks interface {
	List(ctx context.Context, tenantID string) ([]models.ReaderLink, error)
	Refresh(ctx context.Context, tenantID string) ([]models.ReaderLink, error)
	Create(ctx context.Context, tenantID, name string) (*models.ReaderLink, error)
	Delete(ctx context.Context, tenantID, linkID string) error
}

// ReaderPayments is implemented by *payment.ReaderService.
type ReaderPayments interface {
	StartReaderPayment(ctx context.Context, tenantID, linkID string, in payment.StartInput) (*models.Payment, error)
	CancelReaderPayment(ctx context.Context, tenantID, linkID, traceID string) error
	GetPayment(ctx context.Context, tenantID, reference string) (*models.Payment, error)
}

type ReaderHandler struct {
	links    ReaderLinks
	payments ReaderPayments
	audit    *audit.Dispatcher
	log      logrus.FieldLogger
}

func NewReaderHandler(links ReaderLinks, payments ReaderPayments, dispatcher *audit.Dispatcher, log logrus.FieldLogger) *ReaderHandler {
	return &ReaderHandler{links: links, payments: payments, audit: dispatcher, log: log}
}

// --------- Requests ---------

type CreateReaderLinkRequest struct {
	Name string `json:"name"`
}

type StartReaderPaymentRequest struct {
	Amount        float64 `json:"amount" binding:"required"`
	Currency      string  `json:"currency"`
	Reference     string  `json:"reference"`
	AppointmentID *uint   `json:"appointment_id"`
}

// --------- Links ---------

func (h *ReaderHandler) List(c *gin.Context) {
	links, err := h.links.List(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	httpresp.List(c, links)
}

func (h *ReaderHandler) Refresh(c *gin.Context) {
	links, err := h.links.Refresh(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	httpresp.List(c, links)
}

func (h *ReaderHandler) Create(c *gin.Context) {
	var req CreateReaderLinkRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
			return
		}
	}

	link, err := h.links.Create(c.Request.Context(), tenantIDFrom(c), req.Name)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	recordAudit(h.audit, c, "reader_link_created", "reader_link", nil, map[string]string{"link_id": link.LinkID})

	c.JSON(http.StatusCreated, link)
}

func (h *ReaderHandler) Delete(c *gin.Context) {
	linkID := c.Param("link")
	if err := h.links.Delete(c.Request.Context(), tenantIDFrom(c), linkID); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	recordAudit(h.audit, c, "reader_link_deleted", "reader_link", nil, map[string]string{"link_id": linkID})

	c.Status(http.StatusNoContent)
}

// --------- Payments ---------

func (h *ReaderHandler) StartPayment(c *gin.Context) {
	var req StartReaderPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	p, err := h.payments.StartReaderPayment(c.Request.Context(), tenantIDFrom(c), c.Param("link"), payment.StartInput{
		Amount:        req.Amount,
		Currency:      strings.ToUpper(strings.TrimSpace(req.Currency)),
		Reference:     req.Reference,
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

func (h *ReaderHandler) CancelPayment(c *gin.Context) {
	tenantID := tenantIDFrom(c)
	trace := c.Param("trace")

	if err := h.payments.CancelReaderPayment(c.Request.Context(), tenantID, c.Param("link"), trace); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	recordAudit(h.audit, c, "payment_cancel_requested", "payment", nil, map[string]string{"reference": trace})

	c.JSON(http.StatusAccepted, gin.H{"status": "cancel_requested"})
}

func (h *ReaderHandler) GetPayment(c *gin.Context) {
	p, err := h.payments.GetPayment(c.Request.Context(), tenantIDFrom(c), c.Param("trace"))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	if p.ReaderID != c.Param("link") {
		httperr.Respond(c, h.log, payment.ErrPaymentNotFound)
		return
	}
	c.JSON(http.StatusOK, p)
}
