package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

// CalendarConnections is implemented by *calendar.TokenStore.
type CalendarConnections interface {
	AuthorizationURL(tenantID string, employeeID uint) (string, error)
	ParseCallbackState(raw string) (string, uint, error)
	Connect(ctx context.Context, tenantID string, employeeID uint, code string) error
	Connection(ctx context.Context, tenantID string, employeeID uint) (*models.CalendarConnection, error)
	Disconnect(ctx context.Context, tenantID string, employeeID uint) error
}

type CalendarHandler struct {
	calendars CalendarConnections
	audit     *audit.Dispatcher
	log       logrus.FieldLogger
}

func NewCalendarHandler(calendars CalendarConnections, dispatcher *audit.Dispatcher, log logrus.FieldLogger) *CalendarHandler {
	return &CalendarHandler{calendars: calendars, audit: dispatcher, log: log}
}

func (h *CalendarHandler) Status(c *gin.Context) {
	conn, err := h.calendars.Connection(c.Request.Context(), tenantIDFrom(c), userIDFrom(c))
	if err != nil {
		if httperr.IsBusiness(err, "calendar_not_connected") {
			c.JSON(http.StatusOK, gin.H{"connected": false})
			return
		}
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"connected":   true,
		"calendar_id": conn.CalendarID,
	})
}

func (h *CalendarHandler) ConnectURL(c *gin.Context) {
	url, err := h.calendars.AuthorizationURL(tenantIDFrom(c), userIDFrom(c))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

func (h *CalendarHandler) Callback(c *gin.Context) {
	if denied := c.Query("error"); denied != "" {
		httperr.BadRequest(c, "oauth_denied", "Tilgang ble ikke gitt.")
		return
	}

	code := c.Query("code")
	if code == "" {
		httperr.BadRequest(c, "missing_code", "Mangler autorisasjonskode.")
		return
	}

	tenantID, employeeID, err := h.calendars.ParseCallbackState(c.Query("state"))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	if err := h.calendars.Connect(c.Request.Context(), tenantID, employeeID, code); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.audit.Dispatch(audit.Event{
		TenantID: tenantID,
		UserID:   &employeeID,
		Action:   "calendar_connected",
		Entity:   "user",
		EntityID: &employeeID,
	})

	c.JSON(http.StatusOK, gin.H{"connected": true})
}

func (h *CalendarHandler) Disconnect(c *gin.Context) {
	if err := h.calendars.Disconnect(c.Request.Context(), tenantIDFrom(c), userIDFrom(c)); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	employeeID := userIDFrom(c)
	recordAudit(h.audit, c, "calendar_disconnected", "user", &employeeID, nil)

	c.Status(http.StatusNoContent)
}
