package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/oauth"
)

// ProviderConnections is implemented by *provider.Service.
type ProviderConnections interface {
	AuthorizationURL(tenantID, kind string) (string, error)
	ParseCallbackState(raw string) (oauth.State, error)
	Connect(ctx context.Context, tenantID, kind, code string) (*models.PaymentProvider, error)
	Connection(ctx context.Context, tenantID, kind string) (*models.PaymentProvider, error)
	Disconnect(ctx context.Context, tenantID, kind string) error
}

type ProviderHandler struct {
	providers ProviderConnections
	audit     *audit.Dispatcher
	log       logrus.FieldLogger
}

func NewProviderHandler(providers ProviderConnections, dispatcher *audit.Dispatcher, log logrus.FieldLogger) *ProviderHandler {
	return &ProviderHandler{providers: providers, audit: dispatcher, log: log}
}

var providerKinds = []string{models.ProviderZettle, models.ProviderStripeConnect}

// List reports which providers the tenant has connected.
func (h *ProviderHandler) List(c *gin.Context) {
	out := make([]gin.H, 0, len(providerKinds))
	for _, kind := range providerKinds {
		entry := gin.H{"provider": kind, "connected": false}
		p, err := h.providers.Connection(c.Request.Context(), tenantIDFrom(c), kind)
		switch {
		case err == nil:
			entry["connected"] = true
			entry["provider_account_id"] = p.ProviderAccountID
			entry["token_expires_at"] = p.TokenExpiresAt
			entry["reader_links"] = len(p.Config.ReaderLinks)
		case !httperr.IsBusiness(err, "provider_not_connected"):
			httperr.Respond(c, h.log, err)
			return
		}
		out = append(out, entry)
	}
	c.JSON(http.StatusOK, out)
}

// ConnectURL returns the consent URL the dashboard should open.
func (h *ProviderHandler) ConnectURL(c *gin.Context) {
	url, err := h.providers.AuthorizationURL(tenantIDFrom(c), c.Param("kind"))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"url": url})
}

// Callback is hit by the provider after consent. The tenant comes from the
// signed state, not from a session.
func (h *ProviderHandler) Callback(c *gin.Context) {
	kind := c.Param("kind")

	if denied := c.Query("error"); denied != "" {
		h.log.WithFields(logrus.Fields{"provider": kind, "reason": denied}).Warn("provider consent denied")
		httperr.BadRequest(c, "oauth_denied", "Tilgang ble ikke gitt.")
		return
	}

	code := c.Query("code")
	if code == "" {
		httperr.BadRequest(c, "missing_code", "Mangler autorisasjonskode.")
		return
	}

	st, err := h.providers.ParseCallbackState(c.Query("state"))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	p, err := h.providers.Connect(c.Request.Context(), st.TenantID, kind, code)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	h.audit.Dispatch(audit.Event{
		TenantID: st.TenantID,
		Action:   "provider_connected",
		Entity:   "payment_provider",
		EntityID: &p.ID,
		Metadata: map[string]string{"provider": kind},
	})

	c.JSON(http.StatusOK, gin.H{
		"connected":           true,
		"provider":            kind,
		"provider_account_id": p.ProviderAccountID,
	})
}

func (h *ProviderHandler) Disconnect(c *gin.Context) {
	kind := c.Param("kind")
	if err := h.providers.Disconnect(c.Request.Context(), tenantIDFrom(c), kind); err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	recordAudit(h.audit, c, "provider_disconnected", "payment_provider", nil, map[string]string{"provider": kind})

	c.Status(http.StatusNoContent)
}
