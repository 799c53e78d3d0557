package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
)

type TenantHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewTenantHandler(db *gorm.DB, dispatcher *audit.Dispatcher) *TenantHandler {
	return &TenantHandler{db: db, audit: dispatcher}
}

type UpdateTenantRequest struct {
	Name                    *string `json:"name"`
	Phone                   *string `json:"phone"`
	Email                   *string `json:"email"`
	Address                 *string `json:"address"`
	Timezone                *string `json:"timezone"`
	Currency                *string `json:"currency"`
	MinAdvanceMinutes       *int    `json:"min_advance_minutes"`
	CancellationWindowHours *int    `json:"cancellation_window_hours"`
	MaxReschedules          *int    `json:"max_reschedules"`
}

func (h *TenantHandler) load(c *gin.Context) (*models.Tenant, bool) {
	var tenant models.Tenant
	if err := h.db.Where("id = ?", tenantIDFrom(c)).First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "tenant_not_found", "Fant ikke salongen.")
			return nil, false
		}
		httperr.Internal(c, "failed_to_get_tenant", "Kunne ikke hente salongen.")
		return nil, false
	}
	return &tenant, true
}

func (h *TenantHandler) GetMeTenant(c *gin.Context) {
	tenant, ok := h.load(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, tenant)
}

func (h *TenantHandler) UpdateMeTenant(c *gin.Context) {
	tenant, ok := h.load(c)
	if !ok {
		return
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			httperr.BadRequest(c, "invalid_name", "Navn kan ikke være tomt.")
			return
		}
		tenant.Name = name
	}
	if req.Phone != nil {
		tenant.Phone = *req.Phone
	}
	if req.Email != nil {
		tenant.Email = strings.ToLower(strings.TrimSpace(*req.Email))
	}
	if req.Address != nil {
		tenant.Address = *req.Address
	}
	if req.Timezone != nil {
		if !timezone.IsValid(*req.Timezone) {
			httperr.BadRequest(c, "invalid_timezone", "Ugyldig tidssone.")
			return
		}
		tenant.Timezone = *req.Timezone
	}
	if req.Currency != nil {
		cur := strings.ToUpper(strings.TrimSpace(*req.Currency))
		if len(cur) != 3 {
			httperr.BadRequest(c, "invalid_currency", "Ugyldig valuta.")
			return
		}
		tenant.Currency = cur
	}
	if req.MinAdvanceMinutes != nil {
		if *req.MinAdvanceMinutes < 0 {
			httperr.BadRequest(c, "invalid_min_advance", "Minste varsel må være null eller positivt (minutter).")
			return
		}
		tenant.MinAdvanceMinutes = *req.MinAdvanceMinutes
	}
	if req.CancellationWindowHours != nil {
		if *req.CancellationWindowHours < 0 {
			httperr.BadRequest(c, "invalid_cancellation_window", "Avbestillingsfristen kan ikke være negativ.")
			return
		}
		tenant.CancellationWindowHours = *req.CancellationWindowHours
	}
	if req.MaxReschedules != nil {
		if *req.MaxReschedules < 0 {
			httperr.BadRequest(c, "invalid_max_reschedules", "Antall flyttinger kan ikke være negativt.")
			return
		}
		tenant.MaxReschedules = *req.MaxReschedules
	}

	if err := h.db.Save(tenant).Error; err != nil {
		httperr.Internal(c, "failed_to_update_tenant", "Kunne ikke lagre innstillingene.")
		return
	}

	recordAudit(h.audit, c, "tenant_updated", "tenant", nil, req)

	c.JSON(http.StatusOK, tenant)
}
