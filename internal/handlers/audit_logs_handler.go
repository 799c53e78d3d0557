package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/httpresp"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

const (
	auditDefaultLimit = 50
	auditMaxLimit     = 200
)

type AuditLogsHandler struct {
	db *gorm.DB
}

func NewAuditLogsHandler(db *gorm.DB) *AuditLogsHandler {
	return &AuditLogsHandler{db: db}
}

func pagination(c *gin.Context) (page, limit int) {
	page, _ = strconv.Atoi(c.DefaultQuery("page", "1"))
	if page <= 0 {
		page = 1
	}
	limit, _ = strconv.Atoi(c.DefaultQuery("limit", strconv.Itoa(auditDefaultLimit)))
	if limit <= 0 || limit > auditMaxLimit {
		limit = auditDefaultLimit
	}
	return page, limit
}

// List pages through the tenant's audit trail, newest first. from and to are
// whole days in the tenant's timezone, both inclusive.
func (h *AuditLogsHandler) List(c *gin.Context) {
	tenantID := tenantIDFrom(c)
	page, limit := pagination(c)

	var tenant models.Tenant
	if err := h.db.Where("id = ?", tenantID).First(&tenant).Error; err != nil {
		httperr.NotFound(c, "tenant_not_found", "Fant ikke salongen.")
		return
	}

	q := h.db.Model(&models.AuditLog{}).Where("tenant_id = ?", tenantID)

	if v := c.Query("action"); v != "" {
		q = q.Where("action = ?", v)
	}
	if v := c.Query("entity"); v != "" {
		q = q.Where("entity = ?", v)
	}
	if v := c.Query("user_id"); v != "" {
		uid, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			httperr.BadRequest(c, "invalid_user_id", "Ugyldig bruker.")
			return
		}
		q = q.Where("user_id = ?", uid)
	}

	if v := c.Query("from"); v != "" {
		from, err := parseDateInTenant(&tenant, v)
		if err != nil {
			httperr.BadRequest(c, "invalid_from", "Ugyldig fra-dato.")
			return
		}
		q = q.Where("created_at >= ?", from.UTC())
	}
	if v := c.Query("to"); v != "" {
		to, err := parseDateInTenant(&tenant, v)
		if err != nil {
			httperr.BadRequest(c, "invalid_to", "Ugyldig til-dato.")
			return
		}
		q = q.Where("created_at < ?", to.AddDate(0, 0, 1).UTC())
	}

	var total int64
	if err := q.Count(&total).Error; err != nil {
		httperr.Internal(c, "audit_count_failed", "Kunne ikke telle logglinjer.")
		return
	}

	var logs []models.AuditLog
	if err := q.
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Offset((page - 1) * limit).
		Find(&logs).Error; err != nil {

		httperr.Internal(c, "audit_list_failed", "Kunne ikke hente logg.")
		return
	}

	httpresp.Page(c, logs, page, limit, total)
}
