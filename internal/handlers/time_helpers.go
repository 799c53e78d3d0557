package handlers

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/salon-platform/internal/middleware"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
)

// --------------------------------------------------
// Tenant-local time
// --------------------------------------------------

func locationFromTenant(t *models.Tenant) *time.Location {
	if t == nil {
		return timezone.Location(timezone.DefaultTimezone)
	}
	return timezone.Location(t.Timezone)
}

func parseDateInTenant(t *models.Tenant, dateStr string) (time.Time, error) {
	return time.ParseInLocation("2006-01-02", dateStr, locationFromTenant(t))
}

// --------------------------------------------------
// Request context
// --------------------------------------------------

func tenantIDFrom(c *gin.Context) string {
	return c.GetString(middleware.ContextTenantID)
}

func userIDFrom(c *gin.Context) uint {
	return c.GetUint(middleware.ContextUserID)
}

func uintParam(c *gin.Context, name string) (uint, bool) {
	v, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || v == 0 {
		return 0, false
	}
	return uint(v), true
}
