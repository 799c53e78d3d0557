package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
)

// recordAudit attributes an event to the authenticated staff member.
func recordAudit(
	d *audit.Dispatcher,
	c *gin.Context,
	action string,
	entity string,
	entityID *uint,
	meta any,
) {
	userID := userIDFrom(c)
	var uid *uint
	if userID != 0 {
		uid = &userID
	}

	d.Dispatch(audit.Event{
		TenantID: tenantIDFrom(c),
		UserID:   uid,
		Action:   action,
		Entity:   entity,
		EntityID: entityID,
		Metadata: meta,
	})
}
