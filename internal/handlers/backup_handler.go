package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/archive"
	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/httpresp"
)

// Archives is implemented by *archive.Archiver.
type Archives interface {
	Export(ctx context.Context, tenantID string) (*archive.Object, error)
	List(ctx context.Context, tenantID string) ([]archive.Object, error)
}

type BackupHandler struct {
	archives Archives
	audit    *audit.Dispatcher
	log      logrus.FieldLogger
}

// NewBackupHandler accepts a nil archives when backups are not configured.
func NewBackupHandler(archives Archives, dispatcher *audit.Dispatcher, log logrus.FieldLogger) *BackupHandler {
	return &BackupHandler{archives: archives, audit: dispatcher, log: log}
}

func (h *BackupHandler) enabled(c *gin.Context) bool {
	if h.archives == nil {
		httperr.Write(c, http.StatusServiceUnavailable, "backups_disabled", "Sikkerhetskopiering er ikke konfigurert.")
		return false
	}
	return true
}

func (h *BackupHandler) Create(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	obj, err := h.archives.Export(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		h.log.WithError(err).WithField("tenant_id", tenantIDFrom(c)).Error("backup export failed")
		httperr.Internal(c, "backup_failed", "Sikkerhetskopien kunne ikke lagres.")
		return
	}

	recordAudit(h.audit, c, "backup_created", "tenant", nil, map[string]string{"key": obj.Key})

	c.JSON(http.StatusCreated, obj)
}

func (h *BackupHandler) List(c *gin.Context) {
	if !h.enabled(c) {
		return
	}

	objs, err := h.archives.List(c.Request.Context(), tenantIDFrom(c))
	if err != nil {
		h.log.WithError(err).Error("backup list failed")
		httperr.Internal(c, "backup_list_failed", "Kunne ikke hente sikkerhetskopier.")
		return
	}
	httpresp.List(c, objs)
}
