package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type MeHandler struct {
	db *gorm.DB
}

func NewMeHandler(db *gorm.DB) *MeHandler {
	return &MeHandler{db: db}
}

func (h *MeHandler) GetMe(c *gin.Context) {
	userID := userIDFrom(c)
	if userID == 0 {
		httperr.Unauthorized(c, "user_not_in_context", "Ikke innlogget.")
		return
	}

	var user models.User
	if err := h.db.Preload("Tenant").
		Where("id = ? AND tenant_id = ?", userID, tenantIDFrom(c)).
		First(&user).Error; err != nil {
		httperr.NotFound(c, "user_not_found", "Fant ikke brukeren.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user":   userJSON(&user),
		"tenant": tenantJSON(&user.Tenant),
	})
}
