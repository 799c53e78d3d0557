package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type WorkingHoursHandler struct {
	db    *gorm.DB
	audit *audit.Dispatcher
}

func NewWorkingHoursHandler(db *gorm.DB, dispatcher *audit.Dispatcher) *WorkingHoursHandler {
	return &WorkingHoursHandler{db: db, audit: dispatcher}
}

type WorkingDayConfig struct {
	Weekday    int    `json:"weekday" binding:"min=0,max=6"`
	Active     bool   `json:"active"`
	StartTime  string `json:"start_time"`
	EndTime    string `json:"end_time"`
	LunchStart string `json:"lunch_start"`
	LunchEnd   string `json:"lunch_end"`
}

type WorkingHoursUpdateRequest struct {
	Days []WorkingDayConfig `json:"days" binding:"required,dive"`
}

func validClock(v string) bool {
	_, err := time.Parse("15:04", v)
	return err == nil
}

// valid accepts inactive days as they are; active days need a start before
// the end and, when given, a lunch break inside it.
func (d WorkingDayConfig) valid() bool {
	if !d.Active {
		return true
	}
	if !validClock(d.StartTime) || !validClock(d.EndTime) || d.StartTime >= d.EndTime {
		return false
	}
	if d.LunchStart == "" && d.LunchEnd == "" {
		return true
	}
	return validClock(d.LunchStart) && validClock(d.LunchEnd) &&
		d.LunchStart < d.LunchEnd &&
		d.LunchStart >= d.StartTime && d.LunchEnd <= d.EndTime
}

func (h *WorkingHoursHandler) Get(c *gin.Context) {
	var hours []models.WorkingHours
	if err := h.db.
		Where("employee_id = ?", userIDFrom(c)).
		Order("weekday ASC").
		Find(&hours).Error; err != nil {

		httperr.Internal(c, "failed_to_get_working_hours", "Kunne ikke hente arbeidstider.")
		return
	}

	c.JSON(http.StatusOK, hours)
}

func (h *WorkingHoursHandler) Update(c *gin.Context) {
	employeeID := userIDFrom(c)

	var req WorkingHoursUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	seen := make(map[int]bool, len(req.Days))
	toCreate := make([]models.WorkingHours, 0, len(req.Days))
	for _, d := range req.Days {
		if seen[d.Weekday] {
			httperr.BadRequest(c, "duplicate_weekday", "Samme ukedag er oppgitt flere ganger.")
			return
		}
		seen[d.Weekday] = true

		if !d.valid() {
			httperr.BadRequest(c, "invalid_working_hours", "Ugyldige arbeidstider.")
			return
		}

		toCreate = append(toCreate, models.WorkingHours{
			EmployeeID: employeeID,
			Weekday:    d.Weekday,
			Active:     d.Active,
			StartTime:  d.StartTime,
			EndTime:    d.EndTime,
			LunchStart: d.LunchStart,
			LunchEnd:   d.LunchEnd,
		})
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("employee_id = ?", employeeID).Delete(&models.WorkingHours{}).Error; err != nil {
			return err
		}
		if len(toCreate) == 0 {
			return nil
		}
		return tx.Create(&toCreate).Error
	})
	if err != nil {
		httperr.Internal(c, "failed_to_save_working_hours", "Kunne ikke lagre arbeidstider.")
		return
	}

	recordAudit(h.audit, c, "working_hours_updated", "user", &employeeID, nil)

	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
