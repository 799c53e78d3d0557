package handlers

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/usecase/appointment"
)

////////////////////////////////////////////////////////
// HANDLER
////////////////////////////////////////////////////////

type PublicHandler struct {
	db           *gorm.DB
	availability *appointment.GetAvailability
	create       *appointment.CreateBooking
	get          *appointment.GetBookingByToken
	cancel       *appointment.CancelBooking
	reschedule   *appointment.RescheduleBooking
	log          logrus.FieldLogger
}

func NewPublicHandler(
	db *gorm.DB,
	availability *appointment.GetAvailability,
	create *appointment.CreateBooking,
	get *appointment.GetBookingByToken,
	cancel *appointment.CancelBooking,
	reschedule *appointment.RescheduleBooking,
	log logrus.FieldLogger,
) *PublicHandler {
	return &PublicHandler{
		db:           db,
		availability: availability,
		create:       create,
		get:          get,
		cancel:       cancel,
		reschedule:   reschedule,
		log:          log,
	}
}

////////////////////////////////////////////////////////
// DTOs
////////////////////////////////////////////////////////

type PublicCreateBookingRequest struct {
	FirstName  string `json:"first_name" binding:"required"`
	LastName   string `json:"last_name"`
	Phone      string `json:"phone" binding:"required"`
	Email      string `json:"email"`
	ServiceID  uint   `json:"service_id" binding:"required"`
	EmployeeID uint   `json:"employee_id"`
	Date       string `json:"date" binding:"required"` // YYYY-MM-DD
	Time       string `json:"time" binding:"required"` // HH:mm
	Notes      string `json:"notes" binding:"max=255"`
}

type PublicCancelRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

type PublicRescheduleRequest struct {
	Date string `json:"date" binding:"required"`
	Time string `json:"time" binding:"required"`
}

type publicEmployee struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

////////////////////////////////////////////////////////
// TENANT RESOLUTION
////////////////////////////////////////////////////////

// tenant resolves the :tenant path segment by subdomain.
func (h *PublicHandler) tenant(c *gin.Context) (*models.Tenant, bool) {
	key := strings.ToLower(strings.TrimSpace(c.Param("tenant")))

	var t models.Tenant
	if err := h.db.Where("subdomain = ?", key).First(&t).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			httperr.NotFound(c, "tenant_not_found", "Fant ikke salongen.")
			return nil, false
		}
		httperr.Internal(c, "failed_to_get_tenant", "Noe gikk galt.")
		return nil, false
	}
	return &t, true
}

// employee picks the requested employee, or the owner when none is given.
func (h *PublicHandler) employee(c *gin.Context, tenantID string, requested uint) (uint, bool) {
	q := h.db.Where("tenant_id = ?", tenantID)
	if requested != 0 {
		q = q.Where("id = ?", requested)
	} else {
		q = q.Where("role = ?", models.RoleOwner)
	}

	var u models.User
	if err := q.Order("id ASC").First(&u).Error; err != nil {
		httperr.BadRequest(c, "employee_not_found", "Fant ikke frisøren.")
		return 0, false
	}
	return u.ID, true
}

////////////////////////////////////////////////////////
// SERVICES
////////////////////////////////////////////////////////

func (h *PublicHandler) ListServices(c *gin.Context) {
	t, ok := h.tenant(c)
	if !ok {
		return
	}

	category := strings.TrimSpace(strings.ToLower(c.Query("category")))

	q := h.db.Where("tenant_id = ? AND active = ?", t.ID, true)
	if category != "" {
		q = q.Where("LOWER(category) = ?", category)
	}

	var services []models.Service
	if err := q.Order("id ASC").Find(&services).Error; err != nil {
		httperr.Internal(c, "failed_to_list_services", "Kunne ikke hente tjenester.")
		return
	}

	var employees []publicEmployee
	if err := h.db.Model(&models.User{}).
		Select("id, name").
		Where("tenant_id = ?", t.ID).
		Order("id ASC").
		Scan(&employees).Error; err != nil {
		httperr.Internal(c, "failed_to_list_employees", "Noe gikk galt.")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"tenant":    tenantJSON(t),
		"services":  services,
		"employees": employees,
	})
}

////////////////////////////////////////////////////////
// AVAILABILITY
////////////////////////////////////////////////////////

func (h *PublicHandler) Availability(c *gin.Context) {
	dateStr := c.Query("date")
	serviceIDStr := c.Query("service_id")

	if dateStr == "" || serviceIDStr == "" {
		httperr.BadRequest(c, "missing_params", "Dato og tjeneste må oppgis.")
		return
	}

	serviceID, err := strconv.ParseUint(serviceIDStr, 10, 64)
	if err != nil {
		httperr.BadRequest(c, "invalid_service_id", "Ugyldig tjeneste.")
		return
	}

	var requested uint64
	if v := c.Query("employee_id"); v != "" {
		if requested, err = strconv.ParseUint(v, 10, 64); err != nil {
			httperr.BadRequest(c, "invalid_employee_id", "Ugyldig frisør.")
			return
		}
	}

	t, ok := h.tenant(c)
	if !ok {
		return
	}

	employeeID, ok := h.employee(c, t.ID, uint(requested))
	if !ok {
		return
	}

	date, err := parseDateInTenant(t, dateStr)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Ugyldig dato.")
		return
	}

	slots, err := h.availability.Execute(c.Request.Context(), domain.AvailabilityInput{
		TenantID:   t.ID,
		EmployeeID: employeeID,
		ServiceID:  uint(serviceID),
		Date:       date,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"date":        dateStr,
		"employee_id": employeeID,
		"slots":       slots,
	})
}

////////////////////////////////////////////////////////
// BOOKING
////////////////////////////////////////////////////////

func (h *PublicHandler) CreateBooking(c *gin.Context) {
	t, ok := h.tenant(c)
	if !ok {
		return
	}

	var req PublicCreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	employeeID, ok := h.employee(c, t.ID, req.EmployeeID)
	if !ok {
		return
	}

	created, err := h.create.Execute(c.Request.Context(), appointment.CreateBookingInput{
		TenantID:   t.ID,
		ServiceID:  req.ServiceID,
		EmployeeID: employeeID,
		Date:       req.Date,
		Time:       req.Time,
		Customer: appointment.CustomerInfo{
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Phone:     req.Phone,
			Email:     req.Email,
		},
		Notes: req.Notes,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

////////////////////////////////////////////////////////
// SELF-SERVICE (MANAGEMENT TOKEN)
////////////////////////////////////////////////////////

func (h *PublicHandler) GetBooking(c *gin.Context) {
	details, err := h.get.Execute(c.Request.Context(), c.Param("token"))
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, details)
}

func (h *PublicHandler) CancelBooking(c *gin.Context) {
	var req PublicCancelRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
			return
		}
	}

	res, err := h.cancel.Execute(c.Request.Context(), c.Param("token"), req.Reason)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PublicHandler) RescheduleBooking(c *gin.Context) {
	var req PublicRescheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	res, err := h.reschedule.Execute(c.Request.Context(), c.Param("token"), req.Date, req.Time)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
