package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/httpresp"
	"github.com/BruksfildServices01/salon-platform/internal/middleware"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/usecase/appointment"
)

// ======================================================
// HANDLER
// ======================================================

type AppointmentHandler struct {
	create   *appointment.CreateBooking
	complete *appointment.CloseAppointment
	noShow   *appointment.CloseAppointment
	cancel   *appointment.CancelAppointment
	list     *appointment.ListAppointments
	log      logrus.FieldLogger
}

func NewAppointmentHandler(
	create *appointment.CreateBooking,
	complete *appointment.CloseAppointment,
	noShow *appointment.CloseAppointment,
	cancel *appointment.CancelAppointment,
	list *appointment.ListAppointments,
	log logrus.FieldLogger,
) *AppointmentHandler {
	return &AppointmentHandler{
		create:   create,
		complete: complete,
		noShow:   noShow,
		cancel:   cancel,
		list:     list,
		log:      log,
	}
}

// ======================================================
// REQUESTS
// ======================================================

type CreateAppointmentRequest struct {
	CustomerFirstName string `json:"customer_first_name" binding:"required"`
	CustomerLastName  string `json:"customer_last_name"`
	CustomerPhone     string `json:"customer_phone" binding:"required"`
	CustomerEmail     string `json:"customer_email"`
	ServiceID         uint   `json:"service_id" binding:"required"`
	EmployeeID        uint   `json:"employee_id"`
	Date              string `json:"date" binding:"required"`
	Time              string `json:"time" binding:"required"`
	Notes             string `json:"notes" binding:"max=255"`
}

type CancelAppointmentRequest struct {
	Reason string `json:"reason" binding:"max=255"`
}

// ======================================================
// CREATE
// ======================================================

func (h *AppointmentHandler) Create(c *gin.Context) {
	userID := userIDFrom(c)

	var req CreateAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
		return
	}

	employeeID := req.EmployeeID
	if employeeID == 0 {
		employeeID = userID
	}

	created, err := h.create.Execute(c.Request.Context(), appointment.CreateBookingInput{
		TenantID:   tenantIDFrom(c),
		ServiceID:  req.ServiceID,
		EmployeeID: employeeID,
		Date:       req.Date,
		Time:       req.Time,
		Customer: appointment.CustomerInfo{
			FirstName: req.CustomerFirstName,
			LastName:  req.CustomerLastName,
			Phone:     req.CustomerPhone,
			Email:     req.CustomerEmail,
		},
		Notes:     req.Notes,
		CreatedBy: &userID,
	})
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// ======================================================
// LIST
// ======================================================

// employeeFilter lets owners see the whole salon with ?employee_id=0 or
// another employee; employees always see their own book.
func employeeFilter(c *gin.Context) uint {
	if c.GetString(middleware.ContextUserRole) == models.RoleOwner {
		if v, ok := c.GetQuery("employee_id"); ok {
			id, err := strconv.ParseUint(v, 10, 64)
			if err == nil {
				return uint(id)
			}
		}
	}
	return userIDFrom(c)
}

func (h *AppointmentHandler) ListByDate(c *gin.Context) {
	dateStr := c.Query("date")
	if dateStr == "" {
		httperr.BadRequest(c, "missing_date", "Dato må oppgis.")
		return
	}

	// Only the calendar date is used; the use case applies the salon's zone.
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		httperr.BadRequest(c, "invalid_date", "Ugyldig dato.")
		return
	}

	items, err := h.list.ByDate(c.Request.Context(), tenantIDFrom(c), employeeFilter(c), date)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	httpresp.List(c, items)
}

func (h *AppointmentHandler) ListByMonth(c *gin.Context) {
	yearStr := c.Query("year")
	monthStr := c.Query("month")

	if yearStr == "" || monthStr == "" {
		httperr.BadRequest(c, "missing_year_or_month", "År og måned må oppgis.")
		return
	}

	year, err := strconv.Atoi(yearStr)
	if err != nil || year < 2000 || year > 2100 {
		httperr.BadRequest(c, "invalid_year", "Ugyldig år.")
		return
	}

	month, err := strconv.Atoi(monthStr)
	if err != nil || month < 1 || month > 12 {
		httperr.BadRequest(c, "invalid_month", "Ugyldig måned.")
		return
	}

	items, err := h.list.ByMonth(c.Request.Context(), tenantIDFrom(c), employeeFilter(c), year, month)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"year":         year,
		"month":        month,
		"appointments": items,
	})
}

// ======================================================
// STATE CHANGES
// ======================================================

func (h *AppointmentHandler) Complete(c *gin.Context) {
	h.close(c, h.complete)
}

func (h *AppointmentHandler) NoShow(c *gin.Context) {
	h.close(c, h.noShow)
}

func (h *AppointmentHandler) close(c *gin.Context, uc *appointment.CloseAppointment) {
	id, ok := uintParam(c, "id")
	if !ok {
		httperr.BadRequest(c, "invalid_id", "Ugyldig id.")
		return
	}

	ap, err := uc.Execute(c.Request.Context(), tenantIDFrom(c), userIDFrom(c), id)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ap)
}

func (h *AppointmentHandler) Cancel(c *gin.Context) {
	id, ok := uintParam(c, "id")
	if !ok {
		httperr.BadRequest(c, "invalid_id", "Ugyldig id.")
		return
	}

	var req CancelAppointmentRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			httperr.BadRequest(c, "invalid_request", "Ugyldige data.")
			return
		}
	}

	ap, err := h.cancel.Execute(c.Request.Context(), tenantIDFrom(c), userIDFrom(c), id, req.Reason)
	if err != nil {
		httperr.Respond(c, h.log, err)
		return
	}

	c.JSON(http.StatusOK, ap)
}
