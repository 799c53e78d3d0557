package appointment

import (
	"context"
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type Repository interface {
	// -------- Tenant / catalogue --------
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)

	GetService(
		ctx context.Context,
		tenantID string,
		serviceID uint,
	) (*models.Service, error)

	ListServices(ctx context.Context, tenantID string) ([]models.Service, error)

	GetEmployee(
		ctx context.Context,
		tenantID string,
		employeeID uint,
	) (*models.User, error)

	// -------- Customer --------
	GetOrCreateCustomer(
		ctx context.Context,
		tenantID string,
		name string,
		phone string,
		email string,
	) (*models.Customer, error)

	// -------- Appointment (create) --------

	// CreateAppointment inserts ap unless an active booking of the same
	// employee overlaps it.
	CreateAppointment(ctx context.Context, ap *models.Appointment) error

	// -------- Appointment (lookup) --------
	GetAppointment(
		ctx context.Context,
		tenantID string,
		appointmentID uint,
	) (*models.Appointment, error)

	GetAppointmentByToken(ctx context.Context, token string) (*models.Appointment, error)

	// -------- Appointment (conditional state change) --------

	// CancelIfActive flips an active booking to canceled. It reports false
	// when the row was no longer active.
	CancelIfActive(
		ctx context.Context,
		appointmentID uint,
		reason string,
		at time.Time,
	) (bool, error)

	// RescheduleIfActive moves an active booking whose reschedule count is
	// still expectedCount, rejecting overlaps with other active bookings.
	RescheduleIfActive(
		ctx context.Context,
		appointmentID uint,
		start time.Time,
		end time.Time,
		expectedCount int,
	) (bool, error)

	UpdateStatusIfActive(
		ctx context.Context,
		appointmentID uint,
		to Status,
		at time.Time,
	) (bool, error)

	SetCalendarEventID(ctx context.Context, appointmentID uint, eventID string) error

	// -------- Availability --------
	GetWorkingHours(
		ctx context.Context,
		employeeID uint,
		weekday int,
	) (*models.WorkingHours, error)

	ListAppointmentsForDay(
		ctx context.Context,
		employeeID uint,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)

	// ListAppointmentsForPeriod lists every booking of the tenant in the
	// period; employeeID 0 means all employees.
	ListAppointmentsForPeriod(
		ctx context.Context,
		tenantID string,
		employeeID uint,
		start time.Time,
		end time.Time,
	) ([]models.Appointment, error)
}
