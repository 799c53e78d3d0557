package appointment

import (
	"context"
	"errors"
	"strings"
	"time"
	"unicode/utf8"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/dto"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
	"github.com/BruksfildServices01/salon-platform/internal/validators"
)

// ======================================================
// INPUT
// ======================================================

type CustomerInfo struct {
	FirstName string
	LastName  string
	Phone     string
	Email     string
}

func (c CustomerInfo) FullName() string {
	return strings.TrimSpace(c.FirstName + " " + c.LastName)
}

type CreateBookingInput struct {
	TenantID   string
	ServiceID  uint
	EmployeeID uint

	Date string
	Time string

	Customer CustomerInfo
	Notes    string

	// CreatedBy is set when staff book on behalf of a customer; the minimum
	// advance rule does not apply to them.
	CreatedBy *uint
}

// ======================================================
// USE CASE
// ======================================================

const (
	tokenAttempts = 3

	// Column sizes on models.Appointment.
	maxCustomerNameLen = 100
	maxNotesLen        = 255
)

type CreateBooking struct {
	Deps
}

func NewCreateBooking(deps Deps) *CreateBooking {
	return &CreateBooking{Deps: deps.withDefaults()}
}

func (uc *CreateBooking) Execute(
	ctx context.Context,
	in CreateBookingInput,
) (*dto.BookingCreated, error) {

	if in.Customer.FullName() == "" {
		return nil, httperr.New(httperr.KindValidation, "customer_name_required")
	}
	if utf8.RuneCountInString(in.Customer.FullName()) > maxCustomerNameLen {
		return nil, httperr.New(httperr.KindValidation, "customer_name_too_long")
	}
	if utf8.RuneCountInString(in.Notes) > maxNotesLen {
		return nil, httperr.New(httperr.KindValidation, "notes_too_long")
	}
	phone := validators.NormalizePhone(in.Customer.Phone)
	if phone == "" {
		return nil, httperr.New(httperr.KindValidation, "invalid_phone")
	}
	email := strings.ToLower(strings.TrimSpace(in.Customer.Email))
	if email != "" && !validators.IsEmail(email) {
		return nil, httperr.New(httperr.KindValidation, "invalid_email")
	}

	// --------------------------------------------------
	// Tenant and local time
	// --------------------------------------------------
	tenant, err := uc.Repo.GetTenant(ctx, in.TenantID)
	if err != nil {
		return nil, notFound(err, "tenant_not_found")
	}

	start, err := timezone.ParseLocal(in.Date, in.Time, tenant.Timezone)
	if err != nil {
		return nil, domain.ErrInvalidDateTime
	}

	now := uc.Now().In(start.Location())
	if in.CreatedBy == nil {
		minAdvance := tenant.MinAdvanceMinutes
		if minAdvance <= 0 {
			minAdvance = 120
		}
		if start.Before(now.Add(time.Duration(minAdvance) * time.Minute)) {
			return nil, domain.ErrTooSoon
		}
	} else if !start.After(now) {
		return nil, domain.ErrTooSoon
	}

	// --------------------------------------------------
	// Service and employee
	// --------------------------------------------------
	service, err := uc.Repo.GetService(ctx, in.TenantID, in.ServiceID)
	if err != nil {
		return nil, notFound(err, "service_not_found")
	}

	if _, err := uc.Repo.GetEmployee(ctx, in.TenantID, in.EmployeeID); err != nil {
		return nil, notFound(err, "employee_not_found")
	}

	end := start.Add(time.Duration(service.DurationMin) * time.Minute)

	// --------------------------------------------------
	// Working hours
	// --------------------------------------------------
	wh, err := uc.Repo.GetWorkingHours(ctx, in.EmployeeID, int(start.Weekday()))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !domain.IsWithinWorkingHours(wh, start, end) {
		return nil, domain.ErrOutsideWorkingHours
	}

	// --------------------------------------------------
	// Customer
	// --------------------------------------------------
	customer, err := uc.Repo.GetOrCreateCustomer(
		ctx,
		in.TenantID,
		in.Customer.FullName(),
		phone,
		email,
	)
	if err != nil {
		return nil, err
	}

	// --------------------------------------------------
	// Appointment with a fresh management token
	// --------------------------------------------------
	ap := &models.Appointment{
		TenantID:      in.TenantID,
		ServiceID:     service.ID,
		EmployeeID:    in.EmployeeID,
		CustomerID:    customer.ID,
		CustomerName:  in.Customer.FullName(),
		CustomerPhone: phone,
		CustomerEmail: email,
		StartTime:     start,
		EndTime:       end,
		Status:        string(domain.InitialStatus()),
		Notes:         in.Notes,
	}

	for attempt := 1; ; attempt++ {
		ap.ManagementToken, err = domain.NewManagementToken()
		if err != nil {
			return nil, err
		}

		err = uc.Repo.CreateAppointment(ctx, ap)
		if err == nil {
			break
		}
		if !httperr.IsUniqueViolation(err) || attempt == tokenAttempts {
			return nil, err
		}
		uc.Log.WithField("attempt", attempt).Warn("management token collision, regenerating")
	}

	ap.Service = *service

	uc.Audit.Dispatch(audit.Event{
		TenantID: in.TenantID,
		UserID:   in.CreatedBy,
		Action:   "appointment_created",
		Entity:   "appointment",
		EntityID: &ap.ID,
	})
	obs.BookingTransitions.WithLabelValues("created").Inc()

	uc.Hooks.BookingCreated(detached(ctx), ap)

	return &dto.BookingCreated{
		AppointmentID:   ap.ID,
		ManagementToken: ap.ManagementToken,
	}, nil
}

// notFound turns a missing row into a not_found business error.
func notFound(err error, code string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return httperr.New(httperr.KindNotFound, code)
	}
	return err
}
