package calendar

import (
	"context"
	"errors"

	"github.com/sirupsen/logrus"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type Tokens interface {
	Connection(ctx context.Context, tenantID string, employeeID uint) (*models.CalendarConnection, error)
	AccessToken(ctx context.Context, tenantID string, employeeID uint) (string, error)
}

type Syncing interface {
	Sync(ctx context.Context, b Booking, action Action, accessToken, existingEventID string) Result
}

// Bookings is the slice of the appointment repository the syncer needs.
type Bookings interface {
	GetTenant(ctx context.Context, tenantID string) (*models.Tenant, error)
	GetEmployee(ctx context.Context, tenantID string, employeeID uint) (*models.User, error)
	SetCalendarEventID(ctx context.Context, appointmentID uint, eventID string) error
}

// Syncer mirrors booking lifecycle changes into the employee's calendar. It
// satisfies the booking use cases' Hooks and never fails them.
type Syncer struct {
	tokens   Tokens
	adapter  Syncing
	bookings Bookings
	log      logrus.FieldLogger
}

func NewSyncer(tokens Tokens, adapter Syncing, bookings Bookings, log logrus.FieldLogger) *Syncer {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Syncer{
		tokens:   tokens,
		adapter:  adapter,
		bookings: bookings,
		log:      log.WithField("component", "calendar_sync"),
	}
}

func (s *Syncer) BookingCreated(ctx context.Context, ap *models.Appointment) {
	s.apply(ctx, ap, ActionCreate)
}

func (s *Syncer) BookingRescheduled(ctx context.Context, ap *models.Appointment) {
	if ap.CalendarEventID == "" {
		s.apply(ctx, ap, ActionCreate)
		return
	}
	s.apply(ctx, ap, ActionUpdate)
}

func (s *Syncer) BookingCanceled(ctx context.Context, ap *models.Appointment) {
	if ap.CalendarEventID == "" {
		return
	}
	s.apply(ctx, ap, ActionDelete)
}

func (s *Syncer) apply(ctx context.Context, ap *models.Appointment, action Action) {
	log := s.log.WithFields(logrus.Fields{
		"tenant_id":      ap.TenantID,
		"appointment_id": ap.ID,
		"action":         action,
	})

	conn, err := s.tokens.Connection(ctx, ap.TenantID, ap.EmployeeID)
	if err != nil {
		if errors.Is(err, ErrNotConnected) {
			log.Debug("employee has no calendar connected")
			return
		}
		log.WithError(err).Warn("calendar connection lookup failed")
		return
	}

	token, err := s.tokens.AccessToken(ctx, ap.TenantID, ap.EmployeeID)
	if err != nil {
		log.WithError(err).Warn("calendar token unavailable")
		return
	}

	b := s.booking(ctx, ap)
	b.CalendarID = conn.CalendarID

	res := s.adapter.Sync(ctx, b, action, token, ap.CalendarEventID)
	if !res.Success {
		return
	}

	eventID := res.EventID
	if action == ActionDelete {
		eventID = ""
	}
	if eventID == ap.CalendarEventID {
		return
	}
	if err := s.bookings.SetCalendarEventID(ctx, ap.ID, eventID); err != nil {
		log.WithError(err).Error("failed to store calendar event id")
		return
	}
	ap.CalendarEventID = eventID
}

func (s *Syncer) booking(ctx context.Context, ap *models.Appointment) Booking {
	b := Booking{
		AppointmentID: ap.ID,
		CustomerName:  ap.CustomerName,
		ServiceName:   ap.Service.Name,
		EmployeeName:  ap.Employee.Name,
		Start:         ap.StartTime,
		End:           ap.EndTime,
		Notes:         ap.Notes,
	}

	if t, err := s.bookings.GetTenant(ctx, ap.TenantID); err == nil {
		b.SalonName = t.Name
		b.Timezone = t.Timezone
	}
	if b.EmployeeName == "" {
		if u, err := s.bookings.GetEmployee(ctx, ap.TenantID, ap.EmployeeID); err == nil {
			b.EmployeeName = u.Name
		}
	}
	return b
}
