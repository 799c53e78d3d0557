package appointment

import "github.com/BruksfildServices01/salon-platform/internal/httperr"

type Status string

const (
	StatusPending   Status = "pending"
	StatusConfirmed Status = "confirmed"
	StatusCompleted Status = "completed"
	StatusCanceled  Status = "canceled"
	StatusNoShow    Status = "no_show"
)

// ActiveStatuses are the states a booking can still leave.
var ActiveStatuses = []Status{StatusPending, StatusConfirmed}

func (s Status) Active() bool {
	return s == StatusPending || s == StatusConfirmed
}

func InitialStatus() Status {
	return StatusPending
}

var (
	ErrInvalidToken        = httperr.New(httperr.KindNotFound, "invalid_token")
	ErrNotFound            = httperr.New(httperr.KindNotFound, "appointment_not_found")
	ErrAlreadyCanceled     = httperr.ErrBusiness("already_canceled")
	ErrNotActive           = httperr.ErrBusiness("booking_not_active")
	ErrOutsideWindow       = httperr.ErrBusiness("outside_cancellation_window")
	ErrRescheduleLimit     = httperr.ErrBusiness("reschedule_limit_reached")
	ErrRescheduleInPast    = httperr.ErrBusiness("reschedule_in_past")
	ErrTimeConflict        = httperr.ErrBusiness("time_conflict")
	ErrOutsideWorkingHours = httperr.ErrBusiness("outside_working_hours")
	ErrTooSoon             = httperr.ErrBusiness("too_soon")
	ErrInvalidState        = httperr.ErrBusiness("invalid_state")
	ErrConcurrentUpdate    = httperr.ErrBusiness("booking_changed")
	ErrInvalidDateTime     = httperr.New(httperr.KindValidation, "invalid_date_or_time")
)

// CanCancel reports why a booking in state current cannot be canceled.
func CanCancel(current Status) error {
	switch {
	case current == StatusCanceled:
		return ErrAlreadyCanceled
	case !current.Active():
		return ErrNotActive
	}
	return nil
}

func CanComplete(current Status) error {
	if !current.Active() {
		return ErrInvalidState
	}
	return nil
}

func CanMarkNoShow(current Status) error {
	if !current.Active() {
		return ErrInvalidState
	}
	return nil
}
