package appointment

import (
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

func Cancel(ap *models.Appointment, reason string, now time.Time) error {
	if err := CanCancel(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCanceled)
	ap.CancelReason = reason
	ap.CanceledAt = &now
	return nil
}

func Complete(ap *models.Appointment, now time.Time) error {
	if err := CanComplete(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusCompleted)
	ap.CompletedAt = &now
	return nil
}

func MarkNoShow(ap *models.Appointment) error {
	if err := CanMarkNoShow(Status(ap.Status)); err != nil {
		return err
	}

	ap.Status = string(StatusNoShow)
	return nil
}

// Reschedule moves the booking in place. Status, id and token are untouched.
func Reschedule(ap *models.Appointment, start, end time.Time) error {
	if !Status(ap.Status).Active() {
		return CanCancel(Status(ap.Status))
	}

	ap.StartTime = start
	ap.EndTime = end
	ap.RescheduleCount++
	return nil
}
