package appointment

import (
	"context"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

// CloseAppointment moves an active booking to completed or no_show.
type CloseAppointment struct {
	Deps
	to domain.Status
}

func NewCompleteAppointment(deps Deps) *CloseAppointment {
	return &CloseAppointment{Deps: deps.withDefaults(), to: domain.StatusCompleted}
}

func NewMarkNoShow(deps Deps) *CloseAppointment {
	return &CloseAppointment{Deps: deps.withDefaults(), to: domain.StatusNoShow}
}

func (uc *CloseAppointment) Execute(
	ctx context.Context,
	tenantID string,
	userID uint,
	appointmentID uint,
) (*models.Appointment, error) {

	ap, err := uc.Repo.GetAppointment(ctx, tenantID, appointmentID)
	if err != nil {
		return nil, notFound(err, "appointment_not_found")
	}

	now := uc.Now()
	apply := func() error { return domain.Complete(ap, now) }
	if uc.to == domain.StatusNoShow {
		apply = func() error { return domain.MarkNoShow(ap) }
	}
	if err := apply(); err != nil {
		return nil, err
	}

	ok, err := uc.Repo.UpdateStatusIfActive(ctx, ap.ID, uc.to, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrInvalidState
	}

	uc.Audit.Dispatch(audit.Event{
		TenantID: tenantID,
		UserID:   &userID,
		Action:   "appointment_" + string(uc.to),
		Entity:   "appointment",
		EntityID: &ap.ID,
	})
	obs.BookingTransitions.WithLabelValues(string(uc.to)).Inc()

	return ap, nil
}
