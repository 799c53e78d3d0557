package appointment

import (
	"context"
	"strings"
	"unicode/utf8"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/httperr"
	"github.com/BruksfildServices01/salon-platform/internal/models"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

const maxReasonLen = 255

func cancelReason(reason string) (string, error) {
	reason = strings.TrimSpace(reason)
	if utf8.RuneCountInString(reason) > maxReasonLen {
		return "", httperr.New(httperr.KindValidation, "reason_too_long")
	}
	return reason, nil
}

// CancelAppointment is the staff cancellation; the customer window does not apply.
type CancelAppointment struct {
	Deps
}

func NewCancelAppointment(deps Deps) *CancelAppointment {
	return &CancelAppointment{Deps: deps.withDefaults()}
}

func (uc *CancelAppointment) Execute(
	ctx context.Context,
	tenantID string,
	userID uint,
	appointmentID uint,
	reason string,
) (*models.Appointment, error) {

	reason, err := cancelReason(reason)
	if err != nil {
		return nil, err
	}

	ap, err := uc.Repo.GetAppointment(ctx, tenantID, appointmentID)
	if err != nil {
		return nil, notFound(err, "appointment_not_found")
	}

	if err := domain.CanCancel(domain.Status(ap.Status)); err != nil {
		return nil, err
	}

	now := uc.Now()
	ok, err := uc.Repo.CancelIfActive(ctx, ap.ID, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, domain.ErrAlreadyCanceled
	}
	_ = domain.Cancel(ap, reason, now)

	uc.Audit.Dispatch(audit.Event{
		TenantID: tenantID,
		UserID:   &userID,
		Action:   "appointment_canceled",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]string{"reason": reason, "by": "staff"},
	})
	obs.BookingTransitions.WithLabelValues("canceled").Inc()

	uc.Hooks.BookingCanceled(detached(ctx), ap)

	return ap, nil
}
