package appointment

import (
	"context"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/dto"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
)

// CancelBooking is the customer-facing cancellation through a management link.
type CancelBooking struct {
	Deps
}

func NewCancelBooking(deps Deps) *CancelBooking {
	return &CancelBooking{Deps: deps.withDefaults()}
}

func (uc *CancelBooking) Execute(
	ctx context.Context,
	token string,
	reason string,
) (*dto.BookingActionResult, error) {

	reason, err := cancelReason(reason)
	if err != nil {
		return nil, err
	}

	ap, policy, err := loadByToken(ctx, uc.Deps, token)
	if err != nil {
		return nil, err
	}

	if err := domain.CanCancel(domain.Status(ap.Status)); err != nil {
		return nil, err
	}

	now := uc.Now()
	if !policy.WithinWindow(ap.StartTime, now) {
		return nil, domain.ErrOutsideWindow
	}

	ok, err := uc.Repo.CancelIfActive(ctx, ap.ID, reason, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace(ctx, uc.Deps, token, domain.ErrAlreadyCanceled)
	}

	_ = domain.Cancel(ap, reason, now)

	uc.Audit.Dispatch(audit.Event{
		TenantID: ap.TenantID,
		Action:   "booking_canceled",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]string{"reason": reason, "by": "customer"},
	})
	obs.BookingTransitions.WithLabelValues("canceled").Inc()

	uc.Hooks.BookingCanceled(detached(ctx), ap)

	return &dto.BookingActionResult{
		Success: true,
		Message: "Timen er kansellert.",
	}, nil
}

// lostRace explains why a conditional update matched no row.
func lostRace(ctx context.Context, d Deps, token string, fallback error) error {
	cur, err := d.Repo.GetAppointmentByToken(ctx, token)
	if err != nil {
		return fallback
	}
	if err := domain.CanCancel(domain.Status(cur.Status)); err != nil {
		return err
	}
	return fallback
}
