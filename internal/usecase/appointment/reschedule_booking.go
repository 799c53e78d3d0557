package appointment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/audit"
	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/dto"
	"github.com/BruksfildServices01/salon-platform/internal/obs"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
)

// RescheduleBooking moves a booking in place through its management link.
type RescheduleBooking struct {
	Deps
}

func NewRescheduleBooking(deps Deps) *RescheduleBooking {
	return &RescheduleBooking{Deps: deps.withDefaults()}
}

func (uc *RescheduleBooking) Execute(
	ctx context.Context,
	token string,
	newDate string,
	newTime string,
) (*dto.BookingActionResult, error) {

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
	if policy.MaxReschedules > 0 && ap.RescheduleCount >= policy.MaxReschedules {
		return nil, domain.ErrRescheduleLimit
	}

	tenant, err := uc.Repo.GetTenant(ctx, ap.TenantID)
	if err != nil {
		return nil, notFound(err, "tenant_not_found")
	}

	start, err := timezone.ParseLocal(newDate, newTime, tenant.Timezone)
	if err != nil {
		return nil, domain.ErrInvalidDateTime
	}
	if !start.After(now) {
		return nil, domain.ErrRescheduleInPast
	}

	end := start.Add(ap.EndTime.Sub(ap.StartTime))
	if ap.Service.DurationMin > 0 {
		end = start.Add(time.Duration(ap.Service.DurationMin) * time.Minute)
	}

	wh, err := uc.Repo.GetWorkingHours(ctx, ap.EmployeeID, int(start.Weekday()))
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	if !domain.IsWithinWorkingHours(wh, start, end) {
		return nil, domain.ErrOutsideWorkingHours
	}

	ok, err := uc.Repo.RescheduleIfActive(ctx, ap.ID, start, end, ap.RescheduleCount)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, lostRace(ctx, uc.Deps, token, domain.ErrConcurrentUpdate)
	}

	previous := ap.StartTime
	_ = domain.Reschedule(ap, start, end)

	uc.Audit.Dispatch(audit.Event{
		TenantID: ap.TenantID,
		Action:   "booking_rescheduled",
		Entity:   "appointment",
		EntityID: &ap.ID,
		Metadata: map[string]string{
			"from": previous.Format(time.RFC3339),
			"to":   start.Format(time.RFC3339),
		},
	})
	obs.BookingTransitions.WithLabelValues("rescheduled").Inc()

	uc.Hooks.BookingRescheduled(detached(ctx), ap)

	return &dto.BookingActionResult{
		Success: true,
		Message: "Timen er flyttet.",
	}, nil
}
