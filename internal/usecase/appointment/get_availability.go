package appointment

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
)

type GetAvailability struct {
	Deps
}

func NewGetAvailability(deps Deps) *GetAvailability {
	return &GetAvailability{Deps: deps.withDefaults()}
}

func (uc *GetAvailability) Execute(
	ctx context.Context,
	in domain.AvailabilityInput,
) ([]domain.TimeSlot, error) {

	service, err := uc.Repo.GetService(ctx, in.TenantID, in.ServiceID)
	if err != nil {
		return nil, notFound(err, "service_not_found")
	}

	wh, err := uc.Repo.GetWorkingHours(ctx, in.EmployeeID, int(in.Date.Weekday()))
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return []domain.TimeSlot{}, nil
		}
		return nil, err
	}

	bounds, ok := domain.Bounds(wh, in.Date)
	if !ok {
		return []domain.TimeSlot{}, nil
	}

	busy, err := uc.Repo.ListAppointmentsForDay(ctx, in.EmployeeID, bounds.Start, bounds.End)
	if err != nil {
		return nil, err
	}

	tenant, err := uc.Repo.GetTenant(ctx, in.TenantID)
	if err != nil {
		return nil, notFound(err, "tenant_not_found")
	}
	minAdvance := tenant.MinAdvanceMinutes
	if minAdvance <= 0 {
		minAdvance = 120
	}
	notBefore := uc.Now().Add(time.Duration(minAdvance) * time.Minute)

	return domain.FreeSlots(
		bounds,
		time.Duration(service.DurationMin)*time.Minute,
		busy,
		notBefore,
	), nil
}
