package appointment

import (
	"context"
	"time"

	"github.com/BruksfildServices01/salon-platform/internal/dto"
	"github.com/BruksfildServices01/salon-platform/internal/timezone"
)

type ListAppointments struct {
	Deps
}

func NewListAppointments(deps Deps) *ListAppointments {
	return &ListAppointments{Deps: deps.withDefaults()}
}

// ByDate lists one local calendar day. employeeID 0 lists the whole salon.
func (uc *ListAppointments) ByDate(
	ctx context.Context,
	tenantID string,
	employeeID uint,
	date time.Time,
) ([]dto.AppointmentListDTO, error) {

	tenant, err := uc.Repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, notFound(err, "tenant_not_found")
	}

	loc := timezone.Location(tenant.Timezone)
	start := time.Date(date.Year(), date.Month(), date.Day(), 0, 0, 0, 0, loc)

	return uc.period(ctx, tenantID, employeeID, start, start.AddDate(0, 0, 1))
}

func (uc *ListAppointments) ByMonth(
	ctx context.Context,
	tenantID string,
	employeeID uint,
	year int,
	month int,
) ([]dto.AppointmentListDTO, error) {

	tenant, err := uc.Repo.GetTenant(ctx, tenantID)
	if err != nil {
		return nil, notFound(err, "tenant_not_found")
	}

	loc := timezone.Location(tenant.Timezone)
	start := time.Date(year, time.Month(month), 1, 0, 0, 0, 0, loc)

	return uc.period(ctx, tenantID, employeeID, start, start.AddDate(0, 1, 0))
}

func (uc *ListAppointments) period(
	ctx context.Context,
	tenantID string,
	employeeID uint,
	start, end time.Time,
) ([]dto.AppointmentListDTO, error) {

	appointments, err := uc.Repo.ListAppointmentsForPeriod(ctx, tenantID, employeeID, start, end)
	if err != nil {
		return nil, err
	}

	out := make([]dto.AppointmentListDTO, 0, len(appointments))
	for _, ap := range appointments {
		name := ap.CustomerName
		if name == "" {
			name = ap.Customer.Name
		}
		out = append(out, dto.AppointmentListDTO{
			ID:           ap.ID,
			StartTime:    ap.StartTime,
			EndTime:      ap.EndTime,
			Status:       ap.Status,
			CustomerName: name,
			ServiceName:  ap.Service.Name,
			EmployeeID:   ap.EmployeeID,
		})
	}

	return out, nil
}
