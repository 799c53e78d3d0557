package appointment

import (
	"context"
	"errors"

	"gorm.io/gorm"

	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/dto"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type GetBookingByToken struct {
	Deps
}

func NewGetBookingByToken(deps Deps) *GetBookingByToken {
	return &GetBookingByToken{Deps: deps.withDefaults()}
}

func (uc *GetBookingByToken) Execute(
	ctx context.Context,
	token string,
) (*dto.BookingDetails, error) {

	ap, policy, err := loadByToken(ctx, uc.Deps, token)
	if err != nil {
		return nil, err
	}

	perm := policy.Permissions(ap, uc.Now())

	return &dto.BookingDetails{
		AppointmentID:   ap.ID,
		TenantID:        ap.TenantID,
		ServiceName:     ap.Service.Name,
		EmployeeName:    ap.Employee.Name,
		CustomerName:    ap.CustomerName,
		StartTime:       ap.StartTime,
		EndTime:         ap.EndTime,
		Status:          ap.Status,
		RescheduleCount: ap.RescheduleCount,
		CanCancel:       perm.CanCancel,
		CanReschedule:   perm.CanReschedule,
	}, nil
}

// loadByToken resolves a management token and the owning tenant's policy.
func loadByToken(
	ctx context.Context,
	d Deps,
	token string,
) (*models.Appointment, domain.Policy, error) {

	if token == "" {
		return nil, domain.Policy{}, domain.ErrInvalidToken
	}

	ap, err := d.Repo.GetAppointmentByToken(ctx, token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.Policy{}, domain.ErrInvalidToken
		}
		return nil, domain.Policy{}, err
	}

	tenant, err := d.Repo.GetTenant(ctx, ap.TenantID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.Policy{}, err
	}

	return ap, domain.PolicyFor(tenant, d.Policy), nil
}
