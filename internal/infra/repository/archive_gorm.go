package repository

import (
	"context"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

// --------------------------------------------------
// Archive source
// --------------------------------------------------

func (r *AppointmentGormRepository) TenantAppointments(
	ctx context.Context,
	tenantID string,
) ([]models.Appointment, error) {

	var out []models.Appointment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("start_time ASC").
		Find(&out).Error
	return out, err
}

func (r *AppointmentGormRepository) TenantCustomers(
	ctx context.Context,
	tenantID string,
) ([]models.Customer, error) {

	var out []models.Customer
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Order("id ASC").
		Find(&out).Error
	return out, err
}
