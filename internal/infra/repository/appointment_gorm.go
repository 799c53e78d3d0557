package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	domain "github.com/BruksfildServices01/salon-platform/internal/domain/appointment"
	"github.com/BruksfildServices01/salon-platform/internal/models"
)

// AppointmentGormRepository stores times in UTC.
type AppointmentGormRepository struct {
	db *gorm.DB
}

func NewAppointmentGormRepository(db *gorm.DB) *AppointmentGormRepository {
	return &AppointmentGormRepository{db: db}
}

var activeStatuses = []string{
	string(domain.StatusPending),
	string(domain.StatusConfirmed),
}

// --------------------------------------------------
// Tenant / catalogue
// --------------------------------------------------

func (r *AppointmentGormRepository) GetTenant(
	ctx context.Context,
	tenantID string,
) (*models.Tenant, error) {

	var t models.Tenant
	if err := r.db.WithContext(ctx).First(&t, "id = ?", tenantID).Error; err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *AppointmentGormRepository) GetService(
	ctx context.Context,
	tenantID string,
	serviceID uint,
) (*models.Service, error) {

	var svc models.Service
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ? AND active = ?", serviceID, tenantID, true).
		First(&svc).Error; err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *AppointmentGormRepository) ListServices(
	ctx context.Context,
	tenantID string,
) ([]models.Service, error) {

	var out []models.Service
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND active = ?", tenantID, true).
		Order("name ASC").
		Find(&out).Error
	return out, err
}

func (r *AppointmentGormRepository) GetEmployee(
	ctx context.Context,
	tenantID string,
	employeeID uint,
) (*models.User, error) {

	var u models.User
	if err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", employeeID, tenantID).
		First(&u).Error; err != nil {
		return nil, err
	}
	return &u, nil
}

// --------------------------------------------------
// Customer
// --------------------------------------------------

func (r *AppointmentGormRepository) GetOrCreateCustomer(
	ctx context.Context,
	tenantID string,
	name string,
	phone string,
	email string,
) (*models.Customer, error) {

	var c models.Customer
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND phone = ?", tenantID, phone).
		First(&c).Error

	if err == nil {
		return &c, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	c = models.Customer{
		TenantID: tenantID,
		Name:     name,
		Phone:    phone,
		Email:    email,
	}

	if err := r.db.WithContext(ctx).Create(&c).Error; err != nil {
		return nil, err
	}

	return &c, nil
}

// --------------------------------------------------
// Appointment
// --------------------------------------------------

// lockEmployee takes the employee row FOR UPDATE so overlap checks for the
// same employee run one transaction at a time.
func lockEmployee(tx *gorm.DB, employeeID uint) error {
	var u models.User
	return tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Select("id").
		First(&u, employeeID).Error
}

func hasConflict(
	tx *gorm.DB,
	employeeID uint,
	start time.Time,
	end time.Time,
	excludeID uint,
) (bool, error) {

	q := tx.Model(&models.Appointment{}).
		Where(
			"employee_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			employeeID,
			activeStatuses,
			end.UTC(),
			start.UTC(),
		)
	if excludeID != 0 {
		q = q.Where("id <> ?", excludeID)
	}

	var count int64
	if err := q.Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *AppointmentGormRepository) CreateAppointment(
	ctx context.Context,
	ap *models.Appointment,
) error {
	ap.StartTime = ap.StartTime.UTC()
	ap.EndTime = ap.EndTime.UTC()

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockEmployee(tx, ap.EmployeeID); err != nil {
			return err
		}
		conflict, err := hasConflict(tx, ap.EmployeeID, ap.StartTime, ap.EndTime, 0)
		if err != nil {
			return err
		}
		if conflict {
			return domain.ErrTimeConflict
		}
		return tx.Create(ap).Error
	})
}

func (r *AppointmentGormRepository) GetAppointment(
	ctx context.Context,
	tenantID string,
	appointmentID uint,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Customer").
		Where("id = ? AND tenant_id = ?", appointmentID, tenantID).
		First(&ap).Error; err != nil {
		return nil, err
	}

	return &ap, nil
}

func (r *AppointmentGormRepository) GetAppointmentByToken(
	ctx context.Context,
	token string,
) (*models.Appointment, error) {

	var ap models.Appointment
	if err := r.db.WithContext(ctx).
		Preload("Service").
		Preload("Employee").
		Where("management_token = ?", token).
		First(&ap).Error; err != nil {
		return nil, err
	}

	return &ap, nil
}

// --------------------------------------------------
// Conditional updates
// --------------------------------------------------

func (r *AppointmentGormRepository) CancelIfActive(
	ctx context.Context,
	appointmentID uint,
	reason string,
	at time.Time,
) (bool, error) {

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", appointmentID, activeStatuses).
		Updates(map[string]any{
			"status":        string(domain.StatusCanceled),
			"cancel_reason": reason,
			"canceled_at":   at.UTC(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AppointmentGormRepository) RescheduleIfActive(
	ctx context.Context,
	appointmentID uint,
	start time.Time,
	end time.Time,
	expectedCount int,
) (bool, error) {

	var updated bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var ap models.Appointment
		if err := tx.Select("id", "employee_id").First(&ap, appointmentID).Error; err != nil {
			return err
		}
		if err := lockEmployee(tx, ap.EmployeeID); err != nil {
			return err
		}

		conflict, err := hasConflict(tx, ap.EmployeeID, start, end, ap.ID)
		if err != nil {
			return err
		}
		if conflict {
			return domain.ErrTimeConflict
		}

		res := tx.Model(&models.Appointment{}).
			Where(
				"id = ? AND status IN ? AND reschedule_count = ?",
				appointmentID, activeStatuses, expectedCount,
			).
			Updates(map[string]any{
				"start_time":       start.UTC(),
				"end_time":         end.UTC(),
				"reschedule_count": expectedCount + 1,
			})
		if res.Error != nil {
			return res.Error
		}
		updated = res.RowsAffected == 1
		return nil
	})

	return updated, err
}

func (r *AppointmentGormRepository) UpdateStatusIfActive(
	ctx context.Context,
	appointmentID uint,
	to domain.Status,
	at time.Time,
) (bool, error) {

	fields := map[string]any{"status": string(to)}
	switch to {
	case domain.StatusCompleted:
		fields["completed_at"] = at.UTC()
	case domain.StatusCanceled:
		fields["canceled_at"] = at.UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ? AND status IN ?", appointmentID, activeStatuses).
		Updates(fields)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *AppointmentGormRepository) SetCalendarEventID(
	ctx context.Context,
	appointmentID uint,
	eventID string,
) error {
	return r.db.WithContext(ctx).
		Model(&models.Appointment{}).
		Where("id = ?", appointmentID).
		Update("calendar_event_id", eventID).Error
}

// --------------------------------------------------
// Availability
// --------------------------------------------------

func (r *AppointmentGormRepository) GetWorkingHours(
	ctx context.Context,
	employeeID uint,
	weekday int,
) (*models.WorkingHours, error) {

	var wh models.WorkingHours
	if err := r.db.WithContext(ctx).
		Where("employee_id = ? AND weekday = ?", employeeID, weekday).
		First(&wh).Error; err != nil {
		return nil, err
	}

	return &wh, nil
}

func (r *AppointmentGormRepository) ListAppointmentsForDay(
	ctx context.Context,
	employeeID uint,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {

	var apps []models.Appointment
	if err := r.db.WithContext(ctx).
		Select("id", "start_time", "end_time").
		Where(
			"employee_id = ? AND status IN ? AND start_time < ? AND end_time > ?",
			employeeID, activeStatuses, end.UTC(), start.UTC(),
		).
		Order("start_time ASC").
		Find(&apps).Error; err != nil {
		return nil, err
	}

	return apps, nil
}

func (r *AppointmentGormRepository) ListAppointmentsForPeriod(
	ctx context.Context,
	tenantID string,
	employeeID uint,
	start time.Time,
	end time.Time,
) ([]models.Appointment, error) {

	q := r.db.WithContext(ctx).
		Preload("Customer").
		Preload("Service").
		Where(
			"tenant_id = ? AND start_time >= ? AND start_time < ?",
			tenantID,
			start.UTC(),
			end.UTC(),
		)
	if employeeID != 0 {
		q = q.Where("employee_id = ?", employeeID)
	}

	var apps []models.Appointment
	if err := q.Order("start_time ASC").Find(&apps).Error; err != nil {
		return nil, err
	}

	return apps, nil
}

// Compile-time check
var _ domain.Repository = (*AppointmentGormRepository)(nil)
