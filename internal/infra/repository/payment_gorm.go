package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type PaymentGormRepository struct {
	db *gorm.DB
}

func NewPaymentGormRepository(db *gorm.DB) *PaymentGormRepository {
	return &PaymentGormRepository{db: db}
}

func (r *PaymentGormRepository) Create(ctx context.Context, p *models.Payment) error {
	return r.db.WithContext(ctx).Create(p).Error
}

func (r *PaymentGormRepository) GetByReference(
	ctx context.Context,
	tenantID string,
	reference string,
) (*models.Payment, error) {

	var p models.Payment
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND reference = ?", tenantID, reference).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// UpdateProgress records a progress message while the payment is open.
func (r *PaymentGormRepository) UpdateProgress(
	ctx context.Context,
	reference string,
	progress string,
) error {
	return r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status IN ?", reference, openPaymentStatuses).
		Updates(map[string]any{
			"status":   models.PaymentInProgress,
			"progress": progress,
		}).Error
}

// Finish moves an open payment to a terminal status. Later results for the
// same reference are ignored.
func (r *PaymentGormRepository) Finish(
	ctx context.Context,
	reference string,
	status string,
	errMsg string,
	payload string,
	at time.Time,
) (bool, error) {

	fields := map[string]any{
		"status":         status,
		"error_message":  errMsg,
		"result_payload": payload,
	}
	if status == models.PaymentCompleted {
		fields["completed_at"] = at.UTC()
	}

	res := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("reference = ? AND status IN ?", reference, openPaymentStatuses).
		Updates(fields)
	return res.RowsAffected == 1, res.Error
}

func (r *PaymentGormRepository) ListForAppointment(
	ctx context.Context,
	tenantID string,
	appointmentID uint,
) ([]models.Payment, error) {

	var out []models.Payment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND appointment_id = ?", tenantID, appointmentID).
		Order("created_at DESC").
		Find(&out).Error
	return out, err
}

var openPaymentStatuses = []string{models.PaymentPending, models.PaymentInProgress}
