package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type CalendarGormRepository struct {
	db *gorm.DB
}

func NewCalendarGormRepository(db *gorm.DB) *CalendarGormRepository {
	return &CalendarGormRepository{db: db}
}

func (r *CalendarGormRepository) GetActive(
	ctx context.Context,
	tenantID string,
	employeeID uint,
) (*models.CalendarConnection, error) {

	var c models.CalendarConnection
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND employee_id = ? AND active = ?", tenantID, employeeID, true).
		First(&c).Error; err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *CalendarGormRepository) Upsert(ctx context.Context, c *models.CalendarConnection) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "employee_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token",
				"refresh_token",
				"token_expires_at",
				"active",
				"updated_at",
			}),
		}).
		Create(c).Error
}

func (r *CalendarGormRepository) UpdateTokens(
	ctx context.Context,
	id uint,
	accessToken string,
	refreshToken string,
	expiresAt *time.Time,
) error {
	return r.db.WithContext(ctx).
		Model(&models.CalendarConnection{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
		}).Error
}

func (r *CalendarGormRepository) Deactivate(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).
		Model(&models.CalendarConnection{}).
		Where("id = ?", id).
		Update("active", false).Error
}
