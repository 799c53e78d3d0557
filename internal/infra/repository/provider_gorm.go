package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/BruksfildServices01/salon-platform/internal/models"
)

type ProviderGormRepository struct {
	db *gorm.DB
}

func NewProviderGormRepository(db *gorm.DB) *ProviderGormRepository {
	return &ProviderGormRepository{db: db}
}

func (r *ProviderGormRepository) Get(
	ctx context.Context,
	tenantID string,
	kind string,
) (*models.PaymentProvider, error) {

	var p models.PaymentProvider
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, kind).
		First(&p).Error; err != nil {
		return nil, err
	}
	return &p, nil
}

// Upsert replaces the tokens and account of the tenant's connection.
func (r *ProviderGormRepository) Upsert(
	ctx context.Context,
	p *models.PaymentProvider,
) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "tenant_id"}, {Name: "provider"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"access_token",
				"refresh_token",
				"token_expires_at",
				"provider_account_id",
				"updated_at",
			}),
		}).
		Create(p).Error
}

func (r *ProviderGormRepository) UpdateTokens(
	ctx context.Context,
	id uint,
	accessToken string,
	refreshToken string,
	expiresAt *time.Time,
) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentProvider{}).
		Where("id = ?", id).
		Updates(map[string]any{
			"access_token":     accessToken,
			"refresh_token":    refreshToken,
			"token_expires_at": expiresAt,
		}).Error
}

func (r *ProviderGormRepository) UpdateConfig(
	ctx context.Context,
	id uint,
	cfg models.ProviderConfig,
) error {
	return r.db.WithContext(ctx).
		Model(&models.PaymentProvider{ID: id}).
		Select("config").
		Updates(&models.PaymentProvider{Config: cfg}).Error
}

func (r *ProviderGormRepository) Delete(
	ctx context.Context,
	tenantID string,
	kind string,
) (bool, error) {
	res := r.db.WithContext(ctx).
		Where("tenant_id = ? AND provider = ?", tenantID, kind).
		Delete(&models.PaymentProvider{})
	return res.RowsAffected > 0, res.Error
}
