package models

import "time"

// Tenant is one salon on the platform.
type Tenant struct {
	ID        string `gorm:"primaryKey;size:64" json:"id"`
	Name      string `gorm:"size:100;not null" json:"name"`
	Subdomain string `gorm:"size:100;uniqueIndex;not null" json:"subdomain"`
	Phone     string `gorm:"size:20" json:"phone"`
	Email     string `gorm:"size:100" json:"email"`
	Address   string `gorm:"size:255" json:"address"`

	Timezone string `gorm:"size:64;default:'Europe/Oslo'" json:"timezone"`
	Currency string `gorm:"size:3;default:'NOK'" json:"currency"`

	MinAdvanceMinutes       int `gorm:"default:120" json:"min_advance_minutes"`
	CancellationWindowHours int `gorm:"default:24" json:"cancellation_window_hours"`
	MaxReschedules          int `gorm:"default:2" json:"max_reschedules"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
