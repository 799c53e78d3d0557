package models

import "time"

// CalendarConnection stores an employee's Google Calendar grant. Tokens are
// vault ciphertexts.
type CalendarConnection struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	TenantID   string `gorm:"size:64;uniqueIndex:idx_calendar_tenant_employee" json:"tenant_id"`
	EmployeeID uint   `gorm:"uniqueIndex:idx_calendar_tenant_employee" json:"employee_id"`

	Provider   string `gorm:"size:20;default:'google'" json:"provider"`
	CalendarID string `gorm:"size:255;default:'primary'" json:"calendar_id"`

	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`
	Active         bool       `gorm:"default:true" json:"active"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
