package models

import "time"

type Appointment struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"size:64;index" json:"tenant_id"`

	ServiceID uint    `json:"service_id"`
	Service   Service `json:"service"`

	EmployeeID uint `gorm:"index" json:"employee_id"`
	Employee   User `json:"employee"`

	CustomerID uint     `json:"customer_id"`
	Customer   Customer `json:"customer"`

	// Contact details as given at booking time.
	CustomerName  string `gorm:"size:100" json:"customer_name"`
	CustomerPhone string `gorm:"size:20" json:"customer_phone"`
	CustomerEmail string `gorm:"size:100" json:"customer_email"`

	StartTime time.Time `gorm:"index" json:"start_time"`
	EndTime   time.Time `json:"end_time"`

	Status string `gorm:"size:20;default:'pending'" json:"status"`

	ManagementToken string `gorm:"size:64;uniqueIndex;not null" json:"-"`
	CalendarEventID string `gorm:"size:255" json:"calendar_event_id,omitempty"`

	RescheduleCount int        `gorm:"default:0" json:"reschedule_count"`
	CancelReason    string     `gorm:"size:255" json:"cancel_reason,omitempty"`
	Notes           string     `gorm:"size:255" json:"notes"`
	CanceledAt      *time.Time `json:"canceled_at"`
	CompletedAt     *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
