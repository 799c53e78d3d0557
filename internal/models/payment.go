package models

import "time"

const (
	PaymentPending    = "pending"
	PaymentInProgress = "in_progress"
	PaymentCompleted  = "completed"
	PaymentFailed     = "failed"
	PaymentCanceled   = "canceled"
)

// Payment is a card-present payment started from the dashboard. Reference is
// the reader trace id for Zettle and the PaymentIntent id for Stripe.
type Payment struct {
	ID            uint   `gorm:"primaryKey" json:"id"`
	TenantID      string `gorm:"size:64;index" json:"tenant_id"`
	AppointmentID *uint  `gorm:"index" json:"appointment_id"`

	Provider  string `gorm:"size:32" json:"provider"`
	Reference string `gorm:"size:64;uniqueIndex" json:"reference"`
	ReaderID  string `gorm:"size:64" json:"reader_id"`

	Amount   int64  `json:"amount"`
	Currency string `gorm:"size:3" json:"currency"`

	Status        string     `gorm:"size:20;default:'pending'" json:"status"`
	Progress      string     `gorm:"size:64" json:"progress,omitempty"`
	ErrorMessage  string     `gorm:"size:255" json:"error_message,omitempty"`
	ResultPayload string     `gorm:"type:text" json:"-"`
	CompletedAt   *time.Time `json:"completed_at"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
