package models

import "time"

const (
	ProviderZettle        = "izettle"
	ProviderStripeConnect = "stripe-connect"
)

// PaymentProvider is a tenant's OAuth connection to a payment provider.
// AccessToken and RefreshToken hold vault ciphertexts, never plaintext.
type PaymentProvider struct {
	ID       uint   `gorm:"primaryKey" json:"id"`
	TenantID string `gorm:"size:64;uniqueIndex:idx_provider_tenant_kind" json:"tenant_id"`
	Provider string `gorm:"size:32;uniqueIndex:idx_provider_tenant_kind" json:"provider"`

	AccessToken    string     `gorm:"type:text" json:"-"`
	RefreshToken   string     `gorm:"type:text" json:"-"`
	TokenExpiresAt *time.Time `json:"token_expires_at"`

	ProviderAccountID string         `gorm:"size:255" json:"provider_account_id"`
	Config            ProviderConfig `gorm:"serializer:json;type:text" json:"config"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ProviderConfig struct {
	ReaderLinks []ReaderLink `json:"readerLinks,omitempty"`
}

// ReaderLink pairs a card reader with this integration.
type ReaderLink struct {
	LinkID    string `json:"linkId"`
	LinkName  string `json:"linkName"`
	CreatedAt string `json:"createdAt,omitempty"`
	Online    bool   `json:"online"`
}
