package models

import (
	"encoding/json"
	"time"
)

// Connection status values stored in Integration metadata.
const (
	ConnectionOK      = "ok"
	ConnectionError   = "error"
	ConnectionUnknown = "unknown"
)

// Integration is one connected external data source for one account. At most
// one row exists per (account, provider) pair — enforced by upsert, not by a
// schema constraint.
type Integration struct {
	ID                 string `gorm:"primaryKey"` // UUID
	AccountID          string `gorm:"index:idx_account_provider;not null"`
	Provider           string `gorm:"index:idx_account_provider;not null"` // feature key, e.g. "gsc", "google_ads"
	ExternalPropertyID string // legacy manual connect: property URL used for HEAD-ping checks
	Name               string
	ClientID           string

	// Credentials, encrypted by the vault. Never serialized to API responses.
	EncryptedAccessToken  string `json:"-"`
	EncryptedRefreshToken string `json:"-"`
	TokenExpiry           *time.Time

	IsActive bool   `gorm:"default:true"`
	Metadata string // JSON blob: connection_status, last_checked_at, last_error

	CreatedAt time.Time
	UpdatedAt time.Time
}

// IntegrationMeta is the connection-health blob kept in Metadata.
type IntegrationMeta struct {
	ConnectionStatus string `json:"connection_status"`
	LastCheckedAt    string `json:"last_checked_at,omitempty"` // RFC 3339
	LastError        string `json:"last_error,omitempty"`
}

// Meta parses the metadata blob. An empty or malformed blob reads as unknown
// status rather than an error.
func (i *Integration) Meta() IntegrationMeta {
	meta := IntegrationMeta{ConnectionStatus: ConnectionUnknown}
	if i.Metadata == "" {
		return meta
	}
	if err := json.Unmarshal([]byte(i.Metadata), &meta); err != nil {
		return IntegrationMeta{ConnectionStatus: ConnectionUnknown}
	}
	if meta.ConnectionStatus == "" {
		meta.ConnectionStatus = ConnectionUnknown
	}
	return meta
}

// SetMeta serializes the metadata blob.
func (i *Integration) SetMeta(meta IntegrationMeta) {
	raw, _ := json.Marshal(meta)
	i.Metadata = string(raw)
}
