// Package integrations owns the connection lifecycle of external data
// sources: persisted credentials, the upsert-per-provider rule, and the
// connection health check.
package integrations

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/pulsedash/pulsedash/internal/db/models"
	"github.com/pulsedash/pulsedash/internal/vault"
	"gorm.io/gorm"
)

// Store persists Integration rows. Every read and write is scoped by an
// explicit account id; nothing here can cross tenants.
type Store struct {
	db    *gorm.DB
	vault *vault.Vault
}

func NewStore(db *gorm.DB, v *vault.Vault) *Store {
	return &Store{db: db, vault: v}
}

// List returns the account's integrations, newest first.
func (s *Store) List(accountID string) ([]models.Integration, error) {
	var list []models.Integration
	err := s.db.Where("account_id = ?", accountID).
		Order("created_at DESC").
		Find(&list).Error
	return list, err
}

// Get returns one integration. A wrong account id reads as not found.
func (s *Store) Get(accountID, id string) (*models.Integration, error) {
	var integration models.Integration
	err := s.db.Where("id = ? AND account_id = ?", id, accountID).
		First(&integration).Error
	if err != nil {
		return nil, err
	}
	return &integration, nil
}

// CreateInput is the legacy manual-connect path: no OAuth tokens, just a
// property URL the health check can HEAD-ping.
type CreateInput struct {
	Provider           string
	ExternalPropertyID string
	Name               string
	ClientID           string
}

// Create inserts a manual integration with unknown connection status.
func (s *Store) Create(accountID string, in CreateInput) (*models.Integration, error) {
	integration := models.Integration{
		ID:                 uuid.New().String(),
		AccountID:          accountID,
		Provider:           in.Provider,
		ExternalPropertyID: in.ExternalPropertyID,
		Name:               in.Name,
		ClientID:           in.ClientID,
		IsActive:           true,
	}
	integration.SetMeta(models.IntegrationMeta{ConnectionStatus: models.ConnectionUnknown})
	if err := s.db.Create(&integration).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

// UpsertInput carries the result of a completed OAuth exchange.
type UpsertInput struct {
	AccountID    string
	Provider     string // feature key
	Name         string
	AccessToken  string
	RefreshToken string // empty when the provider issued none this time
	TokenExpiry  *time.Time
}

// Upsert creates or replaces the one row per (account, provider). On
// reconnect it overwrites the access token, expiry and name but keeps the
// stored refresh token when the new exchange returned none — Google only
// issues a refresh token on first consent.
func (s *Store) Upsert(in UpsertInput) (*models.Integration, error) {
	encAccess, err := s.vault.Encrypt(in.AccessToken)
	if err != nil {
		return nil, err
	}

	var integration models.Integration
	err = s.db.Where("account_id = ? AND provider = ?", in.AccountID, in.Provider).
		First(&integration).Error
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		integration = models.Integration{
			ID:        uuid.New().String(),
			AccountID: in.AccountID,
			Provider:  in.Provider,
		}
	case err != nil:
		return nil, err
	}

	integration.Name = in.Name
	integration.EncryptedAccessToken = encAccess
	integration.TokenExpiry = in.TokenExpiry
	integration.IsActive = true
	integration.SetMeta(models.IntegrationMeta{
		ConnectionStatus: models.ConnectionOK,
		LastCheckedAt:    time.Now().UTC().Format(time.RFC3339),
	})

	if in.RefreshToken != "" {
		encRefresh, err := s.vault.Encrypt(in.RefreshToken)
		if err != nil {
			return nil, err
		}
		integration.EncryptedRefreshToken = encRefresh
	}

	if err := s.db.Save(&integration).Error; err != nil {
		return nil, err
	}
	return &integration, nil
}

// SaveRefreshedToken persists a refreshed access token (and a rotated
// refresh token, when the provider sent one) without touching anything else.
func (s *Store) SaveRefreshedToken(id, accessToken, refreshToken string, expiry *time.Time) error {
	encAccess, err := s.vault.Encrypt(accessToken)
	if err != nil {
		return err
	}
	updates := map[string]interface{}{
		"encrypted_access_token": encAccess,
		"token_expiry":           expiry,
	}
	if refreshToken != "" {
		encRefresh, err := s.vault.Encrypt(refreshToken)
		if err != nil {
			return err
		}
		updates["encrypted_refresh_token"] = encRefresh
	}
	return s.db.Model(&models.Integration{}).Where("id = ?", id).Updates(updates).Error
}

// UpdateMeta writes a health-check result onto the row. IsActive tracks the
// connection status so a dead integration stops counting as connected.
func (s *Store) UpdateMeta(accountID, id string, meta models.IntegrationMeta) error {
	var integration models.Integration
	if err := s.db.Where("id = ? AND account_id = ?", id, accountID).First(&integration).Error; err != nil {
		return err
	}
	integration.SetMeta(meta)
	integration.IsActive = meta.ConnectionStatus == models.ConnectionOK
	return s.db.Save(&integration).Error
}

// Delete removes the row, credentials included. Irreversible.
func (s *Store) Delete(accountID, id string) error {
	res := s.db.Where("id = ? AND account_id = ?", id, accountID).
		Delete(&models.Integration{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}
