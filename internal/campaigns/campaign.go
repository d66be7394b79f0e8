// Package campaigns holds the phishing campaign entity and its storage access.
package campaigns

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"log/slog"

	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"
)

// CampaignNotFoundError is returned when a campaign does not exist or is not
// owned by the requesting identity. Both cases look identical to the caller
// so that stats/export requests cannot confirm a foreign campaign's existence.
type CampaignNotFoundError struct {
	ID string
}

func (e *CampaignNotFoundError) Error() string {
	return fmt.Sprintf("campaign not found: %s", e.ID)
}

// NewCampaignNotFoundError creates a new CampaignNotFoundError
func NewCampaignNotFoundError(id string) *CampaignNotFoundError {
	return &CampaignNotFoundError{ID: id}
}

// Campaign represents one phishing simulation exercise. The primary key is
// content-derived (see DeriveID), which is what makes creation idempotent.
type Campaign struct {
	ID          string    `gorm:"primaryKey;size:64" json:"id"`
	Name        string    `gorm:"size:255;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	TargetURL   string    `gorm:"size:500;not null" json:"target_url"`
	CreatedBy   string    `gorm:"size:255;not null;index" json:"created_by"`
	CreatedAt   time.Time `json:"created_at"`
	ExpiresAt   time.Time `json:"expires_at"`
	Active      bool      `gorm:"default:true;not null" json:"active"`
}

// DeriveID computes the deterministic campaign identifier from the campaign
// name and its owner. Same inputs always yield the same 64-char hex id, so a
// second generation call for the same (name, owner) addresses the same row.
func DeriveID(name, owner string) string {
	hash := sha256.Sum256([]byte(fmt.Sprintf("%s:%s", name, owner)))
	return hex.EncodeToString(hash[:])
}

// EnsureCampaign inserts the campaign if no row with its id exists yet and is
// a no-op otherwise. The insert uses ON CONFLICT DO NOTHING so two concurrent
// generation calls for the same (name, owner) cannot race a get-then-insert
// into duplicate or half-written rows. Descriptive fields are set on first
// creation only and never updated here.
func EnsureCampaign(logger *slog.Logger, db *gorm.DB, campaign *Campaign) error {
	if campaign.ID == "" {
		return errors.New("campaign id cannot be empty")
	}
	if campaign.CreatedBy == "" {
		return errors.New("campaign owner cannot be empty")
	}

	return sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Exec(`
            INSERT INTO campaigns (id, name, description, target_url, created_by, created_at, expires_at, active)
            VALUES (?, ?, ?, ?, ?, ?, ?, ?)
            ON CONFLICT(id) DO NOTHING
        `, campaign.ID, campaign.Name, campaign.Description, campaign.TargetURL,
			campaign.CreatedBy, campaign.CreatedAt, campaign.ExpiresAt, campaign.Active).Error
	})
}

// GetOwnedCampaign retrieves a campaign by id scoped to its owner.
func GetOwnedCampaign(db *gorm.DB, id, owner string) (*Campaign, error) {
	var campaign Campaign
	if err := db.Where("id = ? AND created_by = ?", id, owner).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewCampaignNotFoundError(id)
		}
		return nil, fmt.Errorf("unexpected error querying campaign: %w", err)
	}
	return &campaign, nil
}

// GetByID retrieves a campaign by id regardless of owner.
func GetByID(db *gorm.DB, id string) (*Campaign, error) {
	var campaign Campaign
	if err := db.Where("id = ?", id).First(&campaign).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, NewCampaignNotFoundError(id)
		}
		return nil, fmt.Errorf("unexpected error querying campaign: %w", err)
	}
	return &campaign, nil
}

// GetCampaignsByOwner retrieves every campaign created by the given identity,
// oldest first.
func GetCampaignsByOwner(db *gorm.DB, owner string) ([]Campaign, error) {
	var result []Campaign
	if err := db.Where("created_by = ?", owner).Order("created_at ASC").Find(&result).Error; err != nil {
		return nil, fmt.Errorf("failed to get campaigns for owner: %w", err)
	}
	return result, nil
}

// DeactivateExpired flips the active flag on campaigns whose expiry has
// passed. It returns the number of campaigns deactivated. The flag carries no
// behavior yet; clicks on expired campaigns are still recorded.
func DeactivateExpired(logger *slog.Logger, db *gorm.DB, now time.Time) (int64, error) {
	var affected int64
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		result := tx.Model(&Campaign{}).
			Where("active = ? AND expires_at < ?", true, now).
			Update("active", false)
		affected = result.RowsAffected
		return result.Error
	})
	if err != nil {
		return 0, fmt.Errorf("failed to deactivate expired campaigns: %w", err)
	}
	return affected, nil
}
