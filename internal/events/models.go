package events

import "time"

// Field bounds applied before persistence. Oversized values are truncated,
// never rejected: the tracking path must not hard-fail on weird input.
const (
	MaxEmailLen     = 255
	MaxIPLen        = 45 // fits IPv6
	MaxUserAgentLen = 1000

	// TokenLength is the exact length of a tracking link token. Anything
	// else is treated as a non-event.
	TokenLength = 64
)

// Constants for unknown or default values
const (
	UnknownIP      = "0.0.0.0"
	UnknownDevice  = "unknown"
	UnknownBrowser = "Unknown"
	UnknownOS      = "Unknown"
)

// Event represents one recorded visit to a tracking link, enriched with
// classified client metadata. Rows are append-only: nothing updates or
// deletes them after creation.
type Event struct {
	ID         string    `gorm:"primaryKey;size:36"`
	LinkHash   string    `gorm:"size:64;not null;index"`
	CampaignID string    `gorm:"size:64;index"` // soft reference, may be empty
	Email      string    `gorm:"size:255;not null;index"`
	SentBy     string    `gorm:"size:255;not null;index"`
	IPAddress  string    `gorm:"size:45;not null"`
	UserAgent  string    `gorm:"type:text;not null"`
	Referer    string    `gorm:"type:text"`
	DeviceType string    `gorm:"size:50"`
	Browser    string    `gorm:"size:50"`
	OS         string    `gorm:"size:50"`
	Country    string    `gorm:"size:100"`
	City       string    `gorm:"size:100"`
	ClickedAt  time.Time `gorm:"not null;index"`
}
