package events

import (
	"fmt"
	"time"

	"log/slog"

	"github.com/google/uuid"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/sqlite"
	"gorm.io/gorm"

	"phishly/internal/pkg/geo"
	"phishly/internal/pkg/useragent"
)

// RecordClickInput defines the input required to record a link click.
type RecordClickInput struct {
	LinkHash   string
	CampaignID string
	Email      string
	IPAddress  string
	UserAgent  string
	Referer    string
}

// RecordClick enriches a click with user-agent classification and
// geolocation, bounds every string field, and appends the event. The caller
// is expected to swallow the returned error on the tracking path: a failed
// write must never change the visitor's redirect.
func RecordClick(dbManager cartridge.DBManager, logger *slog.Logger, resolver *geo.Resolver, input *RecordClickInput) (*Event, error) {
	if len(input.LinkHash) != TokenLength {
		return nil, fmt.Errorf("invalid link token length: %d", len(input.LinkHash))
	}

	ua := input.UserAgent
	if ua == "" {
		ua = "Unknown"
	}

	classified := useragent.Classify(ua)

	location := geo.Location{}
	if resolver != nil {
		location = resolver.Resolve(input.IPAddress)
	}

	ip := input.IPAddress
	if ip == "" {
		ip = UnknownIP
	}

	email := truncate(input.Email, MaxEmailLen)

	event := &Event{
		ID:         uuid.NewString(),
		LinkHash:   input.LinkHash,
		CampaignID: input.CampaignID,
		Email:      email,
		SentBy:     email,
		IPAddress:  truncate(ip, MaxIPLen),
		UserAgent:  truncate(ua, MaxUserAgentLen),
		Referer:    input.Referer,
		DeviceType: classified.DeviceType,
		Browser:    classified.Browser,
		OS:         classified.OS,
		Country:    location.Country,
		City:       location.City,
		ClickedAt:  time.Now().UTC(),
	}

	db := dbManager.GetConnection()
	err := sqlite.PerformWrite(logger, db, func(tx *gorm.DB) error {
		return tx.Create(event).Error
	})
	if err != nil {
		logger.Error("Failed to store click event",
			slog.String("link_hash", input.LinkHash),
			slog.Any("error", err))
		return nil, fmt.Errorf("failed to store click event: %w", err)
	}

	return event, nil
}

func truncate(s string, max int) string {
	if len(s) > max {
		return s[:max]
	}
	return s
}
