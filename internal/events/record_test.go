package events_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishly/internal/config"
	"phishly/internal/events"
	"phishly/internal/pkg/geo"
	"phishly/internal/testsupport"
)

const chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func validToken() string {
	return strings.Repeat("ab", 32)
}

func testResolver() *geo.Resolver {
	cfg := &config.Config{
		GeoAPIURL:            "http://127.0.0.1:1/json",
		GeoAPITimeoutSeconds: 1,
		GeoCacheTTLSeconds:   60,
	}
	return geo.NewResolver(cfg, testsupport.GetLogger())
}

func TestRecordClick(t *testing.T) {
	dbManager, logger := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	t.Run("records an enriched event", func(t *testing.T) {
		event, err := events.RecordClick(dbManager, logger, testResolver(), &events.RecordClickInput{
			LinkHash:   validToken(),
			CampaignID: "campaign-1",
			Email:      "victim@example.com",
			IPAddress:  "192.168.1.50",
			UserAgent:  chromeWindowsUA,
			Referer:    "https://mail.example.com",
		})
		require.NoError(t, err)

		assert.NotEmpty(t, event.ID)
		assert.Equal(t, "victim@example.com", event.Email)
		assert.Equal(t, "victim@example.com", event.SentBy)
		assert.Equal(t, "Chrome", event.Browser)
		assert.Equal(t, "Windows", event.OS)
		assert.Equal(t, "desktop", event.DeviceType)
		assert.Equal(t, "Local", event.Country)
		assert.Equal(t, "Private Network", event.City)
		assert.False(t, event.ClickedAt.IsZero())

		var stored events.Event
		require.NoError(t, db.Where("id = ?", event.ID).First(&stored).Error)
		assert.Equal(t, event.LinkHash, stored.LinkHash)
	})

	t.Run("rejects tokens that are not 64 chars", func(t *testing.T) {
		_, err := events.RecordClick(dbManager, logger, nil, &events.RecordClickInput{
			LinkHash: "short",
		})
		assert.Error(t, err)
	})

	t.Run("defaults the missing fields", func(t *testing.T) {
		event, err := events.RecordClick(dbManager, logger, nil, &events.RecordClickInput{
			LinkHash:   validToken(),
			CampaignID: "campaign-2",
		})
		require.NoError(t, err)

		assert.Equal(t, events.UnknownIP, event.IPAddress)
		assert.Equal(t, "Unknown", event.UserAgent)
		assert.Equal(t, "Unknown", event.Browser)
		assert.Equal(t, "Unknown", event.OS)
		assert.Equal(t, "unknown", event.DeviceType)
	})

	t.Run("bounds oversized fields", func(t *testing.T) {
		longEmail := strings.Repeat("e", 300) + "@example.com"
		longUA := strings.Repeat("u", 2000)

		event, err := events.RecordClick(dbManager, logger, nil, &events.RecordClickInput{
			LinkHash:   validToken(),
			CampaignID: "campaign-3",
			Email:      longEmail,
			UserAgent:  longUA,
		})
		require.NoError(t, err)

		assert.Len(t, event.Email, events.MaxEmailLen)
		assert.Len(t, event.UserAgent, events.MaxUserAgentLen)
	})

	t.Run("survives without a resolver", func(t *testing.T) {
		event, err := events.RecordClick(dbManager, logger, nil, &events.RecordClickInput{
			LinkHash:   validToken(),
			CampaignID: "campaign-4",
			IPAddress:  "203.0.113.9",
		})
		require.NoError(t, err)
		assert.Empty(t, event.Country)
		assert.Empty(t, event.City)
	})
}
