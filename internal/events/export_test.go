package events_test

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishly/internal/events"
	"phishly/internal/testsupport"
)

func TestExportCampaignCSV(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()

	campaign := testsupport.CreateTestCampaign(t, db, "Export Drill", "alice@example.com", "https://example.com")

	t.Run("empty campaign exports header only", func(t *testing.T) {
		data, err := events.ExportCampaignCSV(db, campaign.ID)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 1)
		assert.Equal(t, []string{
			"Email", "IP", "Browser", "OS", "Device",
			"Country", "City", "Clicked At", "User-Agent",
		}, records[0])
	})

	t.Run("exports one row per event with second-precision timestamps", func(t *testing.T) {
		clickedAt := time.Date(2026, 8, 25, 13, 45, 12, 0, time.UTC)
		testsupport.CreateTestEvent(t, db, campaign.ID, "victim@example.com", "198.51.100.7", clickedAt)

		data, err := events.ExportCampaignCSV(db, campaign.ID)
		require.NoError(t, err)

		records, err := csv.NewReader(strings.NewReader(string(data))).ReadAll()
		require.NoError(t, err)
		require.Len(t, records, 2)

		row := records[1]
		assert.Equal(t, "victim@example.com", row[0])
		assert.Equal(t, "198.51.100.7", row[1])
		assert.Equal(t, "Chrome", row[2])
		assert.Equal(t, "Windows", row[3])
		assert.Equal(t, "desktop", row[4])
		assert.Equal(t, "2026-08-25 13:45:12", row[7])
	})
}
