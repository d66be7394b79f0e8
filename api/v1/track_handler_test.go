// Package v1_test contains tests for the API v1 handlers
package v1_test

import (
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"phishly/internal/config"
	"phishly/internal/events"
	"phishly/internal/testsupport"
)

const chromeWindowsUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

func TestTrackClickHandler(t *testing.T) {
	dbManager, _ := testsupport.SetupTestDBManager(t)
	db := dbManager.GetConnection()
	app := testsupport.CreateMinimalTestApp(t, db)

	loginURL := config.GetConfig().LoginURL()

	t.Run("malformed token redirects to login without an event", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		req := httptest.NewRequest("GET", "/p/short", nil)
		req.Header.Set("User-Agent", chromeWindowsUA)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, loginURL, resp.Header.Get("Location"))

		var count int64
		require.NoError(t, db.Model(&events.Event{}).Count(&count).Error)
		assert.Zero(t, count)
	})

	t.Run("valid token records an event and redirects to the target", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		token := strings.Repeat("ab", 32)
		params := url.Values{}
		params.Set("e", "victim@example.com")
		params.Set("c", "campaign-1")
		params.Set("target", "https://intranet.example.com/docs")

		req := httptest.NewRequest("GET", "/p/"+token+"?"+params.Encode(), nil)
		req.Header.Set("User-Agent", chromeWindowsUA)
		req.Header.Set("X-Forwarded-For", "192.168.1.50")

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, "https://intranet.example.com/docs", resp.Header.Get("Location"))

		var event events.Event
		require.NoError(t, db.Where("link_hash = ?", token).First(&event).Error)
		assert.Equal(t, "campaign-1", event.CampaignID)
		assert.Equal(t, "victim@example.com", event.Email)
		assert.Equal(t, "victim@example.com", event.SentBy)
		assert.Equal(t, "Chrome", event.Browser)
		assert.Equal(t, "Windows", event.OS)
		assert.Equal(t, "desktop", event.DeviceType)
		assert.Equal(t, "192.168.1.50", event.IPAddress)
	})

	t.Run("missing target falls back to login", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		token := strings.Repeat("cd", 32)
		req := httptest.NewRequest("GET", "/p/"+token, nil)
		req.Header.Set("User-Agent", chromeWindowsUA)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, loginURL, resp.Header.Get("Location"))

		// The click is still recorded.
		var count int64
		require.NoError(t, db.Model(&events.Event{}).Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("non-http target is not honored", func(t *testing.T) {
		testsupport.CleanAllTables(db)

		token := strings.Repeat("ef", 32)
		params := url.Values{}
		params.Set("target", "javascript:alert(1)")

		req := httptest.NewRequest("GET", "/p/"+token+"?"+params.Encode(), nil)
		req.Header.Set("User-Agent", chromeWindowsUA)

		resp, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, fiber.StatusFound, resp.StatusCode)
		assert.Equal(t, loginURL, resp.Header.Get("Location"))
	})
}
