package useragent

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		userAgent  string
		browser    string
		os         string
		deviceType string
		bot        bool
	}{
		{
			name:       "chrome on windows desktop",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser:    "Chrome",
			os:         "Windows",
			deviceType: DeviceDesktop,
		},
		{
			name:       "safari on iphone",
			userAgent:  "Mozilla/5.0 (iPhone; CPU iPhone OS 17_2 like Mac OS X) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.2 Mobile/15E148 Safari/604.1",
			browser:    "Safari",
			os:         "iOS",
			deviceType: DeviceMobile,
		},
		{
			name:       "firefox on linux",
			userAgent:  "Mozilla/5.0 (X11; Linux x86_64; rv:121.0) Gecko/20100101 Firefox/121.0",
			browser:    "Firefox",
			os:         "Linux",
			deviceType: DeviceDesktop,
		},
		{
			name:       "edge on windows",
			userAgent:  "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36 Edg/120.0.0.0",
			browser:    "Edge",
			os:         "Windows",
			deviceType: DeviceDesktop,
		},
		{
			name:       "chrome on android tablet",
			userAgent:  "Mozilla/5.0 (Linux; Android 13; SM-X700) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			browser:    "Chrome",
			os:         "Android",
			deviceType: DeviceTablet,
		},
		{
			name:       "curl is a bot",
			userAgent:  "curl/8.4.0",
			browser:    "Generic Bot",
			os:         "Unknown",
			deviceType: DeviceUnknown,
			bot:        true,
		},
		{
			name:       "link preview fetcher is a bot",
			userAgent:  "facebookexternalhit/1.1 (+http://www.facebook.com/externalhit_uatext.php)",
			browser:    "Link Preview Bot",
			os:         "Unknown",
			deviceType: DeviceUnknown,
			bot:        true,
		},
		{
			name:       "empty input is unknown",
			userAgent:  "",
			browser:    "Unknown",
			os:         "Unknown",
			deviceType: DeviceUnknown,
		},
		{
			name:       "garbage input is unknown",
			userAgent:  "definitely not a browser",
			browser:    "Unknown",
			os:         "Unknown",
			deviceType: DeviceUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Classify(tt.userAgent)
			assert.Equal(t, tt.browser, result.Browser)
			assert.Equal(t, tt.os, result.OS)
			assert.Equal(t, tt.deviceType, result.DeviceType)
			assert.Equal(t, tt.bot, result.Bot)
			assert.Equal(t, tt.userAgent, result.UserAgent)
		})
	}
}
