package realip

import (
	"net/http/httptest"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func extractIP(t *testing.T, headers map[string]string) string {
	t.Helper()

	var got string
	app := fiber.New()
	app.Get("/", func(c *fiber.Ctx) error {
		got = FromRequest(c)
		return c.SendStatus(fiber.StatusOK)
	})

	req := httptest.NewRequest("GET", "/", nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := app.Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	return got
}

func TestFromRequest(t *testing.T) {
	t.Run("x-real-ip wins over forwarded-for", func(t *testing.T) {
		ip := extractIP(t, map[string]string{
			"X-Real-Ip":       "203.0.113.5",
			"X-Forwarded-For": "198.51.100.1",
		})
		assert.Equal(t, "203.0.113.5", ip)
	})

	t.Run("first public hop of a forwarding chain", func(t *testing.T) {
		ip := extractIP(t, map[string]string{
			"X-Forwarded-For": "10.0.0.5, 203.0.113.7, 198.51.100.1",
		})
		assert.Equal(t, "203.0.113.7", ip)
	})

	t.Run("cdn header is honored", func(t *testing.T) {
		ip := extractIP(t, map[string]string{
			"CF-Connecting-IP": "198.51.100.23",
		})
		assert.Equal(t, "198.51.100.23", ip)
	})

	t.Run("rfc 7239 forwarded header", func(t *testing.T) {
		ip := extractIP(t, map[string]string{
			"Forwarded": `for="203.0.113.60";proto=https, for=10.0.0.1`,
		})
		assert.Equal(t, "203.0.113.60", ip)
	})

	t.Run("private-only chain falls back to the private hop", func(t *testing.T) {
		ip := extractIP(t, map[string]string{
			"X-Forwarded-For": "192.168.1.10, 10.0.0.1",
		})
		assert.Equal(t, "192.168.1.10", ip)
	})

	t.Run("no headers falls back to the socket address", func(t *testing.T) {
		ip := extractIP(t, nil)
		assert.NotEmpty(t, ip)
	})
}

func TestSelectPreferredIP(t *testing.T) {
	t.Run("prefers ipv4 over ipv6", func(t *testing.T) {
		got := selectPreferredIP([]string{"2001:db8::1", "203.0.113.9"})
		assert.Equal(t, "203.0.113.9", got)
	})

	t.Run("ipv6 when no public ipv4", func(t *testing.T) {
		got := selectPreferredIP([]string{"10.0.0.1", "2001:db8::1"})
		assert.Equal(t, "2001:db8::1", got)
	})

	t.Run("empty when nothing parses", func(t *testing.T) {
		got := selectPreferredIP([]string{"garbage", ""})
		assert.Empty(t, got)
	})
}

func TestNormalizeIP(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{"plain ipv4", "203.0.113.1", "203.0.113.1"},
		{"ipv4 with port", "203.0.113.1:8080", "203.0.113.1"},
		{"quoted", `"203.0.113.1"`, "203.0.113.1"},
		{"bracketed ipv6", "[2001:db8::1]", "2001:db8::1"},
		{"ipv6 with port", "[2001:db8::1]:443", "2001:db8::1"},
		{"ipv4-mapped ipv6 unwrapped", "::ffff:203.0.113.1", "203.0.113.1"},
		{"zone identifier stripped", "fe80::1%eth0", "fe80::1"},
		{"garbage", "not-an-ip", ""},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, _ := normalizeIP(tt.raw)
			assert.Equal(t, tt.want, got)
		})
	}
}
