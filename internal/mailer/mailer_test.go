package mailer

import (
	"os"
	"testing"

	"log/slog"

	"github.com/stretchr/testify/assert"

	"phishly/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestEnvelopeAddress(t *testing.T) {
	tests := []struct {
		name string
		from string
		want string
	}{
		{"bare address", "sender@example.com", "sender@example.com"},
		{"display name", "IT Desk <sender@example.com>", "sender@example.com"},
		{"unbalanced brackets", "IT Desk <sender@example.com", "IT Desk <sender@example.com"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, envelopeAddress(tt.from))
		})
	}
}

func TestSendWithoutRelay(t *testing.T) {
	m := NewMailer(&config.Config{}, testLogger())

	assert.False(t, m.Enabled())
	// No relay configured: Send is a logged no-op, not an error.
	assert.NoError(t, m.Send("victim@example.com", "subject", "<p>body</p>"))
}
