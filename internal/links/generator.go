// Package links generates per-recipient tracking links for a campaign and
// dispatches the campaign message to each recipient.
package links

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"log/slog"

	"gorm.io/gorm"

	"phishly/internal/campaigns"
	"phishly/internal/config"
)

var (
	// ErrNoRecipients is returned when the recipient list is empty after
	// trimming.
	ErrNoRecipients = errors.New("at least one recipient is required")

	// ErrTooManyRecipients is returned when the recipient list exceeds the
	// configured batch limit.
	ErrTooManyRecipients = errors.New("too many recipients in one batch")

	// ErrNoIdentity is returned when no owner identity is available for the
	// generation call.
	ErrNoIdentity = errors.New("owner identity is required")
)

// Sender delivers one campaign message. Satisfied by mailer.Mailer.
type Sender interface {
	Enabled() bool
	Send(recipient, subject, htmlBody string) error
}

// DefaultCampaignName labels campaigns created without a name. The id is
// derived from the resolved name, so repeated unnamed generations by the
// same owner address one shared campaign.
const DefaultCampaignName = "Untitled Campaign"

// GenerateInput is one link generation request. Name and TargetURL are
// optional; they default to DefaultCampaignName and the login surface.
type GenerateInput struct {
	Name        string
	Description string
	TargetURL   string
	Subject     string
	Body        string
	Recipients  []string
	Owner       string
}

// TrackedLink is one generated recipient link.
type TrackedLink struct {
	Email string `json:"email"`
	Link  string `json:"link"`
	Hash  string `json:"hash"`
}

// GenerateResult is the outcome of one generation call.
type GenerateResult struct {
	CampaignID string        `json:"campaign_id"`
	Links      []TrackedLink `json:"links"`
	ExpiresAt  time.Time     `json:"expires_at"`
}

// Generator creates campaigns and their per-recipient tracking links.
type Generator struct {
	cfg    *config.Config
	logger *slog.Logger
	sender Sender
}

func NewGenerator(cfg *config.Config, logger *slog.Logger, sender Sender) *Generator {
	return &Generator{cfg: cfg, logger: logger, sender: sender}
}

// Generate validates the recipient batch, creates the campaign row if it does
// not exist yet, and mints one tracking link per recipient. Repeating the
// call with the same (name, owner) extends the same campaign with fresh
// links. Message delivery is best effort: a relay failure for one recipient
// is logged and does not fail the batch.
func (g *Generator) Generate(db *gorm.DB, input *GenerateInput) (*GenerateResult, error) {
	if strings.TrimSpace(input.Owner) == "" {
		return nil, ErrNoIdentity
	}

	recipients := normalizeRecipients(input.Recipients)
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	if len(recipients) > g.cfg.MaxRecipients {
		return nil, fmt.Errorf("%w: got %d, limit %d",
			ErrTooManyRecipients, len(recipients), g.cfg.MaxRecipients)
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		name = DefaultCampaignName
	}
	target := strings.TrimSpace(input.TargetURL)
	if target == "" {
		target = g.cfg.LoginURL()
	}

	now := time.Now().UTC()
	campaign := &campaigns.Campaign{
		ID:          campaigns.DeriveID(name, input.Owner),
		Name:        name,
		Description: input.Description,
		TargetURL:   target,
		CreatedBy:   input.Owner,
		CreatedAt:   now,
		ExpiresAt:   now.AddDate(0, 0, g.cfg.CampaignTTLDays),
		Active:      true,
	}
	if err := campaigns.EnsureCampaign(g.logger, db, campaign); err != nil {
		return nil, fmt.Errorf("failed to ensure campaign: %w", err)
	}

	// The campaign may predate this call; report its stored expiry, not the
	// one computed above.
	stored, err := campaigns.GetByID(db, campaign.ID)
	if err != nil {
		return nil, err
	}

	result := &GenerateResult{
		CampaignID: stored.ID,
		Links:      make([]TrackedLink, 0, len(recipients)),
		ExpiresAt:  stored.ExpiresAt,
	}

	subject := strings.TrimSpace(input.Subject)
	if subject == "" {
		subject = name
	}

	for _, recipient := range recipients {
		token, err := DeriveToken(stored.ID, recipient)
		if err != nil {
			return nil, err
		}

		link := g.trackingURL(token, recipient, stored.ID, target)
		result.Links = append(result.Links, TrackedLink{
			Email: recipient,
			Link:  link,
			Hash:  token,
		})

		g.dispatch(recipient, subject, input.Body, link)
	}

	g.logger.Info("Generated tracking links",
		slog.String("campaign_id", stored.ID),
		slog.String("owner", input.Owner),
		slog.Int("recipients", len(recipients)))

	return result, nil
}

// DeriveToken mints a 64-char hex tracking token for one recipient. A random
// nonce goes into the digest so the token cannot be predicted from the
// campaign id and address alone, and so re-sending to the same recipient
// yields a distinct link.
func DeriveToken(campaignID, recipient string) (string, error) {
	nonce := make([]byte, 8)
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate token nonce: %w", err)
	}

	payload := fmt.Sprintf("%s:%s:%s", campaignID, recipient, hex.EncodeToString(nonce))
	hash := sha256.Sum256([]byte(payload))
	return hex.EncodeToString(hash[:]), nil
}

// trackingURL composes the public click URL for one token. The recipient,
// campaign and target ride along as query parameters so the click endpoint
// can record and redirect without a link table lookup.
func (g *Generator) trackingURL(token, recipient, campaignID, target string) string {
	params := url.Values{}
	params.Set("e", recipient)
	params.Set("c", campaignID)
	params.Set("target", target)

	return fmt.Sprintf("%s/p/%s?%s",
		strings.TrimRight(g.cfg.PublicURL, "/"), token, params.Encode())
}

func (g *Generator) dispatch(recipient, subject, body, link string) {
	if g.sender == nil || !g.sender.Enabled() {
		return
	}

	html := strings.ReplaceAll(body, "{{link}}", link)
	if !strings.Contains(body, "{{link}}") {
		html = body + fmt.Sprintf(`<p><a href="%s">%s</a></p>`, link, link)
	}

	if err := g.sender.Send(recipient, subject, html); err != nil {
		g.logger.Error("Failed to deliver campaign message",
			slog.String("recipient", recipient),
			slog.Any("error", err))
	}
}

// normalizeRecipients trims whitespace and drops empty entries, preserving
// order and duplicates.
func normalizeRecipients(recipients []string) []string {
	out := make([]string, 0, len(recipients))
	for _, r := range recipients {
		if trimmed := strings.TrimSpace(r); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
