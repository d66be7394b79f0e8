package v1

import (
	"errors"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"log/slog"

	"phishly/internal/campaigns"
	"phishly/internal/events"
	"phishly/internal/links"
	"phishly/internal/users"
)

// generateRequest is the JSON body of a link generation call. Only emails is
// required; name and target URL fall back to generator defaults.
type generateRequest struct {
	Name        string   `json:"campaign_name"`
	Description string   `json:"description"`
	TargetURL   string   `json:"target_url"`
	Subject     string   `json:"subject"`
	Body        string   `json:"body"`
	Emails      []string `json:"emails"`
}

// sessionIdentity resolves the authenticated operator's e-mail, the identity
// campaigns are owned by.
func sessionIdentity(ctx *cartridge.Context) (string, bool) {
	if ctx.Session == nil {
		return "", false
	}
	userID, ok := ctx.Session.GetUserID(ctx.Ctx)
	if !ok {
		return "", false
	}
	user, err := users.FindByID(ctx.DB(), userID)
	if err != nil {
		ctx.Logger.Error("Failed to resolve session user",
			slog.Uint64("user_id", uint64(userID)),
			slog.Any("error", err))
		return "", false
	}
	return user.Email, true
}

// GenerateLinksHandler creates (or extends) a campaign and mints one tracking
// link per recipient.
func GenerateLinksHandler(generator *links.Generator) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		owner, ok := sessionIdentity(ctx)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		var req generateRequest
		if err := ctx.BodyParser(&req); err != nil {
			return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "invalid request body",
			})
		}
		result, err := generator.Generate(ctx.DB(), &links.GenerateInput{
			Name:        req.Name,
			Description: req.Description,
			TargetURL:   req.TargetURL,
			Subject:     req.Subject,
			Body:        req.Body,
			Recipients:  req.Emails,
			Owner:       owner,
		})
		if err != nil {
			switch {
			case errors.Is(err, links.ErrNoRecipients), errors.Is(err, links.ErrTooManyRecipients):
				return ctx.Status(fiber.StatusBadRequest).JSON(fiber.Map{
					"error": err.Error(),
				})
			case errors.Is(err, links.ErrNoIdentity):
				return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": err.Error(),
				})
			default:
				ctx.Logger.Error("Link generation failed",
					slog.String("owner", owner),
					slog.Any("error", err))
				return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to generate links",
				})
			}
		}

		return ctx.Status(fiber.StatusCreated).JSON(fiber.Map{
			"campaign_id": result.CampaignID,
			"links":       result.Links,
			"expires_at":  result.ExpiresAt.UTC().Format(time.RFC3339),
		})
	}
}

// StatsHandler reports campaign telemetry. With a campaign_id query parameter
// it returns the counters and per-day timeline of that campaign; without one
// it returns the owner-wide aggregate across every owned campaign. Foreign
// and unknown campaigns both answer 404.
func StatsHandler() func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		owner, ok := sessionIdentity(ctx)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		db := ctx.DB()

		campaignID := ctx.Query("campaign_id")
		if campaignID == "" {
			stats, err := events.GetOwnerStats(db, owner)
			if err != nil {
				ctx.Logger.Error("Failed to compute owner stats",
					slog.String("owner", owner),
					slog.Any("error", err))
				return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "failed to compute stats",
				})
			}
			return ctx.JSON(stats)
		}

		campaign, err := campaigns.GetOwnedCampaign(db, campaignID, owner)
		if err != nil {
			var notFound *campaigns.CampaignNotFoundError
			if errors.As(err, &notFound) {
				return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "campaign not found",
				})
			}
			ctx.Logger.Error("Failed to load campaign",
				slog.String("campaign_id", campaignID),
				slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load campaign",
			})
		}

		stats, err := events.GetCampaignStats(db, campaign.ID)
		if err != nil {
			ctx.Logger.Error("Failed to compute campaign stats",
				slog.String("campaign_id", campaign.ID),
				slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute stats",
			})
		}

		timeline, err := events.GetClicksByDate(db, campaign.ID)
		if err != nil {
			ctx.Logger.Error("Failed to compute click timeline",
				slog.String("campaign_id", campaign.ID),
				slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to compute stats",
			})
		}

		return ctx.JSON(fiber.Map{
			"campaign": campaign,
			"stats":    stats,
			"timeline": timeline,
		})
	}
}

// ExportHandler streams a campaign's events as a CSV download. Ownership is
// checked first; foreign campaigns are indistinguishable from missing ones.
func ExportHandler() func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		owner, ok := sessionIdentity(ctx)
		if !ok {
			return ctx.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "authentication required",
			})
		}

		db := ctx.DB()

		campaign, err := campaigns.GetOwnedCampaign(db, ctx.Params("id"), owner)
		if err != nil {
			var notFound *campaigns.CampaignNotFoundError
			if errors.As(err, &notFound) {
				return ctx.Status(fiber.StatusNotFound).JSON(fiber.Map{
					"error": "campaign not found",
				})
			}
			ctx.Logger.Error("Failed to load campaign for export",
				slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to load campaign",
			})
		}

		data, err := events.ExportCampaignCSV(db, campaign.ID)
		if err != nil {
			ctx.Logger.Error("Failed to export campaign",
				slog.String("campaign_id", campaign.ID),
				slog.Any("error", err))
			return ctx.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "failed to export campaign",
			})
		}

		ctx.Set(fiber.HeaderContentType, "text/csv; charset=utf-8")
		ctx.Set(fiber.HeaderContentDisposition,
			fmt.Sprintf(`attachment; filename=campaign_%s.csv`, campaign.ID))
		return ctx.Send(data)
	}
}
