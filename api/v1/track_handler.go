package v1

import (
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"log/slog"

	"phishly/internal/config"
	"phishly/internal/events"
	"phishly/internal/pkg/geo"
	"phishly/internal/pkg/realip"
)

// TrackClickHandler serves the tracking endpoint hit when a recipient opens
// their link. It records the click and redirects, in that order of intent but
// never at the visitor's expense: recording failures are logged and the
// redirect happens regardless.
func TrackClickHandler(cfg *config.Config, resolver *geo.Resolver) func(*cartridge.Context) error {
	return func(ctx *cartridge.Context) error {
		token := ctx.Params("hash")

		// Malformed tokens go straight to the login surface with no event.
		if len(token) != events.TokenLength {
			ctx.Logger.Debug("Rejected malformed tracking token",
				slog.Int("length", len(token)))
			return ctx.Redirect(cfg.LoginURL(), fiber.StatusFound)
		}

		input := &events.RecordClickInput{
			LinkHash:   token,
			CampaignID: ctx.Query("c"),
			Email:      ctx.Query("e"),
			IPAddress:  realip.FromRequest(ctx.Ctx),
			UserAgent:  ctx.Get(fiber.HeaderUserAgent),
			Referer:    ctx.Get(fiber.HeaderReferer),
		}

		if _, err := events.RecordClick(ctx.DBManager, ctx.Logger, resolver, input); err != nil {
			ctx.Logger.Error("Failed to record click",
				slog.String("link_hash", token),
				slog.Any("error", err))
		}

		return ctx.Redirect(redirectTarget(cfg, ctx.Query("target")), fiber.StatusFound)
	}
}

// redirectTarget validates the target ride-along parameter. Only absolute
// http(s) URLs are honored; anything else lands on the login surface.
func redirectTarget(cfg *config.Config, target string) string {
	if target == "" {
		return cfg.LoginURL()
	}

	parsed, err := url.Parse(target)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return cfg.LoginURL()
	}

	return target
}
