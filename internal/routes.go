package internal

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	cartridgemiddleware "github.com/karloscodes/cartridge/middleware"

	v1 "phishly/api/v1"
	"phishly/internal/config"
	"phishly/internal/http"
	"phishly/internal/links"
	"phishly/internal/pkg/geo"
)

// SetupSession configures session management on the server.
func SetupSession(srv *cartridge.Server) {
	cfg := config.GetConfig()
	sessionMgr := cartridge.NewSessionManager(cartridge.SessionConfig{
		CookieName: cfg.AppName + "_session",
		Secret:     cfg.GetSessionSecret(),
		TTL:        time.Duration(cfg.GetLoginSessionTimeout()) * time.Second,
		Secure:     cfg.IsProduction(),
		LoginPath:  "/login",
	})
	srv.SetSession(sessionMgr)
}

// MountAppRoutes returns the route mount function with its dependencies
// bound. The tracking endpoint is the only unauthenticated surface besides
// login and health.
func MountAppRoutes(resolver *geo.Resolver, generator *links.Generator) func(*cartridge.Server) {
	return func(srv *cartridge.Server) {
		SetupSession(srv)

		cfg := config.GetConfig()
		sessionMgr := srv.Session()

		// Rate limiting only bites in production; in development and test it
		// would interfere with exercising the endpoints.
		conditionalRateLimiter := func(limiter fiber.Handler) fiber.Handler {
			return func(c *fiber.Ctx) error {
				if cfg.IsProduction() {
					return limiter(c)
				}
				return c.Next()
			}
		}

		// Tracking links arrive from arbitrary mail clients at unpredictable
		// rates, so the ceiling is generous.
		trackRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(120),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		// Stricter limit on login to slow brute force attempts.
		authRateLimiter := conditionalRateLimiter(cartridgemiddleware.RateLimiter(
			cartridgemiddleware.WithMax(10),
			cartridgemiddleware.WithDuration(time.Minute),
		))

		trackConfig := &cartridge.RouteConfig{
			CustomMiddleware: []fiber.Handler{trackRateLimiter},
		}

		loginConfig := &cartridge.RouteConfig{
			CustomMiddleware: []fiber.Handler{authRateLimiter},
		}

		apiConfig := &cartridge.RouteConfig{
			CustomMiddleware: []fiber.Handler{sessionMgr.Middleware()},
		}

		// === ROOT ===
		srv.Get("/", func(ctx *cartridge.Context) error {
			return ctx.Redirect("/login", fiber.StatusFound)
		})

		// Health check endpoint
		srv.Get("/_health", http.HealthIndexAction)
		srv.Head("/_health", http.HealthIndexAction)

		// === TRACKING ===
		srv.Get("/p/:hash", v1.TrackClickHandler(cfg, resolver), trackConfig)

		// === AUTHENTICATION ===
		srv.Get("/login", http.RenderLoginAction)
		srv.Post("/login", http.ProcessLoginAction, loginConfig)
		srv.Post("/logout", http.LogoutAction)

		// === OPERATOR API ===
		srv.Post("/api/v1/phish/generate", v1.GenerateLinksHandler(generator), apiConfig)
		srv.Get("/api/v1/phish/stats", v1.StatsHandler(), apiConfig)
		srv.Get("/api/v1/campaigns/:id/export", v1.ExportHandler(), apiConfig)
	}
}
