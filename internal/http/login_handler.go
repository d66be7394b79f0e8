package http

import (
	"fmt"

	"github.com/gofiber/fiber/v2"
	"github.com/karloscodes/cartridge"
	"github.com/karloscodes/cartridge/crypto"
	"github.com/karloscodes/cartridge/flash"
	"log/slog"

	"phishly/internal/users"
)

// loginPage is the login surface tracking links default to. It doubles as the
// landing page for clicked links without a target, so it renders as a plain
// portal sign-in form.
const loginPage = `<!DOCTYPE html>
<html lang="en">
<head>
  <meta charset="utf-8">
  <meta name="viewport" content="width=device-width, initial-scale=1">
  <title>Sign In</title>
  <style>
    body { font-family: -apple-system, "Segoe UI", sans-serif; background: #f3f4f6; display: flex; justify-content: center; padding-top: 10vh; }
    form { background: #fff; padding: 2rem; border-radius: 8px; box-shadow: 0 1px 4px rgba(0,0,0,.1); width: 320px; }
    h1 { font-size: 1.25rem; margin-top: 0; }
    label { display: block; margin: .75rem 0 .25rem; font-size: .875rem; }
    input { width: 100%%; padding: .5rem; border: 1px solid #d1d5db; border-radius: 4px; box-sizing: border-box; }
    button { margin-top: 1.25rem; width: 100%%; padding: .6rem; background: #2563eb; color: #fff; border: 0; border-radius: 4px; cursor: pointer; }
    .error { color: #b91c1c; font-size: .875rem; margin: .5rem 0 0; }
  </style>
</head>
<body>
  <form method="post" action="/login">
    <h1>Sign In</h1>
    %s
    <label for="email">Email</label>
    <input type="email" id="email" name="email" required>
    <label for="password">Password</label>
    <input type="password" id="password" name="password" required>
    <button type="submit">Sign In</button>
  </form>
</body>
</html>`

// RenderLoginAction renders the login page
func RenderLoginAction(ctx *cartridge.Context) error {
	if ctx.Session != nil && ctx.Session.IsAuthenticated(ctx.Ctx) {
		return ctx.Redirect("/", fiber.StatusFound)
	}

	errorBlock := ""
	if ctx.Query("failed") != "" {
		errorBlock = `<p class="error">Invalid email or password</p>`
	}

	ctx.Set(fiber.HeaderContentType, fiber.MIMETextHTMLCharsetUTF8)
	return ctx.Ctx.SendString(fmt.Sprintf(loginPage, errorBlock))
}

// ProcessLoginAction handles the login form submission
func ProcessLoginAction(ctx *cartridge.Context) error {
	email := ctx.FormValue("email")
	password := ctx.FormValue("password")

	if email == "" && password == "" {
		var jsonBody struct {
			Email    string `json:"email"`
			Password string `json:"password"`
		}
		if err := ctx.BodyParser(&jsonBody); err == nil {
			email = jsonBody.Email
			password = jsonBody.Password
		}
	}

	if email == "" || password == "" {
		flash.SetFlash(ctx.Ctx, "error", "Email and password are required")
		return ctx.Redirect("/login?failed=1", fiber.StatusFound)
	}

	db := ctx.DB()
	user, lookupErr := users.FindByEmail(db, email)

	// Verify against a dummy hash when the user is unknown so response time
	// does not reveal whether the e-mail exists.
	var passwordValid bool
	if lookupErr != nil {
		ctx.Logger.Debug("User not found during login", slog.String("email", email))
		dummyHash := "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy" // bcrypt hash of "dummy"
		crypto.VerifyPassword(dummyHash, password)
		passwordValid = false
	} else {
		passwordValid = crypto.VerifyPassword(user.EncryptedPassword, password)
		if !passwordValid {
			ctx.Logger.Debug("Invalid password attempt", slog.String("email", email))
		}
	}

	if !passwordValid {
		flash.SetFlash(ctx.Ctx, "error", "Invalid email or password")
		return ctx.Redirect("/login?failed=1", fiber.StatusFound)
	}

	if err := ctx.Session.SetSession(ctx.Ctx, user.ID); err != nil {
		ctx.Logger.Error("Failed to set session", slog.Any("error", err))
		flash.SetFlash(ctx.Ctx, "error", "Login failed")
		return ctx.Redirect("/login?failed=1", fiber.StatusFound)
	}

	ctx.Logger.Debug("Login successful",
		slog.String("email", email),
		slog.Int("userId", int(user.ID)))

	return ctx.Redirect("/", fiber.StatusFound)
}

// LogoutAction handles user logout
func LogoutAction(ctx *cartridge.Context) error {
	ctx.Session.ClearSession(ctx.Ctx)
	flash.SetFlash(ctx.Ctx, "success", "You have been logged out")
	return ctx.Redirect("/login", fiber.StatusFound)
}
