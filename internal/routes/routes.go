package routes

import (
	"time"

	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/handlers"
	"github.com/ahmetcoskunkizilkaya/drawtopia-backend/internal/middleware"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
)

type Handlers struct {
	Auth   *handlers.AuthHandler
	User   *handlers.UserHandler
	Story  *handlers.StoryHandler
	Health *handlers.HealthHandler
	Legal  *handlers.LegalHandler
}

func Setup(app *fiber.App, gw middleware.Introspector, h Handlers) {
	api := app.Group("/api")

	// General API rate limiter: 60 req/min per IP
	api.Use(ipLimiter(60))

	api.Get("/health", h.Health.Check)

	api.Get("/legal/privacy", h.Legal.PrivacyPolicy)
	api.Get("/legal/terms", h.Legal.TermsOfService)

	protected := middleware.Authenticated(gw)

	// Auth: stricter 10 req/min per IP
	auth := api.Group("/auth", ipLimiter(10))
	auth.Post("/register", h.Auth.Register)
	auth.Post("/login", h.Auth.Login)
	auth.Post("/otp/send", h.Auth.SendOTP)
	auth.Post("/otp/verify", h.Auth.VerifyOTP)
	auth.Post("/resend-verification", h.Auth.ResendVerification)
	auth.Post("/logout", protected, h.Auth.Logout)
	auth.Get("/me", protected, h.Auth.Me)

	users := api.Group("/users", protected)
	users.Post("/consent", h.User.RecordConsent)
	users.Get("/children", h.User.ListChildren)
	users.Post("/children", h.User.CreateChild)
	users.Put("/children/:id", h.User.UpdateChild)

	stories := api.Group("/stories", protected)
	stories.Post("/", h.Story.Create)
	stories.Post("/:id/upload", h.Story.UploadImage)
	stories.Put("/:id/character", h.Story.UpdateCharacter)
	stories.Put("/:id/config", h.Story.UpdateConfig)
	stories.Post("/:id/generate", h.Story.Generate)
	stories.Get("/:id/preview", h.Story.Preview)
	stories.Get("/:id/pdf", h.Story.DownloadPDF)
	stories.Get("/:id/audio", h.Story.Audio)
	stories.Post("/:id/unlock", h.Story.Unlock)
}

func ipLimiter(max int) fiber.Handler {
	return limiter.New(limiter.Config{
		Max:               max,
		Expiration:        1 * time.Minute,
		LimiterMiddleware: limiter.SlidingWindow{},
		KeyGenerator:      func(c *fiber.Ctx) string { return c.IP() },
	})
}
