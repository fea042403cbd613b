package api

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"

	"github.com/inkwell/inkwell-backend/internal/api/handlers"
	"github.com/inkwell/inkwell-backend/internal/api/middleware"
	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/auth"
	"github.com/inkwell/inkwell-backend/internal/events"
	"github.com/inkwell/inkwell-backend/internal/identity"
	"github.com/inkwell/inkwell-backend/internal/services"
	"github.com/inkwell/inkwell-backend/internal/summarize"
	"github.com/inkwell/inkwell-backend/internal/web"
)

// Deps holds everything the route table needs
type Deps struct {
	Auth       *auth.Service
	Audit      *audit.Service
	Notes      *services.NoteService
	Summarizer summarize.Summarizer
	Identity   identity.Provider
	Hub        *events.Hub
	Renderer   *web.Renderer
}

// SetupRoutes configures all HTTP routes
func SetupRoutes(app *fiber.App, deps Deps) {
	api := app.Group("/api/v1")

	// ========================================
	// Public routes (no authentication needed)
	// ========================================

	api.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "healthy",
			"service": "inkwell-backend",
		})
	})

	authGroup := api.Group("/auth")
	authGroup.Post("/login", middleware.AuthRateLimit(), handlers.Login(deps.Auth, deps.Audit))
	authGroup.Post("/signup", middleware.SignupRateLimit(), handlers.Signup(deps.Auth, deps.Audit))
	authGroup.Post("/refresh", handlers.RefreshToken(deps.Auth))
	authGroup.Post("/logout", middleware.AuthRequired(deps.Auth), handlers.Logout(deps.Auth, deps.Audit))

	// OAuth handshake. The callback is also the target of the fragment
	// relay on the landing page, so it lives outside /api.
	app.Get("/auth/login/google", handlers.OAuthLogin(deps.Identity))
	app.Get("/auth/callback", handlers.AuthCallback(deps.Auth, deps.Identity, deps.Audit))

	// ========================================
	// Protected routes (authentication required)
	// ========================================

	protected := api.Group("", middleware.AuthRequired(deps.Auth))

	protected.Get("/auth/me", handlers.GetCurrentUser(deps.Auth))

	noteHandlers := handlers.NewNoteHandlers(deps.Notes, deps.Audit)
	protected.Get("/notes", noteHandlers.ListNotes)
	protected.Post("/notes", noteHandlers.CreateNote)
	protected.Get("/notes/:id", noteHandlers.GetNote)
	protected.Put("/notes/:id", noteHandlers.UpdateNote)
	protected.Delete("/notes/:id", noteHandlers.DeleteNote)
	protected.Put("/notes/:id/summary", noteHandlers.SetNoteSummary)

	app.Post("/api/summarize",
		middleware.AuthRequired(deps.Auth),
		middleware.SummarizeRateLimit(),
		handlers.Summarize(deps.Summarizer, deps.Audit))

	// ========================================
	// Server-rendered pages
	// ========================================

	pages := handlers.NewPages(deps.Renderer, deps.Notes)
	app.Get("/", middleware.OptionalAuth(deps.Auth), pages.Landing)

	pageGroup := app.Group("", middleware.PageAuth(deps.Auth))
	pageGroup.Get("/dashboard", pages.Dashboard)
	pageGroup.Get("/notes/new", pages.NoteNew)
	pageGroup.Get("/notes/:id", pages.NoteView)
	pageGroup.Get("/notes/:id/edit", pages.NoteEdit)

	// ========================================
	// WebSocket routes (with auth)
	// ========================================

	app.Use("/ws", func(c *fiber.Ctx) error {
		if !websocket.IsWebSocketUpgrade(c) {
			return fiber.ErrUpgradeRequired
		}

		token := c.Query("token")
		if token == "" {
			token = auth.ExtractTokenFromBearer(c.Get("Authorization"))
		}
		if token == "" {
			token = c.Cookies("access_token")
		}

		if token != "" {
			if user, _, err := deps.Auth.ValidateAccessToken(c.Context(), token); err == nil {
				c.Locals("user_id", user.ID.String())
				return c.Next()
			}
		}

		return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
			"error": "Authentication required for WebSocket",
		})
	})
	app.Get("/ws/notes", websocket.New(handlers.NoteEvents(deps.Hub)))
}
