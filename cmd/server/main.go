package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/api"
	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/auth"
	"github.com/inkwell/inkwell-backend/internal/config"
	"github.com/inkwell/inkwell-backend/internal/database"
	"github.com/inkwell/inkwell-backend/internal/events"
	"github.com/inkwell/inkwell-backend/internal/identity"
	"github.com/inkwell/inkwell-backend/internal/repository/postgres"
	"github.com/inkwell/inkwell-backend/internal/services"
	"github.com/inkwell/inkwell-backend/internal/summarize"
	"github.com/inkwell/inkwell-backend/internal/web"
)

func main() {
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	if level, err := logrus.ParseLevel(os.Getenv("INKWELL_LOG_LEVEL")); err == nil {
		logrus.SetLevel(level)
	}

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}

	// Connect to database
	db, err := database.NewConnection(cfg.Database)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}
	defer db.Close()

	// Run migrations
	if err := database.RunMigrations(cfg.Database); err != nil {
		logrus.WithError(err).Fatal("Failed to run migrations")
	}

	// Initialize Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "Inkwell Backend",
		ErrorHandler: customErrorHandler,
	})

	// Middleware
	app.Use(recover.New())
	app.Use(logger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins:     getOrigins(),
		AllowHeaders:     "Origin, Content-Type, Accept, Authorization",
		AllowMethods:     "GET, POST, PUT, DELETE, OPTIONS",
		AllowCredentials: true,
	}))

	// Initialize repositories
	userRepo := postgres.NewUserRepository(db.DB)
	sessionRepo := postgres.NewUserSessionRepository(db.DB)
	noteRepo := postgres.NewNoteRepository(db.DB)
	auditLogRepo := postgres.NewAuditLogRepository(db.DB)

	// Initialize services
	auditService := audit.NewService(auditLogRepo)

	jwtSecret := cfg.Auth.JWTSecret
	if jwtSecret == "" {
		jwtSecret = "change-me-in-production" // Default for development
		logrus.Warn("Using default JWT secret. Set INKWELL_JWT_SECRET in production!")
	}
	authService := auth.NewService(userRepo, sessionRepo, jwtSecret)

	hub := events.NewHub()
	noteService := services.NewNoteService(noteRepo, hub)

	summarizer := buildSummarizer(cfg.Summarizer)
	provider := buildIdentityProvider(cfg.OAuth)

	renderer, err := web.NewRenderer()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load page templates")
	}

	// Setup routes
	api.SetupRoutes(app, api.Deps{
		Auth:       authService,
		Audit:      auditService,
		Notes:      noteService,
		Summarizer: summarizer,
		Identity:   provider,
		Hub:        hub,
		Renderer:   renderer,
	})

	// Start server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	logrus.WithField("addr", addr).Info("Inkwell backend starting")
	if err := app.Listen(addr); err != nil {
		logrus.WithError(err).Fatal("Failed to start server")
	}
}

// buildSummarizer selects the configured summarization backend. A missing
// API key yields a nil summarizer; the endpoint reports the configuration
// error per request instead of refusing to boot.
func buildSummarizer(cfg config.SummarizerConfig) summarize.Summarizer {
	var (
		s   summarize.Summarizer
		err error
	)
	switch cfg.Provider {
	case "openai":
		s, err = summarize.NewOpenAI(cfg)
	default:
		s, err = summarize.NewGemini(cfg)
	}
	if err != nil {
		if errors.Is(err, config.ErrMissingSummarizerKey) {
			logrus.Warn("No summarization API key configured; summarize endpoint will report errors")
			return nil
		}
		logrus.WithError(err).Fatal("Failed to initialize summarizer")
	}
	return s
}

// buildIdentityProvider wires the Google OAuth provider, or nil when the
// client credentials are absent.
func buildIdentityProvider(cfg config.OAuthConfig) identity.Provider {
	provider, err := identity.NewGoogleProvider(cfg)
	if err != nil {
		if errors.Is(err, identity.ErrNotConfigured) {
			logrus.Warn("Google OAuth not configured; provider login disabled")
			return nil
		}
		logrus.WithError(err).Fatal("Failed to initialize identity provider")
	}
	return provider
}

func customErrorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	return c.Status(code).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func getOrigins() string {
	origins := os.Getenv("INKWELL_CORS_ORIGINS")
	if origins == "" {
		return "http://localhost:8080,http://localhost:5173,http://localhost:3000"
	}
	return origins
}
