package middleware

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/inkwell/inkwell-backend/internal/auth"
	"github.com/inkwell/inkwell-backend/internal/models"
)

// AuthConfig holds the auth middleware configuration
type AuthConfig struct {
	AuthService *auth.Service
	// RedirectTo, when set, sends unauthenticated callers to this path
	// instead of answering 401. Used by page views, where a missing
	// session is a navigation concern rather than an API error.
	RedirectTo string
}

// AuthRequired creates a middleware that requires authentication and
// answers 401 JSON when it is missing
func AuthRequired(authService *auth.Service) fiber.Handler {
	return AuthMiddleware(AuthConfig{AuthService: authService})
}

// PageAuth creates a middleware for server-rendered pages: an absent or
// invalid session redirects to the landing page
func PageAuth(authService *auth.Service) fiber.Handler {
	return AuthMiddleware(AuthConfig{AuthService: authService, RedirectTo: "/"})
}

// AuthMiddleware is the main authentication middleware. It accepts the
// access token from the Authorization header or the session cookie.
func AuthMiddleware(config AuthConfig) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.ExtractTokenFromBearer(c.Get("Authorization"))
		if token == "" {
			token = c.Cookies("access_token")
		}

		if token == "" {
			return unauthenticated(c, config)
		}

		user, claims, err := config.AuthService.ValidateAccessToken(c.Context(), token)
		if err != nil {
			return unauthenticated(c, config)
		}

		storeUserContext(c, user)
		c.Locals("session_id", claims.SessionID)

		return c.Next()
	}
}

// OptionalAuth resolves the session when a token is present but lets
// anonymous requests through. The landing page uses it to bounce
// already-logged-in visitors to the dashboard.
func OptionalAuth(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := auth.ExtractTokenFromBearer(c.Get("Authorization"))
		if token == "" {
			token = c.Cookies("access_token")
		}

		if token != "" {
			if user, claims, err := authService.ValidateAccessToken(c.Context(), token); err == nil {
				storeUserContext(c, user)
				c.Locals("session_id", claims.SessionID)
			}
		}

		return c.Next()
	}
}

func unauthenticated(c *fiber.Ctx, config AuthConfig) error {
	if config.RedirectTo != "" {
		return c.Redirect(config.RedirectTo, fiber.StatusFound)
	}
	return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
		"error": "Authentication required",
	})
}

// storeUserContext stores user information in the fiber context
func storeUserContext(c *fiber.Ctx, user *models.User) {
	c.Locals("user_id", user.ID.String())
	c.Locals("user_email", user.Email)

	c.Locals("user_context", &models.UserContext{
		UserID:   user.ID,
		Username: user.Username,
		Email:    user.Email,
	})
}

// GetUserContext retrieves the user context from the fiber context
func GetUserContext(c *fiber.Ctx) *models.UserContext {
	if ctx := c.Locals("user_context"); ctx != nil {
		if userContext, ok := ctx.(*models.UserContext); ok {
			return userContext
		}
	}
	return nil
}

// GetUserID retrieves the user ID from the fiber context
func GetUserID(c *fiber.Ctx) (uuid.UUID, error) {
	if userID := c.Locals("user_id"); userID != nil {
		if id, ok := userID.(string); ok {
			return uuid.Parse(id)
		}
	}
	return uuid.Nil, fiber.NewError(fiber.StatusUnauthorized, "User not authenticated")
}

// IsAuthenticated checks if the request is authenticated
func IsAuthenticated(c *fiber.Ctx) bool {
	return c.Locals("user_id") != nil
}
