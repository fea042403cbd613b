package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/api/middleware"
	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/auth"
	"github.com/inkwell/inkwell-backend/internal/models"
)

// LoginRequest represents a login request
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// SignupRequest represents a signup request
type SignupRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
	FullName string `json:"full_name"`
}

// RefreshRequest represents a token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// UserResponse represents a user in API responses
type UserResponse struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	FullName      string    `json:"full_name"`
	AvatarURL     string    `json:"avatar_url"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
}

// SessionResponse represents a login/refresh response
type SessionResponse struct {
	User         *UserResponse `json:"user,omitempty"`
	AccessToken  string        `json:"access_token"`
	RefreshToken string        `json:"refresh_token"`
	ExpiresIn    int           `json:"expires_in"`
}

// SetSessionCookies installs a token pair as HTTPOnly cookies for web clients
func SetSessionCookies(c *fiber.Ctx, pair *auth.TokenPair) {
	c.Cookie(&fiber.Cookie{
		Name:     "access_token",
		Value:    pair.AccessToken,
		Expires:  time.Now().Add(auth.AccessTokenTTL),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})

	c.Cookie(&fiber.Cookie{
		Name:     "refresh_token",
		Value:    pair.RefreshToken,
		Expires:  time.Now().Add(auth.RefreshTokenTTL),
		HTTPOnly: true,
		Secure:   true,
		SameSite: "Lax",
	})
}

func clearSessionCookies(c *fiber.Ctx) {
	for _, name := range []string{"access_token", "refresh_token"} {
		c.Cookie(&fiber.Cookie{
			Name:     name,
			Value:    "",
			Expires:  time.Now().Add(-time.Hour),
			HTTPOnly: true,
			Secure:   true,
			SameSite: "Lax",
		})
	}
}

// Login handles user login
func Login(authService *auth.Service, auditService *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req LoginRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if req.Email == "" || req.Password == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Email and password are required",
			})
		}

		info := auth.RequestInfo{IPAddress: c.IP(), UserAgent: c.Get("User-Agent")}

		user, pair, err := authService.Login(c.Context(), req.Email, req.Password, info)
		if err != nil {
			logrus.WithError(err).WithField("email", req.Email).Info("login failed")

			// Don't reveal specific error to prevent user enumeration
			if err == auth.ErrInvalidCredentials || err == auth.ErrUserNotFound {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid email or password",
				})
			}
			if err == auth.ErrUserInactive {
				return c.Status(fiber.StatusForbidden).JSON(fiber.Map{
					"error": "Account is inactive",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Login failed",
			})
		}

		event := audit.NewEvent(audit.EventLogin, &user.ID, c.IP(), c.Get("User-Agent"))
		event.Resource = "auth"
		event.Result = "success"
		auditService.Log(c.Context(), event)

		SetSessionCookies(c, pair)

		return c.JSON(SessionResponse{
			User:         toUserResponse(user),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresIn:    int(auth.AccessTokenTTL.Seconds()),
		})
	}
}

// Signup handles user registration
func Signup(authService *auth.Service, auditService *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req SignupRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if err := auth.ValidatePassword(req.Password); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}

		// Use the local part of the email as the username
		username := req.Email
		if atIndex := strings.Index(req.Email, "@"); atIndex > 0 {
			username = req.Email[:atIndex]
		}

		user, err := authService.SignUp(c.Context(), req.Email, username, req.Password, req.FullName)
		if err != nil {
			if err == auth.ErrEmailAlreadyExists {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Email already registered",
				})
			}
			if err == auth.ErrUsernameAlreadyExists {
				return c.Status(fiber.StatusConflict).JSON(fiber.Map{
					"error": "Username already taken",
				})
			}
			logrus.WithError(err).Error("signup failed")
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Registration failed",
			})
		}

		event := audit.NewEvent(audit.EventSignup, &user.ID, c.IP(), c.Get("User-Agent"))
		event.Resource = "auth"
		event.Result = "success"
		auditService.Log(c.Context(), event)

		// Auto-login after signup
		info := auth.RequestInfo{IPAddress: c.IP(), UserAgent: c.Get("User-Agent")}
		_, pair, err := authService.Login(c.Context(), req.Email, req.Password, info)
		if err != nil {
			// User created but login failed - they can login manually
			return c.JSON(fiber.Map{
				"user":    toUserResponse(user),
				"message": "Registration successful. Please login.",
			})
		}

		SetSessionCookies(c, pair)

		return c.JSON(SessionResponse{
			User:         toUserResponse(user),
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresIn:    int(auth.AccessTokenTTL.Seconds()),
		})
	}
}

// RefreshToken handles token refresh
func RefreshToken(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		var req RefreshRequest
		c.BodyParser(&req)

		refreshToken := req.RefreshToken
		if refreshToken == "" {
			refreshToken = auth.ExtractTokenFromBearer(c.Get("Authorization"))
		}
		if refreshToken == "" {
			refreshToken = c.Cookies("refresh_token")
		}

		if refreshToken == "" {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Refresh token required",
			})
		}

		pair, err := authService.RefreshToken(c.Context(), refreshToken)
		if err != nil {
			if err == auth.ErrInvalidToken || err == auth.ErrExpiredToken || err == auth.ErrSessionExpired || err == auth.ErrSessionNotFound {
				return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
					"error": "Invalid or expired refresh token",
				})
			}
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Token refresh failed",
			})
		}

		SetSessionCookies(c, pair)

		return c.JSON(SessionResponse{
			AccessToken:  pair.AccessToken,
			RefreshToken: pair.RefreshToken,
			ExpiresIn:    int(auth.AccessTokenTTL.Seconds()),
		})
	}
}

// Logout handles user logout
func Logout(authService *auth.Service, auditService *audit.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if sessionID, ok := c.Locals("session_id").(string); ok && sessionID != "" {
			if err := authService.Logout(c.Context(), sessionID); err != nil {
				logrus.WithError(err).Warn("failed to revoke session on logout")
			}
		}

		if userCtx := middleware.GetUserContext(c); userCtx != nil {
			event := audit.NewEvent(audit.EventLogout, &userCtx.UserID, c.IP(), c.Get("User-Agent"))
			event.Resource = "auth"
			event.Result = "success"
			auditService.Log(c.Context(), event)
		}

		clearSessionCookies(c)

		return c.JSON(fiber.Map{
			"message": "Logged out successfully",
		})
	}
}

func toUserResponse(user *models.User) *UserResponse {
	return &UserResponse{
		ID:            user.ID.String(),
		Email:         user.Email,
		Username:      user.Username,
		FullName:      user.FullName,
		AvatarURL:     user.AvatarURL,
		EmailVerified: user.EmailVerified,
		CreatedAt:     user.CreatedAt,
	}
}

// GetCurrentUser returns the current authenticated user
func GetCurrentUser(authService *auth.Service) fiber.Handler {
	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)
		if userContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Not authenticated",
			})
		}

		user, err := authService.GetUser(c.Context(), userContext.UserID)
		if err != nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": "Failed to get user data",
			})
		}

		return c.JSON(toUserResponse(user))
	}
}
