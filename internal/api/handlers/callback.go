package handlers

import (
	"fmt"
	"net/url"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/auth"
	"github.com/inkwell/inkwell-backend/internal/identity"
)

// Auth callback error kinds surfaced in the landing page redirect.
const (
	errKindCodeExchange        = "code_exchange_error"
	errKindToken               = "token_error"
	errKindNoAuthCode          = "no_auth_code"
	errKindAuth                = "auth_error"
	errKindNoSession           = "no_session_established"
	errKindSessionVerification = "session_verification_error"
	errKindUnexpected          = "unexpected"
)

// OAuthLogin starts the provider login flow by redirecting to the
// provider's authorization URL
func OAuthLogin(provider identity.Provider) fiber.Handler {
	return func(c *fiber.Ctx) error {
		if provider == nil {
			return redirectWithError(c, errKindCodeExchange, identity.ErrNotConfigured.Error())
		}
		state := uuid.New().String()
		c.Cookie(&fiber.Cookie{
			Name:     "oauth_state",
			Value:    state,
			HTTPOnly: true,
			Secure:   true,
			SameSite: "Lax",
		})
		return c.Redirect(provider.AuthCodeURL(state), fiber.StatusFound)
	}
}

// AuthCallback completes a login handshake. It accepts exactly one of two
// credential delivery modes: an authorization code from the identity
// provider, or an access/refresh token pair relayed from a URL fragment
// by the client-side shim. It never renders a body; every outcome is a
// redirect, to /dashboard on success or to the landing page with a
// structured error otherwise.
func AuthCallback(authService *auth.Service, provider identity.Provider, auditService *audit.Service) fiber.Handler {
	log := logrus.WithField("component", "auth.callback")

	return func(c *fiber.Ctx) (err error) {
		// The callback never answers with a body, so even a panic has to
		// become a landing-page redirect rather than the app-level JSON
		// error response.
		defer func() {
			if r := recover(); r != nil {
				log.WithField("panic", r).Error("unexpected error in auth callback")
				err = redirectWithError(c, errKindUnexpected, fmt.Sprint(r))
			}
		}()

		code := c.Query("code")
		accessToken := c.Query("access_token")
		refreshToken := c.Query("refresh_token")

		info := auth.RequestInfo{IPAddress: c.IP(), UserAgent: c.Get("User-Agent")}

		var pair *auth.TokenPair

		switch {
		case code != "":
			log.Debug("processing authorization code exchange")

			if provider == nil {
				return redirectWithError(c, errKindCodeExchange, identity.ErrNotConfigured.Error())
			}

			tokens, err := provider.ExchangeCode(c.Context(), code)
			if err != nil {
				log.WithError(err).Error("code exchange failed")
				return redirectWithError(c, errKindCodeExchange, err.Error())
			}

			ident, err := provider.UserInfo(c.Context(), tokens.AccessToken)
			if err != nil {
				log.WithError(err).Error("identity lookup failed")
				return redirectWithError(c, errKindAuth, err.Error())
			}

			user, sessionPair, err := authService.LoginExternal(c.Context(), ident, info)
			if err != nil {
				log.WithError(err).Error("external login failed")
				return redirectWithError(c, errKindAuth, err.Error())
			}
			pair = sessionPair

			event := audit.NewEvent(audit.EventOAuthLogin, &user.ID, c.IP(), c.Get("User-Agent"))
			event.Resource = "auth"
			event.Result = "success"
			event.Metadata["provider"] = ident.Provider
			auditService.Log(c.Context(), event)

		case accessToken != "":
			log.Debug("processing relayed token pair")

			if _, err := authService.InstallSession(c.Context(), accessToken, refreshToken); err != nil {
				log.WithError(err).Error("token install failed")
				return redirectWithError(c, errKindToken, err.Error())
			}
			pair = &auth.TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}

		default:
			log.Warn("callback received neither code nor access token")
			return redirectWithError(c, errKindNoAuthCode, "")
		}

		SetSessionCookies(c, pair)

		// Re-check that the credentials we just installed actually map to
		// a live session. Token validation above can pass on claims alone;
		// this round trip confirms the session row is really there.
		user, _, err := authService.ValidateAccessToken(c.Context(), pair.AccessToken)
		if err != nil {
			clearSessionCookies(c)
			if err == auth.ErrSessionNotFound || err == auth.ErrSessionExpired {
				log.WithError(err).Error("session not established after auth")
				return redirectWithError(c, errKindNoSession, "")
			}
			log.WithError(err).Error("session verification failed")
			return redirectWithError(c, errKindSessionVerification, err.Error())
		}

		log.WithField("user_id", user.ID).Info("auth callback succeeded")
		return c.Redirect("/dashboard", fiber.StatusFound)
	}
}

func redirectWithError(c *fiber.Ctx, kind, details string) error {
	target := "/?error=" + url.QueryEscape(kind)
	if details != "" {
		target += "&details=" + url.QueryEscape(details)
	}
	return c.Redirect(target, fiber.StatusFound)
}
