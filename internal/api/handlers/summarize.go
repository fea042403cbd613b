package handlers

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/api/middleware"
	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/config"
	"github.com/inkwell/inkwell-backend/internal/summarize"
)

// SummarizeRequest represents a summarization request
type SummarizeRequest struct {
	Text     string `json:"text"`
	ForceNew bool   `json:"forceNew"`
}

// SummarizeResponse represents a successful summarization
type SummarizeResponse struct {
	Summary string `json:"summary"`
}

// Summarize proxies free text to the external summarization API. The
// summarizer may be nil when no API credential is configured; that is
// reported as a configuration error, distinct from upstream failures.
func Summarize(summarizer summarize.Summarizer, auditService *audit.Service) fiber.Handler {
	log := logrus.WithField("component", "summarize")

	return func(c *fiber.Ctx) error {
		userContext := middleware.GetUserContext(c)
		if userContext == nil {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Unauthorized",
			})
		}

		var req SummarizeRequest
		if err := c.BodyParser(&req); err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Invalid request body",
			})
		}

		if len(strings.TrimSpace(req.Text)) < summarize.MinTextLength {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": "Text is too short for summarization",
			})
		}

		if summarizer == nil {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": config.ErrMissingSummarizerKey.Error(),
			})
		}

		summary, err := summarizer.Summarize(c.Context(), summarize.Request{
			Text:     req.Text,
			ForceNew: req.ForceNew,
		})
		if err != nil {
			var upstream *summarize.UpstreamError
			switch {
			case errors.As(err, &upstream):
				log.WithField("status", upstream.Status).Error("summarization upstream error")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": fmt.Sprintf("Summarization API error: %d", upstream.Status),
				})
			case errors.Is(err, summarize.ErrInvalidResponse):
				log.Error("summarization API returned malformed response")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": "Received invalid response from summarization API",
				})
			default:
				log.WithError(err).Error("summarization request failed")
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error": fmt.Sprintf("Summarization request failed: %v", err),
				})
			}
		}

		event := audit.NewEvent(audit.EventNoteSummarize, &userContext.UserID, c.IP(), c.Get("User-Agent"))
		event.Resource = "summarize"
		event.Result = "success"
		auditService.Log(c.Context(), event)

		// Summaries are intentionally non-deterministic when forceNew is
		// set; keep intermediaries from serving a cached one.
		c.Set("Cache-Control", "no-store, max-age=0")
		c.Set("Pragma", "no-cache")
		c.Set("Expires", "0")

		return c.JSON(SummarizeResponse{Summary: summary})
	}
}
