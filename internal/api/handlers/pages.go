package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/api/middleware"
	"github.com/inkwell/inkwell-backend/internal/services"
	"github.com/inkwell/inkwell-backend/internal/web"
)

// landingErrors maps callback error kinds to the message shown on the
// landing page banner
var landingErrors = map[string]string{
	errKindCodeExchange:        "Could not complete the login with your identity provider.",
	errKindToken:               "The login tokens could not be verified.",
	errKindNoAuthCode:          "The login response was missing its credentials. Please try again.",
	errKindAuth:                "Login failed. Please try again.",
	errKindNoSession:           "Your session could not be established. Please try again.",
	errKindSessionVerification: "Your session could not be verified. Please try again.",
	errKindUnexpected:          "Something went wrong during login. Please try again.",
}

// Pages serves the server-rendered HTML views
type Pages struct {
	renderer *web.Renderer
	notes    *services.NoteService
	log      *logrus.Entry
}

// NewPages creates the page handlers
func NewPages(renderer *web.Renderer, notes *services.NoteService) *Pages {
	return &Pages{
		renderer: renderer,
		notes:    notes,
		log:      logrus.WithField("component", "pages"),
	}
}

// Landing renders the login page. Authenticated visitors are sent
// straight to the dashboard.
func (p *Pages) Landing(c *fiber.Ctx) error {
	if middleware.IsAuthenticated(c) {
		return c.Redirect("/dashboard", fiber.StatusFound)
	}

	data := fiber.Map{}
	if kind := c.Query("error"); kind != "" {
		message, ok := landingErrors[kind]
		if !ok {
			message = landingErrors[errKindUnexpected]
		}
		data["ErrorMessage"] = message
		data["ErrorDetails"] = c.Query("details")
	}

	return p.renderer.Render(c, "landing.html", data)
}

// Dashboard renders the authenticated note list
func (p *Pages) Dashboard(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Redirect("/", fiber.StatusFound)
	}

	notes, err := p.notes.List(c.Context(), userID)
	if err != nil {
		p.log.WithError(err).Error("failed to load dashboard notes")
		return fiber.ErrInternalServerError
	}

	return p.renderer.Render(c, "dashboard.html", fiber.Map{"Notes": notes})
}

// NoteView renders a single note
func (p *Pages) NoteView(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Redirect("/", fiber.StatusFound)
	}

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrNotFound
	}

	note, err := p.notes.Get(c.Context(), userID, noteID)
	if err != nil {
		if err == services.ErrNoteNotFound {
			return fiber.ErrNotFound
		}
		p.log.WithError(err).Error("failed to load note page")
		return fiber.ErrInternalServerError
	}

	return p.renderer.Render(c, "note.html", fiber.Map{"Note": note})
}

// NoteNew renders the empty note form
func (p *Pages) NoteNew(c *fiber.Ctx) error {
	return p.renderer.Render(c, "note_form.html", fiber.Map{})
}

// NoteEdit renders the note form pre-filled with an existing note
func (p *Pages) NoteEdit(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return c.Redirect("/", fiber.StatusFound)
	}

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return fiber.ErrNotFound
	}

	note, err := p.notes.Get(c.Context(), userID, noteID)
	if err != nil {
		if err == services.ErrNoteNotFound {
			return fiber.ErrNotFound
		}
		p.log.WithError(err).Error("failed to load note for editing")
		return fiber.ErrInternalServerError
	}

	return p.renderer.Render(c, "note_form.html", fiber.Map{"Note": note})
}
