package handlers

import (
	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/api/middleware"
	"github.com/inkwell/inkwell-backend/internal/audit"
	"github.com/inkwell/inkwell-backend/internal/services"
)

// NoteRequest represents a note create/update payload
type NoteRequest struct {
	Title   string `json:"title"`
	Content string `json:"content"`
}

// NoteSummaryRequest represents a summary attachment payload
type NoteSummaryRequest struct {
	Summary string `json:"summary"`
}

// NoteHandlers bundles the note CRUD endpoints
type NoteHandlers struct {
	notes *services.NoteService
	audit *audit.Service
	log   *logrus.Entry
}

// NewNoteHandlers creates note handlers
func NewNoteHandlers(notes *services.NoteService, auditService *audit.Service) *NoteHandlers {
	return &NoteHandlers{
		notes: notes,
		audit: auditService,
		log:   logrus.WithField("component", "notes.api"),
	}
}

// ListNotes handles GET /api/v1/notes
func (h *NoteHandlers) ListNotes(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	notes, err := h.notes.List(c.Context(), userID)
	if err != nil {
		h.log.WithError(err).Error("failed to list notes")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch notes",
		})
	}

	return c.JSON(fiber.Map{"notes": notes})
}

// CreateNote handles POST /api/v1/notes
func (h *NoteHandlers) CreateNote(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	var req NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	note, err := h.notes.Create(c.Context(), userID, req.Title, req.Content)
	if err != nil {
		if err == services.ErrTitleRequired || err == services.ErrContentRequired {
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.WithError(err).Error("failed to create note")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to create note",
		})
	}

	h.auditNote(c, audit.EventNoteCreate, userID, note.ID)

	return c.Status(fiber.StatusCreated).JSON(note)
}

// GetNote handles GET /api/v1/notes/:id
func (h *NoteHandlers) GetNote(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	note, err := h.notes.Get(c.Context(), userID, noteID)
	if err != nil {
		if err == services.ErrNoteNotFound {
			return notFound(c)
		}
		h.log.WithError(err).Error("failed to get note")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to fetch note",
		})
	}

	return c.JSON(note)
}

// UpdateNote handles PUT /api/v1/notes/:id
func (h *NoteHandlers) UpdateNote(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	var req NoteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Invalid request body",
		})
	}

	note, err := h.notes.Update(c.Context(), userID, noteID, req.Title, req.Content)
	if err != nil {
		switch err {
		case services.ErrNoteNotFound:
			return notFound(c)
		case services.ErrTitleRequired, services.ErrContentRequired:
			return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
				"error": err.Error(),
			})
		}
		h.log.WithError(err).Error("failed to update note")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to update note",
		})
	}

	h.auditNote(c, audit.EventNoteUpdate, userID, noteID)

	return c.JSON(note)
}

// SetNoteSummary handles PUT /api/v1/notes/:id/summary
func (h *NoteHandlers) SetNoteSummary(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	var req NoteSummaryRequest
	if err := c.BodyParser(&req); err != nil || req.Summary == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{
			"error": "Summary is required",
		})
	}

	note, err := h.notes.AttachSummary(c.Context(), userID, noteID, req.Summary)
	if err != nil {
		if err == services.ErrNoteNotFound {
			return notFound(c)
		}
		h.log.WithError(err).Error("failed to attach summary")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to save summary",
		})
	}

	return c.JSON(note)
}

// DeleteNote handles DELETE /api/v1/notes/:id
func (h *NoteHandlers) DeleteNote(c *fiber.Ctx) error {
	userID, err := middleware.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return notFound(c)
	}

	if err := h.notes.Delete(c.Context(), userID, noteID); err != nil {
		if err == services.ErrNoteNotFound {
			return notFound(c)
		}
		h.log.WithError(err).Error("failed to delete note")
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Failed to delete note",
		})
	}

	h.auditNote(c, audit.EventNoteDelete, userID, noteID)

	return c.JSON(fiber.Map{"message": "Note deleted"})
}

func (h *NoteHandlers) auditNote(c *fiber.Ctx, eventType audit.EventType, userID, noteID uuid.UUID) {
	event := audit.NewEvent(eventType, &userID, c.IP(), c.Get("User-Agent"))
	event.Resource = "note"
	event.Result = "success"
	event.Metadata["note_id"] = noteID.String()
	h.audit.Log(c.Context(), event)
}

// notFound is the shared not-found response. Foreign note IDs resolve
// here too, so callers cannot probe for other users' notes.
func notFound(c *fiber.Ctx) error {
	return c.Status(fiber.StatusNotFound).JSON(fiber.Map{
		"error": "Note not found",
	})
}
