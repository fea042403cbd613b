package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/events"
	"github.com/inkwell/inkwell-backend/internal/models"
)

var (
	// ErrNoteNotFound covers both a nonexistent note and a note owned by
	// another user; callers cannot tell the difference.
	ErrNoteNotFound = errors.New("note not found")
	// ErrTitleRequired is returned when a note's title is empty
	ErrTitleRequired = errors.New("title is required")
	// ErrContentRequired is returned when a note's content is empty
	ErrContentRequired = errors.New("content is required")
)

// NoteRepository defines the interface for note data access. All
// operations are scoped by the owning user.
type NoteRepository interface {
	Create(ctx context.Context, note *models.Note) error
	Get(ctx context.Context, userID, id uuid.UUID) (*models.Note, error)
	List(ctx context.Context, userID uuid.UUID) ([]*models.Note, error)
	Update(ctx context.Context, note *models.Note) (int64, error)
	SetSummary(ctx context.Context, userID, id uuid.UUID, summary string) (int64, error)
	Delete(ctx context.Context, userID, id uuid.UUID) (int64, error)
}

// NoteService implements note CRUD with per-user scoping. Mutations
// publish change events so connected clients can refetch.
type NoteService struct {
	repo NoteRepository
	hub  *events.Hub
	log  *logrus.Entry
}

// NewNoteService creates a new note service
func NewNoteService(repo NoteRepository, hub *events.Hub) *NoteService {
	return &NoteService{
		repo: repo,
		hub:  hub,
		log:  logrus.WithField("component", "notes"),
	}
}

// Create creates a note for a user
func (s *NoteService) Create(ctx context.Context, userID uuid.UUID, title, content string) (*models.Note, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}

	note := &models.Note{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Content:   content,
		CreatedAt: time.Now(),
		UpdatedAt: time.Now(),
	}

	if err := s.repo.Create(ctx, note); err != nil {
		return nil, err
	}

	s.publish(userID, events.NoteCreated, note.ID)
	return note, nil
}

// Get retrieves one of the user's notes
func (s *NoteService) Get(ctx context.Context, userID, id uuid.UUID) (*models.Note, error) {
	note, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNoteNotFound
		}
		return nil, err
	}
	return note, nil
}

// List retrieves all of the user's notes, most recently updated first
func (s *NoteService) List(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
	notes, err := s.repo.List(ctx, userID)
	if err != nil {
		return nil, err
	}
	if notes == nil {
		notes = []*models.Note{}
	}
	return notes, nil
}

// Update replaces a note's title and content
func (s *NoteService) Update(ctx context.Context, userID, id uuid.UUID, title, content string) (*models.Note, error) {
	if strings.TrimSpace(title) == "" {
		return nil, ErrTitleRequired
	}
	if strings.TrimSpace(content) == "" {
		return nil, ErrContentRequired
	}

	note := &models.Note{
		ID:      id,
		UserID:  userID,
		Title:   title,
		Content: content,
	}

	affected, err := s.repo.Update(ctx, note)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNoteNotFound
	}

	s.publish(userID, events.NoteUpdated, id)
	return s.Get(ctx, userID, id)
}

// AttachSummary persists a generated summary on a note. Summaries are
// stored as soon as they are generated rather than waiting for the next
// explicit save.
func (s *NoteService) AttachSummary(ctx context.Context, userID, id uuid.UUID, summary string) (*models.Note, error) {
	if strings.TrimSpace(summary) == "" {
		return nil, errors.New("summary is empty")
	}

	affected, err := s.repo.SetSummary(ctx, userID, id, summary)
	if err != nil {
		return nil, err
	}
	if affected == 0 {
		return nil, ErrNoteNotFound
	}

	s.publish(userID, events.NoteUpdated, id)
	return s.Get(ctx, userID, id)
}

// Delete removes one of the user's notes
func (s *NoteService) Delete(ctx context.Context, userID, id uuid.UUID) error {
	affected, err := s.repo.Delete(ctx, userID, id)
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNoteNotFound
	}

	s.publish(userID, events.NoteDeleted, id)
	return nil
}

func (s *NoteService) publish(userID uuid.UUID, eventType string, noteID uuid.UUID) {
	if s.hub == nil {
		return
	}
	s.hub.Publish(userID, events.Event{Type: eventType, NoteID: noteID.String()})
}
