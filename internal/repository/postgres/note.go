package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/inkwell/inkwell-backend/internal/models"
)

// NoteRepository handles note data access. Every query is scoped by
// (note id, user id), so a note owned by someone else resolves to
// sql.ErrNoRows exactly like a missing one.
type NoteRepository struct {
	db *sqlx.DB
}

// NewNoteRepository creates a new note repository
func NewNoteRepository(db *sqlx.DB) *NoteRepository {
	return &NoteRepository{db: db}
}

// Create creates a new note
func (r *NoteRepository) Create(ctx context.Context, note *models.Note) error {
	query := `
		INSERT INTO notes (id, user_id, title, content, summary, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`

	_, err := r.db.ExecContext(ctx, query,
		note.ID, note.UserID, note.Title, note.Content, note.Summary,
		note.CreatedAt, note.UpdatedAt,
	)
	return err
}

// Get retrieves a note by ID, scoped to its owner
func (r *NoteRepository) Get(ctx context.Context, userID, id uuid.UUID) (*models.Note, error) {
	var note models.Note
	query := `
		SELECT id, user_id, title, content, summary, created_at, updated_at
		FROM notes
		WHERE id = $1 AND user_id = $2`

	err := r.db.GetContext(ctx, &note, query, id, userID)
	if err != nil {
		return nil, err
	}
	return &note, nil
}

// List retrieves all of a user's notes, most recently updated first
func (r *NoteRepository) List(ctx context.Context, userID uuid.UUID) ([]*models.Note, error) {
	var notes []*models.Note
	query := `
		SELECT id, user_id, title, content, summary, created_at, updated_at
		FROM notes
		WHERE user_id = $1
		ORDER BY updated_at DESC`

	err := r.db.SelectContext(ctx, &notes, query, userID)
	if err != nil {
		return nil, err
	}
	return notes, nil
}

// Update updates a note's title and content, scoped to its owner.
// Returns the number of rows affected so callers can distinguish a
// missing (or foreign) note.
func (r *NoteRepository) Update(ctx context.Context, note *models.Note) (int64, error) {
	query := `
		UPDATE notes SET
			title = $3,
			content = $4,
			updated_at = $5
		WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query,
		note.ID, note.UserID, note.Title, note.Content, time.Now(),
	)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// SetSummary stores a generated summary on a note, scoped to its owner
func (r *NoteRepository) SetSummary(ctx context.Context, userID, id uuid.UUID, summary string) (int64, error) {
	query := `
		UPDATE notes SET
			summary = $3,
			updated_at = $4
		WHERE id = $1 AND user_id = $2`

	result, err := r.db.ExecContext(ctx, query, id, userID, summary, time.Now())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

// Delete deletes a note, scoped to its owner
func (r *NoteRepository) Delete(ctx context.Context, userID, id uuid.UUID) (int64, error) {
	query := `DELETE FROM notes WHERE id = $1 AND user_id = $2`
	result, err := r.db.ExecContext(ctx, query, id, userID)
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
