package models

import (
	"time"

	"github.com/google/uuid"
)

// Note is a user-owned text note with an optional AI-generated summary.
// Every read and write is scoped by (ID, UserID); a note belonging to
// another user is indistinguishable from a nonexistent one.
type Note struct {
	ID        uuid.UUID `json:"id" db:"id"`
	UserID    uuid.UUID `json:"user_id" db:"user_id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	Summary   *string   `json:"summary" db:"summary"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
