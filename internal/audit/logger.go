package audit

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/inkwell/inkwell-backend/internal/models"
)

// EventType represents the type of audit event
type EventType string

const (
	EventLogin         EventType = "user.login"
	EventLogout        EventType = "user.logout"
	EventSignup        EventType = "user.signup"
	EventOAuthLogin    EventType = "user.oauth_login"
	EventNoteCreate    EventType = "note.create"
	EventNoteUpdate    EventType = "note.update"
	EventNoteDelete    EventType = "note.delete"
	EventNoteSummarize EventType = "note.summarize"
)

// Event represents an audit event
type Event struct {
	ID        uuid.UUID              `json:"id"`
	EventType EventType              `json:"event_type"`
	UserID    *uuid.UUID             `json:"user_id,omitempty"`
	IPAddress string                 `json:"ip_address,omitempty"`
	UserAgent string                 `json:"user_agent,omitempty"`
	Resource  string                 `json:"resource,omitempty"`
	Action    string                 `json:"action,omitempty"`
	Result    string                 `json:"result,omitempty"`
	Metadata  map[string]interface{} `json:"metadata,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// NewEvent creates an audit event with common fields populated
func NewEvent(eventType EventType, userID *uuid.UUID, ipAddress, userAgent string) *Event {
	return &Event{
		ID:        uuid.New(),
		EventType: eventType,
		UserID:    userID,
		IPAddress: ipAddress,
		UserAgent: userAgent,
		Metadata:  make(map[string]interface{}),
		CreatedAt: time.Now(),
	}
}

// Repository defines the interface for audit log persistence
type Repository interface {
	Log(ctx context.Context, log *models.AuditLog) error
	GetByUserID(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLog, error)
}

// Service records audit events
type Service struct {
	repo Repository
	log  *logrus.Entry
}

// NewService creates a new audit service
func NewService(repo Repository) *Service {
	return &Service{
		repo: repo,
		log:  logrus.WithField("component", "audit"),
	}
}

// Log records an audit event. Audit failures are logged but never fail
// the request that produced them.
func (s *Service) Log(ctx context.Context, event *Event) {
	entry := &models.AuditLog{
		ID:        event.ID,
		UserID:    event.UserID,
		Action:    string(event.EventType),
		IPAddress: event.IPAddress,
		UserAgent: event.UserAgent,
		Metadata:  models.JSONB(event.Metadata),
		Status:    event.Result,
		CreatedAt: event.CreatedAt,
	}
	entry.ResourceType = event.Resource

	if err := s.repo.Log(ctx, entry); err != nil {
		s.log.WithError(err).WithField("event", event.EventType).Warn("failed to write audit log")
	}
}

// GetUserEvents retrieves audit events for a specific user
func (s *Service) GetUserEvents(ctx context.Context, userID uuid.UUID, limit int) ([]*models.AuditLog, error) {
	return s.repo.GetByUserID(ctx, userID, limit)
}
