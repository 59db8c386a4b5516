package services

import (
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/nliest/converse-be/internal/models"
)

// EventServiceProvider defines the interface for event services.
type EventServiceProvider interface {
	CreateEvent(eventType, level, message string, conversationID *string) error
	GetRecentEvents(limit int) ([]models.Event, error)
	HasEventSince(eventType, conversationID string, since time.Time) (bool, error)
}

// EventService records an audit trail of notable actions and alerts.
type EventService struct {
	db *sql.DB
}

// NewEventService creates a new EventService.
func NewEventService(db *sql.DB) *EventService {
	return &EventService{db: db}
}

// CreateEvent logs a new event to the database.
func (s *EventService) CreateEvent(eventType, level, message string, conversationID *string) error {
	event := models.Event{
		ID:             uuid.New().String(),
		Type:           eventType,
		Level:          level,
		Message:        message,
		ConversationID: conversationID,
		CreatedAt:      time.Now().UTC(),
	}

	stmt, err := s.db.Prepare("INSERT INTO events (id, type, level, message, conversation_id, created_at) VALUES (?, ?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	_, err = stmt.Exec(event.ID, event.Type, event.Level, event.Message, event.ConversationID, event.CreatedAt)
	return err
}

// HasEventSince reports whether an event of the given type was recorded for
// the conversation after the given time.
func (s *EventService) HasEventSince(eventType, conversationID string, since time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(
		"SELECT COUNT(*) FROM events WHERE type = ? AND conversation_id = ? AND created_at > ?",
		eventType, conversationID, since,
	).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// GetRecentEvents retrieves the most recent events from the database.
func (s *EventService) GetRecentEvents(limit int) ([]models.Event, error) {
	rows, err := s.db.Query("SELECT id, type, level, message, conversation_id, created_at FROM events ORDER BY created_at DESC LIMIT ?", limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.Type, &event.Level, &event.Message, &event.ConversationID, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}
