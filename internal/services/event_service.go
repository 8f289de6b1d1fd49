package services

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
	"github.com/isdelr/uptask-be/internal/websocket"
)

// Activity event types.
const (
	EventProjectUpdate = "project.update"
	EventTaskCreate    = "task.create"
	EventTaskUpdate    = "task.update"
	EventTaskDelete    = "task.delete"
	EventTaskStatus    = "task.status"
	EventTeamAdd       = "team.add"
	EventTeamRemove    = "team.remove"
	EventNoteCreate    = "note.create"
	EventNoteDelete    = "note.delete"
)

// DefaultActivityLimit is how many events GetRecentEvents returns when no
// limit is given.
const DefaultActivityLimit = 20

const maxActivityLimit = 100

// EventServiceProvider defines the interface for project activity.
type EventServiceProvider interface {
	Record(ctx context.Context, projectID, userID, eventType, message string)
	GetRecentEvents(ctx context.Context, projectID string, limit int) ([]models.Event, error)
	Revoke(projectID, userID string)
}

// Broadcaster pushes encoded messages to the subscribers of a project.
type Broadcaster interface {
	BroadcastTo(projectID string, message []byte)
	// Evict disconnects userID from projectID, or every subscriber of
	// projectID when userID is empty.
	Evict(projectID, userID string)
}

// EventService persists project activity and fans it out to websocket
// subscribers.
type EventService struct {
	store store.Store
	hub   Broadcaster
}

// NewEventService creates a new EventService. hub may be nil.
func NewEventService(s store.Store, hub Broadcaster) *EventService {
	return &EventService{store: s, hub: hub}
}

// Record stores an activity entry and broadcasts it. Failures are logged,
// never returned: activity must not fail the change it describes.
func (s *EventService) Record(ctx context.Context, projectID, userID, eventType, message string) {
	event := models.Event{
		ID:        uuid.New().String(),
		ProjectID: projectID,
		UserID:    userID,
		Type:      eventType,
		Message:   message,
		CreatedAt: time.Now().UTC(),
	}

	if err := s.store.CreateEvent(context.WithoutCancel(ctx), event); err != nil {
		log.Ctx(ctx).Error().Err(err).Str("project_id", projectID).Str("type", eventType).Msg("Failed to record activity")
		return
	}
	if s.hub != nil {
		s.hub.BroadcastTo(projectID, websocket.NewActivityMessage(event))
	}
}

// Revoke ends the live feed of userID on projectID. An empty userID ends it
// for everyone, as when the project is deleted.
func (s *EventService) Revoke(projectID, userID string) {
	if s.hub != nil {
		s.hub.Evict(projectID, userID)
	}
}

// GetRecentEvents returns the latest activity of a project, newest first.
func (s *EventService) GetRecentEvents(ctx context.Context, projectID string, limit int) ([]models.Event, error) {
	if limit <= 0 {
		limit = DefaultActivityLimit
	}
	limit = min(limit, maxActivityLimit)

	events, err := s.store.ListEvents(ctx, projectID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing activity of %s: %w", projectID, err)
	}
	return events, nil
}
