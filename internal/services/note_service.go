package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

// NoteServiceProvider defines the interface for task note services.
type NoteServiceProvider interface {
	CreateNote(ctx context.Context, actorID string, task models.Task, content string) (models.Note, error)
	GetTaskNotes(ctx context.Context, task models.Task) ([]models.NoteView, error)
	DeleteNote(ctx context.Context, actorID string, task models.Task, noteID string) error
}

// NoteService provides business logic for task notes.
type NoteService struct {
	store  store.Store
	events EventServiceProvider
}

// NewNoteService creates a new NoteService.
func NewNoteService(s store.Store, events EventServiceProvider) *NoteService {
	return &NoteService{store: s, events: events}
}

// CreateNote attaches a note written by actorID to task.
func (s *NoteService) CreateNote(ctx context.Context, actorID string, task models.Task, content string) (models.Note, error) {
	note := models.Note{
		ID:        uuid.New().String(),
		Content:   strings.TrimSpace(content),
		CreatedBy: actorID,
		Task:      task.ID,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.store.CreateNote(ctx, note); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Note{}, newError(KindNotFound, "Tarea no encontrada")
		}
		return models.Note{}, fmt.Errorf("creating note: %w", err)
	}
	s.events.Record(ctx, task.Project, actorID, EventNoteCreate, fmt.Sprintf("Nota agregada a %s", task.TaskName))
	return note, nil
}

// GetTaskNotes returns the notes of task with their authors.
func (s *NoteService) GetTaskNotes(ctx context.Context, task models.Task) ([]models.NoteView, error) {
	notes, err := s.store.ListNotesByTask(ctx, task.ID)
	if err != nil {
		return nil, fmt.Errorf("listing notes of %s: %w", task.ID, err)
	}
	return noteViews(ctx, s.store, notes)
}

// DeleteNote removes a note of task. Only its author may delete it.
func (s *NoteService) DeleteNote(ctx context.Context, actorID string, task models.Task, noteID string) error {
	note, err := s.store.GetNoteByID(ctx, noteID)
	if errors.Is(err, store.ErrNotFound) || (err == nil && note.Task != task.ID) {
		return newError(KindNotFound, "Nota no encontrada")
	}
	if err != nil {
		return fmt.Errorf("loading note %s: %w", noteID, err)
	}
	if note.CreatedBy != actorID {
		return newError(KindForbidden, "Acción no válida")
	}

	err = s.store.DeleteNote(ctx, task.ID, note.ID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Nota no encontrada")
	}
	if err != nil {
		return fmt.Errorf("deleting note %s: %w", noteID, err)
	}
	s.events.Record(ctx, task.Project, actorID, EventNoteDelete, fmt.Sprintf("Nota eliminada de %s", task.TaskName))
	return nil
}
