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

// TaskInput carries the editable fields of a task.
type TaskInput struct {
	TaskName    string `json:"taskName" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
}

// TaskServiceProvider defines the interface for task services.
type TaskServiceProvider interface {
	CreateTask(ctx context.Context, actorID string, project models.Project, in TaskInput) (models.Task, error)
	GetAllTasks(ctx context.Context, project models.Project) ([]models.TaskListItem, error)
	LoadTask(ctx context.Context, project models.Project, taskID string) (models.Task, error)
	GetTaskDetail(ctx context.Context, task models.Task) (models.TaskDetail, error)
	UpdateTask(ctx context.Context, actorID string, project models.Project, task models.Task, in TaskInput) error
	DeleteTask(ctx context.Context, actorID string, project models.Project, task models.Task) error
	UpdateTaskStatus(ctx context.Context, actorID string, task models.Task, status models.TaskStatus) error
}

// TaskService provides business logic for task management.
type TaskService struct {
	store  store.Store
	events EventServiceProvider
}

// NewTaskService creates a new TaskService.
func NewTaskService(s store.Store, events EventServiceProvider) *TaskService {
	return &TaskService{store: s, events: events}
}

// CreateTask adds a pending task to project.
func (s *TaskService) CreateTask(ctx context.Context, actorID string, project models.Project, in TaskInput) (models.Task, error) {
	if err := requireManager(project, actorID); err != nil {
		return models.Task{}, err
	}
	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.New().String(),
		TaskName:    strings.TrimSpace(in.TaskName),
		Description: strings.TrimSpace(in.Description),
		Project:     project.ID,
		Status:      models.StatusPending,
		CompletedBy: []models.StatusChange{},
		Notes:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateTask(ctx, task); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.Task{}, newError(KindNotFound, "Proyecto no encontrado")
		}
		return models.Task{}, fmt.Errorf("creating task: %w", err)
	}
	s.events.Record(ctx, project.ID, actorID, EventTaskCreate, fmt.Sprintf("Tarea creada: %s", task.TaskName))
	return task, nil
}

// GetAllTasks returns the tasks of project with the project summarized.
func (s *TaskService) GetAllTasks(ctx context.Context, project models.Project) ([]models.TaskListItem, error) {
	tasks, err := s.store.ListTasksByProject(ctx, project.ID)
	if err != nil {
		return nil, fmt.Errorf("listing tasks of %s: %w", project.ID, err)
	}
	summary := project.Summary()
	items := make([]models.TaskListItem, len(tasks))
	for i, t := range tasks {
		items[i] = models.TaskListItem{Task: t, Project: summary}
	}
	return items, nil
}

// LoadTask returns the task if it belongs to project.
func (s *TaskService) LoadTask(ctx context.Context, project models.Project, taskID string) (models.Task, error) {
	task, err := s.store.GetTaskByID(ctx, taskID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Task{}, newError(KindNotFound, "Tarea no encontrada")
	}
	if err != nil {
		return models.Task{}, fmt.Errorf("loading task %s: %w", taskID, err)
	}
	if task.Project != project.ID {
		return models.Task{}, newError(KindNotFound, "Tarea no encontrada")
	}
	return task, nil
}

// GetTaskDetail populates the status history users and the notes of task.
func (s *TaskService) GetTaskDetail(ctx context.Context, task models.Task) (models.TaskDetail, error) {
	ids := make([]string, len(task.CompletedBy))
	for i, c := range task.CompletedBy {
		ids[i] = c.User
	}
	users, err := userSummaries(ctx, s.store, ids)
	if err != nil {
		return models.TaskDetail{}, err
	}
	history := make([]models.StatusChangeView, len(task.CompletedBy))
	for i, c := range task.CompletedBy {
		history[i] = models.StatusChangeView{
			User:      summaryRef(users, c.User),
			Status:    c.Status,
			CreatedAt: c.CreatedAt,
		}
	}

	notes, err := s.store.ListNotesByTask(ctx, task.ID)
	if err != nil {
		return models.TaskDetail{}, fmt.Errorf("listing notes of %s: %w", task.ID, err)
	}
	views, err := noteViews(ctx, s.store, notes)
	if err != nil {
		return models.TaskDetail{}, err
	}
	return models.TaskDetail{Task: task, CompletedBy: history, Notes: views}, nil
}

// UpdateTask replaces the name and description of task.
func (s *TaskService) UpdateTask(ctx context.Context, actorID string, project models.Project, task models.Task, in TaskInput) error {
	if err := requireManager(project, actorID); err != nil {
		return err
	}
	name := strings.TrimSpace(in.TaskName)
	err := s.store.UpdateTask(ctx, task.ID, name, strings.TrimSpace(in.Description))
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Tarea no encontrada")
	}
	if err != nil {
		return fmt.Errorf("updating task %s: %w", task.ID, err)
	}
	s.events.Record(ctx, project.ID, actorID, EventTaskUpdate, fmt.Sprintf("Tarea actualizada: %s", name))
	return nil
}

// DeleteTask removes task and its notes from project.
func (s *TaskService) DeleteTask(ctx context.Context, actorID string, project models.Project, task models.Task) error {
	if err := requireManager(project, actorID); err != nil {
		return err
	}
	err := s.store.DeleteTaskCascade(ctx, project.ID, task.ID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Tarea no encontrada")
	}
	if err != nil {
		return fmt.Errorf("deleting task %s: %w", task.ID, err)
	}
	s.events.Record(ctx, project.ID, actorID, EventTaskDelete, fmt.Sprintf("Tarea eliminada: %s", task.TaskName))
	return nil
}

// UpdateTaskStatus moves task to status and records who did it.
func (s *TaskService) UpdateTaskStatus(ctx context.Context, actorID string, task models.Task, status models.TaskStatus) error {
	if !status.Valid() {
		return newError(KindInvalid, "Estado no válido")
	}
	change := models.StatusChange{User: actorID, Status: status, CreatedAt: time.Now().UTC()}
	err := s.store.AppendTaskStatus(ctx, task.ID, change)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Tarea no encontrada")
	}
	if err != nil {
		return fmt.Errorf("updating status of task %s: %w", task.ID, err)
	}
	s.events.Record(ctx, task.Project, actorID, EventTaskStatus,
		fmt.Sprintf("Tarea %s movida a %s", task.TaskName, status))
	return nil
}
