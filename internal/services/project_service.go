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

// ProjectInput carries the editable fields of a project.
type ProjectInput struct {
	ProjectName string `json:"projectName" validate:"required,notblank"`
	ClientName  string `json:"clientName" validate:"required,notblank"`
	Description string `json:"description" validate:"required,notblank"`
}

func (in ProjectInput) trimmed() ProjectInput {
	return ProjectInput{
		ProjectName: strings.TrimSpace(in.ProjectName),
		ClientName:  strings.TrimSpace(in.ClientName),
		Description: strings.TrimSpace(in.Description),
	}
}

// ProjectServiceProvider defines the interface for project services.
type ProjectServiceProvider interface {
	CreateProject(ctx context.Context, managerID string, in ProjectInput) (models.Project, error)
	GetAllProjects(ctx context.Context, userID string) ([]models.Project, error)
	LoadProject(ctx context.Context, userID, projectID string) (models.Project, error)
	GetProjectDetail(ctx context.Context, project models.Project) (models.ProjectDetail, error)
	UpdateProject(ctx context.Context, actorID string, project models.Project, in ProjectInput) error
	DeleteProject(ctx context.Context, actorID string, project models.Project) error
	DuplicateProject(ctx context.Context, actorID string, project models.Project) (models.Project, error)
}

// ProjectService provides business logic for project management.
type ProjectService struct {
	store  store.Store
	events EventServiceProvider
}

// NewProjectService creates a new ProjectService.
func NewProjectService(s store.Store, events EventServiceProvider) *ProjectService {
	return &ProjectService{store: s, events: events}
}

// CreateProject stores a new project managed by managerID.
func (s *ProjectService) CreateProject(ctx context.Context, managerID string, in ProjectInput) (models.Project, error) {
	in = in.trimmed()
	now := time.Now().UTC()
	project := models.Project{
		ID:          uuid.New().String(),
		ProjectName: in.ProjectName,
		ClientName:  in.ClientName,
		Description: in.Description,
		Manager:     managerID,
		Team:        []string{},
		Tasks:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, project); err != nil {
		return models.Project{}, fmt.Errorf("creating project: %w", err)
	}
	return project, nil
}

// GetAllProjects returns the projects userID manages or belongs to.
func (s *ProjectService) GetAllProjects(ctx context.Context, userID string) ([]models.Project, error) {
	projects, err := s.store.ListProjectsForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing projects: %w", err)
	}
	return projects, nil
}

// LoadProject returns the project if userID may read it.
func (s *ProjectService) LoadProject(ctx context.Context, userID, projectID string) (models.Project, error) {
	project, err := s.store.GetProjectByID(ctx, projectID)
	if errors.Is(err, store.ErrNotFound) {
		return models.Project{}, newError(KindNotFound, "Proyecto no encontrado")
	}
	if err != nil {
		return models.Project{}, fmt.Errorf("loading project %s: %w", projectID, err)
	}
	if !project.CanRead(userID) {
		return models.Project{}, newError(KindForbidden, "Acción no válida")
	}
	return project, nil
}

// GetProjectDetail populates the task list of project.
func (s *ProjectService) GetProjectDetail(ctx context.Context, project models.Project) (models.ProjectDetail, error) {
	tasks, err := s.store.ListTasksByProject(ctx, project.ID)
	if err != nil {
		return models.ProjectDetail{}, fmt.Errorf("listing tasks of %s: %w", project.ID, err)
	}
	return models.ProjectDetail{Project: project, Tasks: orderTasks(project.Tasks, tasks)}, nil
}

// UpdateProject replaces the descriptive fields of project.
func (s *ProjectService) UpdateProject(ctx context.Context, actorID string, project models.Project, in ProjectInput) error {
	if err := requireManager(project, actorID); err != nil {
		return err
	}
	in = in.trimmed()
	err := s.store.UpdateProject(ctx, project.ID, in.ProjectName, in.ClientName, in.Description)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Proyecto no encontrado")
	}
	if err != nil {
		return fmt.Errorf("updating project %s: %w", project.ID, err)
	}
	s.events.Record(ctx, project.ID, actorID, EventProjectUpdate, fmt.Sprintf("Proyecto actualizado: %s", in.ProjectName))
	return nil
}

// DeleteProject removes project with its tasks, notes and activity.
func (s *ProjectService) DeleteProject(ctx context.Context, actorID string, project models.Project) error {
	if err := requireManager(project, actorID); err != nil {
		return err
	}
	err := s.store.DeleteProjectCascade(ctx, project.ID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Proyecto no encontrado")
	}
	if err != nil {
		return fmt.Errorf("deleting project %s: %w", project.ID, err)
	}
	s.events.Revoke(project.ID, "")
	return nil
}

// DuplicateProject copies project under a new ID. Tasks are not copied.
func (s *ProjectService) DuplicateProject(ctx context.Context, actorID string, project models.Project) (models.Project, error) {
	if err := requireManager(project, actorID); err != nil {
		return models.Project{}, err
	}
	now := time.Now().UTC()
	dup := models.Project{
		ID:          uuid.New().String(),
		ProjectName: project.ProjectName + " (Copia)",
		ClientName:  project.ClientName,
		Description: project.Description,
		Manager:     project.Manager,
		Team:        append([]string{}, project.Team...),
		Tasks:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateProject(ctx, dup); err != nil {
		return models.Project{}, fmt.Errorf("duplicating project %s: %w", project.ID, err)
	}
	return dup, nil
}

func requireManager(project models.Project, userID string) error {
	if !project.IsManager(userID) {
		return newError(KindForbidden, "Acción no válida")
	}
	return nil
}

// orderTasks sorts tasks by their position in the project's task list.
// Tasks missing from the list keep their relative order at the end.
func orderTasks(order []string, tasks []models.Task) []models.Task {
	pos := make(map[string]int, len(order))
	for i, id := range order {
		pos[id] = i
	}
	out := make([]models.Task, 0, len(tasks))
	var rest []models.Task
	byID := make(map[string]models.Task, len(tasks))
	for _, t := range tasks {
		if _, ok := pos[t.ID]; ok {
			byID[t.ID] = t
		} else {
			rest = append(rest, t)
		}
	}
	for _, id := range order {
		if t, ok := byID[id]; ok {
			out = append(out, t)
		}
	}
	return append(out, rest...)
}
