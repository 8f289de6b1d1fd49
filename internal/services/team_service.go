package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

// TeamServiceProvider defines the interface for project team services.
type TeamServiceProvider interface {
	FindMemberByEmail(ctx context.Context, actorID string, project models.Project, email string) (models.UserSummary, error)
	GetTeam(ctx context.Context, project models.Project) ([]models.UserSummary, error)
	AddMember(ctx context.Context, actorID string, project models.Project, userID string) error
	RemoveMember(ctx context.Context, actorID string, project models.Project, userID string) error
}

// TeamService provides business logic for project teams.
type TeamService struct {
	store  store.Store
	events EventServiceProvider
}

// NewTeamService creates a new TeamService.
func NewTeamService(s store.Store, events EventServiceProvider) *TeamService {
	return &TeamService{store: s, events: events}
}

// FindMemberByEmail looks up a user that could join project.
func (s *TeamService) FindMemberByEmail(ctx context.Context, actorID string, project models.Project, email string) (models.UserSummary, error) {
	if err := requireManager(project, actorID); err != nil {
		return models.UserSummary{}, err
	}
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return models.UserSummary{}, newError(KindNotFound, "Usuario no encontrado")
	}
	if err != nil {
		return models.UserSummary{}, fmt.Errorf("looking up user: %w", err)
	}
	return user.Summary(), nil
}

// GetTeam returns the members of project in the order they joined.
func (s *TeamService) GetTeam(ctx context.Context, project models.Project) ([]models.UserSummary, error) {
	users, err := userSummaries(ctx, s.store, project.Team)
	if err != nil {
		return nil, err
	}
	team := make([]models.UserSummary, 0, len(project.Team))
	for _, id := range project.Team {
		if u, ok := users[id]; ok {
			team = append(team, u)
		}
	}
	return team, nil
}

// AddMember appends userID to the team of project.
func (s *TeamService) AddMember(ctx context.Context, actorID string, project models.Project, userID string) error {
	if err := requireManager(project, actorID); err != nil {
		return err
	}
	user, err := s.store.GetUserByID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindNotFound, "Usuario no encontrado")
	}
	if err != nil {
		return fmt.Errorf("loading user %s: %w", userID, err)
	}
	if project.IsManager(user.ID) {
		return newError(KindForbidden, "El manager del proyecto no puede ser agregado al equipo")
	}
	if project.HasMember(user.ID) {
		return newError(KindConflict, "El usuario ya existe en el proyecto")
	}

	// project may be stale; the store decides membership against the
	// current team.
	err = s.store.AddTeamMember(ctx, project.ID, user.ID)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return newError(KindConflict, "El usuario ya existe en el proyecto")
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, "Proyecto no encontrado")
	case err != nil:
		return fmt.Errorf("adding %s to team of %s: %w", user.ID, project.ID, err)
	}
	s.events.Record(ctx, project.ID, actorID, EventTeamAdd, fmt.Sprintf("%s se unió al equipo", user.UserName))
	return nil
}

// RemoveMember removes userID from the team of project.
func (s *TeamService) RemoveMember(ctx context.Context, actorID string, project models.Project, userID string) error {
	if err := requireManager(project, actorID); err != nil {
		return err
	}
	if !project.HasMember(userID) {
		return newError(KindConflict, "El usuario no existe en el proyecto")
	}

	err := s.store.RemoveTeamMember(ctx, project.ID, userID)
	if errors.Is(err, store.ErrNotFound) {
		return newError(KindConflict, "El usuario no existe en el proyecto")
	}
	if err != nil {
		return fmt.Errorf("removing %s from team of %s: %w", userID, project.ID, err)
	}
	s.events.Revoke(project.ID, userID)
	s.events.Record(ctx, project.ID, actorID, EventTeamRemove, "Un miembro fue eliminado del equipo")
	return nil
}
