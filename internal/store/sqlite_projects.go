package store

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/isdelr/uptask-be/internal/models"
)

const projectColumns = "id, project_name, client_name, description, manager_id, team_json, tasks_json, created_at, updated_at"

func scanProject(scanner interface{ Scan(...any) error }) (models.Project, error) {
	var (
		project   models.Project
		teamJSON  string
		tasksJSON string
	)
	err := scanner.Scan(
		&project.ID, &project.ProjectName, &project.ClientName, &project.Description,
		&project.Manager, &teamJSON, &tasksJSON, &project.CreatedAt, &project.UpdatedAt,
	)
	if err != nil {
		return models.Project{}, notFound(err)
	}
	if project.Team, err = decodeIDs(teamJSON); err != nil {
		return models.Project{}, fmt.Errorf("decoding team of project %s: %w", project.ID, err)
	}
	if project.Tasks, err = decodeIDs(tasksJSON); err != nil {
		return models.Project{}, fmt.Errorf("decoding tasks of project %s: %w", project.ID, err)
	}
	return project, nil
}

// CreateProject inserts a new project.
func (s *SQLiteStore) CreateProject(ctx context.Context, project models.Project) error {
	team, err := encodeList(nonNil(project.Team))
	if err != nil {
		return err
	}
	tasks, err := encodeList(nonNil(project.Tasks))
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO projects (`+projectColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		project.ID, project.ProjectName, project.ClientName, project.Description,
		project.Manager, team, tasks, project.CreatedAt.UTC(), project.UpdatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a single project by ID.
func (s *SQLiteStore) GetProjectByID(ctx context.Context, id string) (models.Project, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id)
	return scanProject(row)
}

// ListProjectsForUser returns the projects the user manages or belongs to,
// newest first.
func (s *SQLiteStore) ListProjectsForUser(ctx context.Context, userID string) ([]models.Project, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT `+projectColumns+` FROM projects
		WHERE manager_id = ?
		   OR EXISTS (SELECT 1 FROM json_each(projects.team_json) WHERE json_each.value = ?)
		ORDER BY created_at DESC, rowid DESC`,
		userID, userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying projects: %w", err)
	}
	defer rows.Close()

	projects := []models.Project{}
	for rows.Next() {
		project, err := scanProject(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, project)
	}
	return projects, rows.Err()
}

// UpdateProject replaces the descriptive fields of a project.
func (s *SQLiteStore) UpdateProject(ctx context.Context, id, projectName, clientName, description string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE projects SET project_name = ?, client_name = ?, description = ?, updated_at = ?
		WHERE id = ?`,
		projectName, clientName, description, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating project %s: %w", id, err)
	}
	return mustAffect(result)
}

// AddTeamMember appends userID to the team, deciding membership on the
// stored list rather than the caller's copy.
func (s *SQLiteStore) AddTeamMember(ctx context.Context, projectID, userID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return updateIDList(ctx, tx, "projects", "team_json", projectID, func(ids []string) ([]string, error) {
			if slices.Contains(ids, userID) {
				return nil, ErrDuplicate
			}
			return append(ids, userID), nil
		})
	})
}

// RemoveTeamMember removes userID from the team.
func (s *SQLiteStore) RemoveTeamMember(ctx context.Context, projectID, userID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return updateIDList(ctx, tx, "projects", "team_json", projectID, func(ids []string) ([]string, error) {
			if !slices.Contains(ids, userID) {
				return nil, ErrNotFound
			}
			return removeID(ids, userID), nil
		})
	})
}

// DeleteProjectCascade removes the project together with its tasks, the
// notes of those tasks and the project's activity.
func (s *SQLiteStore) DeleteProjectCascade(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		steps := []struct {
			what  string
			query string
		}{
			{"notes", "DELETE FROM notes WHERE task_id IN (SELECT id FROM tasks WHERE project_id = ?)"},
			{"tasks", "DELETE FROM tasks WHERE project_id = ?"},
			{"events", "DELETE FROM events WHERE project_id = ?"},
		}
		for _, step := range steps {
			if _, err := tx.ExecContext(ctx, step.query, id); err != nil {
				return fmt.Errorf("deleting %s of project %s: %w", step.what, id, err)
			}
		}

		result, err := tx.ExecContext(ctx, "DELETE FROM projects WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("deleting project %s: %w", id, err)
		}
		return mustAffect(result)
	})
}

// CreateEvent records an activity entry.
func (s *SQLiteStore) CreateEvent(ctx context.Context, event models.Event) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, project_id, user_id, type, message, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		event.ID, event.ProjectID, event.UserID, event.Type, event.Message, event.CreatedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent activity of a project.
func (s *SQLiteStore) ListEvents(ctx context.Context, projectID string, limit int) ([]models.Event, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, project_id, user_id, type, message, created_at
		FROM events WHERE project_id = ?
		ORDER BY created_at DESC, rowid DESC
		LIMIT ?`,
		projectID, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying events: %w", err)
	}
	defer rows.Close()

	events := []models.Event{}
	for rows.Next() {
		var event models.Event
		if err := rows.Scan(&event.ID, &event.ProjectID, &event.UserID, &event.Type, &event.Message, &event.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
