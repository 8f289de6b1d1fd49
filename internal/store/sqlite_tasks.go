package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/isdelr/uptask-be/internal/models"
)

const taskColumns = "id, task_name, description, project_id, status, completed_by_json, notes_json, created_at, updated_at"

func scanTask(scanner interface{ Scan(...any) error }) (models.Task, error) {
	var (
		task            models.Task
		status          string
		completedByJSON string
		notesJSON       string
	)
	err := scanner.Scan(
		&task.ID, &task.TaskName, &task.Description, &task.Project, &status,
		&completedByJSON, &notesJSON, &task.CreatedAt, &task.UpdatedAt,
	)
	if err != nil {
		return models.Task{}, notFound(err)
	}
	task.Status = models.TaskStatus(status)

	task.CompletedBy = []models.StatusChange{}
	if completedByJSON != "" {
		if err := json.Unmarshal([]byte(completedByJSON), &task.CompletedBy); err != nil {
			return models.Task{}, fmt.Errorf("decoding history of task %s: %w", task.ID, err)
		}
	}
	if task.Notes, err = decodeIDs(notesJSON); err != nil {
		return models.Task{}, fmt.Errorf("decoding notes of task %s: %w", task.ID, err)
	}
	return task, nil
}

// CreateTask inserts the task and appends its ID to the project's task list.
func (s *SQLiteStore) CreateTask(ctx context.Context, task models.Task) error {
	completedBy, err := encodeList(nonNil(task.CompletedBy))
	if err != nil {
		return err
	}
	notes, err := encodeList(nonNil(task.Notes))
	if err != nil {
		return err
	}

	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO tasks (`+taskColumns+`)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			task.ID, task.TaskName, task.Description, task.Project, string(task.Status),
			completedBy, notes, task.CreatedAt.UTC(), task.UpdatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("creating task: %w", err)
		}
		return updateIDList(ctx, tx, "projects", "tasks_json", task.Project, func(ids []string) ([]string, error) {
			return append(ids, task.ID), nil
		})
	})
}

// GetTaskByID retrieves a single task by ID.
func (s *SQLiteStore) GetTaskByID(ctx context.Context, id string) (models.Task, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+taskColumns+" FROM tasks WHERE id = ?", id)
	return scanTask(row)
}

// ListTasksByProject returns the tasks of a project in creation order.
func (s *SQLiteStore) ListTasksByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+taskColumns+" FROM tasks WHERE project_id = ? ORDER BY created_at, rowid", projectID)
	if err != nil {
		return nil, fmt.Errorf("querying tasks: %w", err)
	}
	defer rows.Close()

	tasks := []models.Task{}
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, err
		}
		tasks = append(tasks, task)
	}
	return tasks, rows.Err()
}

// UpdateTask replaces the descriptive fields of a task.
func (s *SQLiteStore) UpdateTask(ctx context.Context, id, taskName, description string) error {
	result, err := s.db.ExecContext(ctx,
		"UPDATE tasks SET task_name = ?, description = ?, updated_at = ? WHERE id = ?",
		taskName, description, time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("updating task %s: %w", id, err)
	}
	return mustAffect(result)
}

// AppendTaskStatus sets the status and appends the change to the history.
func (s *SQLiteStore) AppendTaskStatus(ctx context.Context, id string, change models.StatusChange) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		var raw string
		if err := tx.GetContext(ctx, &raw, "SELECT completed_by_json FROM tasks WHERE id = ?", id); err != nil {
			return notFound(err)
		}

		history := []models.StatusChange{}
		if raw != "" {
			if err := json.Unmarshal([]byte(raw), &history); err != nil {
				return fmt.Errorf("decoding history of task %s: %w", id, err)
			}
		}
		encoded, err := encodeList(append(history, change))
		if err != nil {
			return err
		}

		_, err = tx.ExecContext(ctx,
			"UPDATE tasks SET status = ?, completed_by_json = ?, updated_at = ? WHERE id = ?",
			string(change.Status), encoded, time.Now().UTC(), id,
		)
		if err != nil {
			return fmt.Errorf("updating status of task %s: %w", id, err)
		}
		return nil
	})
}

// DeleteTaskCascade unlinks the task from its project, then deletes it and
// its notes.
func (s *SQLiteStore) DeleteTaskCascade(ctx context.Context, projectID, taskID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := updateIDList(ctx, tx, "projects", "tasks_json", projectID, func(ids []string) ([]string, error) {
			return removeID(ids, taskID), nil
		})
		if err != nil {
			return err
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE task_id = ?", taskID); err != nil {
			return fmt.Errorf("deleting notes of task %s: %w", taskID, err)
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM tasks WHERE id = ? AND project_id = ?", taskID, projectID)
		if err != nil {
			return fmt.Errorf("deleting task %s: %w", taskID, err)
		}
		return mustAffect(result)
	})
}

func scanNote(scanner interface{ Scan(...any) error }) (models.Note, error) {
	var note models.Note
	if err := scanner.Scan(&note.ID, &note.Content, &note.CreatedBy, &note.Task, &note.CreatedAt); err != nil {
		return models.Note{}, notFound(err)
	}
	return note, nil
}

// CreateNote inserts the note and appends its ID to the task's note list.
func (s *SQLiteStore) CreateNote(ctx context.Context, note models.Note) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notes (id, content, created_by, task_id, created_at)
			VALUES (?, ?, ?, ?, ?)`,
			note.ID, note.Content, note.CreatedBy, note.Task, note.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("creating note: %w", err)
		}
		return updateIDList(ctx, tx, "tasks", "notes_json", note.Task, func(ids []string) ([]string, error) {
			return append(ids, note.ID), nil
		})
	})
}

// GetNoteByID retrieves a single note by ID.
func (s *SQLiteStore) GetNoteByID(ctx context.Context, id string) (models.Note, error) {
	row := s.db.QueryRowxContext(ctx,
		"SELECT id, content, created_by, task_id, created_at FROM notes WHERE id = ?", id)
	return scanNote(row)
}

// ListNotesByTask returns the notes of a task in creation order.
func (s *SQLiteStore) ListNotesByTask(ctx context.Context, taskID string) ([]models.Note, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, content, created_by, task_id, created_at
		FROM notes WHERE task_id = ?
		ORDER BY created_at, rowid`, taskID)
	if err != nil {
		return nil, fmt.Errorf("querying notes: %w", err)
	}
	defer rows.Close()

	notes := []models.Note{}
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		notes = append(notes, note)
	}
	return notes, rows.Err()
}

// DeleteNote unlinks the note from its task and deletes it.
func (s *SQLiteStore) DeleteNote(ctx context.Context, taskID, noteID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		err := updateIDList(ctx, tx, "tasks", "notes_json", taskID, func(ids []string) ([]string, error) {
			return removeID(ids, noteID), nil
		})
		if err != nil {
			return err
		}
		result, err := tx.ExecContext(ctx, "DELETE FROM notes WHERE id = ? AND task_id = ?", noteID, taskID)
		if err != nil {
			return fmt.Errorf("deleting note %s: %w", noteID, err)
		}
		return mustAffect(result)
	})
}
