package store

import (
	"context"
	"errors"
	"time"

	"github.com/isdelr/uptask-be/internal/models"
)

var (
	// ErrNotFound is returned when a document does not exist.
	ErrNotFound = errors.New("not found")
	// ErrDuplicate is returned when a unique field (user email) is taken or
	// a user is already on a team.
	ErrDuplicate = errors.New("duplicate key")
	// ErrTokenTaken is returned when a live token of the same purpose
	// already uses the code.
	ErrTokenTaken = errors.New("token code in use")
)

// Store defines the persistence interface for the document model.
//
// Operations that touch more than one document (user + token, task +
// project task list, cascades) are atomic: either every write is applied or
// none is.
type Store interface {
	// === Users ===

	CreateUserWithToken(ctx context.Context, user models.User, token models.Token) error
	GetUserByID(ctx context.Context, id string) (models.User, error)
	GetUserByEmail(ctx context.Context, email string) (models.User, error)
	GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error)
	UpdateUserProfile(ctx context.Context, id, userName, email string) error
	UpdateUserPassword(ctx context.Context, id, passwordHash string) error

	// === Tokens ===

	// CreateToken stores token, replacing an expired one with the same code
	// and purpose. It returns ErrTokenTaken if a live one holds the code.
	CreateToken(ctx context.Context, token models.Token) error
	// FindToken returns the live token with the given code and purpose.
	FindToken(ctx context.Context, code string, purpose models.TokenPurpose, now time.Time) (models.Token, error)
	// ConfirmUser marks the user confirmed and consumes the token.
	ConfirmUser(ctx context.Context, userID, tokenID string) error
	// ResetUserPassword stores the new hash and consumes the token.
	ResetUserPassword(ctx context.Context, userID, tokenID, passwordHash string) error
	PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error)

	// === Projects ===

	CreateProject(ctx context.Context, project models.Project) error
	GetProjectByID(ctx context.Context, id string) (models.Project, error)
	// ListProjectsForUser returns projects managed by or shared with the user.
	ListProjectsForUser(ctx context.Context, userID string) ([]models.Project, error)
	UpdateProject(ctx context.Context, id, projectName, clientName, description string) error
	// AddTeamMember appends userID to the project's team. It returns
	// ErrDuplicate if the user is already on it.
	AddTeamMember(ctx context.Context, projectID, userID string) error
	// RemoveTeamMember removes userID from the project's team. It returns
	// ErrNotFound if the user is not on it.
	RemoveTeamMember(ctx context.Context, projectID, userID string) error
	// DeleteProjectCascade removes the project, its tasks, their notes and
	// the project's activity.
	DeleteProjectCascade(ctx context.Context, id string) error

	// === Tasks ===

	// CreateTask inserts the task and appends it to its project's task list.
	CreateTask(ctx context.Context, task models.Task) error
	GetTaskByID(ctx context.Context, id string) (models.Task, error)
	ListTasksByProject(ctx context.Context, projectID string) ([]models.Task, error)
	UpdateTask(ctx context.Context, id, taskName, description string) error
	// AppendTaskStatus sets the task status and appends the change to its
	// history.
	AppendTaskStatus(ctx context.Context, id string, change models.StatusChange) error
	// DeleteTaskCascade removes the task from its project's list and deletes
	// it along with its notes.
	DeleteTaskCascade(ctx context.Context, projectID, taskID string) error

	// === Notes ===

	// CreateNote inserts the note and appends it to its task's note list.
	CreateNote(ctx context.Context, note models.Note) error
	GetNoteByID(ctx context.Context, id string) (models.Note, error)
	ListNotesByTask(ctx context.Context, taskID string) ([]models.Note, error)
	// DeleteNote removes the note from its task's list and deletes it.
	DeleteNote(ctx context.Context, taskID, noteID string) error

	// === Activity ===

	CreateEvent(ctx context.Context, event models.Event) error
	ListEvents(ctx context.Context, projectID string, limit int) ([]models.Event, error)

	Close() error
}

var (
	_ Store = (*SQLiteStore)(nil)
	_ Store = (*MongoStore)(nil)
)

// removeID returns ids without id, preserving order.
func removeID(ids []string, id string) []string {
	out := make([]string, 0, len(ids))
	for _, v := range ids {
		if v != id {
			out = append(out, v)
		}
	}
	return out
}
