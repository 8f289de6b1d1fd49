package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/isdelr/uptask-be/internal/database"
	"github.com/isdelr/uptask-be/internal/models"
)

// MongoStore implements Store on MongoDB, one collection per document type.
//
// Standalone servers have no multi-document transactions, so paired writes
// are applied in order and the first is undone when the second fails.
type MongoStore struct {
	client   *mongo.Client
	users    *mongo.Collection
	tokens   *mongo.Collection
	projects *mongo.Collection
	tasks    *mongo.Collection
	notes    *mongo.Collection
	events   *mongo.Collection
}

// NewMongoStore connects to uri, selects dbName and ensures indexes.
func NewMongoStore(ctx context.Context, uri, dbName string) (*MongoStore, error) {
	client, err := database.ConnectMongo(ctx, uri)
	if err != nil {
		return nil, err
	}
	db := client.Database(dbName)
	if err := database.EnsureMongoIndexes(ctx, db); err != nil {
		client.Disconnect(context.Background())
		return nil, err
	}

	return &MongoStore{
		client:   client,
		users:    db.Collection("users"),
		tokens:   db.Collection("tokens"),
		projects: db.Collection("projects"),
		tasks:    db.Collection("tasks"),
		notes:    db.Collection("notes"),
		events:   db.Collection("events"),
	}, nil
}

// Close disconnects the client.
func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func mongoNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNotFound
	}
	return err
}

func matched(result *mongo.UpdateResult, err error) error {
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func deleted(result *mongo.DeleteResult, err error) error {
	if err != nil {
		return err
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// compensate runs undo after a failed second write, logging if the undo
// itself fails since the store is then inconsistent.
func compensate(ctx context.Context, what string, undo func(context.Context) error) {
	// The request context may already be cancelled; the undo must still run.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := undo(ctx); err != nil {
		log.Error().Err(err).Str("operation", what).Msg("Failed to compensate partial write")
	}
}

func findAll[T any](ctx context.Context, coll *mongo.Collection, filter any, opts ...*options.FindOptions) ([]T, error) {
	cursor, err := coll.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	out := []T{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// === Users ===

// CreateUserWithToken inserts a new user and its first verification token.
func (s *MongoStore) CreateUserWithToken(ctx context.Context, user models.User, token models.Token) error {
	if _, err := s.users.InsertOne(ctx, user); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrDuplicate
		}
		return fmt.Errorf("creating user: %w", err)
	}
	if err := s.CreateToken(ctx, token); err != nil {
		compensate(ctx, "create-account", func(ctx context.Context) error {
			_, err := s.users.DeleteOne(ctx, bson.M{"_id": user.ID})
			return err
		})
		return err
	}
	return nil
}

// GetUserByID retrieves a single user by ID.
func (s *MongoStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"_id": id}).Decode(&user)
	return user, mongoNotFound(err)
}

// GetUserByEmail retrieves a single user by email.
func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	var user models.User
	err := s.users.FindOne(ctx, bson.M{"email": email}).Decode(&user)
	return user, mongoNotFound(err)
}

// GetUsersByIDs retrieves the users with the given IDs.
func (s *MongoStore) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	return findAll[models.User](ctx, s.users, bson.M{"_id": bson.M{"$in": ids}})
}

// UpdateUserProfile updates a user's name and email.
func (s *MongoStore) UpdateUserProfile(ctx context.Context, id, userName, email string) error {
	result, err := s.users.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"userName": userName, "email": email}})
	if mongo.IsDuplicateKeyError(err) {
		return ErrDuplicate
	}
	return matched(result, err)
}

// UpdateUserPassword stores a new password hash.
func (s *MongoStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	return matched(s.users.UpdateOne(ctx, bson.M{"_id": id},
		bson.M{"$set": bson.M{"password": passwordHash}}))
}

// === Tokens ===

// CreateToken inserts a verification or reset token. An expired token the
// TTL monitor has not removed yet gives up its code first.
func (s *MongoStore) CreateToken(ctx context.Context, token models.Token) error {
	_, err := s.tokens.DeleteMany(ctx, bson.M{
		"token":     token.Token,
		"purpose":   token.Purpose,
		"expiresAt": bson.M{"$lte": token.CreatedAt},
	})
	if err != nil {
		return fmt.Errorf("clearing expired token: %w", err)
	}
	if _, err := s.tokens.InsertOne(ctx, token); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return ErrTokenTaken
		}
		return fmt.Errorf("creating token: %w", err)
	}
	return nil
}

// FindToken returns the unexpired token matching code and purpose. The TTL
// monitor runs about once a minute, so expiry is checked here too.
func (s *MongoStore) FindToken(ctx context.Context, code string, purpose models.TokenPurpose, now time.Time) (models.Token, error) {
	var token models.Token
	err := s.tokens.FindOne(ctx,
		bson.M{"token": code, "purpose": purpose, "expiresAt": bson.M{"$gt": now}},
		options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}}),
	).Decode(&token)
	return token, mongoNotFound(err)
}

// ConfirmUser marks the user confirmed and deletes the consumed token.
func (s *MongoStore) ConfirmUser(ctx context.Context, userID, tokenID string) error {
	var token models.Token
	if err := s.tokens.FindOneAndDelete(ctx, bson.M{"_id": tokenID}).Decode(&token); err != nil {
		return mongoNotFound(err)
	}
	err := matched(s.users.UpdateOne(ctx, bson.M{"_id": userID}, bson.M{"$set": bson.M{"confirmed": true}}))
	if err != nil {
		compensate(ctx, "confirm-account", func(ctx context.Context) error {
			_, err := s.tokens.InsertOne(ctx, token)
			return err
		})
	}
	return err
}

// ResetUserPassword stores the new hash and deletes the consumed token.
func (s *MongoStore) ResetUserPassword(ctx context.Context, userID, tokenID, passwordHash string) error {
	var token models.Token
	if err := s.tokens.FindOneAndDelete(ctx, bson.M{"_id": tokenID}).Decode(&token); err != nil {
		return mongoNotFound(err)
	}
	err := s.UpdateUserPassword(ctx, userID, passwordHash)
	if err != nil {
		compensate(ctx, "new-password", func(ctx context.Context) error {
			_, err := s.tokens.InsertOne(ctx, token)
			return err
		})
	}
	return err
}

// PurgeExpiredTokens deletes expired tokens the TTL monitor has not reached yet.
func (s *MongoStore) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.tokens.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// === Projects ===

// CreateProject inserts a new project.
func (s *MongoStore) CreateProject(ctx context.Context, project models.Project) error {
	project.Team = nonNil(project.Team)
	project.Tasks = nonNil(project.Tasks)
	if _, err := s.projects.InsertOne(ctx, project); err != nil {
		return fmt.Errorf("creating project: %w", err)
	}
	return nil
}

// GetProjectByID retrieves a single project by ID.
func (s *MongoStore) GetProjectByID(ctx context.Context, id string) (models.Project, error) {
	var project models.Project
	err := s.projects.FindOne(ctx, bson.M{"_id": id}).Decode(&project)
	return project, mongoNotFound(err)
}

// ListProjectsForUser returns the projects the user manages or belongs to.
func (s *MongoStore) ListProjectsForUser(ctx context.Context, userID string) ([]models.Project, error) {
	filter := bson.M{"$or": bson.A{
		bson.M{"manager": userID},
		bson.M{"team": userID},
	}}
	return findAll[models.Project](ctx, s.projects, filter,
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// UpdateProject replaces the descriptive fields of a project.
func (s *MongoStore) UpdateProject(ctx context.Context, id, projectName, clientName, description string) error {
	return matched(s.projects.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"projectName": projectName,
		"clientName":  clientName,
		"description": description,
		"updatedAt":   time.Now().UTC(),
	}}))
}

// AddTeamMember pushes userID onto the team unless it is already there.
func (s *MongoStore) AddTeamMember(ctx context.Context, projectID, userID string) error {
	result, err := s.projects.UpdateOne(ctx,
		bson.M{"_id": projectID, "team": bson.M{"$ne": userID}},
		bson.M{
			"$push": bson.M{"team": userID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	)
	if err != nil {
		return fmt.Errorf("adding member to project %s: %w", projectID, err)
	}
	if result.MatchedCount > 0 {
		return nil
	}
	n, err := s.projects.CountDocuments(ctx, bson.M{"_id": projectID})
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return ErrDuplicate
}

// RemoveTeamMember pulls userID from the team.
func (s *MongoStore) RemoveTeamMember(ctx context.Context, projectID, userID string) error {
	return matched(s.projects.UpdateOne(ctx,
		bson.M{"_id": projectID, "team": userID},
		bson.M{
			"$pull": bson.M{"team": userID},
			"$set":  bson.M{"updatedAt": time.Now().UTC()},
		},
	))
}

// DeleteProjectCascade removes the project first so it disappears from
// listings, then its tasks, their notes and its activity.
func (s *MongoStore) DeleteProjectCascade(ctx context.Context, id string) error {
	if err := deleted(s.projects.DeleteOne(ctx, bson.M{"_id": id})); err != nil {
		return err
	}

	tasks, err := findAll[models.Task](ctx, s.tasks, bson.M{"project": id},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return fmt.Errorf("listing tasks of project %s: %w", id, err)
	}
	taskIDs := make([]string, 0, len(tasks))
	for _, t := range tasks {
		taskIDs = append(taskIDs, t.ID)
	}

	if len(taskIDs) > 0 {
		if _, err := s.notes.DeleteMany(ctx, bson.M{"task": bson.M{"$in": taskIDs}}); err != nil {
			return fmt.Errorf("deleting notes of project %s: %w", id, err)
		}
	}
	if _, err := s.tasks.DeleteMany(ctx, bson.M{"project": id}); err != nil {
		return fmt.Errorf("deleting tasks of project %s: %w", id, err)
	}
	if _, err := s.events.DeleteMany(ctx, bson.M{"projectId": id}); err != nil {
		return fmt.Errorf("deleting events of project %s: %w", id, err)
	}
	return nil
}

// === Tasks ===

// CreateTask inserts the task and appends its ID to the project's task list.
func (s *MongoStore) CreateTask(ctx context.Context, task models.Task) error {
	task.CompletedBy = nonNil(task.CompletedBy)
	task.Notes = nonNil(task.Notes)
	if _, err := s.tasks.InsertOne(ctx, task); err != nil {
		return fmt.Errorf("creating task: %w", err)
	}

	err := matched(s.projects.UpdateOne(ctx, bson.M{"_id": task.Project}, bson.M{
		"$push": bson.M{"tasks": task.ID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}))
	if err != nil {
		compensate(ctx, "create-task", func(ctx context.Context) error {
			_, err := s.tasks.DeleteOne(ctx, bson.M{"_id": task.ID})
			return err
		})
		return err
	}
	return nil
}

// GetTaskByID retrieves a single task by ID.
func (s *MongoStore) GetTaskByID(ctx context.Context, id string) (models.Task, error) {
	var task models.Task
	err := s.tasks.FindOne(ctx, bson.M{"_id": id}).Decode(&task)
	return task, mongoNotFound(err)
}

// ListTasksByProject returns the tasks of a project in creation order.
func (s *MongoStore) ListTasksByProject(ctx context.Context, projectID string) ([]models.Task, error) {
	return findAll[models.Task](ctx, s.tasks, bson.M{"project": projectID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// UpdateTask replaces the descriptive fields of a task.
func (s *MongoStore) UpdateTask(ctx context.Context, id, taskName, description string) error {
	return matched(s.tasks.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{
		"taskName":    taskName,
		"description": description,
		"updatedAt":   time.Now().UTC(),
	}}))
}

// AppendTaskStatus sets the status and pushes the change onto the history
// in a single document update.
func (s *MongoStore) AppendTaskStatus(ctx context.Context, id string, change models.StatusChange) error {
	return matched(s.tasks.UpdateOne(ctx, bson.M{"_id": id}, bson.M{
		"$set":  bson.M{"status": change.Status, "updatedAt": time.Now().UTC()},
		"$push": bson.M{"completedBy": change},
	}))
}

// DeleteTaskCascade unlinks the task from its project, then deletes it and
// its notes. The link is restored if the task cannot be deleted.
func (s *MongoStore) DeleteTaskCascade(ctx context.Context, projectID, taskID string) error {
	err := matched(s.projects.UpdateOne(ctx, bson.M{"_id": projectID}, bson.M{
		"$pull": bson.M{"tasks": taskID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}))
	if err != nil {
		return err
	}

	if err := deleted(s.tasks.DeleteOne(ctx, bson.M{"_id": taskID, "project": projectID})); err != nil {
		compensate(ctx, "delete-task", func(ctx context.Context) error {
			_, err := s.projects.UpdateOne(ctx, bson.M{"_id": projectID}, bson.M{"$push": bson.M{"tasks": taskID}})
			return err
		})
		return err
	}

	if _, err := s.notes.DeleteMany(ctx, bson.M{"task": taskID}); err != nil {
		return fmt.Errorf("deleting notes of task %s: %w", taskID, err)
	}
	return nil
}

// === Notes ===

// CreateNote inserts the note and appends its ID to the task's note list.
func (s *MongoStore) CreateNote(ctx context.Context, note models.Note) error {
	if _, err := s.notes.InsertOne(ctx, note); err != nil {
		return fmt.Errorf("creating note: %w", err)
	}

	err := matched(s.tasks.UpdateOne(ctx, bson.M{"_id": note.Task}, bson.M{
		"$push": bson.M{"notes": note.ID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}))
	if err != nil {
		compensate(ctx, "create-note", func(ctx context.Context) error {
			_, err := s.notes.DeleteOne(ctx, bson.M{"_id": note.ID})
			return err
		})
		return err
	}
	return nil
}

// GetNoteByID retrieves a single note by ID.
func (s *MongoStore) GetNoteByID(ctx context.Context, id string) (models.Note, error) {
	var note models.Note
	err := s.notes.FindOne(ctx, bson.M{"_id": id}).Decode(&note)
	return note, mongoNotFound(err)
}

// ListNotesByTask returns the notes of a task in creation order.
func (s *MongoStore) ListNotesByTask(ctx context.Context, taskID string) ([]models.Note, error) {
	return findAll[models.Note](ctx, s.notes, bson.M{"task": taskID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}}))
}

// DeleteNote unlinks the note from its task and deletes it.
func (s *MongoStore) DeleteNote(ctx context.Context, taskID, noteID string) error {
	err := matched(s.tasks.UpdateOne(ctx, bson.M{"_id": taskID}, bson.M{
		"$pull": bson.M{"notes": noteID},
		"$set":  bson.M{"updatedAt": time.Now().UTC()},
	}))
	if err != nil {
		return err
	}

	if err := deleted(s.notes.DeleteOne(ctx, bson.M{"_id": noteID, "task": taskID})); err != nil {
		compensate(ctx, "delete-note", func(ctx context.Context) error {
			_, err := s.tasks.UpdateOne(ctx, bson.M{"_id": taskID}, bson.M{"$push": bson.M{"notes": noteID}})
			return err
		})
		return err
	}
	return nil
}

// === Activity ===

// CreateEvent records an activity entry.
func (s *MongoStore) CreateEvent(ctx context.Context, event models.Event) error {
	if _, err := s.events.InsertOne(ctx, event); err != nil {
		return fmt.Errorf("creating event: %w", err)
	}
	return nil
}

// ListEvents returns the most recent activity of a project.
func (s *MongoStore) ListEvents(ctx context.Context, projectID string, limit int) ([]models.Event, error) {
	return findAll[models.Event](ctx, s.events, bson.M{"projectId": projectID},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}).SetLimit(int64(limit)))
}
