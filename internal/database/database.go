package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	_ "modernc.org/sqlite" // SQLite driver
)

// New opens a SQLite database and applies the schema.
func New(dataSourceName string) (*sqlx.DB, error) {
	db, err := sqlx.Open("sqlite", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}
	// A single connection keeps ":memory:" databases shared and serializes
	// writers, which SQLite does anyway.
	db.SetMaxOpenConns(1)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, err
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}
	if err := Migrate(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}
	return db, nil
}

// Migrate runs the SQL statements to set up the database schema.
// List-valued document fields are stored as JSON text.
func Migrate(db *sqlx.DB) error {
	const sqlStmt = `
	CREATE TABLE IF NOT EXISTS users (
		id TEXT NOT NULL PRIMARY KEY,
		user_name TEXT NOT NULL,
		email TEXT NOT NULL UNIQUE,
		password_hash TEXT NOT NULL,
		confirmed INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tokens (
		id TEXT NOT NULL PRIMARY KEY,
		token TEXT NOT NULL,
		user_id TEXT NOT NULL,
		purpose TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		expires_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS projects (
		id TEXT NOT NULL PRIMARY KEY,
		project_name TEXT NOT NULL,
		client_name TEXT NOT NULL,
		description TEXT NOT NULL,
		manager_id TEXT NOT NULL,
		team_json TEXT NOT NULL DEFAULT '[]',
		tasks_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS tasks (
		id TEXT NOT NULL PRIMARY KEY,
		task_name TEXT NOT NULL,
		description TEXT NOT NULL,
		project_id TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'pending',
		completed_by_json TEXT NOT NULL DEFAULT '[]',
		notes_json TEXT NOT NULL DEFAULT '[]',
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS notes (
		id TEXT NOT NULL PRIMARY KEY,
		content TEXT NOT NULL,
		created_by TEXT NOT NULL,
		task_id TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS events (
		id TEXT NOT NULL PRIMARY KEY,
		project_id TEXT NOT NULL,
		user_id TEXT NOT NULL,
		type TEXT NOT NULL,
		message TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	DROP INDEX IF EXISTS idx_tokens_token;
	CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_code ON tokens(token, purpose);
	CREATE INDEX IF NOT EXISTS idx_tokens_user_id ON tokens(user_id);
	CREATE INDEX IF NOT EXISTS idx_projects_manager_id ON projects(manager_id);
	CREATE INDEX IF NOT EXISTS idx_tasks_project_id ON tasks(project_id);
	CREATE INDEX IF NOT EXISTS idx_notes_task_id ON notes(task_id);
	CREATE INDEX IF NOT EXISTS idx_events_project_id ON events(project_id, created_at);
	`
	_, err := db.Exec(sqlStmt)
	return err
}

// ConnectMongo connects to MongoDB and verifies the connection.
func ConnectMongo(ctx context.Context, uri string) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connecting to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("pinging mongo: %w", err)
	}
	return client, nil
}

// EnsureMongoIndexes creates the unique and TTL indexes the document store
// relies on. Tokens are removed by the server once expiresAt passes, and a
// code is unique per purpose.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		"tokens": {
			{Keys: bson.D{{Key: "expiresAt", Value: 1}}, Options: options.Index().SetExpireAfterSeconds(0)},
			{
				Keys:    bson.D{{Key: "token", Value: 1}, {Key: "purpose", Value: 1}},
				Options: options.Index().SetUnique(true).SetName("token_purpose_unique"),
			},
		},
		"projects": {
			{Keys: bson.D{{Key: "manager", Value: 1}}},
			{Keys: bson.D{{Key: "team", Value: 1}}},
		},
		"tasks": {
			{Keys: bson.D{{Key: "project", Value: 1}}},
		},
		"notes": {
			{Keys: bson.D{{Key: "task", Value: 1}}},
		},
		"events": {
			{Keys: bson.D{{Key: "projectId", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
	}

	for collection, models := range indexes {
		if _, err := db.Collection(collection).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("creating indexes on %s: %w", collection, err)
		}
	}
	return nil
}
