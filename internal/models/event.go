package models

import "time"

// Event represents an entry of a project's activity feed.
type Event struct {
	ID        string    `json:"id" bson:"_id"`
	ProjectID string    `json:"projectId" bson:"projectId"`
	UserID    string    `json:"userId" bson:"userId"`
	Type      string    `json:"type" bson:"type"` // e.g., "task.create", "team.add"
	Message   string    `json:"message" bson:"message"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}
