package models

import "time"

// Note is a comment left on a task.
type Note struct {
	ID        string    `json:"_id" bson:"_id"`
	Content   string    `json:"content" bson:"content"`
	CreatedBy string    `json:"createdBy" bson:"createdBy"`
	Task      string    `json:"task" bson:"task"`
	CreatedAt time.Time `json:"createdAt" bson:"createdAt"`
}

// NoteView is a note with its author populated.
type NoteView struct {
	ID        string       `json:"_id"`
	Content   string       `json:"content"`
	CreatedBy *UserSummary `json:"createdBy"`
	Task      string       `json:"task"`
	CreatedAt time.Time    `json:"createdAt"`
}
