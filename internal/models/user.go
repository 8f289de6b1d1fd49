package models

import "time"

// User represents a user account in the system.
type User struct {
	ID           string    `json:"_id" bson:"_id"`
	UserName     string    `json:"userName" bson:"userName"`
	Email        string    `json:"email" bson:"email"`
	PasswordHash string    `json:"-" bson:"password"` // Never expose this to the client
	Confirmed    bool      `json:"confirmed" bson:"confirmed"`
	CreatedAt    time.Time `json:"createdAt" bson:"createdAt"`
}

// UserSummary is the public projection of a user used when populating
// references (team members, note authors, status history).
type UserSummary struct {
	ID       string `json:"_id" bson:"_id"`
	UserName string `json:"userName" bson:"userName"`
	Email    string `json:"email" bson:"email"`
}

// Summary returns the public projection of the user.
func (u User) Summary() UserSummary {
	return UserSummary{ID: u.ID, UserName: u.UserName, Email: u.Email}
}
