package models

import "time"

// TokenTTL is how long a verification or reset token stays valid.
const TokenTTL = 7 * 24 * time.Hour

// TokenPurpose scopes a token to the flow that issued it.
type TokenPurpose string

const (
	TokenConfirmAccount TokenPurpose = "confirm_account"
	TokenResetPassword  TokenPurpose = "reset_password"
)

// Token is a short-lived, single-use code proving ownership of an email.
type Token struct {
	ID        string       `json:"-" bson:"_id"`
	Token     string       `json:"-" bson:"token"`
	UserID    string       `json:"-" bson:"userId"`
	Purpose   TokenPurpose `json:"-" bson:"purpose"`
	CreatedAt time.Time    `json:"-" bson:"createdAt"`
	ExpiresAt time.Time    `json:"-" bson:"expiresAt"`
}
