package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/isdelr/uptask-be/internal/models"
)

const userColumns = "id, user_name, email, password_hash, confirmed, created_at"

func scanUser(scanner interface{ Scan(...any) error }) (models.User, error) {
	var (
		user      models.User
		confirmed int
	)
	err := scanner.Scan(&user.ID, &user.UserName, &user.Email, &user.PasswordHash, &confirmed, &user.CreatedAt)
	if err != nil {
		return models.User{}, notFound(err)
	}
	user.Confirmed = confirmed != 0
	return user, nil
}

// insertToken stores token inside tx. An expired token holding the same
// code and purpose is dropped first; a live one makes the code unusable.
func insertToken(ctx context.Context, tx *sqlx.Tx, token models.Token) error {
	_, err := tx.ExecContext(ctx,
		"DELETE FROM tokens WHERE token = ? AND purpose = ? AND expires_at <= ?",
		token.Token, string(token.Purpose), token.CreatedAt.Unix(),
	)
	if err != nil {
		return fmt.Errorf("clearing expired token: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO tokens (id, token, user_id, purpose, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		token.ID, token.Token, token.UserID, string(token.Purpose),
		token.CreatedAt.UTC(), token.ExpiresAt.Unix(),
	)
	if isUniqueViolation(err) {
		return ErrTokenTaken
	}
	if err != nil {
		return fmt.Errorf("creating token: %w", err)
	}
	return nil
}

// CreateUserWithToken inserts a new user and its first verification token.
func (s *SQLiteStore) CreateUserWithToken(ctx context.Context, user models.User, token models.Token) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (`+userColumns+`)
			VALUES (?, ?, ?, ?, ?, ?)`,
			user.ID, user.UserName, user.Email, user.PasswordHash,
			boolToInt(user.Confirmed), user.CreatedAt.UTC(),
		)
		if isUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("creating user: %w", err)
		}
		return insertToken(ctx, tx, token)
	})
}

// GetUserByID retrieves a single user by ID.
func (s *SQLiteStore) GetUserByID(ctx context.Context, id string) (models.User, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return scanUser(row)
}

// GetUserByEmail retrieves a single user by email, including the password hash.
func (s *SQLiteStore) GetUserByEmail(ctx context.Context, email string) (models.User, error) {
	row := s.db.QueryRowxContext(ctx, "SELECT "+userColumns+" FROM users WHERE email = ?", email)
	return scanUser(row)
}

// GetUsersByIDs retrieves the users with the given IDs. Unknown IDs are
// skipped; order is unspecified.
func (s *SQLiteStore) GetUsersByIDs(ctx context.Context, ids []string) ([]models.User, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryxContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders(len(ids))+")", args...)
	if err != nil {
		return nil, fmt.Errorf("querying users: %w", err)
	}
	defer rows.Close()

	var users []models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

// UpdateUserProfile updates a user's name and email.
func (s *SQLiteStore) UpdateUserProfile(ctx context.Context, id, userName, email string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE users SET user_name = ?, email = ? WHERE id = ?", userName, email, id)
	if isUniqueViolation(err) {
		return ErrDuplicate
	}
	if err != nil {
		return fmt.Errorf("updating user %s: %w", id, err)
	}
	return mustAffect(result)
}

// UpdateUserPassword stores a new password hash.
func (s *SQLiteStore) UpdateUserPassword(ctx context.Context, id, passwordHash string) error {
	result, err := s.db.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, id)
	if err != nil {
		return fmt.Errorf("updating password for %s: %w", id, err)
	}
	return mustAffect(result)
}

// CreateToken inserts a verification or reset token.
func (s *SQLiteStore) CreateToken(ctx context.Context, token models.Token) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		return insertToken(ctx, tx, token)
	})
}

// FindToken returns the unexpired token matching code and purpose.
func (s *SQLiteStore) FindToken(ctx context.Context, code string, purpose models.TokenPurpose, now time.Time) (models.Token, error) {
	var (
		token     models.Token
		purposeDB string
		expiresAt int64
	)
	err := s.db.QueryRowxContext(ctx, `
		SELECT id, token, user_id, purpose, created_at, expires_at
		FROM tokens
		WHERE token = ? AND purpose = ? AND expires_at > ?
		ORDER BY created_at DESC
		LIMIT 1`,
		code, string(purpose), now.Unix(),
	).Scan(&token.ID, &token.Token, &token.UserID, &purposeDB, &token.CreatedAt, &expiresAt)
	if err != nil {
		return models.Token{}, notFound(err)
	}
	token.Purpose = models.TokenPurpose(purposeDB)
	token.ExpiresAt = time.Unix(expiresAt, 0).UTC()
	return token, nil
}

// CountTokensForUser returns how many tokens reference the user. It is not
// part of Store; tests use it to check token bookkeeping.
func (s *SQLiteStore) CountTokensForUser(ctx context.Context, userID string) (int, error) {
	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM tokens WHERE user_id = ?", userID); err != nil {
		return 0, fmt.Errorf("counting tokens: %w", err)
	}
	return n, nil
}

func deleteToken(ctx context.Context, tx *sqlx.Tx, tokenID string) error {
	result, err := tx.ExecContext(ctx, "DELETE FROM tokens WHERE id = ?", tokenID)
	if err != nil {
		return fmt.Errorf("deleting token: %w", err)
	}
	return mustAffect(result)
}

// ConfirmUser marks the user confirmed and deletes the consumed token.
func (s *SQLiteStore) ConfirmUser(ctx context.Context, userID, tokenID string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE users SET confirmed = 1 WHERE id = ?", userID)
		if err != nil {
			return fmt.Errorf("confirming user %s: %w", userID, err)
		}
		if err := mustAffect(result); err != nil {
			return err
		}
		return deleteToken(ctx, tx, tokenID)
	})
}

// ResetUserPassword stores the new hash and deletes the consumed token.
func (s *SQLiteStore) ResetUserPassword(ctx context.Context, userID, tokenID, passwordHash string) error {
	return s.withTx(ctx, func(tx *sqlx.Tx) error {
		result, err := tx.ExecContext(ctx, "UPDATE users SET password_hash = ? WHERE id = ?", passwordHash, userID)
		if err != nil {
			return fmt.Errorf("resetting password for %s: %w", userID, err)
		}
		if err := mustAffect(result); err != nil {
			return err
		}
		return deleteToken(ctx, tx, tokenID)
	})
}

// PurgeExpiredTokens deletes every token that expired at or before now.
func (s *SQLiteStore) PurgeExpiredTokens(ctx context.Context, now time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, "DELETE FROM tokens WHERE expires_at <= ?", now.Unix())
	if err != nil {
		return 0, fmt.Errorf("purging tokens: %w", err)
	}
	return result.RowsAffected()
}
