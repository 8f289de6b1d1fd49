package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/mail"
	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

// AuthServiceProvider defines the interface for account services.
type AuthServiceProvider interface {
	CreateAccount(ctx context.Context, userName, email, password string) error
	ConfirmAccount(ctx context.Context, token string) error
	Login(ctx context.Context, email, password string) (string, error)
	RequestToken(ctx context.Context, email string) error
	ResetPassword(ctx context.Context, email string) error
	ConfirmResetPassword(ctx context.Context, token string) error
	NewPassword(ctx context.Context, token, password string) error
	UpdateProfile(ctx context.Context, userID, userName, email string) error
	ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error
	CheckPassword(ctx context.Context, userID, password string) error
}

// AccountMailer sends the emails of the account flows.
type AccountMailer interface {
	SendVerification(r mail.Recipient)
	SendPasswordReset(r mail.Recipient)
}

// AuthService provides business logic for accounts and sessions.
type AuthService struct {
	store  store.Store
	mailer AccountMailer
	jwt    *auth.JWTManager
	hasher Hasher
	now    func() time.Time
	codes  func() (string, error)
}

// maxCodeAttempts bounds how often a code held by another live token is
// redrawn.
const maxCodeAttempts = 5

const (
	msgEmailTaken       = "El correo electrónico ya está registrado. Por favor inicia sesión o restablece tu contraseña."
	msgEmailUnknown     = "El correo electrónico no está registrado. Por favor crea una cuenta."
	msgUserMissing      = "El usuario no existe."
	msgBadConfirmCode   = "El código de confirmación no es válido o ha expirado, solicita uno nuevo."
	msgBadResetCode     = "El código de restablecimiento no es válido o ha expirado, solicita uno nuevo."
	msgWrongPassword    = "La contraseña es incorrecta. Inténtalo nuevamente."
	msgProfileEmailUsed = "El correo electrónico ya está registrado. Por favor ingresa otro."
)

// NewAuthService creates a new AuthService.
func NewAuthService(s store.Store, mailer AccountMailer, jwt *auth.JWTManager, hasher Hasher) *AuthService {
	return &AuthService{store: s, mailer: mailer, jwt: jwt, hasher: hasher, now: time.Now, codes: newTokenCode}
}

func (s *AuthService) newToken(userID string, purpose models.TokenPurpose) (models.Token, error) {
	code, err := s.codes()
	if err != nil {
		return models.Token{}, err
	}
	now := s.now().UTC()
	return models.Token{
		ID:        uuid.New().String(),
		Token:     code,
		UserID:    userID,
		Purpose:   purpose,
		CreatedAt: now,
		ExpiresAt: now.Add(models.TokenTTL),
	}, nil
}

// saveWithFreshCode draws tokens until save accepts one. A code already held
// by a live token of the same purpose is redrawn, so every code resolves to
// exactly one user.
func (s *AuthService) saveWithFreshCode(userID string, purpose models.TokenPurpose, save func(models.Token) error) (models.Token, error) {
	for range maxCodeAttempts {
		token, err := s.newToken(userID, purpose)
		if err != nil {
			return models.Token{}, err
		}
		if err := save(token); !errors.Is(err, store.ErrTokenTaken) {
			return token, err
		}
	}
	return models.Token{}, fmt.Errorf("no free %s code after %d attempts", purpose, maxCodeAttempts)
}

// issueToken stores a fresh token for user and emails it.
func (s *AuthService) issueToken(ctx context.Context, user models.User, purpose models.TokenPurpose) error {
	token, err := s.saveWithFreshCode(user.ID, purpose, func(t models.Token) error {
		return s.store.CreateToken(ctx, t)
	})
	if err != nil {
		return fmt.Errorf("storing token: %w", err)
	}

	r := mail.Recipient{UserName: user.UserName, Email: user.Email, Token: token.Token}
	if purpose == models.TokenResetPassword {
		s.mailer.SendPasswordReset(r)
	} else {
		s.mailer.SendVerification(r)
	}
	return nil
}

// CreateAccount registers an unconfirmed user and sends the confirmation code.
func (s *AuthService) CreateAccount(ctx context.Context, userName, email, password string) error {
	email = NormalizeEmail(email)
	if _, err := s.store.GetUserByEmail(ctx, email); err == nil {
		return newError(KindConflict, msgEmailTaken)
	} else if !errors.Is(err, store.ErrNotFound) {
		return fmt.Errorf("looking up %s: %w", email, err)
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	user := models.User{
		ID:           uuid.New().String(),
		UserName:     strings.TrimSpace(userName),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    s.now().UTC(),
	}
	token, err := s.saveWithFreshCode(user.ID, models.TokenConfirmAccount, func(t models.Token) error {
		return s.store.CreateUserWithToken(ctx, user, t)
	})
	if errors.Is(err, store.ErrDuplicate) {
		return newError(KindConflict, msgEmailTaken)
	}
	if err != nil {
		return fmt.Errorf("creating account: %w", err)
	}

	s.mailer.SendVerification(mail.Recipient{UserName: user.UserName, Email: user.Email, Token: token.Token})
	return nil
}

// ConfirmAccount consumes a confirmation code and marks its user confirmed.
func (s *AuthService) ConfirmAccount(ctx context.Context, code string) error {
	token, err := s.lookupToken(ctx, code, models.TokenConfirmAccount)
	if err != nil {
		return err
	}
	if err := s.store.ConfirmUser(ctx, token.UserID, token.ID); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, msgUserMissing)
		}
		return fmt.Errorf("confirming account: %w", err)
	}
	return nil
}

// Login verifies the credentials and returns a signed session token.
func (s *AuthService) Login(ctx context.Context, email, password string) (string, error) {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return "", newError(KindUnauthorized, msgEmailUnknown)
	}
	if err != nil {
		return "", fmt.Errorf("looking up user: %w", err)
	}

	if !user.Confirmed {
		if err := s.issueToken(ctx, user, models.TokenConfirmAccount); err != nil {
			return "", err
		}
		return "", newError(KindUnauthorized, "La cuenta no está confirmada, te hemos enviado un correo electrónico con la instrucciones para confirmarla.")
	}

	if !s.hasher.Matches(user.PasswordHash, password) {
		return "", newError(KindUnauthorized, msgWrongPassword)
	}

	signed, err := s.jwt.Generate(user.ID)
	if err != nil {
		return "", fmt.Errorf("signing session: %w", err)
	}
	return signed, nil
}

// RequestToken sends a new confirmation code to an unconfirmed user.
func (s *AuthService) RequestToken(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	if user.Confirmed {
		return newError(KindForbidden, "Cuenta confirmada exitosamente, ya puedes iniciar sesión.")
	}
	return s.issueToken(ctx, user, models.TokenConfirmAccount)
}

// ResetPassword sends a password reset code.
func (s *AuthService) ResetPassword(ctx context.Context, email string) error {
	user, err := s.userByEmail(ctx, email)
	if err != nil {
		return err
	}
	return s.issueToken(ctx, user, models.TokenResetPassword)
}

// ConfirmResetPassword checks a reset code without consuming it.
func (s *AuthService) ConfirmResetPassword(ctx context.Context, code string) error {
	_, err := s.lookupToken(ctx, code, models.TokenResetPassword)
	return err
}

// NewPassword consumes a reset code and stores the new password.
func (s *AuthService) NewPassword(ctx context.Context, code, password string) error {
	token, err := s.lookupToken(ctx, code, models.TokenResetPassword)
	if err != nil {
		return err
	}
	hash, err := s.hasher.Hash(password)
	if err != nil {
		return err
	}
	if err := s.store.ResetUserPassword(ctx, token.UserID, token.ID, hash); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, msgUserMissing)
		}
		return fmt.Errorf("resetting password: %w", err)
	}
	return nil
}

// UpdateProfile changes the name and email of userID.
func (s *AuthService) UpdateProfile(ctx context.Context, userID, userName, email string) error {
	email = NormalizeEmail(email)
	existing, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil && existing.ID != userID:
		return newError(KindConflict, msgProfileEmailUsed)
	case err != nil && !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("looking up %s: %w", email, err)
	}

	err = s.store.UpdateUserProfile(ctx, userID, strings.TrimSpace(userName), email)
	switch {
	case errors.Is(err, store.ErrDuplicate):
		return newError(KindConflict, msgProfileEmailUsed)
	case errors.Is(err, store.ErrNotFound):
		return newError(KindNotFound, msgUserMissing)
	case err != nil:
		return fmt.Errorf("updating profile: %w", err)
	}
	return nil
}

// ChangePassword replaces the password of userID after verifying the
// current one. Reusing the current password is rejected.
func (s *AuthService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(user.PasswordHash, currentPassword) {
		return newError(KindUnauthorized, "La contraseña actual es incorrecta.")
	}
	if s.hasher.Matches(user.PasswordHash, newPassword) {
		return newError(KindConflict, "La nueva contraseña no puede ser igual a la actual.")
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	if err := s.store.UpdateUserPassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("changing password: %w", err)
	}
	return nil
}

// CheckPassword verifies password against the stored hash of userID.
func (s *AuthService) CheckPassword(ctx context.Context, userID, password string) error {
	user, err := s.userByID(ctx, userID)
	if err != nil {
		return err
	}
	if !s.hasher.Matches(user.PasswordHash, password) {
		return newError(KindUnauthorized, "La contraseña es incorrecta.")
	}
	return nil
}

func (s *AuthService) lookupToken(ctx context.Context, code string, purpose models.TokenPurpose) (models.Token, error) {
	token, err := s.store.FindToken(ctx, strings.TrimSpace(code), purpose, s.now())
	if errors.Is(err, store.ErrNotFound) {
		if purpose == models.TokenResetPassword {
			return models.Token{}, newError(KindUnauthorized, msgBadResetCode)
		}
		return models.Token{}, newError(KindUnauthorized, msgBadConfirmCode)
	}
	if err != nil {
		return models.Token{}, fmt.Errorf("looking up token: %w", err)
	}
	return token, nil
}

func (s *AuthService) userByEmail(ctx context.Context, email string) (models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, NormalizeEmail(email))
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, newError(KindNotFound, msgEmailUnknown)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("looking up user: %w", err)
	}
	return user, nil
}

func (s *AuthService) userByID(ctx context.Context, id string) (models.User, error) {
	user, err := s.store.GetUserByID(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return models.User{}, newError(KindNotFound, msgUserMissing)
	}
	if err != nil {
		return models.User{}, fmt.Errorf("loading user %s: %w", id, err)
	}
	return user, nil
}
