package services_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/services"
	"github.com/isdelr/uptask-be/internal/store"
	"github.com/isdelr/uptask-be/internal/testutil"
)

var testHasher = services.Hasher{Cost: bcrypt.MinCost}

type authFixture struct {
	store  *store.SQLiteStore
	mailer *testutil.AccountMailer
	jwt    *auth.JWTManager
	svc    *services.AuthService
}

func newAuthFixture(t *testing.T) authFixture {
	t.Helper()
	f := authFixture{
		store:  testutil.NewStore(t),
		mailer: &testutil.AccountMailer{},
		jwt:    auth.NewJWTManager("test-secret"),
	}
	f.svc = services.NewAuthService(f.store, f.mailer, f.jwt, testHasher)
	return f
}

// confirmedUser registers and confirms an account through the service.
func (f authFixture) confirmedUser(t *testing.T, name, email, password string) models.User {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, f.svc.CreateAccount(ctx, name, email, password))
	require.NoError(t, f.svc.ConfirmAccount(ctx, f.mailer.LastVerificationCode(t)))
	user, err := f.store.GetUserByEmail(ctx, services.NormalizeEmail(email))
	require.NoError(t, err)
	return user
}

func TestCreateAccount(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	require.NoError(t, f.svc.CreateAccount(ctx, "  Ana  ", "  Ana@Example.COM ", "password123"))

	user, err := f.store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.UserName)
	assert.False(t, user.Confirmed)
	assert.NotEqual(t, "password123", user.PasswordHash)
	assert.True(t, testHasher.Matches(user.PasswordHash, "password123"))

	n, err := f.store.CountTokensForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	sent := f.mailer.Verifications()
	require.Len(t, sent, 1)
	assert.Equal(t, "ana@example.com", sent[0].Email)
	assert.Regexp(t, `^\d{6}$`, sent[0].Token)
}

func TestCreateAccountDuplicateEmail(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.svc.CreateAccount(ctx, "Ana", "ana@example.com", "password123"))

	err := f.svc.CreateAccount(ctx, "Other", "ANA@example.com", "password456")
	assert.Equal(t, services.KindConflict, services.KindOf(err))
	assert.EqualError(t, err, "El correo electrónico ya está registrado. Por favor inicia sesión o restablece tu contraseña.")

	user, err := f.store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.Equal(t, "Ana", user.UserName)
	assert.Len(t, f.mailer.Verifications(), 1)
}

func TestConfirmAccountTokenIsSingleUse(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.svc.CreateAccount(ctx, "Ana", "ana@example.com", "password123"))
	code := f.mailer.LastVerificationCode(t)

	require.NoError(t, f.svc.ConfirmAccount(ctx, code))
	user, err := f.store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, user.Confirmed)

	err = f.svc.ConfirmAccount(ctx, code)
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
}

func TestConfirmAccountRejectsExpiredToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := testutil.CreateUser(t, f.store, "Ana", "ana@example.com", "h")
	require.NoError(t, f.store.CreateToken(ctx, models.Token{
		ID:        uuid.New().String(),
		Token:     "424242",
		UserID:    user.ID,
		Purpose:   models.TokenConfirmAccount,
		CreatedAt: time.Now().Add(-8 * 24 * time.Hour),
		ExpiresAt: time.Now().Add(-24 * time.Hour),
	}))

	err := f.svc.ConfirmAccount(ctx, "424242")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
}

func TestLoginBeforeConfirmationIssuesOneToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.svc.CreateAccount(ctx, "Ana", "ana@example.com", "password123"))
	user, err := f.store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	before, err := f.store.CountTokensForUser(ctx, user.ID)
	require.NoError(t, err)

	_, err = f.svc.Login(ctx, "ana@example.com", "password123")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))

	after, err := f.store.CountTokensForUser(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, before+1, after)
	assert.Len(t, f.mailer.Verifications(), 2)
}

func TestLogin(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.confirmedUser(t, "Ana", "ana@example.com", "password123")

	token, err := f.svc.Login(ctx, "ANA@example.com", "password123")
	require.NoError(t, err)
	claims, err := f.jwt.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	_, err = f.svc.Login(ctx, "ana@example.com", "wrong-password")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
	assert.EqualError(t, err, "La contraseña es incorrecta. Inténtalo nuevamente.")

	_, err = f.svc.Login(ctx, "nobody@example.com", "password123")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
	assert.EqualError(t, err, "El correo electrónico no está registrado. Por favor crea una cuenta.")
}

func TestRequestToken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)

	err := f.svc.RequestToken(ctx, "nobody@example.com")
	assert.Equal(t, services.KindNotFound, services.KindOf(err))

	require.NoError(t, f.svc.CreateAccount(ctx, "Ana", "ana@example.com", "password123"))
	require.NoError(t, f.svc.RequestToken(ctx, "ana@example.com"))
	assert.Len(t, f.mailer.Verifications(), 2)

	require.NoError(t, f.svc.ConfirmAccount(ctx, f.mailer.LastVerificationCode(t)))
	err = f.svc.RequestToken(ctx, "ana@example.com")
	assert.Equal(t, services.KindForbidden, services.KindOf(err))
}

func TestPasswordResetFlow(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.confirmedUser(t, "Ana", "ana@example.com", "password123")

	err := f.svc.ResetPassword(ctx, "nobody@example.com")
	assert.Equal(t, services.KindNotFound, services.KindOf(err))

	require.NoError(t, f.svc.ResetPassword(ctx, "ana@example.com"))
	code := f.mailer.LastResetCode(t)

	// Reset codes cannot confirm accounts.
	assert.Equal(t, services.KindUnauthorized, services.KindOf(f.svc.ConfirmAccount(ctx, code)))

	// Checking the code does not consume it.
	require.NoError(t, f.svc.ConfirmResetPassword(ctx, code))
	require.NoError(t, f.svc.ConfirmResetPassword(ctx, code))

	require.NoError(t, f.svc.NewPassword(ctx, code, "brand-new-pass"))
	_, err = f.svc.Login(ctx, "ana@example.com", "brand-new-pass")
	assert.NoError(t, err)

	err = f.svc.NewPassword(ctx, code, "another-pass")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
	assert.EqualError(t, err, "El código de restablecimiento no es válido o ha expirado, solicita uno nuevo.")
}

// codeSequence hands out codes in order, repeating the last one.
func codeSequence(codes ...string) func() (string, error) {
	i := 0
	return func() (string, error) {
		code := codes[min(i, len(codes)-1)]
		i++
		return code, nil
	}
}

func liveToken(userID, code string, purpose models.TokenPurpose) models.Token {
	return models.Token{
		ID:        uuid.New().String(),
		Token:     code,
		UserID:    userID,
		Purpose:   purpose,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
}

func TestResetCodeActsOnlyOnItsOwner(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	f.confirmedUser(t, "Alice", "alice@example.com", "alice-password")
	bob := f.confirmedUser(t, "Bob", "bob@example.com", "bob-password")
	require.NoError(t, f.store.CreateToken(ctx, liveToken(bob.ID, "123456", models.TokenResetPassword)))

	f.svc.SetCodeSource(codeSequence("123456", "654321"))
	require.NoError(t, f.svc.ResetPassword(ctx, "alice@example.com"))
	code := f.mailer.LastResetCode(t)
	assert.Equal(t, "654321", code, "a code held by another live token is redrawn")

	require.NoError(t, f.svc.NewPassword(ctx, code, "alice-new-pass"))

	_, err := f.svc.Login(ctx, "alice@example.com", "alice-new-pass")
	assert.NoError(t, err)
	_, err = f.svc.Login(ctx, "bob@example.com", "bob-password")
	assert.NoError(t, err, "bob's password is untouched")
	_, err = f.svc.Login(ctx, "bob@example.com", "alice-new-pass")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))

	// Bob's own code still resets Bob.
	require.NoError(t, f.svc.NewPassword(ctx, "123456", "bob-new-pass"))
	_, err = f.svc.Login(ctx, "bob@example.com", "bob-new-pass")
	assert.NoError(t, err)
}

func TestCreateAccountRedrawsTakenCode(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	bob := f.confirmedUser(t, "Bob", "bob@example.com", "bob-password")
	require.NoError(t, f.store.CreateToken(ctx, liveToken(bob.ID, "111111", models.TokenConfirmAccount)))

	f.svc.SetCodeSource(codeSequence("111111", "222222"))
	require.NoError(t, f.svc.CreateAccount(ctx, "Ana", "ana@example.com", "password123"))
	assert.Equal(t, "222222", f.mailer.LastVerificationCode(t))

	require.NoError(t, f.svc.ConfirmAccount(ctx, "222222"))
	ana, err := f.store.GetUserByEmail(ctx, "ana@example.com")
	require.NoError(t, err)
	assert.True(t, ana.Confirmed)

	token, err := f.store.FindToken(ctx, "111111", models.TokenConfirmAccount, time.Now())
	require.NoError(t, err)
	assert.Equal(t, bob.ID, token.UserID)
}

func TestTokenIssueGivesUpWhenEveryCodeIsTaken(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	bob := f.confirmedUser(t, "Bob", "bob@example.com", "bob-password")
	f.confirmedUser(t, "Alice", "alice@example.com", "alice-password")
	require.NoError(t, f.store.CreateToken(ctx, liveToken(bob.ID, "123456", models.TokenResetPassword)))
	sent := len(f.mailer.Resets())

	f.svc.SetCodeSource(codeSequence("123456"))
	err := f.svc.ResetPassword(ctx, "alice@example.com")
	require.Error(t, err)
	assert.Zero(t, services.KindOf(err), "exhaustion is an internal failure")
	assert.Len(t, f.mailer.Resets(), sent, "nothing is emailed")
}

func TestConfirmationCodeCannotResetPassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	require.NoError(t, f.svc.CreateAccount(ctx, "Ana", "ana@example.com", "password123"))

	err := f.svc.ConfirmResetPassword(ctx, f.mailer.LastVerificationCode(t))
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))
}

func TestChangePassword(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	user := f.confirmedUser(t, "Ana", "ana@example.com", "password123")

	err := f.svc.ChangePassword(ctx, user.ID, "wrong", "password456")
	assert.Equal(t, services.KindUnauthorized, services.KindOf(err))

	err = f.svc.ChangePassword(ctx, user.ID, "password123", "password123")
	assert.Equal(t, services.KindConflict, services.KindOf(err))

	require.NoError(t, f.svc.ChangePassword(ctx, user.ID, "password123", "password456"))
	assert.NoError(t, f.svc.CheckPassword(ctx, user.ID, "password456"))
	assert.Equal(t, services.KindUnauthorized, services.KindOf(f.svc.CheckPassword(ctx, user.ID, "password123")))
}

func TestUpdateProfile(t *testing.T) {
	ctx := context.Background()
	f := newAuthFixture(t)
	ana := f.confirmedUser(t, "Ana", "ana@example.com", "password123")
	f.confirmedUser(t, "Bob", "bob@example.com", "password123")

	err := f.svc.UpdateProfile(ctx, ana.ID, "Ana", "bob@example.com")
	assert.Equal(t, services.KindConflict, services.KindOf(err))

	require.NoError(t, f.svc.UpdateProfile(ctx, ana.ID, " Ana María ", "ana@example.com"))
	got, err := f.store.GetUserByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ana María", got.UserName)

	require.NoError(t, f.svc.UpdateProfile(ctx, ana.ID, "Ana", "Ana.New@Example.com"))
	got, err = f.store.GetUserByID(ctx, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana.new@example.com", got.Email)
}
