// Package testutil holds fakes and fixtures shared by package tests.
package testutil

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/uptask-be/internal/mail"
	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

// NewStore returns an empty in-memory SQLite store closed with the test.
func NewStore(t testing.TB) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// AccountMailer records the account emails it is asked to send.
type AccountMailer struct {
	mu            sync.Mutex
	verifications []mail.Recipient
	resets        []mail.Recipient
}

func (m *AccountMailer) SendVerification(r mail.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications = append(m.verifications, r)
}

func (m *AccountMailer) SendPasswordReset(r mail.Recipient) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets = append(m.resets, r)
}

// Verifications returns the confirmation emails sent so far.
func (m *AccountMailer) Verifications() []mail.Recipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Recipient(nil), m.verifications...)
}

// Resets returns the password reset emails sent so far.
func (m *AccountMailer) Resets() []mail.Recipient {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Recipient(nil), m.resets...)
}

// LastVerificationCode returns the code of the latest confirmation email.
func (m *AccountMailer) LastVerificationCode(t testing.TB) string {
	t.Helper()
	v := m.Verifications()
	require.NotEmpty(t, v, "no verification email sent")
	return v[len(v)-1].Token
}

// LastResetCode returns the code of the latest reset email.
func (m *AccountMailer) LastResetCode(t testing.TB) string {
	t.Helper()
	r := m.Resets()
	require.NotEmpty(t, r, "no reset email sent")
	return r[len(r)-1].Token
}

// Mailer records delivered messages and signals each one on Delivered.
type Mailer struct {
	mu        sync.Mutex
	sent      []mail.Message
	Delivered chan mail.Message
	Err       error
}

// NewMailer returns a recording mailer with a buffered delivery channel.
func NewMailer() *Mailer {
	return &Mailer{Delivered: make(chan mail.Message, 16)}
}

func (m *Mailer) Send(_ context.Context, msg mail.Message) error {
	m.mu.Lock()
	m.sent = append(m.sent, msg)
	m.mu.Unlock()
	select {
	case m.Delivered <- msg:
	default:
	}
	return m.Err
}

// Sent returns every message passed to Send.
func (m *Mailer) Sent() []mail.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]mail.Message(nil), m.sent...)
}

// Broadcaster records hub publications and evictions.
type Broadcaster struct {
	mu       sync.Mutex
	Messages map[string][][]byte
	// Evictions holds "project/user" pairs in call order.
	Evictions []string
}

func (b *Broadcaster) BroadcastTo(projectID string, message []byte) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.Messages == nil {
		b.Messages = make(map[string][][]byte)
	}
	b.Messages[projectID] = append(b.Messages[projectID], message)
}

func (b *Broadcaster) Evict(projectID, userID string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Evictions = append(b.Evictions, projectID+"/"+userID)
}

// Evicted returns a copy of the recorded evictions.
func (b *Broadcaster) Evicted() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.Evictions...)
}

// Count returns how many messages were published for projectID.
func (b *Broadcaster) Count(projectID string) int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.Messages[projectID])
}

// CreateUser inserts a confirmed user with the given password hash. Users
// are always stored with a token; this one is already expired.
func CreateUser(t testing.TB, s store.Store, userName, email, passwordHash string) models.User {
	t.Helper()
	user := models.User{
		ID:           uuid.New().String(),
		UserName:     userName,
		Email:        email,
		PasswordHash: passwordHash,
		Confirmed:    true,
		CreatedAt:    time.Now().UTC(),
	}
	token := models.Token{
		ID:        uuid.New().String(),
		Token:     "000000",
		UserID:    user.ID,
		Purpose:   models.TokenConfirmAccount,
		CreatedAt: time.Now().UTC(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, s.CreateUserWithToken(context.Background(), user, token))
	return user
}

// CreateProject inserts a project managed by managerID with team members.
func CreateProject(t testing.TB, s store.Store, name, managerID string, team ...string) models.Project {
	t.Helper()
	now := time.Now().UTC()
	project := models.Project{
		ID:          uuid.New().String(),
		ProjectName: name,
		ClientName:  "Acme",
		Description: "Test project",
		Manager:     managerID,
		Team:        append([]string{}, team...),
		Tasks:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateProject(context.Background(), project))
	return project
}

// CreateTask inserts a pending task under projectID.
func CreateTask(t testing.TB, s store.Store, projectID, name string) models.Task {
	t.Helper()
	now := time.Now().UTC()
	task := models.Task{
		ID:          uuid.New().String(),
		TaskName:    name,
		Description: "Test task",
		Project:     projectID,
		Status:      models.StatusPending,
		CompletedBy: []models.StatusChange{},
		Notes:       []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	require.NoError(t, s.CreateTask(context.Background(), task))
	return task
}
