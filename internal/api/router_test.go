package api_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/isdelr/uptask-be/internal/api"
	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/services"
	"github.com/isdelr/uptask-be/internal/testutil"
	"github.com/isdelr/uptask-be/internal/websocket"
)

const clientURL = "http://app.example.com"

type testServer struct {
	t      *testing.T
	router http.Handler
	mailer *testutil.AccountMailer
}

func newTestServer(t *testing.T, allowNoOrigin bool) *testServer {
	t.Helper()
	st := testutil.NewStore(t)
	mailer := &testutil.AccountMailer{}
	jwtManager := auth.NewJWTManager("test-secret")
	hub := websocket.NewHub()
	go hub.Run()
	t.Cleanup(hub.Stop)

	events := services.NewEventService(st, hub)
	svc := api.Services{
		Auth:     services.NewAuthService(st, mailer, jwtManager, services.Hasher{Cost: bcrypt.MinCost}),
		Projects: services.NewProjectService(st, events),
		Tasks:    services.NewTaskService(st, events),
		Team:     services.NewTeamService(st, events),
		Notes:    services.NewNoteService(st, events),
		Events:   events,
	}
	router := api.NewRouter(api.Options{ClientURL: clientURL, AllowNoOrigin: allowNoOrigin}, hub, jwtManager, st, svc)
	return &testServer{t: t, router: router, mailer: mailer}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Origin", clientURL)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

// signup creates, confirms and logs in an account, returning its bearer token.
func (s *testServer) signup(name, email string) string {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"userName": name, "email": email, "password": "password123", "passwordConfirm": "password123",
	})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/confirm-account", "", map[string]string{"token": s.mailer.LastVerificationCode(s.t)})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": "password123"})
	require.Equal(s.t, http.StatusOK, rec.Code, rec.Body.String())
	return decode[string](s.t, rec)
}

func (s *testServer) currentUser(token string) models.UserSummary {
	s.t.Helper()
	rec := s.do(http.MethodGet, "/api/auth/user", token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	return decode[models.UserSummary](s.t, rec)
}

func (s *testServer) createProject(token, name string) models.Project {
	s.t.Helper()
	rec := s.do(http.MethodPost, "/api/projects", token, map[string]string{
		"projectName": name, "clientName": "Acme", "description": "Site",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, "/api/projects", token, nil)
	require.Equal(s.t, http.StatusOK, rec.Code)
	projects := decode[[]models.Project](s.t, rec)
	require.NotEmpty(s.t, projects)
	return projects[0]
}

func TestHealthz(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestOriginGate(t *testing.T) {
	s := newTestServer(t, false)
	req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Error de CORS", decode[map[string]string](t, rec)["error"])

	apiOnly := newTestServer(t, true)
	req = httptest.NewRequest(http.MethodPost, "/api/auth/login", bytes.NewBufferString(`{}`))
	rec = httptest.NewRecorder()
	apiOnly.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "API clients reach validation")
}

func TestCreateAccountValidation(t *testing.T) {
	s := newTestServer(t, false)
	rec := s.do(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"userName": " ", "email": "nope", "password": "short", "passwordConfirm": "other",
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	body := decode[struct {
		Errors []struct {
			Field string `json:"field"`
			Msg   string `json:"msg"`
		} `json:"errors"`
	}](t, rec)
	fields := map[string]bool{}
	for _, e := range body.Errors {
		fields[e.Field] = true
		assert.NotEmpty(t, e.Msg)
	}
	assert.True(t, fields["userName"])
	assert.True(t, fields["email"])
	assert.True(t, fields["password"])
	assert.True(t, fields["passwordConfirm"])
}

func TestAccountFlow(t *testing.T) {
	s := newTestServer(t, false)
	token := s.signup("Ana", "ana@example.com")

	user := s.currentUser(token)
	assert.Equal(t, "Ana", user.UserName)
	assert.Equal(t, "ana@example.com", user.Email)

	rec := s.do(http.MethodPost, "/api/auth/create-account", "", map[string]string{
		"userName": "Ana", "email": "ana@example.com", "password": "password123", "passwordConfirm": "password123",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "wrong-password"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodGet, "/api/auth/user", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/check-password", token, map[string]string{"password": "password123"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestPasswordResetFlow(t *testing.T) {
	s := newTestServer(t, false)
	s.signup("Ana", "ana@example.com")

	rec := s.do(http.MethodPost, "/api/auth/reset-password", "", map[string]string{"email": "ana@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	code := s.mailer.LastResetCode(t)

	rec = s.do(http.MethodPost, "/api/auth/confirm-reset-password", "", map[string]string{"token": code})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/new-password/abc", "", map[string]string{"password": "newpassword1", "passwordConfirm": "newpassword1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/new-password/"+code, "", map[string]string{"password": "newpassword1", "passwordConfirm": "newpassword1"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ana@example.com", "password": "newpassword1"})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestProjectAccess(t *testing.T) {
	s := newTestServer(t, false)
	manager := s.signup("Manager", "manager@example.com")
	member := s.signup("Member", "member@example.com")
	outsider := s.signup("Outsider", "outsider@example.com")
	project := s.createProject(manager, "Site Redesign")
	base := "/api/projects/" + project.ID

	rec := s.do(http.MethodGet, base, outsider, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, "/api/projects/not-a-uuid", manager, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodGet, "/api/projects/00000000-0000-4000-8000-000000000000", manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = s.do(http.MethodPost, base+"/team/find", manager, map[string]string{"email": "member@example.com"})
	require.Equal(t, http.StatusOK, rec.Code)
	found := decode[models.UserSummary](t, rec)

	rec = s.do(http.MethodPost, base+"/team", manager, map[string]string{"id": found.ID})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	rec = s.do(http.MethodPost, base+"/team", manager, map[string]string{"id": found.ID})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = s.do(http.MethodGet, base, member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Site Redesign", decode[models.ProjectDetail](t, rec).ProjectName)

	rec = s.do(http.MethodPut, base, member, map[string]string{"projectName": "Mine", "clientName": "x", "description": "y"})
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec = s.do(http.MethodDelete, base, member, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec = s.do(http.MethodGet, base+"/team", member, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode[[]models.UserSummary](t, rec), 1)

	rec = s.do(http.MethodPost, base, manager, nil)
	assert.Equal(t, http.StatusCreated, rec.Code, "duplicate")

	rec = s.do(http.MethodDelete, base+"/team/"+found.ID, manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, base, member, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestTaskAndNoteRoutes(t *testing.T) {
	s := newTestServer(t, false)
	manager := s.signup("Manager", "manager@example.com")
	project := s.createProject(manager, "Site Redesign")
	other := s.createProject(manager, "Other")
	base := "/api/projects/" + project.ID

	rec := s.do(http.MethodPost, base+"/tasks", manager, map[string]string{"taskName": "", "description": "d"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = s.do(http.MethodPost, base+"/tasks", manager, map[string]string{"taskName": "Login page", "description": "d"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	rec = s.do(http.MethodGet, base+"/tasks", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	tasks := decode[[]struct {
		ID string `json:"_id"`
	}](t, rec)
	require.Len(t, tasks, 1)
	taskPath := base + "/tasks/" + tasks[0].ID

	rec = s.do(http.MethodGet, "/api/projects/"+other.ID+"/tasks/"+tasks[0].ID, manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code, "task belongs to another project")

	rec = s.do(http.MethodPost, taskPath+"/status", manager, map[string]string{"status": "done"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec = s.do(http.MethodPost, taskPath+"/status", manager, map[string]string{"status": "inProgress"})
	require.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodPost, taskPath+"/notes", manager, map[string]string{"content": "Check copy"})
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = s.do(http.MethodGet, taskPath, manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	detail := decode[models.TaskDetail](t, rec)
	assert.Equal(t, models.StatusInProgress, detail.Status)
	require.Len(t, detail.CompletedBy, 1)
	assert.Equal(t, "Manager", detail.CompletedBy[0].User.UserName)
	require.Len(t, detail.Notes, 1)

	rec = s.do(http.MethodDelete, taskPath+"/notes/"+detail.Notes[0].ID, manager, nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = s.do(http.MethodGet, base+"/activity?limit=2", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	activity := decode[[]models.Event](t, rec)
	require.Len(t, activity, 2)
	assert.Equal(t, "note.delete", activity[0].Type)

	rec = s.do(http.MethodDelete, taskPath, manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec = s.do(http.MethodGet, taskPath, manager, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
