package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

type userMap map[string]models.User

func (m userMap) GetUserByID(_ context.Context, id string) (models.User, error) {
	if id == "broken" {
		return models.User{}, errors.New("db down")
	}
	u, ok := m[id]
	if !ok {
		return models.User{}, store.ErrNotFound
	}
	return u, nil
}

func protected(t *testing.T, m *JWTManager) (http.Handler, *models.User) {
	t.Helper()
	var seen models.User
	users := userMap{"u1": {ID: "u1", UserName: "Ana", Email: "ana@example.com", PasswordHash: "hash", Confirmed: true}}
	h := Middleware(m, users)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := UserFromContext(r.Context())
		require.True(t, ok)
		seen = user
		w.WriteHeader(http.StatusNoContent)
	}))
	return h, &seen
}

func call(h http.Handler, authorization string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/projects", nil)
	if authorization != "" {
		req.Header.Set("Authorization", authorization)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func errorOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body["error"]
}

func TestMiddlewareAttachesUser(t *testing.T) {
	m := NewJWTManager("secret")
	h, seen := protected(t, m)
	token, err := m.Generate("u1")
	require.NoError(t, err)

	rec := call(h, "Bearer "+token)
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, "u1", seen.ID)
	assert.Empty(t, seen.PasswordHash, "hash never reaches handlers")
}

func TestMiddlewareRejects(t *testing.T) {
	m := NewJWTManager("secret")
	h, _ := protected(t, m)
	gone, err := m.Generate("deleted")
	require.NoError(t, err)
	broken, err := m.Generate("broken")
	require.NoError(t, err)

	rec := call(h, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Acción no autorizada", errorOf(t, rec))

	rec = call(h, "Basic abc")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(h, "Bearer garbage")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "Error al autenticar al usuario", errorOf(t, rec))

	rec = call(h, "Bearer "+gone)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = call(h, "Bearer "+broken)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
