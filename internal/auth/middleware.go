package auth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/hlog"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/store"
)

type contextKey string

const userKey = contextKey("user")

// UserLoader resolves the subject of a token to a user.
type UserLoader interface {
	GetUserByID(ctx context.Context, id string) (models.User, error)
}

// WithUser returns a copy of ctx carrying the authenticated user.
func WithUser(ctx context.Context, user models.User) context.Context {
	return context.WithValue(ctx, userKey, user)
}

// UserFromContext returns the authenticated user attached by Middleware.
func UserFromContext(ctx context.Context) (models.User, bool) {
	user, ok := ctx.Value(userKey).(models.User)
	return user, ok
}

// Middleware protects routes with a bearer token and attaches the user.
func Middleware(jwtManager *JWTManager, users UserLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scheme, tokenStr, ok := strings.Cut(r.Header.Get("Authorization"), " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || tokenStr == "" {
				writeError(w, http.StatusUnauthorized, "Acción no autorizada")
				return
			}

			claims, err := jwtManager.Validate(tokenStr)
			if err != nil {
				hlog.FromRequest(r).Debug().Err(err).Msg("Rejected bearer token")
				writeError(w, http.StatusUnauthorized, "Error al autenticar al usuario")
				return
			}

			user, err := users.GetUserByID(r.Context(), claims.UserID)
			if errors.Is(err, store.ErrNotFound) {
				writeError(w, http.StatusUnauthorized, "Error al autenticar al usuario")
				return
			}
			if err != nil {
				hlog.FromRequest(r).Error().Err(err).Str("user_id", claims.UserID).Msg("Failed to load authenticated user")
				writeError(w, http.StatusInternalServerError, "Error al autenticar al usuario")
				return
			}
			user.PasswordHash = ""

			next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
		})
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": message})
}
