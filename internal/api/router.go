package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/hlog"
	"github.com/rs/zerolog/log"

	"github.com/isdelr/uptask-be/internal/api/handlers"
	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/services"
	"github.com/isdelr/uptask-be/internal/websocket"
)

// Options controls cross-origin access.
type Options struct {
	// ClientURL is the only browser origin allowed.
	ClientURL string
	// AllowNoOrigin admits requests without an Origin header (API clients).
	AllowNoOrigin bool
}

// Services groups the business logic the router exposes.
type Services struct {
	Auth     services.AuthServiceProvider
	Projects services.ProjectServiceProvider
	Tasks    services.TaskServiceProvider
	Team     services.TeamServiceProvider
	Notes    services.NoteServiceProvider
	Events   services.EventServiceProvider
}

// NewRouter creates and configures a new Chi router.
func NewRouter(opts Options, hub *websocket.Hub, jwtManager *auth.JWTManager, users auth.UserLoader, svc Services) *chi.Mux {
	r := chi.NewRouter()

	// Basic middleware stack
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(hlog.NewHandler(log.Logger))
	r.Use(requestIDLogger)
	r.Use(hlog.AccessHandler(accessLog))
	r.Use(middleware.Recoverer)

	r.Use(cors.Handler(cors.Options{
		AllowOriginFunc:  func(_ *http.Request, origin string) bool { return allowedOrigin(opts, origin) },
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"ok"}`))
	})

	authHandler := handlers.NewAuthHandler(svc.Auth)
	projectHandler := handlers.NewProjectHandler(svc.Projects)
	taskHandler := handlers.NewTaskHandler(svc.Tasks)
	teamHandler := handlers.NewTeamHandler(svc.Team)
	noteHandler := handlers.NewNoteHandler(svc.Notes)
	eventHandler := handlers.NewEventHandler(svc.Events)
	wsHandler := handlers.NewWebSocketHandler(hub, func(req *http.Request) bool {
		return allowedOrigin(opts, req.Header.Get("Origin"))
	})
	resources := handlers.NewResources(svc.Projects, svc.Tasks)
	requireUser := auth.Middleware(jwtManager, users)

	r.Route("/api", func(r chi.Router) {
		r.Use(originGate(opts))

		r.Route("/auth", func(r chi.Router) {
			r.Post("/create-account", authHandler.CreateAccount)
			r.Post("/confirm-account", authHandler.ConfirmAccount)
			r.Post("/login", authHandler.Login)
			r.Post("/request-token", authHandler.RequestToken)
			r.Post("/reset-password", authHandler.ResetPassword)
			r.Post("/confirm-reset-password", authHandler.ConfirmResetPassword)
			r.Post("/new-password/{token}", authHandler.NewPassword)

			r.Group(func(r chi.Router) {
				r.Use(requireUser)
				r.Get("/user", authHandler.GetUser)
				r.Put("/profile", authHandler.UpdateProfile)
				r.Post("/profile/change-password", authHandler.ChangePassword)
				r.Post("/check-password", authHandler.CheckPassword)
			})
		})

		r.Route("/projects", func(r chi.Router) {
			r.Use(requireUser)
			r.Post("/", projectHandler.Create)
			r.Get("/", projectHandler.GetAll)

			r.Route("/{projectId}", func(r chi.Router) {
				r.Use(resources.Project)
				r.Get("/", projectHandler.Get)
				r.Put("/", projectHandler.Update)
				r.Delete("/", projectHandler.Delete)
				r.Post("/", projectHandler.Duplicate)

				r.Get("/activity", eventHandler.GetRecent)
				r.Get("/ws", wsHandler.Serve)

				r.Route("/team", func(r chi.Router) {
					r.Post("/find", teamHandler.Find)
					r.Get("/", teamHandler.GetAll)
					r.Post("/", teamHandler.Add)
					r.Delete("/{userId}", teamHandler.Remove)
				})

				r.Route("/tasks", func(r chi.Router) {
					r.Post("/", taskHandler.Create)
					r.Get("/", taskHandler.GetAll)

					r.Route("/{taskId}", func(r chi.Router) {
						r.Use(resources.Task)
						r.Get("/", taskHandler.Get)
						r.Put("/", taskHandler.Update)
						r.Delete("/", taskHandler.Delete)
						r.Post("/status", taskHandler.UpdateStatus)

						r.Route("/notes", func(r chi.Router) {
							r.Post("/", noteHandler.Create)
							r.Get("/", noteHandler.GetAll)
							r.Delete("/{noteId}", noteHandler.Delete)
						})
					})
				})
			})
		})
	})

	return r
}

func allowedOrigin(opts Options, origin string) bool {
	if origin == "" {
		return opts.AllowNoOrigin
	}
	return strings.EqualFold(strings.TrimSuffix(origin, "/"), strings.TrimSuffix(opts.ClientURL, "/"))
}

// originGate rejects requests that carry no Origin header unless API
// clients are allowed.
func originGate(opts Options) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")
			if origin == "" && !opts.AllowNoOrigin {
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusForbidden)
				w.Write([]byte(`{"error":"Error de CORS"}`))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestIDLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := middleware.GetReqID(r.Context()); id != "" {
			zerolog.Ctx(r.Context()).UpdateContext(func(c zerolog.Context) zerolog.Context {
				return c.Str("req_id", id)
			})
		}
		next.ServeHTTP(w, r)
	})
}

func accessLog(r *http.Request, status, size int, duration time.Duration) {
	event := hlog.FromRequest(r).Info()
	if status >= http.StatusInternalServerError {
		event = hlog.FromRequest(r).Error()
	}
	event.
		Str("method", r.Method).
		Stringer("url", r.URL).
		Int("status", status).
		Int("size", size).
		Dur("duration", duration).
		Msg("Request handled")
}
