package handlers

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/services"
)

type resourceKey int

const (
	projectKey resourceKey = iota
	taskKey
)

// ProjectFromContext returns the project resolved by Resources.Project.
func ProjectFromContext(ctx context.Context) (models.Project, bool) {
	p, ok := ctx.Value(projectKey).(models.Project)
	return p, ok
}

// TaskFromContext returns the task resolved by Resources.Task.
func TaskFromContext(ctx context.Context) (models.Task, bool) {
	t, ok := ctx.Value(taskKey).(models.Task)
	return t, ok
}

// Resources resolves path parameters into the documents they name.
type Resources struct {
	projects services.ProjectServiceProvider
	tasks    services.TaskServiceProvider
}

// NewResources creates the resolver middleware set.
func NewResources(projects services.ProjectServiceProvider, tasks services.TaskServiceProvider) *Resources {
	return &Resources{projects: projects, tasks: tasks}
}

// Project loads {projectId} and requires the user to manage or belong to it.
func (m *Resources) Project(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "projectId")
		if !validID(w, "projectId", id) {
			return
		}
		user, ok := auth.UserFromContext(r.Context())
		if !ok {
			writeErrorMessage(w, http.StatusUnauthorized, "Acción no autorizada")
			return
		}

		project, err := m.projects.LoadProject(r.Context(), user.ID, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), projectKey, project)))
	})
}

// Task loads {taskId} and requires it to belong to the resolved project.
func (m *Resources) Task(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "taskId")
		if !validID(w, "taskId", id) {
			return
		}
		project, ok := ProjectFromContext(r.Context())
		if !ok {
			writeErrorMessage(w, http.StatusNotFound, "Proyecto no encontrado")
			return
		}

		task, err := m.tasks.LoadTask(r.Context(), project, id)
		if err != nil {
			writeError(w, r, err)
			return
		}
		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), taskKey, task)))
	})
}

// requestScope bundles what a handler behind the resolvers works with.
type requestScope struct {
	user    models.User
	project models.Project
	task    models.Task
}

func scope(r *http.Request) requestScope {
	var s requestScope
	s.user, _ = auth.UserFromContext(r.Context())
	s.project, _ = ProjectFromContext(r.Context())
	s.task, _ = TaskFromContext(r.Context())
	return s
}
