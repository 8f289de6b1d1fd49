package handlers

import (
	"net/http"

	"github.com/isdelr/uptask-be/internal/services"
)

// ProjectHandler handles HTTP requests for project management.
type ProjectHandler struct {
	service services.ProjectServiceProvider
}

// NewProjectHandler creates a new ProjectHandler.
func NewProjectHandler(service services.ProjectServiceProvider) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// Create handles creating a project managed by the requester.
func (h *ProjectHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload services.ProjectInput
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if _, err := h.service.CreateProject(r.Context(), s.user.ID, payload); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Proyecto creado exitosamente")
}

// GetAll lists the projects the requester manages or belongs to.
func (h *ProjectHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	projects, err := h.service.GetAllProjects(r.Context(), scope(r).user.ID)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// Get returns the resolved project with its tasks.
func (h *ProjectHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetProjectDetail(r.Context(), scope(r).project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update handles replacing a project's descriptive fields.
func (h *ProjectHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload services.ProjectInput
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if err := h.service.UpdateProject(r.Context(), s.user.ID, s.project, payload); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Proyecto actualizado exitosamente.")
}

// Delete handles deleting a project and everything under it.
func (h *ProjectHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := scope(r)
	if err := h.service.DeleteProject(r.Context(), s.user.ID, s.project); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Proyecto eliminado exitosamente.")
}

// Duplicate handles copying a project without its tasks.
func (h *ProjectHandler) Duplicate(w http.ResponseWriter, r *http.Request) {
	s := scope(r)
	if _, err := h.service.DuplicateProject(r.Context(), s.user.ID, s.project); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Proyecto duplicado exitosamente.")
}
