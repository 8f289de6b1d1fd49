package handlers

import (
	"net/http"

	"github.com/isdelr/uptask-be/internal/models"
	"github.com/isdelr/uptask-be/internal/services"
)

// TaskHandler handles HTTP requests for the tasks of a project.
type TaskHandler struct {
	service services.TaskServiceProvider
}

// NewTaskHandler creates a new TaskHandler.
func NewTaskHandler(service services.TaskServiceProvider) *TaskHandler {
	return &TaskHandler{service: service}
}

// StatusPayload carries the target status of a task.
type StatusPayload struct {
	Status models.TaskStatus `json:"status" validate:"required,oneof=pending onHold inProgress underReview completed"`
}

// Create handles adding a task to the resolved project.
func (h *TaskHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload services.TaskInput
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if _, err := h.service.CreateTask(r.Context(), s.user.ID, s.project, payload); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Tarea creada exitosamente.")
}

// GetAll lists the tasks of the resolved project.
func (h *TaskHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	tasks, err := h.service.GetAllTasks(r.Context(), scope(r).project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

// Get returns the resolved task with its history and notes.
func (h *TaskHandler) Get(w http.ResponseWriter, r *http.Request) {
	detail, err := h.service.GetTaskDetail(r.Context(), scope(r).task)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// Update handles renaming or redescribing a task.
func (h *TaskHandler) Update(w http.ResponseWriter, r *http.Request) {
	var payload services.TaskInput
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if err := h.service.UpdateTask(r.Context(), s.user.ID, s.project, s.task, payload); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Tarea actualizada exitosamente.")
}

// Delete handles removing a task and its notes.
func (h *TaskHandler) Delete(w http.ResponseWriter, r *http.Request) {
	s := scope(r)
	if err := h.service.DeleteTask(r.Context(), s.user.ID, s.project, s.task); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Tarea eliminada exitosamente.")
}

// UpdateStatus handles moving a task through the workflow.
func (h *TaskHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var payload StatusPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if err := h.service.UpdateTaskStatus(r.Context(), s.user.ID, s.task, payload.Status); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Estado de la tarea actualizado exitosamente.")
}
