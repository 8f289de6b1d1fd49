package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdelr/uptask-be/internal/services"
)

// NoteHandler handles HTTP requests for the notes of a task.
type NoteHandler struct {
	service services.NoteServiceProvider
}

// NewNoteHandler creates a new NoteHandler.
func NewNoteHandler(service services.NoteServiceProvider) *NoteHandler {
	return &NoteHandler{service: service}
}

// NotePayload carries the text of a note.
type NotePayload struct {
	Content string `json:"content" validate:"required,notblank"`
}

// Create handles adding a note to the resolved task.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	var payload NotePayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if _, err := h.service.CreateNote(r.Context(), s.user.ID, s.task, payload.Content); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, "Nota creada exitosamente.")
}

// GetAll lists the notes of the resolved task.
func (h *NoteHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	notes, err := h.service.GetTaskNotes(r.Context(), scope(r).task)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, notes)
}

// Delete handles removing {noteId}. Only its author may delete it.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	noteID := chi.URLParam(r, "noteId")
	if !validID(w, "noteId", noteID) {
		return
	}
	s := scope(r)
	if err := h.service.DeleteNote(r.Context(), s.user.ID, s.task, noteID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Nota eliminada exitosamente.")
}
