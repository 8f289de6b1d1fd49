package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdelr/uptask-be/internal/services"
)

// TeamHandler handles HTTP requests for a project's team.
type TeamHandler struct {
	service services.TeamServiceProvider
}

// NewTeamHandler creates a new TeamHandler.
func NewTeamHandler(service services.TeamServiceProvider) *TeamHandler {
	return &TeamHandler{service: service}
}

// MemberPayload identifies the user to add.
type MemberPayload struct {
	ID string `json:"id" validate:"required,uuid"`
}

// Find looks up a user by email.
func (h *TeamHandler) Find(w http.ResponseWriter, r *http.Request) {
	var payload EmailPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	user, err := h.service.FindMemberByEmail(r.Context(), s.user.ID, s.project, payload.Email)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, user)
}

// GetAll lists the members of the resolved project.
func (h *TeamHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	team, err := h.service.GetTeam(r.Context(), scope(r).project)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, team)
}

// Add handles adding a user to the team.
func (h *TeamHandler) Add(w http.ResponseWriter, r *http.Request) {
	var payload MemberPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	s := scope(r)
	if err := h.service.AddMember(r.Context(), s.user.ID, s.project, payload.ID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Usuario agregado al equipo exitosamente.")
}

// Remove handles removing {userId} from the team.
func (h *TeamHandler) Remove(w http.ResponseWriter, r *http.Request) {
	userID := chi.URLParam(r, "userId")
	if !validID(w, "userId", userID) {
		return
	}
	s := scope(r)
	if err := h.service.RemoveMember(r.Context(), s.user.ID, s.project, userID); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Usuario eliminado del equipo exitosamente.")
}
