package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/isdelr/uptask-be/internal/auth"
	"github.com/isdelr/uptask-be/internal/services"
)

// AuthHandler handles HTTP requests for accounts and sessions.
type AuthHandler struct {
	service services.AuthServiceProvider
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(service services.AuthServiceProvider) *AuthHandler {
	return &AuthHandler{service: service}
}

// CreateAccountPayload defines the structure for registration requests.
type CreateAccountPayload struct {
	UserName        string `json:"userName" validate:"required,notblank"`
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
	Email           string `json:"email" validate:"required,email"`
}

// TokenPayload carries a six digit confirmation or reset code.
type TokenPayload struct {
	Token string `json:"token" validate:"required,notblank"`
}

// LoginPayload defines the structure for login requests.
type LoginPayload struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// EmailPayload carries the address a code is sent to.
type EmailPayload struct {
	Email string `json:"email" validate:"required,email"`
}

// NewPasswordPayload defines the structure for password reset requests.
type NewPasswordPayload struct {
	Password        string `json:"password" validate:"required,min=8"`
	PasswordConfirm string `json:"passwordConfirm" validate:"required,eqfield=Password"`
}

// ProfilePayload defines the structure for profile updates.
type ProfilePayload struct {
	UserName string `json:"userName" validate:"required,notblank"`
	Email    string `json:"email" validate:"required,email"`
}

// ChangePasswordPayload defines the structure for password changes.
type ChangePasswordPayload struct {
	CurrPassword    string `json:"currPassword" validate:"required"`
	Password        string `json:"password" validate:"required,min=8"`
	ConfirmPassword string `json:"confirmPassword" validate:"required,eqfield=Password"`
}

// CheckPasswordPayload carries the password to verify.
type CheckPasswordPayload struct {
	Password string `json:"password" validate:"required"`
}

// CreateAccount handles new user registration.
func (h *AuthHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var payload CreateAccountPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.service.CreateAccount(r.Context(), payload.UserName, payload.Email, payload.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Cuenta creada exitosamente, verifica tu correo electrónico para confirmar tu cuenta.")
}

// ConfirmAccount handles account confirmation codes.
func (h *AuthHandler) ConfirmAccount(w http.ResponseWriter, r *http.Request) {
	var payload TokenPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.service.ConfirmAccount(r.Context(), payload.Token); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Cuenta confirmada exitosamente, ya puedes iniciar sesión.")
}

// Login handles authentication and answers with the session token.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var payload LoginPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	token, err := h.service.Login(r.Context(), payload.Email, payload.Password)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, token)
}

// RequestToken handles requests for a new confirmation code.
func (h *AuthHandler) RequestToken(w http.ResponseWriter, r *http.Request) {
	var payload EmailPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.service.RequestToken(r.Context(), payload.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Código de confirmación enviado exitosamente, verifica tu correo electrónico para confirmar tu cuenta.")
}

// ResetPassword handles requests for a password reset code.
func (h *AuthHandler) ResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload EmailPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.service.ResetPassword(r.Context(), payload.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Código de restablecimiento enviado exitosamente, verifica tu correo electrónico para restablecer su contraseña.")
}

// ConfirmResetPassword checks a reset code before the new password is sent.
func (h *AuthHandler) ConfirmResetPassword(w http.ResponseWriter, r *http.Request) {
	var payload TokenPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.service.ConfirmResetPassword(r.Context(), payload.Token); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Código de restablecimiento válido, ya puedes ingresar una nueva contraseña.")
}

// NewPassword handles the final step of a password reset.
func (h *AuthHandler) NewPassword(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if err := validate.Var(token, "required,numeric"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]FieldError{
			"errors": {{Field: "token", Msg: messageFor("token", "numeric")}},
		})
		return
	}
	var payload NewPasswordPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	if err := h.service.NewPassword(r.Context(), token, payload.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Contraseña restablecida exitosamente. Ya puedes iniciar sesión con la nueva contraseña.")
}

// GetUser returns the authenticated user.
func (h *AuthHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, ok := auth.UserFromContext(r.Context())
	if !ok {
		writeErrorMessage(w, http.StatusUnauthorized, "Acción no autorizada")
		return
	}
	writeJSON(w, http.StatusOK, user.Summary())
}

// UpdateProfile changes the authenticated user's name and email.
func (h *AuthHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var payload ProfilePayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	if err := h.service.UpdateProfile(r.Context(), user.ID, payload.UserName, payload.Email); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Perfil actualizado exitosamente.")
}

// ChangePassword changes the authenticated user's password.
func (h *AuthHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var payload ChangePasswordPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	if err := h.service.ChangePassword(r.Context(), user.ID, payload.CurrPassword, payload.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "Contraseña actualizada exitosamente.")
}

// CheckPassword verifies the authenticated user's password.
func (h *AuthHandler) CheckPassword(w http.ResponseWriter, r *http.Request) {
	var payload CheckPasswordPayload
	if !decodeAndValidate(w, r, &payload) {
		return
	}
	user, _ := auth.UserFromContext(r.Context())
	if err := h.service.CheckPassword(r.Context(), user.ID, payload.Password); err != nil {
		writeError(w, r, err)
		return
	}
	writeMessage(w, "La contraseña es correcta.")
}
