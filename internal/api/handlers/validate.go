package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/go-playground/validator/v10/non-standard/validators"
)

// FieldError is one entry of a validation failure response.
type FieldError struct {
	Field string `json:"field"`
	Msg   string `json:"msg"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	if err := v.RegisterValidation("notblank", validators.NotBlank); err != nil {
		panic(err)
	}
	return v
}

// fieldMessages holds the message for a field and failed rule. Unlisted
// combinations fall back to the field's "*" entry.
var fieldMessages = map[string]string{
	"userName.*":        "El nombre de usuario es requerido.",
	"email.*":           "El correo electrónico no es válido.",
	"password.min":      "La contraseña debe tener al menos 8 caracteres.",
	"password.*":        "La contraseña es requerida.",
	"passwordConfirm.*": "Las contraseñas no coinciden.",
	"confirmPassword.*": "Las contraseñas no coinciden.",
	"currPassword.*":    "La contraseña actual es requerida.",
	"token.*":           "El token es requerido.",
	"projectName.*":     "El nombre del proyecto es requerido.",
	"clientName.*":      "El cliente del proyecto es requerido.",
	"description.*":     "La descripción es requerida.",
	"taskName.*":        "El nombre de la tarea es requerido.",
	"status.*":          "El estado no es válido.",
	"id.*":              "El ID no es válido.",
	"content.*":         "El contenido de la nota es obligatorio.",
	"projectId.*":       "El ID del proyecto no es válido.",
	"taskId.*":          "El ID de la tarea no es válido.",
	"userId.*":          "El ID del usuario no es válido.",
	"noteId.*":          "El ID de la nota no es válido.",
}

func messageFor(field, tag string) string {
	if msg, ok := fieldMessages[field+"."+tag]; ok {
		return msg
	}
	if msg, ok := fieldMessages[field+".*"]; ok {
		return msg
	}
	return "Valor no válido."
}

func validationErrors(err error) []FieldError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []FieldError{{Msg: err.Error()}}
	}
	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{Field: fe.Field(), Msg: messageFor(fe.Field(), fe.Tag())}
	}
	return out
}

// decodeAndValidate reads a JSON body into dst and validates it. On failure
// it writes the 400 response and returns false.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeErrorMessage(w, http.StatusBadRequest, "Cuerpo de la petición no válido")
		return false
	}
	if err := validate.Struct(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]FieldError{"errors": validationErrors(err)})
		return false
	}
	return true
}

// validID checks a path parameter holds a well-formed identifier. On failure
// it writes the 400 response and returns false.
func validID(w http.ResponseWriter, name, value string) bool {
	if err := validate.Var(value, "required,uuid"); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string][]FieldError{
			"errors": {{Field: name, Msg: messageFor(name, "uuid")}},
		})
		return false
	}
	return true
}
