package http

import (
	"errors"
	"net/http"

	"github.com/aussiebroadwan/accounts/internal/accounts/service"
	"github.com/aussiebroadwan/accounts/pkg/httpx"
	"github.com/aussiebroadwan/accounts/pkg/slogx"
	"github.com/aussiebroadwan/accounts/pkg/validate"
)

// invalidShape is how one endpoint reports invalid input. Status and key
// differ between endpoints and clients depend on both.
type invalidShape struct {
	status  int
	key     string // "errors" or "validation"
	message string
}

var (
	registerInvalid = invalidShape{http.StatusUnprocessableEntity, "errors", service.MsgInvalidInput}
	loginInvalid    = invalidShape{http.StatusUnprocessableEntity, "validation", service.MsgInvalidInput}
	listInvalid     = invalidShape{http.StatusBadRequest, "validation", service.MsgInvalidInput}
	createInvalid   = invalidShape{http.StatusBadRequest, "validation", service.MsgInvalidInputCreate}
	updateInvalid   = invalidShape{http.StatusBadRequest, "validation", service.MsgInvalidInput}
	passwordInvalid = invalidShape{http.StatusUnprocessableEntity, "errors", service.MsgValidationFailed}
	deleteInvalid   = invalidShape{http.StatusUnprocessableEntity, "errors", service.MsgValidationFailed}
)

const msgServerError = "Server Error"

type errorWriter struct {
	exposeInternal bool
}

func (e *errorWriter) invalid(w http.ResponseWriter, shape invalidShape, fields validate.Errors) {
	if fields == nil {
		fields = validate.Errors{}
	}
	httpx.WriteJSON(w, shape.status, map[string]any{
		"message": shape.message,
		shape.key: fields,
	})
}

// write maps a service error to the endpoint's response.
func (e *errorWriter) write(w http.ResponseWriter, r *http.Request, shape invalidShape, err error) {
	log := slogx.FromContext(r.Context())

	var se *service.Error
	if !errors.As(err, &se) {
		log.Error("unexpected error", "error", err)
		httpx.WriteMessage(w, http.StatusInternalServerError, msgServerError)
		return
	}

	switch se.Kind {
	case service.KindInvalidInput:
		e.invalid(w, shape, se.Fields)
	case service.KindUnauthorized:
		httpx.WriteMessage(w, http.StatusUnauthorized, se.Message)
	case service.KindForbidden:
		httpx.WriteMessage(w, http.StatusForbidden, se.Message)
	case service.KindNotFound:
		httpx.WriteMessage(w, http.StatusNotFound, se.Message)
	default:
		log.Error(se.Message, "error", se.Err)
		body := map[string]string{"message": se.Message}
		if e.exposeInternal && se.Err != nil {
			body["errors"] = se.Err.Error()
		}
		httpx.WriteJSON(w, http.StatusInternalServerError, body)
	}
}
