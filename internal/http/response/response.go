package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/aikhq/aik-backend/internal/pkg/apperr"
)

type APIError struct {
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
}

type ErrorEnvelope struct {
	Error APIError `json:"error"`
}

func RespondError(c *gin.Context, status int, code string, err error) {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	c.JSON(status, ErrorEnvelope{Error: APIError{Message: msg, Code: code}})
}

// RespondAppError maps an apperr kind onto an HTTP status.
func RespondAppError(c *gin.Context, err error) {
	ae, ok := apperr.As(err)
	if !ok {
		RespondError(c, http.StatusInternalServerError, "internal_error", err)
		return
	}
	status := http.StatusInternalServerError
	switch ae.Kind {
	case apperr.KindValidation:
		status = http.StatusUnprocessableEntity
	case apperr.KindNotReady:
		status = http.StatusConflict
	case apperr.KindProvider, apperr.KindTerminal, apperr.KindNetwork:
		status = http.StatusBadGateway
	case apperr.KindStorage:
		status = http.StatusInternalServerError
	}
	RespondError(c, status, ae.Code, err)
}

func RespondOK(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusOK, payload)
}

func RespondCreated(c *gin.Context, payload interface{}) {
	c.JSON(http.StatusCreated, payload)
}
