package api

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"eivu-go/internal/eivu"
)

// envelope is the body of every response.
type envelope struct {
	Status    int    `json:"status"`
	StatusMsg string `json:"status_msg"`
	Data      any    `json:"data,omitempty"`
	Error     string `json:"error,omitempty"`
}

// StatusFor maps a service error to an HTTP status code.
func StatusFor(err error) int {
	switch {
	case err == nil:
		return http.StatusOK
	case errors.Is(err, eivu.ErrDuplicateContent),
		errors.Is(err, eivu.ErrInvalidTransition),
		errors.Is(err, eivu.ErrFolderConflict):
		return http.StatusConflict
	case errors.Is(err, eivu.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, eivu.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, eivu.ErrMissingRegion):
		return http.StatusServiceUnavailable
	case errors.Is(err, eivu.ErrRemoteGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// statusMsg turns a status code into a snake_case token: 404 -> "not_found".
func statusMsg(code int) string {
	return strings.ReplaceAll(strings.ToLower(http.StatusText(code)), " ", "_")
}

func respond(c *gin.Context, code int, data any) {
	c.JSON(code, envelope{Status: code, StatusMsg: statusMsg(code), Data: data})
}

func respondError(c *gin.Context, err error) {
	code := StatusFor(err)
	c.JSON(code, envelope{Status: code, StatusMsg: statusMsg(code), Error: err.Error()})
}
