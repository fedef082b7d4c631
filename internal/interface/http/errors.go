package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	app "github.com/zuetani/earth-tribe/internal/application"
	"github.com/zuetani/earth-tribe/pkg/response"
)

// writeError maps service errors onto the error envelope. Anything unexpected
// becomes a 500 without leaking its text.
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, app.ErrInvalidCredentials):
		response.Fail(c, http.StatusUnauthorized, app.ErrInvalidCredentials.Error(), nil)
	case errors.Is(err, app.ErrNotAuthenticated):
		response.Fail(c, http.StatusUnauthorized, "not authenticated", nil)
	case errors.Is(err, app.ErrNotFound):
		response.Fail(c, http.StatusNotFound, "not found", nil)
	case errors.Is(err, app.ErrEmailInUse):
		response.Fail(c, http.StatusConflict, err.Error(), nil)
	case errors.Is(err, app.ErrRegistration):
		response.Fail(c, http.StatusBadRequest, err.Error(), nil)
	case errors.Is(err, app.ErrInvalidFile):
		response.Fail(c, http.StatusBadRequest, "invalid file", err.Error())
	case errors.Is(err, app.ErrUpload):
		response.Fail(c, http.StatusBadGateway, app.ErrUpload.Error(), nil)
	case errors.Is(err, app.ErrDeletion):
		response.Fail(c, http.StatusBadRequest, app.ErrDeletion.Error(), nil)
	case errors.Is(err, app.ErrUnavailable):
		response.Fail(c, http.StatusServiceUnavailable, app.ErrUnavailable.Error(), nil)
	default:
		response.Fail(c, http.StatusInternalServerError, "internal error", nil)
	}
}
