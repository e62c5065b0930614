package httpx

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/ageniuscoder/mmsocial/backend/internal/apperr"
	"github.com/ageniuscoder/mmsocial/backend/internal/utils"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

func OK(c *gin.Context, v any) {
	c.JSON(http.StatusOK, v)
}

func Created(c *gin.Context, v any) {
	c.JSON(http.StatusCreated, v)
}

func Err(c *gin.Context, code int, msg any) {
	c.JSON(code, gin.H{"error": msg})
}

// BadRequest reports a request body that failed to bind or validate.
func BadRequest(c *gin.Context, err error) {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		Err(c, http.StatusBadRequest, utils.ValidationErr(validationErrors))
		return
	}
	Err(c, http.StatusBadRequest, err.Error())
}

// Fail maps a service error onto a response. Validation errors are echoed to
// the caller; anything else is logged and answered with a generic 500.
func Fail(c *gin.Context, logger *slog.Logger, err error) {
	var ve *apperr.ValidationError
	if errors.As(err, &ve) {
		Err(c, http.StatusBadRequest, ve.Msg)
		return
	}
	logger.Error("request failed",
		"method", c.Request.Method,
		"path", c.FullPath(),
		"storage", apperr.IsStorage(err),
		"error", err)
	Err(c, http.StatusInternalServerError, "Internal server error")
}
