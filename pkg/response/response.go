package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"pooltap.app/earnhub/pkg/apperror"
	"pooltap.app/earnhub/pkg/logger"
	"pooltap.app/earnhub/pkg/validator"
)

var log = logger.Nop()

// SetLogger replaces the logger used for internal errors.
func SetLogger(l *logger.Logger) {
	if l != nil {
		log = l
	}
}

// GetUserID retrieves the authenticated user identifier from the context
func GetUserID(c *gin.Context) (string, error) {
	v, exists := c.Get("user_id")
	if !exists {
		return "", apperror.ErrUnauthorized
	}

	identifier, ok := v.(string)
	if !ok || identifier == "" {
		return "", apperror.ErrUnauthorized
	}

	return identifier, nil
}

// ResponseError standardized error response
func ResponseError(c *gin.Context, err error) {
	code := apperror.MapErrorToStatus(err)

	if code >= http.StatusInternalServerError {
		log.Error("request failed", "path", c.FullPath(), "status", code, "error", err)
	}

	message := err.Error()
	if code == http.StatusInternalServerError {
		message = apperror.ErrInternal.Error()
	}

	c.JSON(code, gin.H{"error": message, "kind": apperror.Kind(err)})
}

// ValidationError renders a binding failure as a 400.
func ValidationError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": validator.FormatValidationError(err), "kind": apperror.Kind(apperror.ErrValidation)})
}
