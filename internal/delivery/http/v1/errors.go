package v1

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/adanyl0v/go-boards/internal/services"
)

var (
	errInvalidRequestBody = errors.New("invalid request body")
	errInvalidID          = errors.New("invalid id")
)

type apiError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

func newAPIError(code int, message string) apiError {
	return apiError{
		Code:    code,
		Message: message,
	}
}

func (e apiError) Error() string {
	return e.Message
}

func abort(c *gin.Context, err apiError) {
	c.AbortWithStatusJSON(err.Code, gin.H{"error": err.Message})
}

func newStatusTextError(status int) apiError {
	return newAPIError(status, http.StatusText(status))
}

func newBadRequestError(message string) apiError {
	return newAPIError(http.StatusBadRequest, message)
}

func newUnauthorizedError(message string) apiError {
	return newAPIError(http.StatusUnauthorized, message)
}

// newServiceError maps a service failure onto the response the client
// sees. Storage details never leave the process.
func newServiceError(err error) apiError {
	var validationErr *services.ValidationError
	switch {
	case errors.As(err, &validationErr):
		return newBadRequestError(validationErr.Error())
	case errors.Is(err, services.ErrForbidden):
		return newStatusTextError(http.StatusForbidden)
	default:
		return newStatusTextError(http.StatusInternalServerError)
	}
}
