package util

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// SuccessResponse is a generic response with a success boolean
type SuccessResponse struct {
	Success bool `json:"success"`
}

// ErrorResponse is a generic error response with a message
type ErrorResponse struct {
	Error string `json:"error"`
}

// ErrResponse attaches the error to the gin context and sends it as a JSON body
func ErrResponse(c *gin.Context, code int, err error) {
	c.Error(err)
	c.JSON(code, ErrorResponse{Error: err.Error()})
}

// HealthCheckHandler returns a handler that reports liveness
func HealthCheckHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, SuccessResponse{Success: true})
	}
}

// Contains reports whether the string is present in the slice
func Contains(s []string, str string) bool {
	for _, v := range s {
		if v == str {
			return true
		}
	}
	return false
}
