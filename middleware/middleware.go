package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/propella-labs/go-propella/env"
	"github.com/propella-labs/go-propella/service/logger"
	sentryutil "github.com/propella-labs/go-propella/service/sentry"
	"github.com/propella-labs/go-propella/util"
)

// ErrLogger logs any errors attached to the context after the handler chain runs
// and reports server errors to sentry
func ErrLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.For(c).Errorf("%s %s: %s", c.Request.Method, c.Request.URL.Path, c.Errors.JSON())
			if c.Writer.Status() >= http.StatusInternalServerError {
				for _, ginErr := range c.Errors {
					sentryutil.ReportError(c, ginErr.Err)
				}
			}
		}
	}
}

// HandleCORS sets the CORS headers for allowed origins and short-circuits
// preflight requests
func HandleCORS() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestOrigin := c.GetHeader("Origin")

		if IsOriginAllowed(requestOrigin) {
			c.Writer.Header().Set("Access-Control-Allow-Origin", requestOrigin)
		}

		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// IsOriginAllowed checks the origin against the ALLOWED_ORIGINS list. A "*"
// entry allows any origin.
func IsOriginAllowed(requestOrigin string) bool {
	allowedOrigins := strings.Split(env.GetString("ALLOWED_ORIGINS"), ",")
	return util.Contains(allowedOrigins, "*") || util.Contains(allowedOrigins, requestOrigin)
}
