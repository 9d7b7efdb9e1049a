package middleware

import (
	"fmt"
	"log"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"jobmarket/internal/pkg/response"
	"jobmarket/internal/session"
)

const requestIDHeader = "X-Request-ID"

// ErrorLogger tags every request with an id, recovers from panics and logs
// failed requests together with the calling principal.
func ErrorLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		id := c.GetHeader(requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		c.Set("request_id", id)
		c.Header(requestIDHeader, id)

		defer func() {
			if recovered := recover(); recovered != nil {
				logFailure(c, start, "panic", fmt.Sprint(recovered), debug.Stack())
				response.Error(c, http.StatusInternalServerError, "INTERNAL_ERROR", "Internal server error")
				c.Abort()
				return
			}

			for _, err := range c.Errors {
				logFailure(c, start, fmt.Sprint(err.Type), err.Error(), nil)
			}
			if len(c.Errors) == 0 && c.Writer.Status() >= http.StatusInternalServerError {
				logFailure(c, start, "http_error", http.StatusText(c.Writer.Status()), nil)
			}
		}()

		c.Next()
	}
}

func logFailure(c *gin.Context, start time.Time, kind, message string, stack []byte) {
	userID, role := "-", "-"
	if p := session.CurrentUser(c.Request.Context()); p != nil {
		userID, role = p.ID, string(p.Role)
	}
	line := fmt.Sprintf("request_error type=%s status=%d method=%s path=%s client_ip=%s user_id=%s role=%s request_id=%s latency=%s error=%q",
		kind, c.Writer.Status(), c.Request.Method, c.Request.URL.Path, c.ClientIP(),
		userID, role, c.GetString("request_id"), time.Since(start), message)
	if stack != nil {
		line += " stack=" + string(stack)
	}
	log.Print(line)
}
