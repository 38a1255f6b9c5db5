package apiutil

import (
	"github.com/gin-gonic/gin"
)

// WriteTextError aborts the request with status and a plain-text body.
// Error bodies are short fixed messages; details belong in the logs.
func WriteTextError(c *gin.Context, status int, message string) {
	c.Abort()
	c.String(status, message)
}
