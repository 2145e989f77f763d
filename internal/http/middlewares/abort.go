package middlewares

import (
	"github.com/gin-gonic/gin"
)

// abortJSON writes the same error envelope the handlers use.
func abortJSON(c *gin.Context, status int, code, msg string) {
	reqID, _ := c.Get(CtxRequestID)

	c.AbortWithStatusJSON(status, gin.H{
		"message": msg,
		"error": gin.H{
			"code":      code,
			"message":   msg,
			"requestId": reqID,
		},
	})
}
