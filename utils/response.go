package utils

import (
	"cavision/internal/apierr"

	"github.com/gin-gonic/gin"
)

// RespondError writes the {error: {message, code}} envelope and aborts the chain.
func RespondError(c *gin.Context, err error) {
	e := apierr.As(err)
	c.AbortWithStatusJSON(e.Status, gin.H{
		"error": gin.H{
			"message": e.Error(),
			"code":    e.Code,
		},
	})
}
