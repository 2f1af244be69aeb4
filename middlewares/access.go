package middlewares

import (
	"errors"
	"net/http"

	"cavision/internal/apierr"
	"cavision/utils"

	"github.com/gin-gonic/gin"
)

// RequireRegistered blocks guest sessions from routes that store data outside the profile document.
func RequireRegistered() gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.GetBool(ContextAnonymous) {
			utils.RespondError(c, apierr.New(http.StatusForbidden, "registration_required", errors.New("sign in with an account to use this feature")))
			return
		}
		c.Next()
	}
}
