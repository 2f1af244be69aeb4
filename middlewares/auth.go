package middlewares

import (
	"errors"
	"net/http"

	"cavision/internal/apierr"
	"cavision/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID    = "userID"
	ContextEmail     = "email"
	ContextAnonymous = "anonymous"
)

// AuthMiddleware verifies the session JWT and puts the user on the context.
// Browsers cannot set headers on websocket upgrades, so a token query
// parameter is accepted when the header is absent.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := utils.BearerToken(c.GetHeader("Authorization"))
		if !ok && c.GetHeader("Authorization") == "" {
			token = c.Query("token")
			ok = token != ""
		}
		if !ok {
			utils.RespondError(c, apierr.New(http.StatusUnauthorized, "missing_token", errors.New("missing or malformed Authorization token")))
			return
		}

		claims, err := utils.ParseJWTToken(token)
		if err != nil {
			code := "invalid_token"
			if errors.Is(err, utils.ErrTokenExpired) {
				code = "token_expired"
			}
			utils.RespondError(c, apierr.New(http.StatusUnauthorized, code, err))
			return
		}

		c.Set(ContextUserID, claims.Subject)
		c.Set(ContextEmail, claims.Email)
		c.Set(ContextAnonymous, claims.Anonymous)
		c.Next()
	}
}
