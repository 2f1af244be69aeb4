package routes

import (
	"cavision/controllers"

	"github.com/gin-gonic/gin"
)

// SetupAuthRoutes registers the public sign-in endpoints.
func SetupAuthRoutes(router *gin.RouterGroup, auth *controllers.AuthController) {
	router.POST("/signup", auth.SignUp)
	router.POST("/verifyEmail", auth.VerifyEmail)
	router.POST("/login", auth.Login)
	router.POST("/googleLogin", auth.GoogleLogin)
	router.POST("/anonymousLogin", auth.AnonymousLogin)
	router.POST("/forgotPassword", auth.ForgotPassword)
	router.POST("/confirmForgotPassword", auth.ConfirmForgotPassword)
	router.POST("/verifyToken", auth.VerifyToken)
}
