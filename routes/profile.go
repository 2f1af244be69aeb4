package routes

import (
	"cavision/controllers"
	"cavision/middlewares"

	"github.com/gin-gonic/gin"
)

func SetupProfileRoutes(router *gin.RouterGroup, profile *controllers.ProfileController) {
	user := router.Group("/user")
	{
		user.GET("/fetchprofile", profile.GetProfile)
		user.PUT("/updateprofile", profile.UpdateProfile)
		user.POST("/avatar", middlewares.RequireRegistered(), profile.UploadAvatar)
	}
}
