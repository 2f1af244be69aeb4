package routes

import (
	"cavision/controllers"

	"github.com/gin-gonic/gin"
)

func SetupChatRoutes(router *gin.RouterGroup, chat *controllers.ChatController, socket gin.HandlerFunc) {
	router.POST("/chat", chat.Chat)
	if socket != nil {
		router.GET("/ws/chat", socket)
	}
}
