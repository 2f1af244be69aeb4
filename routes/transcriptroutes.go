package routes

import (
	"cavision/controllers"

	"github.com/gin-gonic/gin"
)

func SetupTranscriptRoutes(router *gin.RouterGroup, transcripts *controllers.TranscriptController) {
	router.GET("/transcript", transcripts.GetTranscript)
}
