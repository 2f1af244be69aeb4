package routes

import (
	"cavision/controllers"

	"github.com/gin-gonic/gin"
)

// SetupQuizRoutes registers quiz generation and the session state machine.
func SetupQuizRoutes(router *gin.RouterGroup, quiz *controllers.QuizController) {
	quizRoutes := router.Group("/quiz")
	{
		quizRoutes.POST("/generate", quiz.GenerateQuiz)
		quizRoutes.POST("/upload", quiz.UploadQuiz)
		quizRoutes.GET("/current", quiz.GetCurrentQuiz)

		quizRoutes.GET("/:id", quiz.GetQuiz)
		quizRoutes.POST("/:id/select", quiz.SelectOption)
		quizRoutes.POST("/:id/next", quiz.NextQuestion)
		quizRoutes.POST("/:id/previous", quiz.PreviousQuestion)
		quizRoutes.POST("/:id/goto", quiz.GoToQuestion)
		quizRoutes.POST("/:id/flag", quiz.ToggleFlag)
		quizRoutes.POST("/:id/submit", quiz.SubmitQuiz)
		quizRoutes.GET("/:id/review", quiz.ReviewQuiz)
	}
}
