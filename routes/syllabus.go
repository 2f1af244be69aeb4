package routes

import (
	"cavision/controllers"

	"github.com/gin-gonic/gin"
)

func SetupSyllabusRoutes(router *gin.RouterGroup) {
	router.GET("/syllabus", controllers.GetSyllabus)
	router.GET("/syllabus/search", controllers.SearchSyllabus)
}
