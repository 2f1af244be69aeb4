package controllers

import (
	"net/http"
	"strconv"

	"cavision/services"

	"github.com/gin-gonic/gin"
)

const defaultSearchLimit = 10

func GetSyllabus(ctx *gin.Context) {
	ctx.JSON(http.StatusOK, gin.H{"levels": services.Syllabus()})
}

// SearchSyllabus fuzzy-matches q against paper names.
func SearchSyllabus(ctx *gin.Context) {
	limit := defaultSearchLimit
	if raw := ctx.Query("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 && n <= 50 {
			limit = n
		}
	}
	ctx.JSON(http.StatusOK, gin.H{"results": services.SearchSubjects(ctx.Query("q"), limit)})
}
