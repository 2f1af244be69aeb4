package controllers

import (
	"net/http"

	"cavision/middlewares"
	"cavision/services"
	"cavision/structs"

	"github.com/gin-gonic/gin"
)

type ProfileController struct {
	profiles  *services.ProfileService
	maxUpload int64
}

func NewProfileController(profiles *services.ProfileService, maxUpload int64) *ProfileController {
	if maxUpload <= 0 {
		maxUpload = services.MaxUploadBytes
	}
	return &ProfileController{profiles: profiles, maxUpload: maxUpload}
}

// GetProfile returns the caller's profile with the derived accuracy.
func (p *ProfileController) GetProfile(ctx *gin.Context) {
	view, err := p.profiles.Get(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"profile": view})
}

func (p *ProfileController) UpdateProfile(ctx *gin.Context) {
	var request structs.UpdateProfileRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	view, err := p.profiles.Update(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), request)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "profile": view})
}

func (p *ProfileController) UploadAvatar(ctx *gin.Context) {
	fh, ok := formFile(ctx, "file", p.maxUpload)
	if !ok {
		return
	}
	_, data, err := services.ReadUpload(fh, p.maxUpload)
	if err != nil {
		respondError(ctx, err)
		return
	}

	view, err := p.profiles.UploadAvatar(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), data)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"message": "Profile picture updated", "profile": view})
}
