package controllers

import (
	"errors"
	"net/http"

	"cavision/internal/apierr"
	"cavision/services"
	"cavision/structs"
	"cavision/utils"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	auth *services.AuthService
}

func NewAuthController(auth *services.AuthService) *AuthController {
	return &AuthController{auth: auth}
}

func (a *AuthController) SignUp(ctx *gin.Context) {
	var request structs.SignUpRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	if err := a.auth.SignUp(ctx.Request.Context(), request); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Sign-up successful. Check your email for the confirmation code."})
}

func (a *AuthController) VerifyEmail(ctx *gin.Context) {
	var request structs.VerifyEmailRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	if err := a.auth.VerifyEmail(ctx.Request.Context(), request); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Email verification successful"})
}

func (a *AuthController) Login(ctx *gin.Context) {
	var request structs.LoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	res, err := a.auth.Login(ctx.Request.Context(), request)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Sign-in successful", "accessToken": res.AccessToken, "user": res.User})
}

func (a *AuthController) GoogleLogin(ctx *gin.Context) {
	var request structs.GoogleLoginRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	res, err := a.auth.GoogleLogin(ctx.Request.Context(), request)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Google sign-in successful", "accessToken": res.AccessToken, "user": res.User})
}

func (a *AuthController) AnonymousLogin(ctx *gin.Context) {
	res, err := a.auth.AnonymousLogin(ctx.Request.Context())
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Signed in as guest", "accessToken": res.AccessToken, "user": res.User})
}

func (a *AuthController) ForgotPassword(ctx *gin.Context) {
	var request structs.ForgotPasswordRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	if err := a.auth.ForgotPassword(ctx.Request.Context(), request); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password reset code sent"})
}

func (a *AuthController) ConfirmForgotPassword(ctx *gin.Context) {
	var request structs.VerifyForgotPasswordRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	if err := a.auth.ConfirmForgotPassword(ctx.Request.Context(), request); err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{"message": "Password has been reset"})
}

// VerifyToken checks a session token without going through the auth middleware.
func (a *AuthController) VerifyToken(ctx *gin.Context) {
	token, ok := utils.BearerToken(ctx.GetHeader("Authorization"))
	if !ok {
		utils.RespondError(ctx, apierr.New(http.StatusUnauthorized, "missing_token", errors.New("missing or malformed Authorization token")))
		return
	}

	claims, err := utils.ParseJWTToken(token)
	if err != nil {
		respondError(ctx, err)
		return
	}

	ctx.JSON(http.StatusOK, gin.H{
		"message":   "Token is valid",
		"userId":    claims.Subject,
		"email":     claims.Email,
		"anonymous": claims.Anonymous,
	})
}
