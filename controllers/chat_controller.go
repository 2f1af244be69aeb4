package controllers

import (
	"net/http"

	"cavision/services"
	"cavision/structs"

	"github.com/gin-gonic/gin"
)

type ChatController struct {
	chat *services.ChatService
}

func NewChatController(chat *services.ChatService) *ChatController {
	return &ChatController{chat: chat}
}

// Chat answers one user turn. The client owns the history and sends it back
// with every request.
func (c *ChatController) Chat(ctx *gin.Context) {
	var request structs.ChatRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	reply, err := c.chat.Reply(ctx.Request.Context(), request.History, request.Message)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, reply)
}
