package structs

import "cavision/models"

type ChatRequest struct {
	History []models.ChatMessage `json:"history" binding:"dive"`
	Message models.ChatMessage   `json:"message" binding:"required"`
}

// ChatFrame is one websocket frame in either direction.
type ChatFrame struct {
	Type    string              `json:"type"`
	Message *models.ChatMessage `json:"message,omitempty"`
	Error   string              `json:"error,omitempty"`
}
