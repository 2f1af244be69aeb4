package controllers

import (
	"errors"
	"net/http"

	"cavision/internal/apierr"
	"cavision/internal/transcript"
	"cavision/services"
	"cavision/utils"

	"github.com/gin-gonic/gin"
)

type TranscriptController struct {
	transcripts services.TranscriptSource
}

func NewTranscriptController(transcripts services.TranscriptSource) *TranscriptController {
	return &TranscriptController{transcripts: transcripts}
}

// GetTranscript returns the caption text of a YouTube video given by the url query parameter.
func (t *TranscriptController) GetTranscript(c *gin.Context) {
	raw := c.Query("url")
	id, ok := transcript.VideoID(raw)
	if !ok {
		utils.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_video_url", errors.New("url must be a YouTube video link")))
		return
	}

	text, err := t.transcripts.Fetch(c.Request.Context(), raw)
	if err != nil {
		utils.RespondError(c, apierr.New(http.StatusBadGateway, "transcript_unavailable", err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"videoId": id, "transcript": text})
}
