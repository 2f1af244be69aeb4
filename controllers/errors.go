package controllers

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"

	"cavision/internal/apierr"
	"cavision/internal/cache"
	"cavision/internal/llm"
	"cavision/internal/quiz"
	"cavision/services"
	"cavision/utils"

	"github.com/gin-gonic/gin"
)

type errorMapping struct {
	target error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{services.ErrInvalidRequest, http.StatusBadRequest, "invalid_request"},
	{quiz.ErrInvalidOption, http.StatusBadRequest, "invalid_option"},
	{quiz.ErrIndexOutOfRange, http.StatusBadRequest, "index_out_of_range"},
	{utils.ErrInvalidDataURI, http.StatusBadRequest, "invalid_attachment"},
	{services.ErrInvalidCode, http.StatusBadRequest, "invalid_code"},
	{services.ErrAuthFailed, http.StatusUnauthorized, "invalid_credentials"},
	{services.ErrInvalidIDToken, http.StatusUnauthorized, "invalid_id_token"},
	{utils.ErrTokenExpired, http.StatusUnauthorized, "token_expired"},
	{utils.ErrInvalidToken, http.StatusUnauthorized, "invalid_token"},
	{services.ErrUserNotConfirmed, http.StatusForbidden, "user_not_confirmed"},
	{cache.ErrNotFound, http.StatusNotFound, "quiz_not_found"},
	{services.ErrProfileNotFound, http.StatusNotFound, "profile_not_found"},
	{quiz.ErrCompleted, http.StatusConflict, "quiz_completed"},
	{quiz.ErrNotCompleted, http.StatusConflict, "quiz_not_completed"},
	{quiz.ErrNotAtLastQuestion, http.StatusConflict, "not_at_last_question"},
	{services.ErrUserExists, http.StatusConflict, "user_exists"},
	{services.ErrFileTooLarge, http.StatusRequestEntityTooLarge, "file_too_large"},
	{services.ErrUnsupportedFile, http.StatusUnsupportedMediaType, "unsupported_file"},
	{llm.ErrUnsupportedMedia, http.StatusUnsupportedMediaType, "unsupported_media"},
	{services.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
	{quiz.ErrNoQuestions, http.StatusBadGateway, "no_questions_generated"},
	{quiz.ErrEmptyQuiz, http.StatusBadGateway, "no_questions_generated"},
	{services.ErrModelFailed, http.StatusBadGateway, "model_failed"},
	{llm.ErrUnavailable, http.StatusServiceUnavailable, "model_unavailable"},
	{llm.ErrNoModel, http.StatusServiceUnavailable, "model_unavailable"},
	{services.ErrStorageDisabled, http.StatusServiceUnavailable, "storage_disabled"},
	{services.ErrAuthUnavailable, http.StatusServiceUnavailable, "auth_unavailable"},
}

// toAPIError maps service errors onto HTTP statuses. Anything unknown becomes
// an opaque 500.
func toAPIError(err error) error {
	var apiErr *apierr.Error
	if errors.As(err, &apiErr) {
		return apiErr
	}
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return apierr.New(m.status, m.code, err)
		}
	}
	return err
}

func respondError(c *gin.Context, err error) {
	mapped := toAPIError(err)
	if apierr.As(mapped).Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	utils.RespondError(c, mapped)
}

func respondBindError(c *gin.Context, err error) {
	utils.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("invalid input: %w", err)))
}

// multipartOverhead leaves room for the form fields around the file.
const multipartOverhead = 64 << 10

// formFile caps the request body before gin parses the multipart form, so an
// oversized upload is cut off instead of being spooled to disk.
func formFile(c *gin.Context, field string, max int64) (*multipart.FileHeader, bool) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, max+multipartOverhead)
	fh, err := c.FormFile(field)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(c, services.ErrFileTooLarge)
			return nil, false
		}
		utils.RespondError(c, apierr.New(http.StatusBadRequest, "invalid_request", fmt.Errorf("missing %s field", field)))
		return nil, false
	}
	return fh, true
}
