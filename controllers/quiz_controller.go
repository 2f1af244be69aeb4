package controllers

import (
	"net/http"

	"cavision/internal/quiz"
	"cavision/middlewares"
	"cavision/services"
	"cavision/structs"

	"github.com/gin-gonic/gin"
)

type QuizController struct {
	generator *services.GeneratorService
	quizzes   *services.QuizService
	maxUpload int64
}

func NewQuizController(generator *services.GeneratorService, quizzes *services.QuizService, maxUpload int64) *QuizController {
	if maxUpload <= 0 {
		maxUpload = services.MaxUploadBytes
	}
	return &QuizController{generator: generator, quizzes: quizzes, maxUpload: maxUpload}
}

func quizResponse(s *quiz.Session, statsWarning string) gin.H {
	resp := gin.H{"quiz": s.PublicView()}
	if statsWarning != "" {
		resp["statsWarning"] = statsWarning
	}
	return resp
}

// GenerateQuiz builds a quiz from the syllabus catalogue and makes it the
// caller's current quiz.
func (q *QuizController) GenerateQuiz(ctx *gin.Context) {
	var request structs.GenerateQuizRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}

	userID := ctx.GetString(middlewares.ContextUserID)
	gen, err := q.generator.FromSyllabus(ctx.Request.Context(), userID, request)
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.start(ctx, userID, gen)
}

// UploadQuiz builds a quiz from a PDF, DOCX or TXT file.
func (q *QuizController) UploadQuiz(ctx *gin.Context) {
	fh, ok := formFile(ctx, "file", q.maxUpload)
	if !ok {
		return
	}

	var form structs.UploadQuizForm
	if err := ctx.ShouldBind(&form); err != nil {
		respondBindError(ctx, err)
		return
	}

	declared, data, err := services.ReadUpload(fh, q.maxUpload)
	if err != nil {
		respondError(ctx, err)
		return
	}
	doc, err := services.DetectDocument(fh.Filename, declared, data, q.maxUpload)
	if err != nil {
		respondError(ctx, err)
		return
	}

	userID := ctx.GetString(middlewares.ContextUserID)
	gen, err := q.generator.FromDocument(ctx.Request.Context(), userID, doc, form)
	if err != nil {
		respondError(ctx, err)
		return
	}
	q.start(ctx, userID, gen)
}

func (q *QuizController) start(ctx *gin.Context, userID string, gen *services.Generated) {
	res, err := q.quizzes.Start(ctx.Request.Context(), userID, gen)
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, quizResponse(res.Session, res.StatsWarning))
}

func (q *QuizController) GetCurrentQuiz(ctx *gin.Context) {
	session, err := q.quizzes.Current(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, quizResponse(session, ""))
}

func (q *QuizController) GetQuiz(ctx *gin.Context) {
	session, err := q.quizzes.Get(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, quizResponse(session, ""))
}

func (q *QuizController) SelectOption(ctx *gin.Context) {
	var request structs.SelectOptionRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}
	q.respondSession(ctx)(q.quizzes.Select(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id"), request.Label))
}

func (q *QuizController) NextQuestion(ctx *gin.Context) {
	q.respondSession(ctx)(q.quizzes.Next(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id")))
}

func (q *QuizController) PreviousQuestion(ctx *gin.Context) {
	q.respondSession(ctx)(q.quizzes.Previous(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id")))
}

func (q *QuizController) GoToQuestion(ctx *gin.Context) {
	var request structs.GoToRequest
	if err := ctx.ShouldBindJSON(&request); err != nil {
		respondBindError(ctx, err)
		return
	}
	q.respondSession(ctx)(q.quizzes.GoTo(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id"), *request.Index))
}

func (q *QuizController) ToggleFlag(ctx *gin.Context) {
	q.respondSession(ctx)(q.quizzes.ToggleFlag(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id")))
}

func (q *QuizController) SubmitQuiz(ctx *gin.Context) {
	res, err := q.quizzes.Submit(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	resp := quizResponse(res.Session, res.StatsWarning)
	resp["score"] = res.Score
	resp["total"] = len(res.Session.Items)
	ctx.JSON(http.StatusOK, resp)
}

func (q *QuizController) ReviewQuiz(ctx *gin.Context) {
	review, err := q.quizzes.Review(ctx.Request.Context(), ctx.GetString(middlewares.ContextUserID), ctx.Param("id"))
	if err != nil {
		respondError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"review": review})
}

func (q *QuizController) respondSession(ctx *gin.Context) func(*quiz.Session, error) {
	return func(session *quiz.Session, err error) {
		if err != nil {
			respondError(ctx, err)
			return
		}
		ctx.JSON(http.StatusOK, quizResponse(session, ""))
	}
}
