package services

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"math"
	"math/big"
	"slices"
	"strings"

	"cavision/internal/cache"
	"cavision/internal/llm"
	"cavision/internal/logger"
	"cavision/internal/quiz"
	"cavision/models"
	"cavision/structs"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

const (
	MinQuestions = 5
	MaxQuestions = 50
)

type GeneratorService struct {
	model   llm.Model
	limiter *cache.RateLimiter
	log     *logger.Logger
	tracer  trace.Tracer
}

func NewGeneratorService(model llm.Model, limiter *cache.RateLimiter, log *logger.Logger) *GeneratorService {
	if log == nil {
		log = logger.Nop()
	}
	return &GeneratorService{
		model:   model,
		limiter: limiter,
		log:     log.With("service", "GeneratorService"),
		tracer:  otel.Tracer("cavision/services"),
	}
}

// Generated is a validated batch of questions ready to become a quiz session.
type Generated struct {
	Meta      quiz.Meta         `json:"meta"`
	Questions []models.Question `json:"questions"`
}

func validateQuizParams(difficulty string, count int) error {
	if !slices.Contains(models.Difficulties, difficulty) {
		return invalid("difficulty must be Easy, Medium or Hard")
	}
	if count < MinQuestions || count > MaxQuestions {
		return invalid("count must be between %d and %d", MinQuestions, MaxQuestions)
	}
	return nil
}

// FromSyllabus generates questions for a catalogue paper.
func (g *GeneratorService) FromSyllabus(ctx context.Context, userID string, req structs.GenerateQuizRequest) (*Generated, error) {
	if err := validateQuizParams(req.Difficulty, req.Count); err != nil {
		return nil, err
	}
	if err := ValidateSubject(req.Level, req.Group, req.Subject); err != nil {
		return nil, err
	}

	meta := quiz.Meta{
		Source:     quiz.SourceSyllabus,
		Level:      req.Level,
		Group:      req.Group,
		Subject:    req.Subject,
		Difficulty: req.Difficulty,
	}
	prompt := syllabusPrompt(req, seedValue(req.Seed))
	return g.generate(ctx, userID, meta, req.Count, []llm.Part{llm.TextPart(prompt)})
}

// FromDocument generates questions from uploaded study material. The model
// works out the level and subject from the content.
func (g *GeneratorService) FromDocument(ctx context.Context, userID string, doc *Document, form structs.UploadQuizForm) (*Generated, error) {
	if err := validateQuizParams(form.Difficulty, form.Count); err != nil {
		return nil, err
	}

	material, err := doc.Parts("Uploaded study material:")
	if err != nil {
		return nil, err
	}
	meta := quiz.Meta{
		Source:     quiz.SourceUpload,
		Subject:    strings.TrimSpace(form.Subject),
		Difficulty: form.Difficulty,
		FileName:   doc.Name,
	}
	parts := append([]llm.Part{llm.TextPart(uploadPrompt(form, seedValue(form.Seed)))}, material...)
	return g.generate(ctx, userID, meta, form.Count, parts)
}

func (g *GeneratorService) generate(ctx context.Context, userID string, meta quiz.Meta, count int, parts []llm.Part) (out *Generated, err error) {
	ctx, span := g.tracer.Start(ctx, "quiz.generate", trace.WithAttributes(
		attribute.String("quiz.source", string(meta.Source)),
		attribute.String("quiz.difficulty", meta.Difficulty),
		attribute.Int("quiz.count", count),
		attribute.String("llm.model", g.model.Name()),
	))
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := g.allow(ctx, userID); err != nil {
		return nil, err
	}

	resp, err := g.model.Generate(ctx, llm.Request{
		System:         generatorSystemPrompt,
		Messages:       []llm.Message{{Role: llm.RoleUser, Parts: parts}},
		ResponseSchema: llm.SchemaFor[[]models.Question](),
	})
	if err != nil {
		g.log.Warn("question generation failed", "user_id", userID, "model", g.model.Name(), "error", err)
		return nil, classifyModelError(err)
	}

	questions, err := quiz.ParseQuestions(resp.Text, count)
	if err != nil {
		g.log.Warn("model output rejected", "user_id", userID, "count", count, "output_bytes", len(resp.Text))
		return nil, err
	}

	return &Generated{Meta: meta, Questions: questions}, nil
}

func (g *GeneratorService) allow(ctx context.Context, userID string) error {
	ok, err := g.limiter.Allow(ctx, userID)
	if err != nil {
		// Redis trouble should not block generation.
		g.log.Warn("rate limiter unavailable", "user_id", userID, "error", err)
		return nil
	}
	if !ok {
		return ErrRateLimited
	}
	return nil
}

// classifyModelError keeps the retryable and media sentinels and folds
// everything else into ErrModelFailed.
func classifyModelError(err error) error {
	if errors.Is(err, llm.ErrUnavailable) || errors.Is(err, llm.ErrUnsupportedMedia) {
		return err
	}
	return fmt.Errorf("%w: %v", ErrModelFailed, err)
}

// seedValue returns the caller's seed or a fresh random one. The seed only
// nudges the model away from repeating itself across requests.
func seedValue(seed *int64) int64 {
	if seed != nil {
		return *seed
	}
	n, err := rand.Int(rand.Reader, big.NewInt(math.MaxInt64))
	if err != nil {
		return 0
	}
	return n.Int64()
}

const generatorSystemPrompt = "You are an expert in creating multiple-choice questions (MCQs) for CA (Chartered Accountancy) exams."

func syllabusPrompt(req structs.GenerateQuizRequest, seed int64) string {
	level := req.Level
	if req.Group != "" {
		level += " " + req.Group
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Generate %d MCQs for the CA %s level, %s subject, with %s difficulty.\n", req.Count, level, req.Subject, req.Difficulty)
	b.WriteString("Each MCQ must have four options labelled A, B, C and D, exactly one correct answer and a brief explanation of why it is correct.\n")
	b.WriteString("Keep the questions relevant to the current ICAI syllabus for this paper and appropriate for the difficulty level.\n")
	fmt.Fprintf(&b, "Number the questions from 1. Do not repeat questions from earlier sets; variation seed: %d.", seed)
	return b.String()
}

func uploadPrompt(form structs.UploadQuizForm, seed int64) string {
	var b strings.Builder
	b.WriteString("First identify the CA exam level (Foundation, Intermediate or Final) and the subject of the study material below.\n")
	if s := strings.TrimSpace(form.Subject); s != "" {
		fmt.Fprintf(&b, "The student says the subject is %q.\n", s)
	}
	fmt.Fprintf(&b, "Then generate %d MCQs with %s difficulty based only on the content of the material.\n", form.Count, form.Difficulty)
	b.WriteString("Each MCQ must have four options labelled A, B, C and D, exactly one correct answer and a detailed explanation.\n")
	b.WriteString("Cover the key concepts and topics of the material.\n")
	fmt.Fprintf(&b, "Variation seed: %d.", seed)
	return b.String()
}
