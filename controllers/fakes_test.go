package controllers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"cavision/internal/llm"
	"cavision/models"
	"cavision/services"
	"cavision/utils"

	"github.com/gin-gonic/gin"
)

func init() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("controller-test-secret")
	utils.SetJWTExpiry(60)
}

type scriptedModel struct {
	mu    sync.Mutex
	texts []string
	err   error
	calls int
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	if len(m.texts) == 0 {
		return nil, errors.New("no scripted response")
	}
	text := m.texts[0]
	m.texts = m.texts[1:]
	return &llm.Response{Text: text}, nil
}

func questionsJSON(n int) string {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			Question:      fmt.Sprintf("Which section covers item %d?", i+1),
			Options:       models.Options{A: "s1", B: "s2", C: "s3", D: "s4"},
			CorrectAnswer: "A",
			Explanation:   "Section one.",
		}
	}
	data, _ := json.Marshal(qs)
	return string(data)
}

type profileStub struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	incErr   error
}

func newProfileStub() *profileStub {
	return &profileStub{profiles: map[string]*models.UserProfile{}}
}

func (p *profileStub) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof, ok := p.profiles[id]
	if !ok {
		return nil, services.ErrProfileNotFound
	}
	cp := *prof
	return &cp, nil
}

func (p *profileStub) entry(id string) *models.UserProfile {
	prof, ok := p.profiles[id]
	if !ok {
		prof = &models.UserProfile{ID: id}
		p.profiles[id] = prof
	}
	return prof
}

func (p *profileStub) Upsert(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prof := p.entry(id)
	if u.DisplayName != nil {
		prof.DisplayName = *u.DisplayName
	}
	if u.Bio != nil {
		prof.Bio = *u.Bio
	}
	if u.PhotoURL != nil {
		prof.PhotoURL = *u.PhotoURL
	}
	if u.Email != nil {
		prof.Email = *u.Email
	}
	if u.IsAnonymous != nil {
		prof.IsAnonymous = *u.IsAnonymous
	}
	cp := *prof
	return &cp, nil
}

func (p *profileStub) Ensure(ctx context.Context, id string, defaults models.ProfileUpdate) (*models.UserProfile, error) {
	p.mu.Lock()
	_, exists := p.profiles[id]
	p.mu.Unlock()
	if exists {
		return p.Get(ctx, id)
	}
	return p.Upsert(ctx, id, defaults)
}

func (p *profileStub) IncrementCounters(ctx context.Context, id string, d models.StatsDelta) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.incErr != nil {
		return p.incErr
	}
	prof := p.entry(id)
	prof.TotalQuizzesGenerated += d.Generated
	prof.TotalMcqsAttempted += d.Attempted
	prof.TotalMcqsCorrect += d.Correct
	return nil
}

type avatarStub struct{ uploads int }

func (a *avatarStub) UploadAvatar(ctx context.Context, userID, contentType string, r io.Reader) (string, error) {
	a.uploads++
	return "https://cdn.example.com/profile-pictures/" + userID, nil
}

func bearer(t *testing.T, userID string, anonymous bool) string {
	t.Helper()
	token, err := utils.GenerateJWTToken(userID, userID+"@example.com", anonymous)
	if err != nil {
		t.Fatalf("GenerateJWTToken: %v", err)
	}
	return "Bearer " + token
}

func doJSON(t *testing.T, r http.Handler, method, path, auth string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		buf = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, buf)
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(w.Body.Bytes(), &v); err != nil {
		t.Fatalf("decode %q: %v", w.Body.String(), err)
	}
	return v
}

type errorBody struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}
