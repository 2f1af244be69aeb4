package controllers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"cavision/internal/apierr"
	"cavision/internal/cache"
	"cavision/internal/llm"
	"cavision/internal/quiz"
	"cavision/middlewares"
	"cavision/models"
	"cavision/services"
	"cavision/structs"

	"github.com/gin-gonic/gin"
)

func TestToAPIError(t *testing.T) {
	tests := []struct {
		err    error
		status int
		code   string
	}{
		{fmt.Errorf("wrapped: %w", services.ErrFileTooLarge), http.StatusRequestEntityTooLarge, "file_too_large"},
		{services.ErrUnsupportedFile, http.StatusUnsupportedMediaType, "unsupported_file"},
		{quiz.ErrNoQuestions, http.StatusBadGateway, "no_questions_generated"},
		{llm.ErrUnavailable, http.StatusServiceUnavailable, "model_unavailable"},
		{services.ErrRateLimited, http.StatusTooManyRequests, "rate_limited"},
		{cache.ErrNotFound, http.StatusNotFound, "quiz_not_found"},
		{quiz.ErrNotCompleted, http.StatusConflict, "quiz_not_completed"},
		{services.ErrUserNotConfirmed, http.StatusForbidden, "user_not_confirmed"},
		{apierr.New(http.StatusTeapot, "teapot", errors.New("short and stout")), http.StatusTeapot, "teapot"},
		{errors.New("connection reset"), http.StatusInternalServerError, "internal_error"},
	}
	for _, tt := range tests {
		got := apierr.As(toAPIError(tt.err))
		if got.Status != tt.status || got.Code != tt.code {
			t.Errorf("%v: got %d %q, want %d %q", tt.err, got.Status, got.Code, tt.status, tt.code)
		}
	}

	if msg := apierr.As(toAPIError(errors.New("secret dsn leaked"))).Error(); strings.Contains(msg, "dsn") {
		t.Errorf("internal error message exposes the cause: %q", msg)
	}
}

func newChatRouter(model llm.Model) *gin.Engine {
	cc := NewChatController(services.NewChatService(model, nil, nil))
	r := gin.New()
	r.POST("/chat", middlewares.AuthMiddleware(), cc.Chat)
	return r
}

func userTurn(text string) models.ChatMessage {
	return models.ChatMessage{Role: models.ChatRoleUser, Content: []models.ChatPart{{Text: text}}}
}

func TestChat(t *testing.T) {
	t.Run("reply appended to history", func(t *testing.T) {
		r := newChatRouter(&scriptedModel{texts: []string{"**Depreciation** spreads cost over useful life."}})
		body := structs.ChatRequest{
			History: []models.ChatMessage{userTurn("hi"), models.AssistantText("Hello! How can I help?")},
			Message: userTurn("What is depreciation?"),
		}
		w := doJSON(t, r, http.MethodPost, "/chat", bearer(t, "u1", false), body)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, body %s", w.Code, w.Body.String())
		}
		got := decode[services.ChatReply](t, w)
		if len(got.History) != 4 || got.Degraded {
			t.Fatalf("unexpected reply %+v", got)
		}
		if !strings.Contains(got.Reply.Text(), "Depreciation") {
			t.Errorf("reply = %q", got.Reply.Text())
		}
	})

	t.Run("model failure falls back", func(t *testing.T) {
		r := newChatRouter(&scriptedModel{err: llm.ErrUnavailable})
		w := doJSON(t, r, http.MethodPost, "/chat", bearer(t, "u1", false), structs.ChatRequest{Message: userTurn("hello")})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", w.Code)
		}
		got := decode[services.ChatReply](t, w)
		if !got.Degraded || got.Reply.Text() != services.ChatFallback || len(got.History) != 2 {
			t.Errorf("unexpected fallback %+v", got)
		}
	})

	t.Run("invalid roles", func(t *testing.T) {
		r := newChatRouter(&scriptedModel{})
		body := structs.ChatRequest{Message: models.ChatMessage{Role: "system", Content: []models.ChatPart{{Text: "x"}}}}
		w := doJSON(t, r, http.MethodPost, "/chat", bearer(t, "u1", false), body)
		if w.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", w.Code)
		}
	})
}

func newProfileRouter(store *profileStub, avatars services.AvatarStore) *gin.Engine {
	pc := NewProfileController(services.NewProfileService(store, avatars, nil), 0)
	r := gin.New()
	g := r.Group("/user", middlewares.AuthMiddleware())
	g.GET("/fetchprofile", pc.GetProfile)
	g.PUT("/updateprofile", pc.UpdateProfile)
	g.POST("/avatar", middlewares.RequireRegistered(), pc.UploadAvatar)
	return r
}

func avatarRequest(t *testing.T, auth string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, _ := mw.CreateFormFile("file", "me.png")
	fw.Write(content)
	mw.Close()
	req := httptest.NewRequest(http.MethodPost, "/user/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", auth)
	return req
}

func TestProfileEndpoints(t *testing.T) {
	store := newProfileStub()
	avatars := &avatarStub{}
	r := newProfileRouter(store, avatars)
	auth := bearer(t, "u1", false)

	if w := doJSON(t, r, http.MethodGet, "/user/fetchprofile", auth, nil); w.Code != http.StatusNotFound {
		t.Errorf("missing profile status = %d, want 404", w.Code)
	}

	name := "  Riya  "
	w := doJSON(t, r, http.MethodPut, "/user/updateprofile", auth, structs.UpdateProfileRequest{DisplayName: &name})
	if w.Code != http.StatusOK {
		t.Fatalf("update status = %d, body %s", w.Code, w.Body.String())
	}

	store.IncrementCounters(context.Background(), "u1", models.StatsDelta{Attempted: 10, Correct: 7})
	w = doJSON(t, r, http.MethodGet, "/user/fetchprofile", auth, nil)
	got := decode[struct {
		Profile struct {
			DisplayName string  `json:"displayName"`
			Accuracy    float64 `json:"accuracy"`
		} `json:"profile"`
	}](t, w).Profile
	if got.DisplayName != "Riya" || got.Accuracy != 70 {
		t.Errorf("unexpected profile %+v", got)
	}

	bio := strings.Repeat("b", 161)
	if w := doJSON(t, r, http.MethodPut, "/user/updateprofile", auth, structs.UpdateProfileRequest{Bio: &bio}); w.Code != http.StatusBadRequest {
		t.Errorf("long bio status = %d, want 400", w.Code)
	}

	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	w = httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, auth, png))
	if w.Code != http.StatusOK || avatars.uploads != 1 {
		t.Fatalf("avatar status = %d uploads = %d, body %s", w.Code, avatars.uploads, w.Body.String())
	}
	if prof, _ := store.Get(context.Background(), "u1"); !strings.HasSuffix(prof.PhotoURL, "/profile-pictures/u1") {
		t.Errorf("photoURL = %q", prof.PhotoURL)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, auth, []byte("%PDF-1.7 not an image")))
	if w.Code != http.StatusUnsupportedMediaType {
		t.Errorf("non-image avatar status = %d, want 415", w.Code)
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, bearer(t, "guest", true), png))
	if w.Code != http.StatusForbidden {
		t.Errorf("guest avatar status = %d, want 403", w.Code)
	}
}

func TestAvatarStorageDisabled(t *testing.T) {
	r := newProfileRouter(newProfileStub(), nil)
	png := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 64)...)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, avatarRequest(t, bearer(t, "u1", false), png))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503", w.Code)
	}
}

type countingReader struct {
	r io.Reader
	n int64
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	c.n += int64(n)
	return n, err
}

func TestAvatarUploadStopsReadingOversizedBody(t *testing.T) {
	avatars := &avatarStub{}
	pc := NewProfileController(services.NewProfileService(newProfileStub(), avatars, nil), 1024)
	r := gin.New()
	r.POST("/user/avatar", middlewares.AuthMiddleware(), pc.UploadAvatar)

	huge := append([]byte("\x89PNG\r\n\x1a\n"), bytes.Repeat([]byte{0}, 4<<20)...)
	req := avatarRequest(t, bearer(t, "u1", false), huge)
	body := &countingReader{r: req.Body}
	req.Body = io.NopCloser(body)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Fatalf("status = %d, want 413 (body %s)", w.Code, w.Body.String())
	}
	if limit := int64(1024 + multipartOverhead + 1); body.n > limit {
		t.Errorf("read %d bytes of the request body, want at most %d", body.n, limit)
	}
	if avatars.uploads != 0 {
		t.Errorf("oversized avatar reached storage")
	}
}

func newAuthRouter(store *profileStub) *gin.Engine {
	ac := NewAuthController(services.NewAuthService(nil, nil, store, nil))
	r := gin.New()
	r.POST("/signup", ac.SignUp)
	r.POST("/anonymousLogin", ac.AnonymousLogin)
	r.POST("/googleLogin", ac.GoogleLogin)
	r.POST("/verifyToken", ac.VerifyToken)
	return r
}

func TestAuthEndpoints(t *testing.T) {
	store := newProfileStub()
	r := newAuthRouter(store)

	w := doJSON(t, r, http.MethodPost, "/signup", "", structs.SignUpRequest{Email: "a@b.com", Password: "longenough"})
	if w.Code != http.StatusServiceUnavailable || decode[errorBody](t, w).Error.Code != "auth_unavailable" {
		t.Errorf("signup without cognito: %d %s", w.Code, w.Body.String())
	}
	if w := doJSON(t, r, http.MethodPost, "/signup", "", map[string]string{"email": "nope"}); w.Code != http.StatusBadRequest {
		t.Errorf("invalid signup status = %d, want 400", w.Code)
	}
	if w := doJSON(t, r, http.MethodPost, "/googleLogin", "", structs.GoogleLoginRequest{IDToken: "x"}); w.Code != http.StatusServiceUnavailable {
		t.Errorf("google without client id status = %d, want 503", w.Code)
	}

	w = doJSON(t, r, http.MethodPost, "/anonymousLogin", "", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("anonymous status = %d, body %s", w.Code, w.Body.String())
	}
	res := decode[services.AuthResult](t, w)
	if res.AccessToken == "" || res.User == nil || !res.User.IsAnonymous {
		t.Fatalf("unexpected anonymous result %+v", res)
	}

	w = doJSON(t, r, http.MethodPost, "/verifyToken", "Bearer "+res.AccessToken, nil)
	verified := decode[map[string]any](t, w)
	if w.Code != http.StatusOK || verified["userId"] != res.User.ID || verified["anonymous"] != true {
		t.Errorf("verifyToken: %d %v", w.Code, verified)
	}
	if w := doJSON(t, r, http.MethodPost, "/verifyToken", "Bearer garbage", nil); w.Code != http.StatusUnauthorized {
		t.Errorf("bad token status = %d, want 401", w.Code)
	}
}

func TestSyllabusEndpoints(t *testing.T) {
	r := gin.New()
	r.GET("/syllabus", GetSyllabus)
	r.GET("/syllabus/search", SearchSyllabus)

	w := doJSON(t, r, http.MethodGet, "/syllabus", "", nil)
	levels := decode[struct {
		Levels []models.Level `json:"levels"`
	}](t, w).Levels
	if len(levels) != 3 {
		t.Fatalf("levels = %d, want 3", len(levels))
	}

	w = doJSON(t, r, http.MethodGet, "/syllabus/search?q=audit&limit=2", "", nil)
	results := decode[struct {
		Results []models.SubjectMatch `json:"results"`
	}](t, w).Results
	if len(results) == 0 || len(results) > 2 {
		t.Fatalf("results = %+v", results)
	}
	if !strings.Contains(strings.ToLower(results[0].Paper.Label), "audit") {
		t.Errorf("best match = %+v", results[0])
	}
}
