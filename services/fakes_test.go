package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"cavision/internal/llm"
	"cavision/models"
)

type fakeModel struct {
	mu        sync.Mutex
	responses []*llm.Response
	err       error
	requests  []llm.Request
}

func (m *fakeModel) Name() string { return "fake" }

func (m *fakeModel) Generate(ctx context.Context, req llm.Request) (*llm.Response, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, req)
	if m.err != nil {
		return nil, m.err
	}
	if len(m.responses) == 0 {
		return nil, errors.New("no scripted response")
	}
	resp := m.responses[0]
	m.responses = m.responses[1:]
	return resp, nil
}

func questionsJSON(n int) string {
	qs := make([]models.Question, n)
	for i := range qs {
		qs[i] = models.Question{
			ID:            i + 1,
			Question:      fmt.Sprintf("Question %d?", i+1),
			Options:       models.Options{A: "one", B: "two", C: "three", D: "four"},
			CorrectAnswer: "B",
			Explanation:   "Because two.",
		}
	}
	data, _ := json.Marshal(qs)
	return string(data)
}

// memoryProfiles mimics the $set/$setOnInsert/$inc semantics of the Mongo store.
type memoryProfiles struct {
	mu       sync.Mutex
	profiles map[string]*models.UserProfile
	incErr   error
	deltas   []models.StatsDelta
}

func newMemoryProfiles() *memoryProfiles {
	return &memoryProfiles{profiles: map[string]*models.UserProfile{}}
}

func (m *memoryProfiles) Get(ctx context.Context, id string) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.profiles[id]
	if !ok {
		return nil, ErrProfileNotFound
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProfiles) getOrCreate(id string) (*models.UserProfile, bool) {
	p, ok := m.profiles[id]
	if !ok {
		p = &models.UserProfile{ID: id, CreatedAt: time.Now()}
		m.profiles[id] = p
	}
	return p, !ok
}

func apply(p *models.UserProfile, u models.ProfileUpdate) {
	if u.Email != nil {
		p.Email = *u.Email
	}
	if u.DisplayName != nil {
		p.DisplayName = *u.DisplayName
	}
	if u.Bio != nil {
		p.Bio = *u.Bio
	}
	if u.City != nil {
		p.City = *u.City
	}
	if u.CALevel != nil {
		p.CALevel = *u.CALevel
	}
	if u.PhotoURL != nil {
		p.PhotoURL = *u.PhotoURL
	}
	if u.SocialLinks != nil {
		p.SocialLinks = *u.SocialLinks
	}
	if u.IsAnonymous != nil {
		p.IsAnonymous = *u.IsAnonymous
	}
}

func (m *memoryProfiles) Upsert(ctx context.Context, id string, u models.ProfileUpdate) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, _ := m.getOrCreate(id)
	apply(p, u)
	cp := *p
	return &cp, nil
}

func (m *memoryProfiles) Ensure(ctx context.Context, id string, defaults models.ProfileUpdate) (*models.UserProfile, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, created := m.getOrCreate(id)
	if created {
		apply(p, defaults)
	}
	cp := *p
	return &cp, nil
}

func (m *memoryProfiles) IncrementCounters(ctx context.Context, id string, d models.StatsDelta) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.incErr != nil {
		return m.incErr
	}
	m.deltas = append(m.deltas, d)
	p, _ := m.getOrCreate(id)
	p.TotalQuizzesGenerated += d.Generated
	p.TotalMcqsAttempted += d.Attempted
	p.TotalMcqsCorrect += d.Correct
	return nil
}

type fakeTranscripts struct {
	text string
	err  error
	urls []string
}

func (f *fakeTranscripts) Fetch(ctx context.Context, url string) (string, error) {
	f.urls = append(f.urls, url)
	return f.text, f.err
}

type fakeAvatars struct {
	contentType string
	data        []byte
	err         error
}

func (f *fakeAvatars) UploadAvatar(ctx context.Context, userID, contentType string, r io.Reader) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.contentType = contentType
	f.data, _ = io.ReadAll(r)
	return "https://storage.googleapis.com/avatars/profile-pictures/" + userID, nil
}
