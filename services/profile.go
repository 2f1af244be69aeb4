package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"cavision/internal/logger"
	"cavision/models"
	"cavision/structs"
)

const (
	maxBioLength  = 160
	maxNameLength = 80
	maxCityLength = 80
)

// AvatarStore uploads a profile picture and returns its public URL.
type AvatarStore interface {
	UploadAvatar(ctx context.Context, userID, contentType string, r io.Reader) (string, error)
}

type ProfileService struct {
	store   ProfileStore
	avatars AvatarStore
	log     *logger.Logger
}

func NewProfileService(store ProfileStore, avatars AvatarStore, log *logger.Logger) *ProfileService {
	if log == nil {
		log = logger.Nop()
	}
	return &ProfileService{store: store, avatars: avatars, log: log.With("service", "ProfileService")}
}

type ProfileView struct {
	*models.UserProfile
	Accuracy float64 `json:"accuracy"`
}

func (p *ProfileService) Get(ctx context.Context, userID string) (*ProfileView, error) {
	profile, err := p.store.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ProfileView{UserProfile: profile, Accuracy: profile.Accuracy()}, nil
}

func (p *ProfileService) Update(ctx context.Context, userID string, req structs.UpdateProfileRequest) (*ProfileView, error) {
	update, err := ValidateProfileUpdate(req)
	if err != nil {
		return nil, err
	}
	profile, err := p.store.Upsert(ctx, userID, update)
	if err != nil {
		return nil, err
	}
	return &ProfileView{UserProfile: profile, Accuracy: profile.Accuracy()}, nil
}

// UploadAvatar stores the picture under profile-pictures/{uid} and points photoURL at it.
func (p *ProfileService) UploadAvatar(ctx context.Context, userID string, data []byte) (*ProfileView, error) {
	if p.avatars == nil {
		return nil, ErrStorageDisabled
	}
	ct, err := DetectImage(data, MaxUploadBytes)
	if err != nil {
		return nil, err
	}
	photoURL, err := p.avatars.UploadAvatar(ctx, userID, ct, bytes.NewReader(data))
	if err != nil {
		p.log.Error("avatar upload failed", "user_id", userID, "error", err)
		return nil, fmt.Errorf("failed to upload avatar: %w", err)
	}
	profile, err := p.store.Upsert(ctx, userID, models.ProfileUpdate{PhotoURL: &photoURL})
	if err != nil {
		return nil, err
	}
	return &ProfileView{UserProfile: profile, Accuracy: profile.Accuracy()}, nil
}

// ValidateProfileUpdate trims the request and checks every provided field.
func ValidateProfileUpdate(req structs.UpdateProfileRequest) (models.ProfileUpdate, error) {
	var u models.ProfileUpdate
	if req.DisplayName != nil {
		name := strings.TrimSpace(*req.DisplayName)
		if name == "" {
			return u, invalid("displayName cannot be empty")
		}
		if utf8.RuneCountInString(name) > maxNameLength {
			return u, invalid("displayName must be at most %d characters", maxNameLength)
		}
		u.DisplayName = &name
	}
	if req.Bio != nil {
		bio := strings.TrimSpace(*req.Bio)
		if utf8.RuneCountInString(bio) > maxBioLength {
			return u, invalid("bio must be at most %d characters", maxBioLength)
		}
		u.Bio = &bio
	}
	if req.City != nil {
		city := strings.TrimSpace(*req.City)
		if utf8.RuneCountInString(city) > maxCityLength {
			return u, invalid("city must be at most %d characters", maxCityLength)
		}
		u.City = &city
	}
	if req.CALevel != nil {
		level := strings.TrimSpace(*req.CALevel)
		if level != "" {
			if _, ok := findLevel(level); !ok {
				return u, invalid("caLevel must be Foundation, Intermediate or Final")
			}
		}
		u.CALevel = &level
	}
	if req.PhotoURL != nil {
		photo := strings.TrimSpace(*req.PhotoURL)
		if !optionalHTTPURL(photo) {
			return u, invalid("photoURL must be an http(s) URL")
		}
		u.PhotoURL = &photo
	}
	if req.SocialLinks != nil {
		links := models.SocialLinks{
			Twitter:   strings.TrimSpace(req.SocialLinks.Twitter),
			LinkedIn:  strings.TrimSpace(req.SocialLinks.LinkedIn),
			Instagram: strings.TrimSpace(req.SocialLinks.Instagram),
		}
		for name, link := range map[string]string{"twitter": links.Twitter, "linkedin": links.LinkedIn, "instagram": links.Instagram} {
			if !optionalHTTPURL(link) {
				return u, invalid("socialLinks.%s must be an http(s) URL", name)
			}
		}
		u.SocialLinks = &links
	}
	return u, nil
}

func optionalHTTPURL(raw string) bool {
	if raw == "" {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return false
	}
	return u.Scheme == "http" || u.Scheme == "https"
}
