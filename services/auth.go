package services

import (
	"context"
	"strings"

	"cavision/internal/logger"
	"cavision/models"
	"cavision/structs"
	"cavision/utils"

	"github.com/google/uuid"
)

// IdentityProvider is the email/password user pool.
type IdentityProvider interface {
	SignUp(ctx context.Context, email, password, displayName string) (string, error)
	ConfirmSignUp(ctx context.Context, email, code string) error
	SignIn(ctx context.Context, email, password string) (string, error)
	ForgotPassword(ctx context.Context, email string) error
	ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error
}

type GoogleTokenVerifier interface {
	Verify(ctx context.Context, idToken string) (*GoogleIdentity, error)
}

// AuthService signs users in through the identity providers and issues this
// service's own session token.
type AuthService struct {
	identity IdentityProvider
	google   GoogleTokenVerifier
	profiles ProfileStore
	log      *logger.Logger
}

func NewAuthService(identity IdentityProvider, google GoogleTokenVerifier, profiles ProfileStore, log *logger.Logger) *AuthService {
	if log == nil {
		log = logger.Nop()
	}
	return &AuthService{identity: identity, google: google, profiles: profiles, log: log.With("service", "AuthService")}
}

type AuthResult struct {
	AccessToken string              `json:"accessToken"`
	User        *models.UserProfile `json:"user"`
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (a *AuthService) SignUp(ctx context.Context, req structs.SignUpRequest) error {
	if a.identity == nil {
		return ErrAuthUnavailable
	}
	email := normalizeEmail(req.Email)
	name := strings.TrimSpace(req.DisplayName)
	if name == "" {
		name = utils.ExtractNameFromEmail(email)
	}
	sub, err := a.identity.SignUp(ctx, email, req.Password, name)
	if err != nil {
		return err
	}
	if _, err := a.profiles.Ensure(ctx, sub, models.ProfileUpdate{Email: &email, DisplayName: &name}); err != nil {
		// Login creates the profile again if this write is lost.
		a.log.Error("failed to create profile after sign-up", "user_id", sub, "error", err)
	}
	return nil
}

func (a *AuthService) VerifyEmail(ctx context.Context, req structs.VerifyEmailRequest) error {
	if a.identity == nil {
		return ErrAuthUnavailable
	}
	return a.identity.ConfirmSignUp(ctx, normalizeEmail(req.Email), strings.TrimSpace(req.ConfirmationCode))
}

func (a *AuthService) Login(ctx context.Context, req structs.LoginRequest) (*AuthResult, error) {
	if a.identity == nil {
		return nil, ErrAuthUnavailable
	}
	email := normalizeEmail(req.Email)
	sub, err := a.identity.SignIn(ctx, email, req.Password)
	if err != nil {
		return nil, err
	}
	name := utils.ExtractNameFromEmail(email)
	profile, err := a.profiles.Ensure(ctx, sub, models.ProfileUpdate{Email: &email, DisplayName: &name})
	if err != nil {
		return nil, err
	}
	return a.issue(profile, email, false)
}

func (a *AuthService) GoogleLogin(ctx context.Context, req structs.GoogleLoginRequest) (*AuthResult, error) {
	if a.google == nil {
		return nil, ErrAuthUnavailable
	}
	id, err := a.google.Verify(ctx, req.IDToken)
	if err != nil {
		return nil, err
	}
	if id.Email == "" || !id.EmailVerified {
		return nil, ErrInvalidIDToken
	}

	email := normalizeEmail(id.Email)
	name := id.Name
	if name == "" {
		name = utils.ExtractNameFromEmail(email)
	}
	defaults := models.ProfileUpdate{Email: &email, DisplayName: &name}
	if id.Picture != "" {
		defaults.PhotoURL = &id.Picture
	}
	profile, err := a.profiles.Ensure(ctx, "google-"+id.Subject, defaults)
	if err != nil {
		return nil, err
	}
	return a.issue(profile, email, false)
}

// AnonymousLogin creates a guest profile. Its stats live as long as the client keeps the token.
func (a *AuthService) AnonymousLogin(ctx context.Context) (*AuthResult, error) {
	anonymous := true
	name := "Guest"
	profile, err := a.profiles.Ensure(ctx, uuid.NewString(), models.ProfileUpdate{DisplayName: &name, IsAnonymous: &anonymous})
	if err != nil {
		return nil, err
	}
	return a.issue(profile, "", true)
}

func (a *AuthService) ForgotPassword(ctx context.Context, req structs.ForgotPasswordRequest) error {
	if a.identity == nil {
		return ErrAuthUnavailable
	}
	return a.identity.ForgotPassword(ctx, normalizeEmail(req.Email))
}

func (a *AuthService) ConfirmForgotPassword(ctx context.Context, req structs.VerifyForgotPasswordRequest) error {
	if a.identity == nil {
		return ErrAuthUnavailable
	}
	return a.identity.ConfirmForgotPassword(ctx, normalizeEmail(req.Email), strings.TrimSpace(req.Code), req.NewPassword)
}

func (a *AuthService) issue(profile *models.UserProfile, email string, anonymous bool) (*AuthResult, error) {
	token, err := utils.GenerateJWTToken(profile.ID, email, anonymous)
	if err != nil {
		return nil, err
	}
	return &AuthResult{AccessToken: token, User: profile}, nil
}
