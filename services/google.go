package services

import (
	"context"
	"fmt"

	"google.golang.org/api/idtoken"
)

type idTokenValidator interface {
	Validate(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)
}

// GoogleIdentity is what a verified Google ID token says about the user.
type GoogleIdentity struct {
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
	Picture       string
}

type GoogleVerifier struct {
	validator idTokenValidator
	clientID  string
}

func NewGoogleVerifier(ctx context.Context, clientID string) (*GoogleVerifier, error) {
	v, err := idtoken.NewValidator(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create Google token validator: %w", err)
	}
	return &GoogleVerifier{validator: v, clientID: clientID}, nil
}

// Verify checks signature, expiry and that the token was issued for our client id.
func (g *GoogleVerifier) Verify(ctx context.Context, token string) (*GoogleIdentity, error) {
	payload, err := g.validator.Validate(ctx, token, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidIDToken, err)
	}
	claim := func(name string) string {
		s, _ := payload.Claims[name].(string)
		return s
	}
	verified, _ := payload.Claims["email_verified"].(bool)
	return &GoogleIdentity{
		Subject:       payload.Subject,
		Email:         claim("email"),
		EmailVerified: verified,
		Name:          claim("name"),
		Picture:       claim("picture"),
	}, nil
}
