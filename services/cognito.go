package services

import (
	"context"
	"errors"
	"fmt"

	"cavision/utils"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsConfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
)

type cognitoAPI interface {
	SignUp(ctx context.Context, params *cognitoidentityprovider.SignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, params *cognitoidentityprovider.ConfirmSignUpInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmSignUpOutput, error)
	InitiateAuth(ctx context.Context, params *cognitoidentityprovider.InitiateAuthInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.InitiateAuthOutput, error)
	GetUser(ctx context.Context, params *cognitoidentityprovider.GetUserInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.GetUserOutput, error)
	ForgotPassword(ctx context.Context, params *cognitoidentityprovider.ForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ForgotPasswordOutput, error)
	ConfirmForgotPassword(ctx context.Context, params *cognitoidentityprovider.ConfirmForgotPasswordInput, optFns ...func(*cognitoidentityprovider.Options)) (*cognitoidentityprovider.ConfirmForgotPasswordOutput, error)
}

// Cognito wraps the user pool app client. Passwords never leave this type.
type Cognito struct {
	api          cognitoAPI
	clientID     string
	clientSecret string
}

func NewCognito(ctx context.Context, region, clientID, clientSecret string) (*Cognito, error) {
	cfg, err := awsConfig.LoadDefaultConfig(ctx, awsConfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newCognito(cognitoidentityprovider.NewFromConfig(cfg), clientID, clientSecret), nil
}

func newCognito(api cognitoAPI, clientID, clientSecret string) *Cognito {
	return &Cognito{api: api, clientID: clientID, clientSecret: clientSecret}
}

func (c *Cognito) secretHash(email string) *string {
	if c.clientSecret == "" {
		return nil
	}
	return aws.String(utils.GenerateSecretHash(email, c.clientID, c.clientSecret))
}

// SignUp registers the user and returns the pool's subject id.
func (c *Cognito) SignUp(ctx context.Context, email, password, displayName string) (string, error) {
	if displayName == "" {
		displayName = utils.ExtractNameFromEmail(email)
	}
	out, err := c.api.SignUp(ctx, &cognitoidentityprovider.SignUpInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(email),
		Password:   aws.String(password),
		SecretHash: c.secretHash(email),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("email"), Value: aws.String(email)},
			{Name: aws.String("nickname"), Value: aws.String(displayName)},
		},
	})
	if err != nil {
		return "", mapCognitoError("sign-up", err)
	}
	return aws.ToString(out.UserSub), nil
}

func (c *Cognito) ConfirmSignUp(ctx context.Context, email, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cognitoidentityprovider.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		SecretHash:       c.secretHash(email),
	})
	if err != nil {
		return mapCognitoError("email verification", err)
	}
	return nil
}

// SignIn checks the password and returns the user's subject id.
func (c *Cognito) SignIn(ctx context.Context, email, password string) (string, error) {
	params := map[string]string{
		"USERNAME": email,
		"PASSWORD": password,
	}
	if h := c.secretHash(email); h != nil {
		params["SECRET_HASH"] = *h
	}
	out, err := c.api.InitiateAuth(ctx, &cognitoidentityprovider.InitiateAuthInput{
		AuthFlow:       types.AuthFlowTypeUserPasswordAuth,
		ClientId:       aws.String(c.clientID),
		AuthParameters: params,
	})
	if err != nil {
		return "", mapCognitoError("sign-in", err)
	}
	if out.AuthenticationResult == nil || out.AuthenticationResult.AccessToken == nil {
		// A pending challenge (MFA, forced password change) is not supported.
		return "", ErrAuthFailed
	}

	user, err := c.api.GetUser(ctx, &cognitoidentityprovider.GetUserInput{
		AccessToken: out.AuthenticationResult.AccessToken,
	})
	if err != nil {
		return "", mapCognitoError("user lookup", err)
	}
	for _, attr := range user.UserAttributes {
		if aws.ToString(attr.Name) == "sub" {
			return aws.ToString(attr.Value), nil
		}
	}
	return "", errors.New("user lookup: sub attribute missing")
}

func (c *Cognito) ForgotPassword(ctx context.Context, email string) error {
	_, err := c.api.ForgotPassword(ctx, &cognitoidentityprovider.ForgotPasswordInput{
		ClientId:   aws.String(c.clientID),
		Username:   aws.String(email),
		SecretHash: c.secretHash(email),
	})
	if err != nil {
		return mapCognitoError("password reset", err)
	}
	return nil
}

func (c *Cognito) ConfirmForgotPassword(ctx context.Context, email, code, newPassword string) error {
	_, err := c.api.ConfirmForgotPassword(ctx, &cognitoidentityprovider.ConfirmForgotPasswordInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(email),
		ConfirmationCode: aws.String(code),
		Password:         aws.String(newPassword),
		SecretHash:       c.secretHash(email),
	})
	if err != nil {
		return mapCognitoError("password reset confirmation", err)
	}
	return nil
}

func mapCognitoError(op string, err error) error {
	var (
		exists       *types.UsernameExistsException
		notAuth      *types.NotAuthorizedException
		notFound     *types.UserNotFoundException
		mismatch     *types.CodeMismatchException
		expired      *types.ExpiredCodeException
		notConfirmed *types.UserNotConfirmedException
		badPassword  *types.InvalidPasswordException
		badParam     *types.InvalidParameterException
		tooMany      *types.TooManyRequestsException
		limit        *types.LimitExceededException
	)
	switch {
	case errors.As(err, &exists):
		return ErrUserExists
	case errors.As(err, &notAuth), errors.As(err, &notFound):
		return ErrAuthFailed
	case errors.As(err, &mismatch), errors.As(err, &expired):
		return ErrInvalidCode
	case errors.As(err, &notConfirmed):
		return ErrUserNotConfirmed
	case errors.As(err, &badPassword):
		return invalid("%s", aws.ToString(badPassword.Message))
	case errors.As(err, &badParam):
		return invalid("%s", aws.ToString(badParam.Message))
	case errors.As(err, &tooMany), errors.As(err, &limit):
		return ErrRateLimited
	}
	return fmt.Errorf("%s failed: %w", op, err)
}
