package session

import (
	"context"
	"errors"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	cip "github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider"
	"github.com/aws/aws-sdk-go-v2/service/cognitoidentityprovider/types"
	"github.com/aws/smithy-go"
	"github.com/example/bistro/pkg/apperr"
	"go.uber.org/zap"
)

const defaultTokenTTL = time.Hour

// CognitoAPI is the subset of the user pool client the flow needs.
type CognitoAPI interface {
	SignUp(ctx context.Context, in *cip.SignUpInput, optFns ...func(*cip.Options)) (*cip.SignUpOutput, error)
	ConfirmSignUp(ctx context.Context, in *cip.ConfirmSignUpInput, optFns ...func(*cip.Options)) (*cip.ConfirmSignUpOutput, error)
	ResendConfirmationCode(ctx context.Context, in *cip.ResendConfirmationCodeInput, optFns ...func(*cip.Options)) (*cip.ResendConfirmationCodeOutput, error)
	InitiateAuth(ctx context.Context, in *cip.InitiateAuthInput, optFns ...func(*cip.Options)) (*cip.InitiateAuthOutput, error)
	GlobalSignOut(ctx context.Context, in *cip.GlobalSignOutInput, optFns ...func(*cip.Options)) (*cip.GlobalSignOutOutput, error)
}

// Cognito verifies phone numbers through a Cognito user pool app client.
type Cognito struct {
	api      CognitoAPI
	clientID string
	now      func() time.Time
	logger   *zap.Logger
}

func NewCognitoClient(cfg aws.Config) *cip.Client {
	return cip.NewFromConfig(cfg)
}

func NewCognito(api CognitoAPI, clientID string, logger *zap.Logger) *Cognito {
	return &Cognito{
		api:      api,
		clientID: clientID,
		now:      time.Now,
		logger:   logger.Named("cognito"),
	}
}

func (c *Cognito) SignUp(ctx context.Context, phone, password string) error {
	_, err := c.api.SignUp(ctx, &cip.SignUpInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(phone),
		Password: aws.String(password),
		UserAttributes: []types.AttributeType{
			{Name: aws.String("phone_number"), Value: aws.String(phone)},
		},
	})
	var exists *types.UsernameExistsException
	if errors.As(err, &exists) {
		return ErrUserExists
	}
	return providerError("cognito.sign_up", "Failed to send verification code", err)
}

func (c *Cognito) ConfirmSignUp(ctx context.Context, phone, code string) error {
	_, err := c.api.ConfirmSignUp(ctx, &cip.ConfirmSignUpInput{
		ClientId:         aws.String(c.clientID),
		Username:         aws.String(phone),
		ConfirmationCode: aws.String(code),
	})
	return providerError("cognito.confirm_sign_up", "Invalid verification code", err)
}

func (c *Cognito) ResendCode(ctx context.Context, phone string) error {
	_, err := c.api.ResendConfirmationCode(ctx, &cip.ResendConfirmationCodeInput{
		ClientId: aws.String(c.clientID),
		Username: aws.String(phone),
	})
	return providerError("cognito.resend_code", "Failed to resend code", err)
}

func (c *Cognito) Authenticate(ctx context.Context, phone, password string) (Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeUserPasswordAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME": phone,
			"PASSWORD": password,
		},
	})
	if err != nil {
		return Tokens{}, providerError("cognito.authenticate", "Failed to sign in. Please try again.", err)
	}
	return c.tokens(out, "")
}

// Refresh exchanges the refresh token for new access and id tokens. The
// refresh token itself is kept.
func (c *Cognito) Refresh(ctx context.Context, phone, refreshToken string) (Tokens, error) {
	out, err := c.api.InitiateAuth(ctx, &cip.InitiateAuthInput{
		AuthFlow: types.AuthFlowTypeRefreshTokenAuth,
		ClientId: aws.String(c.clientID),
		AuthParameters: map[string]string{
			"USERNAME":      phone,
			"REFRESH_TOKEN": refreshToken,
		},
	})
	if err != nil {
		return Tokens{}, providerError("cognito.refresh", "Session refresh failed", err)
	}
	return c.tokens(out, refreshToken)
}

func (c *Cognito) SignOut(ctx context.Context, accessToken string) error {
	if accessToken == "" {
		return nil
	}
	_, err := c.api.GlobalSignOut(ctx, &cip.GlobalSignOutInput{AccessToken: aws.String(accessToken)})
	return providerError("cognito.sign_out", "Failed to sign out", err)
}

func (c *Cognito) tokens(out *cip.InitiateAuthOutput, refreshToken string) (Tokens, error) {
	res := out.AuthenticationResult
	if res == nil {
		// Custom challenges (MFA, new password) are not part of this flow.
		return Tokens{}, apperr.Identity("cognito.tokens", "Additional verification is required", nil)
	}

	t := Tokens{
		AccessToken:  aws.ToString(res.AccessToken),
		IDToken:      aws.ToString(res.IdToken),
		RefreshToken: aws.ToString(res.RefreshToken),
	}
	if t.RefreshToken == "" {
		t.RefreshToken = refreshToken
	}
	if exp, ok := ExpiryOf(t.AccessToken); ok {
		t.ExpiresAt = exp
	} else {
		c.logger.Warn("Access token carries no expiry, assuming default TTL")
		t.ExpiresAt = c.now().Add(defaultTokenTTL)
	}
	return t, nil
}

// providerError keeps the provider's own message for the user, or fallback
// when there is none.
func providerError(op, fallback string, err error) error {
	if err == nil {
		return nil
	}
	msg := fallback
	var apiErr smithy.APIError
	if errors.As(err, &apiErr) && apiErr.ErrorMessage() != "" {
		msg = apiErr.ErrorMessage()
	}
	return apperr.Identity(op, msg, err)
}
