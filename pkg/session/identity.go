// Package session drives phone-number verification against an identity
// provider and keeps the resulting session in local persistence.
package session

import (
	"context"
	"errors"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
)

// ErrUserExists is returned by SignUp for a phone number that is already
// registered. The manager treats it as "identified" and moves on to code
// entry.
var ErrUserExists = errors.New("user already exists")

// Tokens is what a successful authentication or refresh yields.
type Tokens struct {
	AccessToken  string
	IDToken      string
	RefreshToken string
	ExpiresAt    time.Time
}

// Identity is the external verification service. Implementations report
// provider failures as apperr identity errors carrying the provider's
// message.
type Identity interface {
	SignUp(ctx context.Context, phone, password string) error
	ConfirmSignUp(ctx context.Context, phone, code string) error
	ResendCode(ctx context.Context, phone string) error
	Authenticate(ctx context.Context, phone, password string) (Tokens, error)
	Refresh(ctx context.Context, phone, refreshToken string) (Tokens, error)
	SignOut(ctx context.Context, accessToken string) error
}

// ExpiryOf reads the exp claim of a JWT without verifying its signature.
// The provider already vouched for the token; only the instant matters.
func ExpiryOf(token string) (time.Time, bool) {
	claims := jwt.MapClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(token, claims); err != nil {
		return time.Time{}, false
	}
	switch exp := claims["exp"].(type) {
	case float64:
		return time.Unix(int64(exp), 0), true
	case int64:
		return time.Unix(exp, 0), true
	default:
		return time.Time{}, false
	}
}
