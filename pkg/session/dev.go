package session

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"sync"
	"time"

	jwt "github.com/dgrijalva/jwt-go"
	"github.com/example/bistro/pkg/apperr"
	"go.uber.org/zap"
)

type devUser struct {
	password  string
	code      string
	confirmed bool
	refresh   string
}

// DevIdentity is an in-process stand-in for a user pool. Codes are written
// to the log instead of being texted, and tokens are HS256 JWTs signed
// with a per-process secret.
type DevIdentity struct {
	mu     sync.Mutex
	users  map[string]*devUser
	secret []byte
	ttl    time.Duration
	now    func() time.Time
	codes  func() string
	logger *zap.Logger
}

func NewDevIdentity(logger *zap.Logger) *DevIdentity {
	secret := make([]byte, 32)
	if _, err := rand.Read(secret); err != nil {
		panic(fmt.Sprintf("failed to seed dev identity secret: %v", err))
	}
	return &DevIdentity{
		users:  make(map[string]*devUser),
		secret: secret,
		ttl:    time.Hour,
		now:    time.Now,
		codes:  randomCode,
		logger: logger.Named("dev-identity"),
	}
}

func (d *DevIdentity) SignUp(ctx context.Context, phone, password string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.users[phone]; ok {
		return ErrUserExists
	}
	u := &devUser{password: password, code: d.codes()}
	d.users[phone] = u
	d.logger.Info("Verification code issued", zap.String("phone", phone), zap.String("code", u.code))
	return nil
}

func (d *DevIdentity) ConfirmSignUp(ctx context.Context, phone, code string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[phone]
	if !ok {
		return apperr.Identity("dev.confirm_sign_up", "User does not exist.", nil)
	}
	if u.confirmed {
		return apperr.Identity("dev.confirm_sign_up", "User cannot be confirmed. Current status is CONFIRMED", nil)
	}
	if code != u.code {
		return apperr.Identity("dev.confirm_sign_up", "Invalid verification code provided, please try again.", nil)
	}
	u.confirmed = true
	return nil
}

func (d *DevIdentity) ResendCode(ctx context.Context, phone string) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	u, ok := d.users[phone]
	if !ok {
		return apperr.Identity("dev.resend_code", "User does not exist.", nil)
	}
	u.code = d.codes()
	d.logger.Info("Verification code reissued", zap.String("phone", phone), zap.String("code", u.code))
	return nil
}

func (d *DevIdentity) Authenticate(ctx context.Context, phone, password string) (Tokens, error) {
	d.mu.Lock()
	u, ok := d.users[phone]
	d.mu.Unlock()

	if !ok || u.password != password {
		return Tokens{}, apperr.Identity("dev.authenticate", "Incorrect username or password.", nil)
	}
	if !u.confirmed {
		return Tokens{}, apperr.Identity("dev.authenticate", "User is not confirmed.", nil)
	}

	refresh, err := d.sign(phone, "refresh", d.now().Add(30*24*time.Hour))
	if err != nil {
		return Tokens{}, err
	}
	d.mu.Lock()
	u.refresh = refresh
	d.mu.Unlock()
	return d.issue(phone, refresh)
}

func (d *DevIdentity) Refresh(ctx context.Context, phone, refreshToken string) (Tokens, error) {
	d.mu.Lock()
	u, ok := d.users[phone]
	current := ok && u.refresh != "" && u.refresh == refreshToken
	d.mu.Unlock()
	if !current {
		return Tokens{}, apperr.Identity("dev.refresh", "Refresh Token has been revoked", nil)
	}

	claims := &jwt.StandardClaims{}
	_, err := jwt.ParseWithClaims(refreshToken, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return d.secret, nil
	})
	if err != nil || claims.Subject != phone || claims.Audience != "refresh" {
		return Tokens{}, apperr.Identity("dev.refresh", "Invalid Refresh Token", err)
	}
	return d.issue(phone, refreshToken)
}

// SignOut revokes the refresh token of the access token's subject.
func (d *DevIdentity) SignOut(ctx context.Context, accessToken string) error {
	claims := &jwt.StandardClaims{}
	if _, _, err := new(jwt.Parser).ParseUnverified(accessToken, claims); err != nil {
		return apperr.Identity("dev.sign_out", "Invalid Access Token", err)
	}

	d.mu.Lock()
	if u, ok := d.users[claims.Subject]; ok {
		u.refresh = ""
	}
	d.mu.Unlock()
	return nil
}

// LastCode returns the code most recently issued to phone.
func (d *DevIdentity) LastCode(phone string) (string, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	u, ok := d.users[phone]
	if !ok {
		return "", false
	}
	return u.code, true
}

func (d *DevIdentity) issue(phone, refresh string) (Tokens, error) {
	exp := d.now().Add(d.ttl)
	access, err := d.sign(phone, "access", exp)
	if err != nil {
		return Tokens{}, err
	}
	id, err := d.sign(phone, "id", exp)
	if err != nil {
		return Tokens{}, err
	}
	return Tokens{AccessToken: access, IDToken: id, RefreshToken: refresh, ExpiresAt: time.Unix(exp.Unix(), 0)}, nil
}

func (d *DevIdentity) sign(phone, use string, exp time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.StandardClaims{
		Subject:   phone,
		Audience:  use,
		IssuedAt:  d.now().Unix(),
		ExpiresAt: exp.Unix(),
		Id:        randomCode() + randomCode(),
	})
	signed, err := token.SignedString(d.secret)
	if err != nil {
		return "", fmt.Errorf("failed to sign %s token: %w", use, err)
	}
	return signed, nil
}

func randomCode() string {
	n, err := rand.Int(rand.Reader, big.NewInt(1000000))
	if err != nil {
		return "000000"
	}
	return fmt.Sprintf("%06d", n.Int64())
}
