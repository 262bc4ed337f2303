package session

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/models"
	"github.com/example/bistro/pkg/repository"
	"go.uber.org/zap"
)

type State string

const (
	StateAnonymous     State = "anonymous"
	StateCodeSent      State = "code_sent"
	StateAuthenticated State = "authenticated"
)

const minPhoneDigits = 10

var (
	nonDigit = regexp.MustCompile(`\D`)
	codeRE   = regexp.MustCompile(`^\d{6}$`)
)

// Manager walks a visitor from phone entry to an authenticated session and
// keeps that session in local persistence. It is not safe for concurrent
// use.
type Manager struct {
	identity  Identity
	snapshots repository.Snapshots
	password  string
	countdown time.Duration
	now       func() time.Time
	logger    *zap.Logger

	pending    string
	codeSentAt time.Time
}

func NewManager(identity Identity, snapshots repository.Snapshots, cfg *config.SessionConfig, password string, logger *zap.Logger) *Manager {
	return &Manager{
		identity:  identity,
		snapshots: snapshots,
		password:  password,
		countdown: cfg.ResendCountdown,
		now:       time.Now,
		logger:    logger.Named("session"),
	}
}

// SetClock replaces the time source.
func (m *Manager) SetClock(now func() time.Time) {
	m.now = now
}

// RequestCode registers the phone number, or identifies an existing one,
// and starts the resend countdown. It returns the full number.
func (m *Manager) RequestCode(ctx context.Context, countryCode, localNumber string) (string, error) {
	const op = "session.request_code"

	if len(nonDigit.ReplaceAllString(localNumber, "")) < minPhoneDigits {
		return "", apperr.Validation(op, "Please enter a valid phone number")
	}
	phone := strings.TrimSpace(countryCode) + nonDigit.ReplaceAllString(localNumber, "")

	err := m.identity.SignUp(ctx, phone, m.password)
	switch {
	case errors.Is(err, ErrUserExists):
		m.logger.Info("Phone number already registered", zap.String("phone", phone))
	case err != nil:
		m.logger.Warn("Sign up failed", zap.String("phone", phone), zap.Error(err))
		return "", identityError(op, "Failed to send verification code", err)
	}

	m.pending = phone
	m.codeSentAt = m.now()
	return phone, nil
}

// ResendIn is how long until a new code may be requested.
func (m *Manager) ResendIn() time.Duration {
	if m.pending == "" {
		return 0
	}
	left := m.codeSentAt.Add(m.countdown).Sub(m.now())
	if left < 0 {
		return 0
	}
	return left
}

func (m *Manager) ResendCode(ctx context.Context) error {
	const op = "session.resend_code"

	if m.pending == "" {
		return apperr.Validation(op, "Please enter your phone number first")
	}
	if left := m.ResendIn(); left > 0 {
		return apperr.Validation(op, fmt.Sprintf("Please wait %d seconds before requesting a new code", int(left.Seconds()+0.5)))
	}
	if err := m.identity.ResendCode(ctx, m.pending); err != nil {
		m.logger.Warn("Resend failed", zap.String("phone", m.pending), zap.Error(err))
		return identityError(op, "Failed to resend code", err)
	}
	m.codeSentAt = m.now()
	return nil
}

// SubmitCode confirms the pending number with code, signs in and persists
// the session.
func (m *Manager) SubmitCode(ctx context.Context, code string) (models.Session, error) {
	const op = "session.submit_code"

	if !codeRE.MatchString(code) {
		return models.Session{}, apperr.Validation(op, "Please enter a valid 6-digit verification code")
	}
	if m.pending == "" {
		return models.Session{}, apperr.Validation(op, "Please enter your phone number first")
	}
	phone := m.pending

	if err := m.identity.ConfirmSignUp(ctx, phone, code); err != nil {
		m.logger.Warn("Code confirmation failed", zap.String("phone", phone), zap.Error(err))
		return models.Session{}, identityError(op, "Invalid verification code", err)
	}

	tokens, err := m.identity.Authenticate(ctx, phone, m.password)
	if err != nil {
		m.logger.Warn("Sign in failed", zap.String("phone", phone), zap.Error(err))
		return models.Session{}, identityError(op, "Failed to sign in. Please try again.", err)
	}

	sess := sessionOf(phone, tokens)
	if err := m.persist(ctx, sess); err != nil {
		return models.Session{}, err
	}
	m.pending = ""
	m.codeSentAt = time.Time{}

	m.logger.Info("Phone number verified", zap.String("phone", phone))
	return sess, nil
}

// Current returns the persisted session without checking its expiry.
func (m *Manager) Current(ctx context.Context) (models.Session, bool) {
	var sess models.Session
	found, err := m.snapshots.Load(ctx, repository.KeyUserSession, &sess)
	if err != nil {
		m.logger.Warn("Failed to read session", zap.Error(err))
		return models.Session{}, false
	}
	return sess, found
}

// Authenticated returns the session if one is persisted and unexpired. An
// expired session is logged out on the way.
func (m *Manager) Authenticated(ctx context.Context) (models.Session, bool) {
	sess, ok := m.Current(ctx)
	if !ok {
		return models.Session{}, false
	}

	var flag bool
	if found, err := m.snapshots.Load(ctx, repository.KeyIsAuthenticated, &flag); err != nil || !found || !flag {
		return models.Session{}, false
	}

	if !sess.Valid(m.now()) {
		m.logger.Info("Session expired", zap.String("phone", sess.PhoneNumber))
		if err := m.Logout(ctx); err != nil {
			m.logger.Warn("Logout after expiry failed", zap.Error(err))
		}
		return models.Session{}, false
	}
	return sess, true
}

func (m *Manager) IsAuthenticated(ctx context.Context) bool {
	_, ok := m.Authenticated(ctx)
	return ok
}

func (m *Manager) State(ctx context.Context) State {
	if m.IsAuthenticated(ctx) {
		return StateAuthenticated
	}
	if m.pending != "" {
		return StateCodeSent
	}
	return StateAnonymous
}

// Refresh renews the persisted session's tokens. Any refusal from the
// identity provider ends the session.
func (m *Manager) Refresh(ctx context.Context) error {
	sess, ok := m.Current(ctx)
	if !ok {
		return nil
	}

	tokens, err := m.identity.Refresh(ctx, sess.PhoneNumber, sess.RefreshToken)
	if err == nil && !m.now().Before(tokens.ExpiresAt) {
		err = apperr.Identity("session.refresh", "Session is no longer valid", nil)
	}
	if err != nil {
		m.logger.Warn("Session refresh failed, logging out", zap.String("phone", sess.PhoneNumber), zap.Error(err))
		return m.Logout(ctx)
	}

	m.logger.Info("Session refreshed", zap.String("phone", sess.PhoneNumber))
	return m.persist(ctx, sessionOf(sess.PhoneNumber, tokens))
}

// Logout signs out of the identity provider and clears the persisted
// session. A provider failure is logged and does not keep the session.
func (m *Manager) Logout(ctx context.Context) error {
	sess, ok := m.Current(ctx)
	if ok {
		if err := m.identity.SignOut(ctx, sess.AccessToken); err != nil {
			m.logger.Warn("Identity sign out failed", zap.Error(err))
		}
	}

	m.pending = ""
	if err := m.snapshots.Remove(ctx, repository.KeyUserSession, repository.KeyIsAuthenticated, repository.KeyAuthTimestamp); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}
	return nil
}

func (m *Manager) persist(ctx context.Context, sess models.Session) error {
	if err := m.snapshots.Save(ctx, sess, repository.KeyUserSession); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := m.snapshots.Save(ctx, true, repository.KeyIsAuthenticated); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	if err := m.snapshots.Save(ctx, m.now().UnixMilli(), repository.KeyAuthTimestamp); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func sessionOf(phone string, t Tokens) models.Session {
	return models.Session{
		PhoneNumber:  phone,
		AccessToken:  t.AccessToken,
		IDToken:      t.IDToken,
		RefreshToken: t.RefreshToken,
		ExpiresAt:    t.ExpiresAt.UnixMilli(),
	}
}

// identityError passes provider errors through and wraps anything else
// with fallback as the user-facing message.
func identityError(op, fallback string, err error) error {
	if errors.Is(err, apperr.ErrIdentity) {
		return err
	}
	return apperr.Identity(op, fallback, err)
}
