package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/example/bistro/pkg/apperr"
	"github.com/example/bistro/pkg/config"
	"github.com/example/bistro/pkg/repository"
	"github.com/example/bistro/pkg/repository/repotest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIdentity struct {
	signUpErr  error
	confirmErr error
	refreshErr error
	expiresAt  time.Time

	signedUp  []string
	passwords []string
	resent    int
	signedOut []string
	refreshed int
}

func (f *fakeIdentity) SignUp(_ context.Context, phone, password string) error {
	f.signedUp = append(f.signedUp, phone)
	f.passwords = append(f.passwords, password)
	return f.signUpErr
}

func (f *fakeIdentity) ConfirmSignUp(context.Context, string, string) error {
	return f.confirmErr
}

func (f *fakeIdentity) ResendCode(context.Context, string) error {
	f.resent++
	return nil
}

func (f *fakeIdentity) Authenticate(_ context.Context, phone, _ string) (Tokens, error) {
	return Tokens{AccessToken: "access-" + phone, IDToken: "id", RefreshToken: "refresh", ExpiresAt: f.expiresAt}, nil
}

func (f *fakeIdentity) Refresh(context.Context, string, string) (Tokens, error) {
	f.refreshed++
	if f.refreshErr != nil {
		return Tokens{}, f.refreshErr
	}
	return Tokens{AccessToken: "access-2", IDToken: "id-2", RefreshToken: "refresh", ExpiresAt: f.expiresAt}, nil
}

func (f *fakeIdentity) SignOut(_ context.Context, token string) error {
	f.signedOut = append(f.signedOut, token)
	return nil
}

type clock struct{ t time.Time }

func (c *clock) Now() time.Time          { return c.t }
func (c *clock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newManager(t *testing.T, id Identity) (*Manager, *clock, *repository.Local) {
	t.Helper()
	_, local := repotest.NewLocal(t)
	c := &clock{t: time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)}
	cfg := &config.SessionConfig{RefreshInterval: 30 * time.Minute, ResendCountdown: 120 * time.Second}
	m := NewManager(id, local, cfg, "tempPassword123!", zap.NewNop())
	m.SetClock(c.Now)
	return m, c, local
}

func signIn(t *testing.T, m *Manager) {
	t.Helper()
	_, err := m.RequestCode(context.Background(), "+1", "555-123-4567")
	require.NoError(t, err)
	_, err = m.SubmitCode(context.Background(), "123456")
	require.NoError(t, err)
}

func TestRequestCodeValidatesPhone(t *testing.T) {
	id := &fakeIdentity{}
	m, _, _ := newManager(t, id)

	_, err := m.RequestCode(context.Background(), "+1", "555-1234")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Empty(t, id.signedUp)
	assert.Equal(t, StateAnonymous, m.State(context.Background()))
}

func TestRequestCodeUsesPlaceholderPassword(t *testing.T) {
	id := &fakeIdentity{}
	m, _, _ := newManager(t, id)

	phone, err := m.RequestCode(context.Background(), "+1", "(555) 123-4567")
	require.NoError(t, err)
	assert.Equal(t, "+15551234567", phone)
	assert.Equal(t, []string{"tempPassword123!"}, id.passwords)
	assert.Equal(t, StateCodeSent, m.State(context.Background()))
	assert.Equal(t, 120*time.Second, m.ResendIn())
}

func TestRequestCodeTreatsExistingUserAsIdentified(t *testing.T) {
	m, _, _ := newManager(t, &fakeIdentity{signUpErr: ErrUserExists})

	_, err := m.RequestCode(context.Background(), "+44", "2079460958")
	require.NoError(t, err)
	assert.Equal(t, StateCodeSent, m.State(context.Background()))
}

func TestRequestCodeSurfacesProviderMessage(t *testing.T) {
	providerErr := apperr.Identity("cognito.sign_up", "Invalid phone number format.", nil)
	m, _, _ := newManager(t, &fakeIdentity{signUpErr: providerErr})

	_, err := m.RequestCode(context.Background(), "+1", "5551234567")
	assert.True(t, errors.Is(err, apperr.ErrIdentity))
	assert.Equal(t, "Invalid phone number format.", apperr.Message(err))
}

func TestSubmitCodeValidatesFormat(t *testing.T) {
	m, _, _ := newManager(t, &fakeIdentity{})
	_, err := m.RequestCode(context.Background(), "+1", "5551234567")
	require.NoError(t, err)

	for _, code := range []string{"12345", "1234567", "12a456", ""} {
		_, err := m.SubmitCode(context.Background(), code)
		assert.True(t, errors.Is(err, apperr.ErrValidation), code)
	}
}

func TestSubmitCodeRequiresPendingNumber(t *testing.T) {
	m, _, _ := newManager(t, &fakeIdentity{})
	_, err := m.SubmitCode(context.Background(), "123456")
	assert.True(t, errors.Is(err, apperr.ErrValidation))
}

func TestSubmitCodePersistsSession(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, c, local := newManager(t, id)
	id.expiresAt = c.t.Add(time.Hour)

	signIn(t, m)

	sess, ok := m.Authenticated(ctx)
	require.True(t, ok)
	assert.Equal(t, "+15551234567", sess.PhoneNumber)
	assert.Equal(t, c.t.Add(time.Hour).UnixMilli(), sess.ExpiresAt)
	assert.Equal(t, StateAuthenticated, m.State(ctx))

	var ts int64
	found, err := local.Load(ctx, repository.KeyAuthTimestamp, &ts)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, c.t.UnixMilli(), ts)
}

func TestSubmitCodeConfirmationFailure(t *testing.T) {
	ctx := context.Background()
	m, _, _ := newManager(t, &fakeIdentity{confirmErr: errors.New("CodeMismatchException")})
	_, err := m.RequestCode(ctx, "+1", "5551234567")
	require.NoError(t, err)

	_, err = m.SubmitCode(ctx, "000000")
	assert.True(t, errors.Is(err, apperr.ErrIdentity))
	assert.Equal(t, "Invalid verification code", apperr.Message(err))
	assert.False(t, m.IsAuthenticated(ctx))
	assert.Equal(t, StateCodeSent, m.State(ctx))
}

func TestExpiredSessionIsLoggedOut(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, c, local := newManager(t, id)
	id.expiresAt = c.t.Add(time.Hour)
	signIn(t, m)

	c.Advance(time.Hour)
	assert.False(t, m.IsAuthenticated(ctx))

	var raw map[string]interface{}
	found, err := local.Load(ctx, repository.KeyUserSession, &raw)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, []string{"access-+15551234567"}, id.signedOut)
}

func TestResendCodeWaitsForCountdown(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, c, _ := newManager(t, id)

	err := m.ResendCode(ctx)
	assert.True(t, errors.Is(err, apperr.ErrValidation))

	_, err = m.RequestCode(ctx, "+1", "5551234567")
	require.NoError(t, err)

	c.Advance(60 * time.Second)
	err = m.ResendCode(ctx)
	assert.True(t, errors.Is(err, apperr.ErrValidation))
	assert.Equal(t, 60*time.Second, m.ResendIn())

	c.Advance(60 * time.Second)
	require.NoError(t, m.ResendCode(ctx))
	assert.Equal(t, 1, id.resent)
	assert.Equal(t, 120*time.Second, m.ResendIn())
}

func TestRefreshRenewsTokens(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, c, _ := newManager(t, id)
	id.expiresAt = c.t.Add(time.Hour)
	signIn(t, m)

	c.Advance(30 * time.Minute)
	id.expiresAt = c.t.Add(time.Hour)
	require.NoError(t, m.Refresh(ctx))

	sess, ok := m.Authenticated(ctx)
	require.True(t, ok)
	assert.Equal(t, "access-2", sess.AccessToken)
	assert.Equal(t, id.expiresAt.UnixMilli(), sess.ExpiresAt)
}

func TestRefreshFailureLogsOut(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, c, _ := newManager(t, id)
	id.expiresAt = c.t.Add(time.Hour)
	signIn(t, m)

	id.refreshErr = errors.New("NotAuthorizedException")
	require.NoError(t, m.Refresh(ctx))
	assert.False(t, m.IsAuthenticated(ctx))
}

func TestRefreshWithoutSessionDoesNothing(t *testing.T) {
	id := &fakeIdentity{}
	m, _, _ := newManager(t, id)
	require.NoError(t, m.Refresh(context.Background()))
	assert.Zero(t, id.refreshed)
}

func TestLogout(t *testing.T) {
	ctx := context.Background()
	id := &fakeIdentity{}
	m, c, _ := newManager(t, id)
	id.expiresAt = c.t.Add(time.Hour)
	signIn(t, m)

	require.NoError(t, m.Logout(ctx))
	assert.False(t, m.IsAuthenticated(ctx))
	_, ok := m.Current(ctx)
	assert.False(t, ok)
	assert.Equal(t, StateAnonymous, m.State(ctx))
}
