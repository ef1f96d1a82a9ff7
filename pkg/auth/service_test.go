package auth_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventdesk/dashboard/pkg/auth"
	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/i18n"
	"github.com/eventdesk/dashboard/pkg/store"
	"github.com/eventdesk/dashboard/pkg/validate"
)

type memAccounts struct {
	mu      sync.Mutex
	byEmail map[string]contracts.Account
	revoked map[string]time.Time
}

func newMemAccounts() *memAccounts {
	return &memAccounts{byEmail: map[string]contracts.Account{}, revoked: map[string]time.Time{}}
}

func (m *memAccounts) Insert(_ context.Context, a contracts.Account) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.byEmail[a.Email]; ok {
		return errors.Join(store.ErrConflict, errors.New("duplicate"))
	}
	m.byEmail[a.Email] = a
	return nil
}

func (m *memAccounts) GetByEmail(_ context.Context, email string) (contracts.Account, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	a, ok := m.byEmail[email]
	if !ok {
		return contracts.Account{}, store.ErrNotFound
	}
	return a, nil
}

func (m *memAccounts) Revoke(_ context.Context, jti string, exp time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.revoked[jti] = exp
	return nil
}

func (m *memAccounts) IsRevoked(_ context.Context, jti string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.revoked[jti]
	return ok, nil
}

func newService(t *testing.T, allowSignup bool) (*auth.Service, *memAccounts) {
	t.Helper()
	ks, err := auth.NewKeySet("")
	require.NoError(t, err)
	accounts := newMemAccounts()
	svc := auth.NewService(accounts, ks, validate.New(), auth.Options{
		AllowSignup: allowSignup,
		TokenTTL:    time.Hour,
		BcryptCost:  bcrypt.MinCost,
	})
	return svc, accounts
}

func TestSignupLoginLogout(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, true)

	acct, err := svc.Signup(ctx, auth.SignupInput{Email: " Admin@Example.com ", Password: "Secret123", ConfirmPassword: "Secret123"})
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", acct.Email)
	assert.NotEqual(t, "Secret123", acct.PasswordHash)

	sess, err := svc.Login(ctx, auth.LoginInput{Email: "ADMIN@example.com", Password: "Secret123"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.WithinDuration(t, time.Now().Add(time.Hour), sess.ExpiresAt, time.Minute)

	p, err := svc.Authenticate(ctx, sess.Token)
	require.NoError(t, err)
	assert.Equal(t, acct.ID, p.ID)
	assert.Equal(t, "admin@example.com", p.Email)
	assert.True(t, p.HasRole("editor"), "admin implies every role")

	require.NoError(t, svc.Logout(ctx, sess.Token))
	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestSignup_Rejections(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, true)

	_, err := svc.Signup(ctx, auth.SignupInput{Email: "a@b.co", Password: "weak", ConfirmPassword: "weak"})
	var ve *validate.Error
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "password", ve.Fields[0].Field)

	_, err = svc.Signup(ctx, auth.SignupInput{Email: "a@b.co", Password: "Secret123", ConfirmPassword: "Secret124"})
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, i18n.PasswordMismatch, ve.Fields[0].Key)

	_, err = svc.Signup(ctx, auth.SignupInput{Email: "a@b.co", Password: "Secret123", ConfirmPassword: "Secret123"})
	require.NoError(t, err)
	_, err = svc.Signup(ctx, auth.SignupInput{Email: "A@B.CO", Password: "Secret123", ConfirmPassword: "Secret123"})
	assert.ErrorIs(t, err, auth.ErrEmailTaken)
}

func TestSignup_Disabled(t *testing.T) {
	svc, _ := newService(t, false)
	_, err := svc.Signup(context.Background(), auth.SignupInput{Email: "a@b.co", Password: "Secret123", ConfirmPassword: "Secret123"})
	assert.ErrorIs(t, err, auth.ErrSignupDisabled)
}

func TestLogin_BadCredentials(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, true)
	_, err := svc.Signup(ctx, auth.SignupInput{Email: "a@b.co", Password: "Secret123", ConfirmPassword: "Secret123"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, auth.LoginInput{Email: "a@b.co", Password: "Secret124"})
	assert.ErrorIs(t, err, auth.ErrBadCredentials)

	_, err = svc.Login(ctx, auth.LoginInput{Email: "nobody@b.co", Password: "Secret123"})
	assert.ErrorIs(t, err, auth.ErrBadCredentials)
}

func TestNormalizeEmail(t *testing.T) {
	for _, in := range []string{"admin@example.com", " Admin@Example.com", "ADMIN@EXAMPLE.COM\t"} {
		assert.Equal(t, "admin@example.com", auth.NormalizeEmail(in), in)
	}
}

func TestAuthenticate_ForeignKey(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t, true)
	other, _ := newService(t, true)

	_, err := other.Signup(ctx, auth.SignupInput{Email: "a@b.co", Password: "Secret123", ConfirmPassword: "Secret123"})
	require.NoError(t, err)
	sess, err := other.Login(ctx, auth.LoginInput{Email: "a@b.co", Password: "Secret123"})
	require.NoError(t, err)

	_, err = svc.Authenticate(ctx, sess.Token)
	assert.ErrorIs(t, err, auth.ErrUnauthorized)
}

func TestNewKeySet_Seed(t *testing.T) {
	seed := "9d61b19deffd5a60ba844af492ec2cc44449c5697b326919703bac031cae7f60"
	a, err := auth.NewKeySet(seed)
	require.NoError(t, err)
	b, err := auth.NewKeySet(seed)
	require.NoError(t, err)
	assert.Equal(t, a.CurrentKID(), b.CurrentKID(), "same seed, same key id")

	_, err = auth.NewKeySet("abcd")
	assert.Error(t, err)
	_, err = auth.NewKeySet("zz")
	assert.Error(t, err)
}

func TestKeySet_RotateKeepsOldTokensValid(t *testing.T) {
	ks, err := auth.NewKeySet("")
	require.NoError(t, err)
	acct := contracts.Account{ID: "acct-1", Email: "a@b.co", Roles: []string{"admin"}}

	token, _, err := auth.NewIssuer(ks, time.Hour).Issue(context.Background(), acct)
	require.NoError(t, err)
	require.NoError(t, ks.Rotate())

	claims, err := auth.NewValidator(ks).Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "acct-1", claims.Subject)
}

func TestValidator_Expired(t *testing.T) {
	ks, err := auth.NewKeySet("")
	require.NoError(t, err)
	token, _, err := auth.NewIssuer(ks, -time.Minute).Issue(context.Background(), contracts.Account{ID: "x"})
	require.NoError(t, err)

	_, err = auth.NewValidator(ks).Validate(token)
	assert.Error(t, err)
}
