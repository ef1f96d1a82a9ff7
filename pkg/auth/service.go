package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/eventdesk/dashboard/pkg/contracts"
	"github.com/eventdesk/dashboard/pkg/store"
	"github.com/eventdesk/dashboard/pkg/validate"
)

var (
	ErrSignupDisabled = errors.New("auth: signup disabled")
	ErrBadCredentials = errors.New("auth: invalid email or password")
	ErrEmailTaken     = errors.New("auth: email already registered")
	ErrUnauthorized   = errors.New("auth: unauthorized")
)

// DefaultRoles are granted to every new account.
var DefaultRoles = []string{"admin"}

// Accounts is the persistence the Service needs. *store.AccountStore satisfies it.
type Accounts interface {
	Insert(ctx context.Context, a contracts.Account) error
	GetByEmail(ctx context.Context, email string) (contracts.Account, error)
	Revoke(ctx context.Context, jti string, expiresAt time.Time) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
}

// SignupInput is the signup form.
type SignupInput struct {
	Email           string `json:"email" validate:"required,email,max=254"`
	Password        string `json:"password" validate:"required,password,max=72"`
	ConfirmPassword string `json:"confirm_password" validate:"eqfield=Password"`
}

// LoginInput is the login form.
type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// Session is a successful login.
type Session struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	Account   contracts.Account `json:"account"`
}

// Service implements signup, login, logout and token authentication.
type Service struct {
	accounts    Accounts
	issuer      *Issuer
	validator   *Validator
	input       *validate.Validator
	allowSignup bool
	bcryptCost  int
	now         func() time.Time
	logger      *slog.Logger
}

// Options configures a Service.
type Options struct {
	AllowSignup bool
	TokenTTL    time.Duration
	// BcryptCost defaults to bcrypt.DefaultCost.
	BcryptCost int
}

func NewService(accounts Accounts, keys *KeySet, input *validate.Validator, opts Options) *Service {
	cost := opts.BcryptCost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}
	return &Service{
		accounts:    accounts,
		issuer:      NewIssuer(keys, opts.TokenTTL),
		validator:   NewValidator(keys),
		input:       input,
		allowSignup: opts.AllowSignup,
		bcryptCost:  cost,
		now:         time.Now,
		logger:      slog.Default().With("component", "auth"),
	}
}

// Signup creates an account. Validation failures are *validate.Error.
func (s *Service) Signup(ctx context.Context, in SignupInput) (contracts.Account, error) {
	if !s.allowSignup {
		return contracts.Account{}, ErrSignupDisabled
	}
	in.Email = NormalizeEmail(in.Email)
	if err := s.input.Struct(in); err != nil {
		return contracts.Account{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(in.Password), s.bcryptCost)
	if err != nil {
		return contracts.Account{}, fmt.Errorf("hash password: %w", err)
	}
	acct := contracts.Account{
		ID:           uuid.NewString(),
		Email:        in.Email,
		PasswordHash: string(hash),
		Roles:        DefaultRoles,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.accounts.Insert(ctx, acct); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return contracts.Account{}, ErrEmailTaken
		}
		return contracts.Account{}, err
	}
	s.logger.InfoContext(ctx, "account created", "account_id", acct.ID)
	return acct, nil
}

// NormalizeEmail returns the canonical form accounts are stored and looked up by.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies the credentials and issues a token. Unknown emails and wrong
// passwords both yield ErrBadCredentials.
func (s *Service) Login(ctx context.Context, in LoginInput) (Session, error) {
	in.Email = NormalizeEmail(in.Email)
	if err := s.input.Struct(in); err != nil {
		return Session{}, err
	}

	acct, err := s.accounts.GetByEmail(ctx, in.Email)
	if errors.Is(err, store.ErrNotFound) {
		return Session{}, ErrBadCredentials
	}
	if err != nil {
		return Session{}, err
	}
	if err := bcrypt.CompareHashAndPassword([]byte(acct.PasswordHash), []byte(in.Password)); err != nil {
		return Session{}, ErrBadCredentials
	}

	token, claims, err := s.issuer.Issue(ctx, acct)
	if err != nil {
		return Session{}, err
	}
	return Session{Token: token, ExpiresAt: claims.ExpiresAt.Time, Account: acct}, nil
}

// Logout revokes the token until it would have expired anyway.
func (s *Service) Logout(ctx context.Context, token string) error {
	claims, err := s.validator.Validate(token)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	return s.accounts.Revoke(ctx, claims.ID, claims.ExpiresAt.Time)
}

// Authenticate validates token and rejects revoked ones.
func (s *Service) Authenticate(ctx context.Context, token string) (*Principal, error) {
	claims, err := s.validator.Validate(token)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}
	revoked, err := s.accounts.IsRevoked(ctx, claims.ID)
	if err != nil {
		return nil, err
	}
	if revoked {
		return nil, fmt.Errorf("%w: token revoked", ErrUnauthorized)
	}
	return &Principal{ID: claims.Subject, Email: claims.Email, Roles: claims.Roles, TokenID: claims.ID}, nil
}
