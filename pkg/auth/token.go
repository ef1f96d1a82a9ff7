package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/eventdesk/dashboard/pkg/contracts"
)

const issuer = "eventdesk"

// Claims are the JWT claims of a dashboard session.
type Claims struct {
	jwt.RegisteredClaims
	Email string   `json:"email"`
	Roles []string `json:"roles"`
}

// Issuer mints session tokens.
type Issuer struct {
	keys *KeySet
	ttl  time.Duration
	now  func() time.Time
}

func NewIssuer(keys *KeySet, ttl time.Duration) *Issuer {
	return &Issuer{keys: keys, ttl: ttl, now: time.Now}
}

// Issue signs a token for acct and returns it with its claims.
func (i *Issuer) Issue(ctx context.Context, acct contracts.Account) (string, *Claims, error) {
	now := i.now()
	claims := &Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   acct.ID,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
		Email: acct.Email,
		Roles: acct.Roles,
	}
	token, err := i.keys.Sign(ctx, claims)
	if err != nil {
		return "", nil, fmt.Errorf("sign token: %w", err)
	}
	return token, claims, nil
}

// Validator parses and checks session tokens.
type Validator struct {
	keys *KeySet
	now  func() time.Time
}

func NewValidator(keys *KeySet) *Validator {
	return &Validator{keys: keys, now: time.Now}
}

// Validate checks signature, issuer and expiry. Revocation is checked by the Service.
func (v *Validator) Validate(tokenStr string) (*Claims, error) {
	if v == nil || v.keys == nil {
		return nil, fmt.Errorf("validator uninitialized")
	}

	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, v.keys.KeyFunc(),
		jwt.WithIssuer(issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
		jwt.WithValidMethods([]string{jwt.SigningMethodEdDSA.Alg()}),
	)
	if err != nil {
		return nil, fmt.Errorf("token validation failed: %w", err)
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	if claims.Subject == "" || claims.ID == "" {
		return nil, fmt.Errorf("token subject and id are required")
	}
	return claims, nil
}
