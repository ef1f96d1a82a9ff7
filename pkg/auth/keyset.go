package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/golang-jwt/jwt/v5"
)

// KeySet signs tokens with the active key and verifies tokens signed by any retained key.
type KeySet struct {
	mu         sync.RWMutex
	currentKID string
	keys       map[string]ed25519.PrivateKey
	order      []string
}

const maxRetainedKeys = 10

// NewKeySet builds a key set from a hex-encoded 32-byte ed25519 seed. An empty seed
// generates a random key, so tokens do not survive a restart.
func NewKeySet(seedHex string) (*KeySet, error) {
	ks := &KeySet{keys: make(map[string]ed25519.PrivateKey)}
	if seedHex == "" {
		if err := ks.Rotate(); err != nil {
			return nil, err
		}
		return ks, nil
	}
	seed, err := hex.DecodeString(seedHex)
	if err != nil {
		return nil, fmt.Errorf("signing key is not hex: %w", err)
	}
	if len(seed) != ed25519.SeedSize {
		return nil, fmt.Errorf("signing key must be %d bytes, got %d", ed25519.SeedSize, len(seed))
	}
	ks.add(ed25519.NewKeyFromSeed(seed))
	return ks, nil
}

// Rotate generates a new active key. Older keys keep verifying until evicted.
func (ks *KeySet) Rotate() error {
	_, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		return fmt.Errorf("failed to generate key: %w", err)
	}
	ks.add(priv)
	return nil
}

func (ks *KeySet) add(priv ed25519.PrivateKey) {
	ks.mu.Lock()
	defer ks.mu.Unlock()

	sum := sha256.Sum256(priv.Public().(ed25519.PublicKey))
	kid := hex.EncodeToString(sum[:8])
	if _, ok := ks.keys[kid]; !ok {
		ks.order = append(ks.order, kid)
	}
	ks.keys[kid] = priv
	ks.currentKID = kid

	for len(ks.order) > maxRetainedKeys {
		delete(ks.keys, ks.order[0])
		ks.order = ks.order[1:]
	}
}

// CurrentKID returns the key ID stamped on new tokens.
func (ks *KeySet) CurrentKID() string {
	ks.mu.RLock()
	defer ks.mu.RUnlock()
	return ks.currentKID
}

func (ks *KeySet) Sign(_ context.Context, claims jwt.Claims) (string, error) {
	ks.mu.RLock()
	key := ks.keys[ks.currentKID]
	kid := ks.currentKID
	ks.mu.RUnlock()

	if key == nil {
		return "", fmt.Errorf("no active key")
	}

	token := jwt.NewWithClaims(jwt.SigningMethodEdDSA, claims)
	token.Header["kid"] = kid
	return token.SignedString(key)
}

func (ks *KeySet) KeyFunc() jwt.Keyfunc {
	return func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodEd25519); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}

		kid, ok := token.Header["kid"].(string)
		if !ok {
			return nil, fmt.Errorf("missing kid in header")
		}

		ks.mu.RLock()
		defer ks.mu.RUnlock()
		key, exists := ks.keys[kid]
		if !exists {
			return nil, fmt.Errorf("key not found: %s", kid)
		}
		return key.Public(), nil
	}
}
