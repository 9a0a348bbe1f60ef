// Package keystore holds the shared secrets of DCI clients, keyed by access
// key (client_type/client_id).
package keystore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/vitalvas/dciauth/dcisig"
)

var (
	// ErrNotFound is returned when no secret is stored for an access key.
	ErrNotFound = errors.New("keystore: access key not found")

	// ErrDuplicate is returned when an access key is loaded twice.
	ErrDuplicate = errors.New("keystore: duplicate access key")

	// ErrEmptySecret is returned when a credential has no secret.
	ErrEmptySecret = errors.New("keystore: empty secret")
)

// Store returns the secret registered for an access key.
type Store interface {
	Secret(ctx context.Context, accessKey string) ([]byte, error)
}

// Static is an in-memory Store. It is safe for concurrent use.
type Static struct {
	mu      sync.RWMutex
	secrets map[string][]byte
}

// NewStatic creates a Static store from access key to secret pairs.
func NewStatic(secrets map[string]string) (*Static, error) {
	s := &Static{secrets: make(map[string][]byte, len(secrets))}

	for accessKey, secret := range secrets {
		if err := s.Add(accessKey, []byte(secret)); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Add registers a secret. The access key must be client_type/client_id.
func (s *Static) Add(accessKey string, secret []byte) error {
	if _, _, err := dcisig.ParseAccessKey(accessKey); err != nil {
		return err
	}

	if len(secret) == 0 {
		return fmt.Errorf("%w: %s", ErrEmptySecret, accessKey)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.secrets[accessKey]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicate, accessKey)
	}

	s.secrets[accessKey] = append([]byte(nil), secret...)

	return nil
}

// Secret returns the secret for accessKey or ErrNotFound.
func (s *Static) Secret(_ context.Context, accessKey string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	secret, ok := s.secrets[accessKey]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, accessKey)
	}

	return secret, nil
}

// Len returns the number of stored secrets.
func (s *Static) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return len(s.secrets)
}

// Resolver adapts a Store to dcisig.SecretResolver.
func Resolver(store Store) dcisig.SecretResolver {
	return dcisig.SecretResolverFunc(store.Secret)
}
