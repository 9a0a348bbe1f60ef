package dcisig

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultKeyCacheSize is the number of derived keys kept by a
// CachedKeyDeriver when no size is given.
const DefaultKeyCacheSize = 1024

// KeyDeriver produces the signing key for a secret and a credential scope.
type KeyDeriver interface {
	DeriveKey(alg Algorithm, secret []byte, scope CredentialScope) []byte
}

// KeyDeriverFunc adapts a function to the KeyDeriver interface.
type KeyDeriverFunc func(alg Algorithm, secret []byte, scope CredentialScope) []byte

// DeriveKey calls f.
func (f KeyDeriverFunc) DeriveKey(alg Algorithm, secret []byte, scope CredentialScope) []byte {
	return f(alg, secret, scope)
}

// DeriveSigningKey runs the HMAC-SHA256 chain
//
//	k0 = tag + secret
//	k1 = HMAC(k0, datestamp)
//	k2 = HMAC(k1, region)
//	k3 = HMAC(k2, service)
//	k4 = HMAC(k3, request_type)
//
// where tag is the algorithm family ("DCI2" or "DCI3"), and returns k4.
func DeriveSigningKey(alg Algorithm, secret []byte, scope CredentialScope) []byte {
	prefix := alg.keyPrefix()

	k := make([]byte, 0, len(prefix)+len(secret))
	k = append(k, prefix...)
	k = append(k, secret...)

	for _, part := range []string{scope.Datestamp, scope.Region, scope.Service, scope.RequestType} {
		k = hmacSHA256(k, []byte(part))
	}

	return k
}

func hmacSHA256(key, data []byte) []byte {
	mac := hmac.New(sha256.New, key)
	mac.Write(data)

	return mac.Sum(nil)
}

// CachedKeyDeriver memoizes derived keys in a fixed size LRU cache. Keys are
// indexed by algorithm, a SHA-256 fingerprint of the secret and the scope
// path, so a cached key never outlives a rotated secret. It is safe for
// concurrent use.
type CachedKeyDeriver struct {
	cache *lru.Cache[string, []byte]
}

// NewCachedKeyDeriver creates a CachedKeyDeriver holding up to size keys.
// A size of zero or less selects DefaultKeyCacheSize.
func NewCachedKeyDeriver(size int) (*CachedKeyDeriver, error) {
	if size <= 0 {
		size = DefaultKeyCacheSize
	}

	cache, err := lru.New[string, []byte](size)
	if err != nil {
		return nil, fmt.Errorf("dcisig: key cache: %w", err)
	}

	return &CachedKeyDeriver{cache: cache}, nil
}

// DeriveKey returns the cached key or derives and stores it.
func (d *CachedKeyDeriver) DeriveKey(alg Algorithm, secret []byte, scope CredentialScope) []byte {
	id := cacheKey(alg, secret, scope)

	if key, ok := d.cache.Get(id); ok {
		return key
	}

	key := DeriveSigningKey(alg, secret, scope)
	d.cache.Add(id, key)

	return key
}

// Len returns the number of cached keys.
func (d *CachedKeyDeriver) Len() int {
	return d.cache.Len()
}

func cacheKey(alg Algorithm, secret []byte, scope CredentialScope) string {
	fingerprint := sha256.Sum256(secret)
	return alg.String() + "|" + hex.EncodeToString(fingerprint[:]) + "|" + scope.Path()
}

func keyDeriverOrDefault(d KeyDeriver) KeyDeriver {
	if d == nil {
		return KeyDeriverFunc(DeriveSigningKey)
	}

	return d
}
