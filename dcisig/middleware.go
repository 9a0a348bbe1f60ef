package dcisig

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
)

// SecretResolver returns the shared secret for an access key.
type SecretResolver interface {
	ResolveSecret(ctx context.Context, accessKey string) ([]byte, error)
}

// SecretResolverFunc adapts a function to the SecretResolver interface.
type SecretResolverFunc func(ctx context.Context, accessKey string) ([]byte, error)

// ResolveSecret calls f.
func (f SecretResolverFunc) ResolveSecret(ctx context.Context, accessKey string) ([]byte, error) {
	return f(ctx, accessKey)
}

// Identity describes the client authenticated by the middleware.
type Identity struct {
	ClientType string
	ClientID   string
	Algorithm  Algorithm
	Scope      CredentialScope
	SignedAt   time.Time
}

// AccessKey returns client_type/client_id.
func (i Identity) AccessKey() string {
	return i.ClientType + "/" + i.ClientID
}

type identityKey struct{}

// IdentityFromContext returns the Identity stored by the middleware.
func IdentityFromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(identityKey{}).(Identity)
	return id, ok
}

// ContextWithIdentity returns a copy of ctx carrying id.
func ContextWithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, identityKey{}, id)
}

// MiddlewareConfig configures the server-side verification middleware.
type MiddlewareConfig struct {
	// Resolver maps the claimed access key to its secret. Required.
	Resolver SecretResolver

	// Verifier checks signatures. Defaults to NewVerifier(VerifierConfig{}).
	Verifier *Verifier

	// Expiry checks the date header.
	Expiry ExpiryChecker

	// OnError is called when verification fails. When nil, a plain 401
	// Unauthorized response is sent.
	OnError func(w http.ResponseWriter, r *http.Request, err error)

	// OnSuccess is called after a request is authenticated, before the
	// next handler runs.
	OnSuccess func(r *http.Request, id Identity)
}

// Middleware returns a mux.MiddlewareFunc that authenticates incoming
// requests: it resolves the secret for the claimed access key, verifies the
// signature, checks expiry and stores the Identity in the request context.
//
// It returns ErrNoResolver if cfg.Resolver is nil.
func Middleware(cfg MiddlewareConfig) (mux.MiddlewareFunc, error) {
	if cfg.Resolver == nil {
		return nil, ErrNoResolver
	}

	verifier := cfg.Verifier
	if verifier == nil {
		verifier = NewVerifier(VerifierConfig{})
	}

	onError := cfg.OnError
	if onError == nil {
		onError = defaultOnError
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := authenticate(r, cfg.Resolver, verifier, cfg.Expiry)
			if err != nil {
				onError(w, r, err)
				return
			}

			if cfg.OnSuccess != nil {
				cfg.OnSuccess(r, id)
			}

			next.ServeHTTP(w, r.WithContext(ContextWithIdentity(r.Context(), id)))
		})
	}, nil
}

func authenticate(r *http.Request, resolver SecretResolver, verifier *Verifier, expiry ExpiryChecker) (Identity, error) {
	accessKey, err := verifier.AccessKey(r.Header)
	if err != nil {
		return Identity{}, err
	}

	secret, err := resolver.ResolveSecret(r.Context(), accessKey)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %s: %v", ErrUnknownAccessKey, accessKey, err)
	}

	req, err := RequestFromHTTP(r)
	if err != nil {
		return Identity{}, err
	}

	auth, err := verifier.verify(req, secret, r.Header)
	if err != nil {
		return Identity{}, err
	}

	if err := expiry.Check(r.Header); err != nil {
		return Identity{}, err
	}

	signedAt, err := SignedAt(r.Header)
	if err != nil {
		return Identity{}, err
	}

	return Identity{
		ClientType: auth.Scope.ClientType,
		ClientID:   auth.Scope.ClientID,
		Algorithm:  auth.Algorithm,
		Scope:      auth.Scope,
		SignedAt:   signedAt,
	}, nil
}

// defaultOnError writes a 401 Unauthorized response with no body.
func defaultOnError(w http.ResponseWriter, _ *http.Request, _ error) {
	w.WriteHeader(http.StatusUnauthorized)
}
