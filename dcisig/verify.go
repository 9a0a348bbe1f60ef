package dcisig

import (
	"crypto/hmac"
	"fmt"
	"net/http"
)

// VerifierConfig configures a Verifier.
type VerifierConfig struct {
	// Keys derives signing keys. Defaults to DeriveSigningKey without
	// caching.
	Keys KeyDeriver
}

// Verifier checks DCI signatures on received requests. It does not look at
// the clock; pair it with an ExpiryChecker. A Verifier is safe for
// concurrent use.
type Verifier struct {
	keys KeyDeriver
}

// NewVerifier creates a Verifier from cfg.
func NewVerifier(cfg VerifierConfig) *Verifier {
	return &Verifier{keys: keyDeriverOrDefault(cfg.Keys)}
}

var defaultVerifier = NewVerifier(VerifierConfig{})

// IsValid reports whether headers carry a valid signature of req under
// secret.
func IsValid(req Request, secret []byte, headers http.Header) bool {
	return defaultVerifier.IsValid(req, secret, headers)
}

// IsValid is Verify reduced to a bool.
func (v *Verifier) IsValid(req Request, secret []byte, headers http.Header) bool {
	return v.Verify(req, secret, headers) == nil
}

// Verify recomputes the signature of req from the fields claimed in the
// Authorization header (algorithm, credential scope, signed headers) and
// the timestamp from X-Amz-Date or X-DCI-Date, then compares it with the
// claimed signature in constant time.
//
// Method, endpoint, params and payload come from req. Header values, host
// included, come from headers; req.Host is used only when headers carry no
// host entry.
func (v *Verifier) Verify(req Request, secret []byte, headers http.Header) error {
	_, err := v.verify(req, secret, headers)
	return err
}

// AccessKey returns the client_type/client_id claimed by the Authorization
// header, so the caller can look up the matching secret.
func (v *Verifier) AccessKey(headers http.Header) (string, error) {
	auth, err := parseAuthorizationHeader(lowerHeaders(headers))
	if err != nil {
		return "", err
	}

	return auth.Scope.AccessKey(), nil
}

func (v *Verifier) verify(req Request, secret []byte, headers http.Header) (Authorization, error) {
	lowered := lowerHeaders(headers)

	auth, err := parseAuthorizationHeader(lowered)
	if err != nil {
		return Authorization{}, err
	}

	if !auth.Algorithm.Valid() {
		return Authorization{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, auth.Algorithm)
	}

	timestamp, ok := claimedTimestamp(lowered)
	if !ok {
		return Authorization{}, ErrMissingDate
	}

	if len(timestamp) < len(ShortTimeFormat) || timestamp[:len(ShortTimeFormat)] != auth.Scope.Datestamp {
		return Authorization{}, fmt.Errorf("%w: scope date %s does not match timestamp %s", ErrMalformedCredential, auth.Scope.Datestamp, timestamp)
	}

	method, err := ParseMethod(string(req.Method))
	if err != nil {
		return Authorization{}, err
	}

	claimed := headers.Clone()
	if _, ok := lowered[hostHeader]; !ok {
		claimed[hostHeader] = []string{req.host()}
	}

	headersString, signed, err := VerifyMode(auth.SignedHeaders).Headers(claimed)
	if err != nil {
		return Authorization{}, err
	}

	payload, err := CanonicalPayload(req.Payload, req.Data)
	if err != nil {
		return Authorization{}, err
	}

	canonical := buildCanonicalRequest(method, orDefault(req.Endpoint, "/"), CanonicalQuery(req.Params), headersString, signed, HashPayload(payload))

	key := v.keys.DeriveKey(auth.Algorithm, secret, auth.Scope)
	expected := computeSignature(key, buildStringToSign(auth.Algorithm, timestamp, auth.Scope, canonical))

	if !hmac.Equal([]byte(expected), []byte(auth.Signature)) {
		return Authorization{}, ErrSignatureMismatch
	}

	return auth, nil
}

func parseAuthorizationHeader(lowered map[string][]string) (Authorization, error) {
	value, ok := headerValue(lowered, authHeader)
	if !ok {
		return Authorization{}, ErrMissingAuthorization
	}

	return ParseAuthorization(value)
}

// claimedTimestamp returns the raw date header, preferring X-Amz-Date.
func claimedTimestamp(lowered map[string][]string) (string, bool) {
	if ts, ok := headerValue(lowered, amzHeader); ok {
		return ts, true
	}

	return headerValue(lowered, dateHeader)
}
