package dcisig

import (
	"encoding/hex"
	"net/http"
	"strings"
)

// SignerConfig configures a Signer.
type SignerConfig struct {
	// Clock supplies the signing instant for requests without a pinned
	// Timestamp. Defaults to SystemClock.
	Clock Clock

	// Keys derives signing keys. Defaults to DeriveSigningKey without
	// caching.
	Keys KeyDeriver

	// Algorithm, Region, Service, RequestType and SignedHeaders are applied
	// by SignHTTP to the Request built from the outgoing *http.Request.
	Algorithm     Algorithm
	Region        string
	Service       string
	RequestType   string
	SignedHeaders []string
}

// Signer computes DCI signatures and the headers that carry them.
// A Signer is safe for concurrent use.
type Signer struct {
	clock Clock
	keys  KeyDeriver
	cfg   SignerConfig
}

// NewSigner creates a Signer from cfg.
func NewSigner(cfg SignerConfig) *Signer {
	return &Signer{
		clock: clockOrDefault(cfg.Clock),
		keys:  keyDeriverOrDefault(cfg.Keys),
		cfg:   cfg,
	}
}

var defaultSigner = NewSigner(SignerConfig{})

// GenerateHeaders signs req with cred using the system clock. See
// Signer.Sign.
func GenerateHeaders(req Request, cred Credential) (http.Header, error) {
	return defaultSigner.Sign(req, cred)
}

// Sign returns the headers to attach to req: X-DCI-Date always, the
// Authorization header when cred is complete, and the values of any extra
// headers listed in req.SignedHeaders.
//
// An incomplete credential is not an error and req is not inspected
// beyond its timestamp; the result then carries the date header only. The
// Python client returns no headers at all in that case.
//
// The signed header set is host, x-dci-date and req.SignedHeaders, sorted.
func (s *Signer) Sign(req Request, cred Credential) (http.Header, error) {
	out := make(http.Header)

	if !cred.Complete() {
		out.Set(DateHeader, req.signingTime(s.clock.Now).Format(TimeFormat))
		return out, nil
	}

	st, err := req.resolve(s.clock.Now)
	if err != nil {
		return nil, err
	}

	out.Set(DateHeader, st.timestamp)

	headers := req.Headers.Clone()
	if headers == nil {
		headers = make(http.Header)
	}

	replaceHeader(headers, hostHeader, st.host)
	replaceHeader(headers, dateHeader, st.timestamp)

	canon := SignMode(append([]string{hostHeader, dateHeader}, req.SignedHeaders...)...)

	headersString, signed, err := canon.Headers(headers)
	if err != nil {
		return nil, err
	}

	payload, err := CanonicalPayload(req.Payload, req.Data)
	if err != nil {
		return nil, err
	}

	canonical := buildCanonicalRequest(st.method, st.endpoint, CanonicalQuery(req.Params), headersString, signed, HashPayload(payload))

	scope := st.scope
	scope.ClientType = cred.ClientType
	scope.ClientID = cred.ClientID

	key := s.keys.DeriveKey(st.algorithm, cred.SecretKey, scope)
	signature := computeSignature(key, buildStringToSign(st.algorithm, st.timestamp, scope, canonical))

	out.Set(AuthorizationHeader, Authorization{
		Algorithm:     st.algorithm,
		Scope:         scope,
		SignedHeaders: signed,
		Signature:     signature,
	}.String())

	lowered := lowerHeaders(headers)
	for _, name := range signed {
		if name == hostHeader || name == dateHeader {
			continue
		}

		out[http.CanonicalHeaderKey(name)] = lowered[name]
	}

	return out, nil
}

// SignHTTP signs r in place. The body is read and restored. Algorithm,
// scope and extra signed headers come from the SignerConfig.
func (s *Signer) SignHTTP(r *http.Request, cred Credential) error {
	req, err := RequestFromHTTP(r)
	if err != nil {
		return err
	}

	req.Algorithm = s.cfg.Algorithm
	req.Region = s.cfg.Region
	req.Service = s.cfg.Service
	req.RequestType = s.cfg.RequestType
	req.SignedHeaders = s.cfg.SignedHeaders

	headers, err := s.Sign(req, cred)
	if err != nil {
		return err
	}

	if r.Header == nil {
		r.Header = make(http.Header)
	}

	for name, values := range headers {
		r.Header[name] = values
	}

	return nil
}

// computeSignature returns hex(HMAC-SHA256(key, stringToSign)).
func computeSignature(key []byte, stringToSign string) string {
	return hex.EncodeToString(hmacSHA256(key, []byte(stringToSign)))
}

// replaceHeader removes every case variant of name from h and stores value
// under the lower-case name.
func replaceHeader(h http.Header, name, value string) {
	for k := range h {
		if strings.EqualFold(k, name) {
			delete(h, k)
		}
	}

	h[name] = []string{value}
}
