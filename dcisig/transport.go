package dcisig

import "net/http"

// TransportConfig configures a signing Transport.
type TransportConfig struct {
	// Signer signs each request. Defaults to NewSigner(SignerConfig{}).
	Signer *Signer

	// Credential is the identity requests are signed with.
	Credential Credential
}

// Transport is an http.RoundTripper that adds X-DCI-Date and Authorization
// headers to every outgoing request.
type Transport struct {
	base   http.RoundTripper
	signer *Signer
	cred   Credential
}

// NewTransport creates a signing Transport that delegates to base after
// signing each request. When base is nil, a clone of http.DefaultTransport
// is used.
func NewTransport(base http.RoundTripper, cfg TransportConfig) *Transport {
	if base == nil {
		base = http.DefaultTransport.(*http.Transport).Clone()
	}

	signer := cfg.Signer
	if signer == nil {
		signer = NewSigner(SignerConfig{})
	}

	return &Transport{
		base:   base,
		signer: signer,
		cred:   cfg.Credential,
	}
}

// RoundTrip signs a clone of req and delegates to the base transport. Each
// call takes a fresh timestamp, so retried requests are re-signed.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	clone := req.Clone(req.Context())

	if req.Body != nil && req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}

		clone.Body = body
	}

	if err := t.signer.SignHTTP(clone, t.cred); err != nil {
		return nil, err
	}

	return t.base.RoundTrip(clone)
}
