// Package dcisig implements the DCI request signature scheme, an
// HMAC-SHA256 protocol in the style of AWS Signature Version 4.
//
// A client derives a signing key from its shared secret and a credential
// scope (date, region, service, request type), signs a canonical form of
// the request and sends the result in the Authorization header together
// with an X-DCI-Date timestamp. The server recomputes the signature from
// the claimed scope and compares it in constant time.
//
// # Supported Algorithms
//
//   - DCI2-HMAC-SHA256 (default, request type dci2_request)
//   - DCI3-HMAC-SHA256 (request type dci3_request)
//
// # Signing Requests
//
// Use a Signer, or GenerateHeaders for the system clock:
//
//	cred, err := dcisig.NewCredential("remoteci/464cc0a3", secret)
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	headers, err := dcisig.GenerateHeaders(dcisig.Request{
//	    Method:   dcisig.MethodGet,
//	    Endpoint: "/api/v1/jobs",
//	    Params:   url.Values{"limit": {"100"}},
//	}, cred)
//
// The returned headers carry X-DCI-Date and Authorization. An incomplete
// credential yields the date header alone.
//
// # Verifying Requests
//
// The server looks up the secret for the claimed access key, then verifies
// and checks freshness separately:
//
//	v := dcisig.NewVerifier(dcisig.VerifierConfig{})
//
//	accessKey, err := v.AccessKey(r.Header)
//	// look up secret for accessKey
//	if err := v.Verify(req, secret, r.Header); err != nil {
//	    // reject
//	}
//
//	if dcisig.IsExpired(r.Header) {
//	    // reject
//	}
//
// # Client Transport
//
// NewTransport returns an http.RoundTripper that signs every outgoing
// request:
//
//	client := &http.Client{
//	    Transport: dcisig.NewTransport(nil, dcisig.TransportConfig{
//	        Credential: cred,
//	    }),
//	}
//
// # Server Middleware
//
// Middleware returns a mux.MiddlewareFunc for gorilla/mux routers:
//
//	mw, err := dcisig.Middleware(dcisig.MiddlewareConfig{
//	    Resolver: resolver,
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	router.Use(mw)
//
// Handlers read the authenticated client with IdentityFromContext.
//
// # Key Caching
//
// Key derivation runs four HMACs per request. A CachedKeyDeriver keeps
// derived keys in an LRU cache and may be shared by Signer and Verifier.
package dcisig
