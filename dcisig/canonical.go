package dcisig

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"net/url"
	"slices"
	"sort"
	"strings"

	"golang.org/x/net/http/httpguts"
)

// Canonicalizer selects and serializes the headers covered by a signature.
//
// In sign mode the caller names the headers to sign; they are lower-cased,
// de-duplicated and sorted. In verify mode the names come from the
// SignedHeaders field of an incoming Authorization header and are kept in
// the order the client listed them.
type Canonicalizer struct {
	names []string
}

// SignMode returns a Canonicalizer covering the given header names.
func SignMode(names ...string) Canonicalizer {
	seen := make(map[string]struct{}, len(names))
	lowered := make([]string, 0, len(names))

	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		if _, ok := seen[name]; ok {
			continue
		}

		seen[name] = struct{}{}
		lowered = append(lowered, name)
	}

	sort.Strings(lowered)

	return Canonicalizer{names: lowered}
}

// VerifyMode returns a Canonicalizer covering exactly the names listed in a
// received SignedHeaders field.
func VerifyMode(signedHeaders []string) Canonicalizer {
	names := make([]string, len(signedHeaders))
	for i, name := range signedHeaders {
		names[i] = strings.ToLower(name)
	}

	return Canonicalizer{names: names}
}

// SignedHeaders returns the covered header names in canonical order.
func (c Canonicalizer) SignedHeaders() []string {
	return slices.Clone(c.names)
}

// Headers returns the canonical header block, one "name:value\n" line per
// covered header, and the list of covered names. Values are used verbatim;
// multiple values of one header are joined with ",".
func (c Canonicalizer) Headers(h http.Header) (string, []string, error) {
	lowered := lowerHeaders(h)

	var b strings.Builder
	for _, name := range c.names {
		if !httpguts.ValidHeaderFieldName(name) {
			return "", nil, fmt.Errorf("%w: %q", ErrInvalidHeader, name)
		}

		values, ok := lowered[name]
		if !ok {
			return "", nil, fmt.Errorf("%w: %s", ErrMissingSignedHeader, name)
		}

		b.WriteString(name)
		b.WriteByte(':')
		b.WriteString(strings.Join(values, ","))
		b.WriteByte('\n')
	}

	return b.String(), c.SignedHeaders(), nil
}

// CanonicalQuery encodes params with keys sorted ascending using form
// encoding (space becomes "+"). An empty set yields "".
func CanonicalQuery(params url.Values) string {
	return params.Encode()
}

// CanonicalPayload returns the payload string that is hashed into the
// canonical request. A non-empty data is used verbatim. Otherwise an empty
// payload yields "" and a non-empty one is serialized as JSON with sorted
// keys at every level, laid out like Python's json.dumps.
func CanonicalPayload(payload map[string]any, data string) (string, error) {
	if data != "" {
		return data, nil
	}

	if len(payload) == 0 {
		return "", nil
	}

	return encodeJSON(payload)
}

// HashPayload returns the lower-case hex SHA-256 of s.
func HashPayload(s string) string {
	sum := sha256.Sum256([]byte(s))
	return hex.EncodeToString(sum[:])
}

// buildCanonicalRequest joins the canonical request fields. The order and
// separators are part of the wire contract.
func buildCanonicalRequest(method Method, endpoint, query, headers string, signedHeaders []string, payloadHash string) string {
	return strings.Join([]string{
		string(method),
		endpoint,
		query,
		headers,
		strings.Join(signedHeaders, ";"),
		payloadHash,
	}, "\n")
}

// buildStringToSign returns ALGORITHM\nTIMESTAMP\nSCOPE\nHASH(CANONICAL).
func buildStringToSign(alg Algorithm, timestamp string, scope CredentialScope, canonicalRequest string) string {
	return strings.Join([]string{
		alg.String(),
		timestamp,
		scope.Path(),
		HashPayload(canonicalRequest),
	}, "\n")
}

// lowerHeaders re-keys h by lower-cased name. Keys differing only by case
// are merged in sorted key order so the result is deterministic.
func lowerHeaders(h http.Header) map[string][]string {
	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	lowered := make(map[string][]string, len(h))
	for _, k := range keys {
		lk := strings.ToLower(k)
		lowered[lk] = append(lowered[lk], h[k]...)
	}

	return lowered
}

// headerValue returns the first value of a lower-cased header.
func headerValue(lowered map[string][]string, name string) (string, bool) {
	values, ok := lowered[name]
	if !ok || len(values) == 0 {
		return "", false
	}

	return values[0], true
}
