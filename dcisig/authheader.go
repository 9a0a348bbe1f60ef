package dcisig

import (
	"fmt"
	"strings"
)

// Authorization is the parsed form of the Authorization header:
//
//	DCI2-HMAC-SHA256 Credential=type/id/date/region/service/request_type, SignedHeaders=host;x-dci-date, Signature=hex
type Authorization struct {
	Algorithm     Algorithm
	Scope         CredentialScope
	SignedHeaders []string
	Signature     string
}

// String formats a as an Authorization header value.
func (a Authorization) String() string {
	return fmt.Sprintf("%s Credential=%s, SignedHeaders=%s, Signature=%s",
		a.Algorithm, a.Scope, strings.Join(a.SignedHeaders, ";"), a.Signature)
}

// ParseAuthorization parses an Authorization header value. Fields may
// appear in any order and a trailing comma is accepted. The algorithm is
// returned as written; callers check it with Algorithm.Valid.
func ParseAuthorization(value string) (Authorization, error) {
	alg, rest, ok := strings.Cut(strings.TrimSpace(value), " ")
	if !ok || alg == "" {
		return Authorization{}, fmt.Errorf("%w: missing algorithm", ErrMalformedAuthorization)
	}

	fields := make(map[string]string, 3)

	for part := range strings.SplitSeq(rest, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}

		key, val, ok := strings.Cut(part, "=")
		if !ok {
			return Authorization{}, fmt.Errorf("%w: field %q", ErrMalformedAuthorization, part)
		}

		if _, dup := fields[key]; dup {
			return Authorization{}, fmt.Errorf("%w: duplicate field %s", ErrMalformedAuthorization, key)
		}

		fields[key] = val
	}

	credential, ok := fields["Credential"]
	if !ok {
		return Authorization{}, fmt.Errorf("%w: missing Credential", ErrMalformedAuthorization)
	}

	signedHeaders := fields["SignedHeaders"]
	if signedHeaders == "" {
		return Authorization{}, fmt.Errorf("%w: missing SignedHeaders", ErrMalformedAuthorization)
	}

	signature := fields["Signature"]
	if signature == "" {
		return Authorization{}, fmt.Errorf("%w: missing Signature", ErrMalformedAuthorization)
	}

	scope, err := ParseCredentialScope(credential)
	if err != nil {
		return Authorization{}, err
	}

	return Authorization{
		Algorithm:     Algorithm(alg),
		Scope:         scope,
		SignedHeaders: strings.Split(signedHeaders, ";"),
		Signature:     signature,
	}, nil
}
