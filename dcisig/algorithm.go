package dcisig

import "strings"

// Algorithm identifies the signing algorithm carried in the Authorization
// header.
type Algorithm string

const (
	// AlgorithmDCI2 is the default second generation algorithm.
	AlgorithmDCI2 Algorithm = "DCI2-HMAC-SHA256"

	// AlgorithmDCI3 selects the same HMAC chain with the dci3_request
	// request type as its default.
	AlgorithmDCI3 Algorithm = "DCI3-HMAC-SHA256"
)

// Header names and wire formats.
const (
	// AuthorizationHeader carries the signature.
	AuthorizationHeader = "Authorization"

	// DateHeader carries the signing timestamp.
	DateHeader = "X-DCI-Date"

	// AmzDateHeader is the legacy date header accepted on read.
	AmzDateHeader = "X-Amz-Date"

	// TimeFormat is the layout of the date header: YYYYMMDDTHHMMSSZ.
	TimeFormat = "20060102T150405Z"

	// ShortTimeFormat is the layout of the credential scope datestamp.
	ShortTimeFormat = "20060102"

	// DefaultHost is signed when a request names no host.
	DefaultHost = "api.distributed-ci.io"

	// DefaultRegion, DefaultService and the request types are the scope
	// defaults.
	DefaultRegion          = "BHS3"
	DefaultService         = "api"
	DefaultRequestTypeDCI2 = "dci2_request"
	DefaultRequestTypeDCI3 = "dci3_request"
)

const (
	hostHeader = "host"
	dateHeader = "x-dci-date"
	amzHeader  = "x-amz-date"
	authHeader = "authorization"
)

// String returns the identifier as written in the Authorization header.
func (a Algorithm) String() string {
	return string(a)
}

// Valid reports whether a is a supported algorithm.
func (a Algorithm) Valid() bool {
	return a == AlgorithmDCI2 || a == AlgorithmDCI3
}

// DefaultRequestType returns the request type used when a request does not
// set one.
func (a Algorithm) DefaultRequestType() string {
	if a == AlgorithmDCI3 {
		return DefaultRequestTypeDCI3
	}

	return DefaultRequestTypeDCI2
}

// keyPrefix returns the family tag ("DCI2", "DCI3") prepended to the secret
// to seed the key derivation chain.
func (a Algorithm) keyPrefix() string {
	tag, _, _ := strings.Cut(string(a), "-")
	return tag
}

// orDefault returns a, or AlgorithmDCI2 when a is empty.
func (a Algorithm) orDefault() Algorithm {
	if a == "" {
		return AlgorithmDCI2
	}

	return a
}
