package dcisig

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Method is an HTTP verb accepted for signing.
type Method string

// Supported methods.
const (
	MethodGet     Method = http.MethodGet
	MethodHead    Method = http.MethodHead
	MethodPost    Method = http.MethodPost
	MethodPut     Method = http.MethodPut
	MethodPatch   Method = http.MethodPatch
	MethodDelete  Method = http.MethodDelete
	MethodOptions Method = http.MethodOptions
)

// ParseMethod upper-cases m and checks it against the supported verbs. An
// empty method is GET.
func ParseMethod(m string) (Method, error) {
	if m == "" {
		return MethodGet, nil
	}

	switch method := Method(strings.ToUpper(m)); method {
	case MethodGet, MethodHead, MethodPost, MethodPut, MethodPatch, MethodDelete, MethodOptions:
		return method, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidMethod, m)
	}
}

// Request describes the HTTP request to sign or verify. The zero value is a
// GET of "/" on DefaultHost with the DCI2 defaults.
type Request struct {
	// Method defaults to GET.
	Method Method

	// Endpoint is the URL path. Defaults to "/".
	Endpoint string

	// Host is the value signed as the host header. When empty the Host
	// entry of Headers is used, then DefaultHost.
	Host string

	// Headers are carried with the request. Only host, the date header and
	// the names listed in SignedHeaders are signed.
	Headers http.Header

	// SignedHeaders lists extra header names, taken from Headers, that are
	// covered by the signature.
	SignedHeaders []string

	// Params are the query parameters.
	Params url.Values

	// Payload is a JSON object serialized with sorted keys. Ignored when
	// Data is set.
	Payload map[string]any

	// Data is the raw body, signed verbatim.
	Data string

	// Algorithm defaults to AlgorithmDCI2.
	Algorithm Algorithm

	// Region, Service and RequestType default to DefaultRegion,
	// DefaultService and the algorithm's default request type.
	Region      string
	Service     string
	RequestType string

	// Timestamp pins the signing instant. When zero the Signer's clock is
	// used.
	Timestamp time.Time

	// Datestamp pins the YYYYMMDD scope date. When empty it is derived from
	// the signing instant; when set it must name the same UTC day.
	Datestamp string
}

// stamped is a Request with every default applied and the signing instant
// fixed.
type stamped struct {
	method    Method
	endpoint  string
	host      string
	algorithm Algorithm
	scope     CredentialScope
	timestamp string
}

func (r Request) resolve(now func() time.Time) (stamped, error) {
	method, err := ParseMethod(string(r.Method))
	if err != nil {
		return stamped{}, err
	}

	alg := r.Algorithm.orDefault()
	if !alg.Valid() {
		return stamped{}, fmt.Errorf("%w: %q", ErrUnsupportedAlgorithm, alg)
	}

	ts := r.signingTime(now)

	datestamp := ts.Format(ShortTimeFormat)
	if r.Datestamp != "" {
		if _, err := time.Parse(ShortTimeFormat, r.Datestamp); err != nil {
			return stamped{}, fmt.Errorf("%w: datestamp %q", ErrMalformedDate, r.Datestamp)
		}

		if r.Datestamp != datestamp {
			return stamped{}, fmt.Errorf("%w: datestamp %s does not match timestamp %s", ErrMalformedDate, r.Datestamp, ts.Format(TimeFormat))
		}
	}

	return stamped{
		method:    method,
		endpoint:  orDefault(r.Endpoint, "/"),
		host:      r.host(),
		algorithm: alg,
		scope: CredentialScope{
			Datestamp:   datestamp,
			Region:      orDefault(r.Region, DefaultRegion),
			Service:     orDefault(r.Service, DefaultService),
			RequestType: orDefault(r.RequestType, alg.DefaultRequestType()),
		},
		timestamp: ts.Format(TimeFormat),
	}, nil
}

// signingTime returns the pinned Timestamp, or now, in UTC.
func (r Request) signingTime(now func() time.Time) time.Time {
	if r.Timestamp.IsZero() {
		return now().UTC()
	}

	return r.Timestamp.UTC()
}

func (r Request) host() string {
	if r.Host != "" {
		return r.Host
	}

	if h, ok := headerValue(lowerHeaders(r.Headers), hostHeader); ok && h != "" {
		return h
	}

	return DefaultHost
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}

	return v
}
