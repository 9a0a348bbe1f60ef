package dcisig

import "errors"

// Signing errors.
var (
	// ErrUnsupportedAlgorithm is returned when a request or an Authorization
	// header names an algorithm other than DCI2-HMAC-SHA256 or
	// DCI3-HMAC-SHA256.
	ErrUnsupportedAlgorithm = errors.New("dcisig: unsupported algorithm")

	// ErrInvalidHeader is returned when a header selected for signing has a
	// name that is not a valid HTTP field name.
	ErrInvalidHeader = errors.New("dcisig: invalid header name")

	// ErrInvalidPayload is returned when the payload cannot be serialized.
	ErrInvalidPayload = errors.New("dcisig: payload is not JSON serializable")

	// ErrInvalidMethod is returned when a request method is not one of the
	// supported HTTP verbs.
	ErrInvalidMethod = errors.New("dcisig: unsupported HTTP method")
)

// Verification errors.
var (
	// ErrMissingAuthorization is returned when the request carries no
	// Authorization header.
	ErrMissingAuthorization = errors.New("dcisig: authorization header not found")

	// ErrMalformedAuthorization is returned when the Authorization header
	// cannot be parsed.
	ErrMalformedAuthorization = errors.New("dcisig: malformed authorization header")

	// ErrMalformedCredential is returned when the Credential field does not
	// hold exactly six non-empty slash separated fields.
	ErrMalformedCredential = errors.New("dcisig: malformed credential scope")

	// ErrMalformedAccessKey is returned when an access key is not of the
	// form client_type/client_id.
	ErrMalformedAccessKey = errors.New("dcisig: malformed access key")

	// ErrMissingSignedHeader is returned when a header listed for signing is
	// absent from the request.
	ErrMissingSignedHeader = errors.New("dcisig: signed header missing from request")

	// ErrSignatureMismatch is returned when the recomputed signature differs
	// from the claimed one.
	ErrSignatureMismatch = errors.New("dcisig: signature mismatch")

	// ErrUnknownAccessKey is returned by the middleware when the secret
	// resolver cannot provide a secret for the claimed access key.
	ErrUnknownAccessKey = errors.New("dcisig: unknown access key")

	// ErrNoResolver is returned when MiddlewareConfig has no SecretResolver.
	ErrNoResolver = errors.New("dcisig: secret resolver must not be nil")
)

// Timestamp errors.
var (
	// ErrMissingDate is returned when neither X-Amz-Date nor X-DCI-Date is
	// present.
	ErrMissingDate = errors.New("dcisig: date header not found")

	// ErrMalformedDate is returned when a timestamp or datestamp does not
	// match its expected layout.
	ErrMalformedDate = errors.New("dcisig: malformed date")

	// ErrExpired is returned when the request timestamp is outside the
	// accepted window around the current time.
	ErrExpired = errors.New("dcisig: request expired")
)
