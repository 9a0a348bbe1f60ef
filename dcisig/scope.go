package dcisig

import (
	"fmt"
	"strings"
)

// CredentialScope binds a signature to a client, a day, and a service
// context. Its wire form is
// client_type/client_id/datestamp/region/service/request_type.
type CredentialScope struct {
	ClientType  string
	ClientID    string
	Datestamp   string
	Region      string
	Service     string
	RequestType string
}

// String returns the six field form used in the Credential field.
func (s CredentialScope) String() string {
	return strings.Join([]string{
		s.ClientType,
		s.ClientID,
		s.Datestamp,
		s.Region,
		s.Service,
		s.RequestType,
	}, "/")
}

// Path returns datestamp/region/service/request_type, the scope line of the
// string to sign.
func (s CredentialScope) Path() string {
	return strings.Join([]string{
		s.Datestamp,
		s.Region,
		s.Service,
		s.RequestType,
	}, "/")
}

// AccessKey returns client_type/client_id.
func (s CredentialScope) AccessKey() string {
	return s.ClientType + "/" + s.ClientID
}

// ParseCredentialScope parses the value of the Credential field. It fails
// with ErrMalformedCredential and a zero scope unless the value has exactly
// six non-empty fields.
func ParseCredentialScope(raw string) (CredentialScope, error) {
	parts := strings.Split(raw, "/")
	if len(parts) != 6 {
		return CredentialScope{}, fmt.Errorf("%w: expected 6 fields, got %d", ErrMalformedCredential, len(parts))
	}

	for _, p := range parts {
		if p == "" {
			return CredentialScope{}, fmt.Errorf("%w: empty field", ErrMalformedCredential)
		}
	}

	return CredentialScope{
		ClientType:  parts[0],
		ClientID:    parts[1],
		Datestamp:   parts[2],
		Region:      parts[3],
		Service:     parts[4],
		RequestType: parts[5],
	}, nil
}
