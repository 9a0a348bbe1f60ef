package dcisig

import (
	"fmt"
	"strings"
)

// Credential is the client identity and its shared secret. The access key
// is ClientType/ClientID. The secret is never printed.
type Credential struct {
	ClientType string
	ClientID   string
	SecretKey  []byte
}

// NewCredential builds a Credential from an access key of the form
// client_type/client_id and a secret.
func NewCredential(accessKey string, secret []byte) (Credential, error) {
	clientType, clientID, err := ParseAccessKey(accessKey)
	if err != nil {
		return Credential{}, err
	}

	return Credential{ClientType: clientType, ClientID: clientID, SecretKey: secret}, nil
}

// ParseAccessKey splits an access key into its client type and client id.
func ParseAccessKey(accessKey string) (clientType, clientID string, err error) {
	clientType, clientID, ok := strings.Cut(accessKey, "/")
	if !ok || clientType == "" || clientID == "" || strings.Contains(clientID, "/") {
		return "", "", fmt.Errorf("%w: %q", ErrMalformedAccessKey, accessKey)
	}

	return clientType, clientID, nil
}

// AccessKey returns client_type/client_id.
func (c Credential) AccessKey() string {
	return c.ClientType + "/" + c.ClientID
}

// Complete reports whether every field needed for signing is set.
func (c Credential) Complete() bool {
	return c.ClientType != "" && c.ClientID != "" && len(c.SecretKey) > 0
}

// String returns the access key with the secret redacted.
func (c Credential) String() string {
	if len(c.SecretKey) == 0 {
		return c.AccessKey()
	}

	return c.AccessKey() + ":[redacted]"
}

// GoString keeps %#v from printing the secret.
func (c Credential) GoString() string {
	return fmt.Sprintf("dcisig.Credential{ClientType:%q, ClientID:%q, SecretKey:[redacted]}", c.ClientType, c.ClientID)
}
