package dcisig

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testAccessKey = "remoteci/464cc0a3-d638-4081-a69e-4c80261f3ba5"
	testSecret    = "0nqAfEUJr3OWO8YnyjlGf2h2lrmz3MD343ECjyDTCr3lphcRND2cNESYuo5IXA8t"
)

var testTime = time.Date(2017, 12, 15, 11, 19, 29, 0, time.UTC)

func testCredential(t *testing.T) Credential {
	t.Helper()

	cred, err := NewCredential(testAccessKey, []byte(testSecret))
	require.NoError(t, err)

	return cred
}

func testSigner() *Signer {
	return NewSigner(SignerConfig{Clock: FixedClock(testTime)})
}

func signatureOf(t *testing.T, headers http.Header) string {
	t.Helper()

	auth, err := ParseAuthorization(headers.Get(AuthorizationHeader))
	require.NoError(t, err)

	return auth.Signature
}

func TestSignGoldenVectors(t *testing.T) {
	tests := []struct {
		name      string
		req       Request
		signature string
	}{
		{
			name: "get with query parameters",
			req: Request{
				Method:   MethodGet,
				Endpoint: "/api/v1/users",
				Params:   url.Values{"limit": {"100"}, "embed": {"teams"}},
			},
			signature: "aed55a70e89f8b541c9012afb2498b7139e64419f103efbea7a1b99744bd54ce",
		},
		{
			name: "post with json payload",
			req: Request{
				Method:   MethodPost,
				Endpoint: "/api/v1/users",
				Payload:  map[string]any{"name": "foo"},
			},
			signature: "ee6a1adfd78e47852b3b9daa1254849f0f4cce082de79de0957e53398c7946f8",
		},
		{
			name: "post with raw data equal to serialized payload",
			req: Request{
				Method:   MethodPost,
				Endpoint: "/api/v1/users",
				Data:     `{"name": "foo"}`,
			},
			signature: "ee6a1adfd78e47852b3b9daa1254849f0f4cce082de79de0957e53398c7946f8",
		},
		{
			name: "post without body",
			req: Request{
				Method:   MethodPost,
				Endpoint: "/api/v1/jobs",
			},
			signature: "8d0499f9179fd8efefa49628fc2d7a226224c4cb76495a5f9abf5cb4680f61c9",
		},
		{
			name: "put with json payload",
			req: Request{
				Method:   MethodPut,
				Endpoint: "/api/v1/users",
				Payload:  map[string]any{"name": "foo"},
			},
			signature: "6e381497fd432306daa7ff33ba115006ae54b75a9dafc6bc58c8e58589d81b59",
		},
		{
			name: "delete",
			req: Request{
				Method:   MethodDelete,
				Endpoint: "/api/v1/users/ef837f60-87f4-4432-a249-b4977ec5bb45",
			},
			signature: "260e496d5d8bd13253831e1a41abfa0eea477707f1beefb9b92d59238670d62e",
		},
		{
			name: "custom host",
			req: Request{
				Method:   MethodGet,
				Endpoint: "/api/v1/users",
				Host:     "localhost",
			},
			signature: "c9f252f07cfecf28e74c167f2660667700905cff843a3ede911ff9c7a67576b8",
		},
		{
			name: "nested payload is sorted recursively",
			req: Request{
				Method:   MethodPost,
				Endpoint: "/api/v1/jobs",
				Payload: map[string]any{
					"b": map[string]any{"d": "x", "c": []any{1, 2}},
					"a": 1,
				},
			},
			signature: "95eadab77c06bb6263b38dfe185066405d50375ddbf7ee0d376dd79226e40bc3",
		},
		{
			name: "extra signed header",
			req: Request{
				Method:        MethodPost,
				Endpoint:      "/api/v1/jobs",
				Headers:       http.Header{"Content-Type": {"application/json"}},
				SignedHeaders: []string{"Content-Type"},
				Payload:       map[string]any{"name": "foo"},
			},
			signature: "36fd5337719c295932d905a0bfb66314f5cd9ca30bb21c96cfb3b284b7254c6b",
		},
		{
			name: "dci3 with custom scope",
			req: Request{
				Algorithm:   AlgorithmDCI3,
				Region:      "BHS4",
				Service:     "api2",
				RequestType: "dci3_request",
			},
			signature: "ff4f8a2a36cf5c7e0c10b848601dd71e64b4e26bbc6656c85e0abcb9fb8d9979",
		},
		{
			name:      "dci3 with default scope",
			req:       Request{Algorithm: AlgorithmDCI3},
			signature: "73c5a3e51acbcc0728db4feec783026e7b5ed9bd5dc35ac22dd2060a6b1a1945",
		},
		{
			name: "pinned timestamp and datestamp",
			req: Request{
				Method:    MethodGet,
				Endpoint:  "/api/v1/users",
				Params:    url.Values{"limit": {"100"}, "embed": {"teams"}},
				Timestamp: time.Date(2020, 2, 8, 16, 12, 29, 0, time.UTC),
				Datestamp: "20200208",
			},
			signature: "59b3fa9b55da5e05eb2ab00f75421ca25475e87d4399ee74766c1170b384d62c",
		},
	}

	signer := testSigner()
	cred := testCredential(t)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			headers, err := signer.Sign(tt.req, cred)
			require.NoError(t, err)

			assert.Equal(t, tt.signature, signatureOf(t, headers))
		})
	}
}

func TestSign(t *testing.T) {
	cred := testCredential(t)

	t.Run("authorization header layout", func(t *testing.T) {
		headers, err := testSigner().Sign(Request{
			Endpoint: "/api/v1/users",
			Params:   url.Values{"limit": {"100"}, "embed": {"teams"}},
		}, cred)
		require.NoError(t, err)

		assert.Equal(t, "20171215T111929Z", headers.Get(DateHeader))
		assert.Equal(t,
			"DCI2-HMAC-SHA256 Credential=remoteci/464cc0a3-d638-4081-a69e-4c80261f3ba5/20171215/BHS3/api/dci2_request, "+
				"SignedHeaders=host;x-dci-date, "+
				"Signature=aed55a70e89f8b541c9012afb2498b7139e64419f103efbea7a1b99744bd54ce",
			headers.Get(AuthorizationHeader))
	})

	t.Run("deterministic for fixed inputs", func(t *testing.T) {
		req := Request{Method: MethodPost, Endpoint: "/api/v1/jobs", Payload: map[string]any{"x": 1.5}}

		first, err := testSigner().Sign(req, cred)
		require.NoError(t, err)

		second, err := testSigner().Sign(req, cred)
		require.NoError(t, err)

		assert.Equal(t, first, second)
	})

	t.Run("empty credential yields date header only", func(t *testing.T) {
		headers, err := testSigner().Sign(Request{}, Credential{})
		require.NoError(t, err)

		assert.Equal(t, "20171215T111929Z", headers.Get(DateHeader))
		assert.Empty(t, headers.Get(AuthorizationHeader))
		assert.Len(t, headers, 1)
	})

	t.Run("empty credential skips request validation", func(t *testing.T) {
		headers, err := testSigner().Sign(Request{
			Method:        "BREW",
			Payload:       map[string]any{"ch": make(chan int)},
			SignedHeaders: []string{"x-absent"},
		}, Credential{ClientType: "remoteci", ClientID: "abc"})
		require.NoError(t, err)

		assert.Equal(t, "20171215T111929Z", headers.Get(DateHeader))
		assert.Len(t, headers, 1)
	})

	t.Run("lower-case method is accepted", func(t *testing.T) {
		upper, err := testSigner().Sign(Request{Method: "GET", Endpoint: "/api/v1/users", Host: "localhost"}, cred)
		require.NoError(t, err)

		lower, err := testSigner().Sign(Request{Method: "get", Endpoint: "/api/v1/users", Host: "localhost"}, cred)
		require.NoError(t, err)

		assert.Equal(t, upper, lower)
	})

	t.Run("host header is used when host is empty", func(t *testing.T) {
		headers, err := testSigner().Sign(Request{
			Endpoint: "/api/v1/users",
			Headers:  http.Header{"Host": {"localhost"}},
		}, cred)
		require.NoError(t, err)

		assert.Equal(t, "c9f252f07cfecf28e74c167f2660667700905cff843a3ede911ff9c7a67576b8", signatureOf(t, headers))
	})

	t.Run("caller headers are not mutated", func(t *testing.T) {
		h := http.Header{"Content-Type": {"application/json"}}
		_, err := testSigner().Sign(Request{Headers: h, SignedHeaders: []string{"content-type"}}, cred)
		require.NoError(t, err)

		assert.Equal(t, http.Header{"Content-Type": {"application/json"}}, h)
	})

	t.Run("extra signed headers are returned", func(t *testing.T) {
		headers, err := testSigner().Sign(Request{
			Headers:       http.Header{"Content-Type": {"application/json"}},
			SignedHeaders: []string{"content-type"},
		}, cred)
		require.NoError(t, err)

		assert.Equal(t, "application/json", headers.Get("Content-Type"))
		assert.Contains(t, headers.Get(AuthorizationHeader), "SignedHeaders=content-type;host;x-dci-date,")
	})

	t.Run("missing extra signed header", func(t *testing.T) {
		_, err := testSigner().Sign(Request{SignedHeaders: []string{"x-missing"}}, cred)
		assert.ErrorIs(t, err, ErrMissingSignedHeader)
	})

	t.Run("invalid header name", func(t *testing.T) {
		_, err := testSigner().Sign(Request{SignedHeaders: []string{"bad header"}}, cred)
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})

	t.Run("unsupported algorithm", func(t *testing.T) {
		_, err := testSigner().Sign(Request{Algorithm: "AWS4-HMAC-SHA256"}, cred)
		assert.ErrorIs(t, err, ErrUnsupportedAlgorithm)
	})

	t.Run("unsupported method", func(t *testing.T) {
		_, err := testSigner().Sign(Request{Method: "BREW"}, cred)
		assert.ErrorIs(t, err, ErrInvalidMethod)
	})

	t.Run("malformed pinned datestamp", func(t *testing.T) {
		_, err := testSigner().Sign(Request{Datestamp: "2017-12-15"}, cred)
		assert.ErrorIs(t, err, ErrMalformedDate)
	})

	t.Run("pinned datestamp must match the timestamp day", func(t *testing.T) {
		_, err := testSigner().Sign(Request{
			Timestamp: time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC),
			Datestamp: "20170101",
		}, cred)
		assert.ErrorIs(t, err, ErrMalformedDate)

		_, err = testSigner().Sign(Request{Datestamp: "20170101"}, cred)
		assert.ErrorIs(t, err, ErrMalformedDate)
	})

	t.Run("unencodable payload", func(t *testing.T) {
		_, err := testSigner().Sign(Request{Payload: map[string]any{"ch": make(chan int)}}, cred)
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("timestamp is converted to utc", func(t *testing.T) {
		paris := time.FixedZone("CET", 3600)

		headers, err := testSigner().Sign(Request{Timestamp: testTime.In(paris)}, cred)
		require.NoError(t, err)

		assert.Equal(t, "20171215T111929Z", headers.Get(DateHeader))
	})
}

func TestSignHTTP(t *testing.T) {
	cred := testCredential(t)

	t.Run("signs in place and keeps the body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "http://api.distributed-ci.io/api/v1/users", strings.NewReader(`{"name": "foo"}`))

		require.NoError(t, testSigner().SignHTTP(req, cred))

		assert.Equal(t, "20171215T111929Z", req.Header.Get(DateHeader))
		assert.Equal(t, "ee6a1adfd78e47852b3b9daa1254849f0f4cce082de79de0957e53398c7946f8", signatureOf(t, req.Header))

		body, err := RequestFromHTTP(req)
		require.NoError(t, err)
		assert.Equal(t, `{"name": "foo"}`, body.Data)
	})

	t.Run("signer config selects the algorithm", func(t *testing.T) {
		signer := NewSigner(SignerConfig{Clock: FixedClock(testTime), Algorithm: AlgorithmDCI3})
		req := httptest.NewRequest(http.MethodGet, "http://api.distributed-ci.io/", nil)

		require.NoError(t, signer.SignHTTP(req, cred))

		assert.Equal(t, "73c5a3e51acbcc0728db4feec783026e7b5ed9bd5dc35ac22dd2060a6b1a1945", signatureOf(t, req.Header))
	})
}

func TestGenerateHeaders(t *testing.T) {
	before := time.Now().UTC().Add(-time.Second)

	headers, err := GenerateHeaders(Request{}, testCredential(t))
	require.NoError(t, err)

	ts, err := SignedAt(headers)
	require.NoError(t, err)

	assert.False(t, ts.Before(before.Truncate(time.Second)))
	assert.NotEmpty(t, headers.Get(AuthorizationHeader))
}
