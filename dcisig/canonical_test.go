package dcisig

import (
	"net/http"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCanonicalizer(t *testing.T) {
	h := http.Header{
		"Host":         {"localhost"},
		"X-Dci-Date":   {"20171215T111929Z"},
		"Content-Type": {"application/json"},
		"X-Multi":      {"a", "b"},
	}

	t.Run("sign mode lowers sorts and dedupes", func(t *testing.T) {
		c := SignMode("X-DCI-Date", "host", "Host", "Content-Type")
		assert.Equal(t, []string{"content-type", "host", "x-dci-date"}, c.SignedHeaders())

		s, signed, err := c.Headers(h)
		require.NoError(t, err)
		assert.Equal(t, "content-type:application/json\nhost:localhost\nx-dci-date:20171215T111929Z\n", s)
		assert.Equal(t, []string{"content-type", "host", "x-dci-date"}, signed)
	})

	t.Run("verify mode keeps listed order", func(t *testing.T) {
		c := VerifyMode([]string{"x-dci-date", "Host"})

		s, signed, err := c.Headers(h)
		require.NoError(t, err)
		assert.Equal(t, "x-dci-date:20171215T111929Z\nhost:localhost\n", s)
		assert.Equal(t, []string{"x-dci-date", "host"}, signed)
	})

	t.Run("multiple values are joined", func(t *testing.T) {
		s, _, err := SignMode("x-multi").Headers(h)
		require.NoError(t, err)
		assert.Equal(t, "x-multi:a,b\n", s)
	})

	t.Run("values are verbatim", func(t *testing.T) {
		s, _, err := SignMode("x-space").Headers(http.Header{"X-Space": {"  a  b "}})
		require.NoError(t, err)
		assert.Equal(t, "x-space:  a  b \n", s)
	})

	t.Run("missing header", func(t *testing.T) {
		_, _, err := SignMode("x-absent").Headers(h)
		assert.ErrorIs(t, err, ErrMissingSignedHeader)

		_, _, err = VerifyMode([]string{"host", "x-absent"}).Headers(h)
		assert.ErrorIs(t, err, ErrMissingSignedHeader)
	})

	t.Run("invalid name", func(t *testing.T) {
		_, _, err := VerifyMode([]string{""}).Headers(h)
		assert.ErrorIs(t, err, ErrInvalidHeader)
	})
}

func TestCanonicalQuery(t *testing.T) {
	tests := []struct {
		name   string
		params url.Values
		want   string
	}{
		{"empty", nil, ""},
		{"sorted keys", url.Values{"limit": {"100"}, "embed": {"teams"}}, "embed=teams&limit=100"},
		{"form escaping", url.Values{"where": {"name:foo bar"}, "sort": {"-created_at"}}, "sort=-created_at&where=name%3Afoo+bar"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, CanonicalQuery(tt.params))
		})
	}
}

func TestCanonicalPayload(t *testing.T) {
	t.Run("data wins over payload", func(t *testing.T) {
		s, err := CanonicalPayload(map[string]any{"a": 1}, "raw")
		require.NoError(t, err)
		assert.Equal(t, "raw", s)
	})

	t.Run("empty payload", func(t *testing.T) {
		s, err := CanonicalPayload(nil, "")
		require.NoError(t, err)
		assert.Empty(t, s)
	})

	t.Run("object", func(t *testing.T) {
		s, err := CanonicalPayload(map[string]any{"name": "foo"}, "")
		require.NoError(t, err)
		assert.Equal(t, `{"name": "foo"}`, s)
	})
}

func TestHashPayload(t *testing.T) {
	assert.Equal(t, "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855", HashPayload(""))
}
