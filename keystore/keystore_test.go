package keystore

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vitalvas/dciauth/dcisig"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestStatic(t *testing.T) {
	ctx := context.Background()

	t.Run("lookup", func(t *testing.T) {
		s, err := NewStatic(map[string]string{"remoteci/abc": "secret"})
		require.NoError(t, err)

		secret, err := s.Secret(ctx, "remoteci/abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), secret)
		assert.Equal(t, 1, s.Len())
	})

	t.Run("unknown key", func(t *testing.T) {
		s, err := NewStatic(nil)
		require.NoError(t, err)

		_, err = s.Secret(ctx, "remoteci/abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("malformed access key", func(t *testing.T) {
		_, err := NewStatic(map[string]string{"remoteci": "secret"})
		assert.ErrorIs(t, err, dcisig.ErrMalformedAccessKey)
	})

	t.Run("empty secret", func(t *testing.T) {
		_, err := NewStatic(map[string]string{"remoteci/abc": ""})
		assert.ErrorIs(t, err, ErrEmptySecret)
	})

	t.Run("duplicate add", func(t *testing.T) {
		s, err := NewStatic(map[string]string{"remoteci/abc": "secret"})
		require.NoError(t, err)

		assert.ErrorIs(t, s.Add("remoteci/abc", []byte("other")), ErrDuplicate)
	})

	t.Run("resolver", func(t *testing.T) {
		s, err := NewStatic(map[string]string{"remoteci/abc": "secret"})
		require.NoError(t, err)

		secret, err := Resolver(s).ResolveSecret(ctx, "remoteci/abc")
		require.NoError(t, err)
		assert.Equal(t, []byte("secret"), secret)
	})
}

func TestLoadFile(t *testing.T) {
	ctx := context.Background()

	yamlPath := writeFile(t, "keys.yaml", `
credentials:
  - access_key: remoteci/abc
    secret_key: one
  - access_key: feeder/def
    secret_key: two
`)

	tomlPath := writeFile(t, "keys.toml", `
[[credentials]]
access_key = "remoteci/abc"
secret_key = "one"

[[credentials]]
access_key = "feeder/def"
secret_key = "two"
`)

	t.Run("yaml and toml are equivalent", func(t *testing.T) {
		fromYAML, err := LoadFile(yamlPath)
		require.NoError(t, err)

		fromTOML, err := LoadFile(tomlPath)
		require.NoError(t, err)

		for _, key := range []string{"remoteci/abc", "feeder/def"} {
			a, err := fromYAML.Secret(ctx, key)
			require.NoError(t, err)

			b, err := fromTOML.Secret(ctx, key)
			require.NoError(t, err)

			assert.Equal(t, a, b)
		}
	})

	t.Run("empty yaml file", func(t *testing.T) {
		s, err := LoadFile(writeFile(t, "empty.yml", ""))
		require.NoError(t, err)
		assert.Equal(t, 0, s.Len())
	})

	t.Run("duplicate entries", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "dup.yaml", `
credentials:
  - access_key: remoteci/abc
    secret_key: one
  - access_key: remoteci/abc
    secret_key: two
`))
		assert.ErrorIs(t, err, ErrDuplicate)
	})

	t.Run("unknown yaml field", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "typo.yaml", "credential: []\n"))
		assert.Error(t, err)
	})

	t.Run("unknown toml key", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "typo.toml", "[[credentials]]\naccess_key = \"a/b\"\nsecret = \"x\"\n"))
		assert.Error(t, err)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		_, err := LoadFile(writeFile(t, "keys.json", "{}"))
		assert.ErrorIs(t, err, ErrUnsupportedFormat)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})
}
