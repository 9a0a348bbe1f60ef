package dcisig

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeJSON(t *testing.T) {
	t.Run("python layout", func(t *testing.T) {
		s, err := encodeJSON(map[string]any{
			"name": "é<&>",
			"n":    nil,
			"t":    true,
			"f":    1.5,
			"l":    []any{1, "a"},
			"q":    "a\"b\\c\n",
		})
		require.NoError(t, err)
		assert.Equal(t, `{"f": 1.5, "l": [1, "a"], "n": null, "name": "\u00e9<&>", "q": "a\"b\\c\n", "t": true}`, s)
	})

	t.Run("floats", func(t *testing.T) {
		tests := []struct {
			in   float64
			want string
		}{
			{0, "0.0"},
			{100, "100.0"},
			{-2.5, "-2.5"},
			{0.1, "0.1"},
			{1234567.5, "1234567.5"},
			{1e15, "1000000000000000.0"},
			{1e16, "1e+16"},
			{1.5e-5, "1.5e-05"},
			{0.0001, "0.0001"},
		}

		for _, tt := range tests {
			s, err := encodeJSON(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, s, "%v", tt.in)
		}
	})

	t.Run("non finite float", func(t *testing.T) {
		_, err := encodeJSON(math.Inf(1))
		assert.ErrorIs(t, err, ErrInvalidPayload)
	})

	t.Run("control and astral characters", func(t *testing.T) {
		s, err := encodeJSON("\x01\t\x7f😀")
		require.NoError(t, err)
		assert.Equal(t, `"\u0001\t\u007f\ud83d\ude00"`, s)
	})

	t.Run("structs go through the generic model", func(t *testing.T) {
		type job struct {
			Name string `json:"name"`
			Tags []int  `json:"tags"`
		}

		s, err := encodeJSON(map[string]any{"job": job{Name: "x", Tags: []int{3, 1}}})
		require.NoError(t, err)
		assert.Equal(t, `{"job": {"name": "x", "tags": [3, 1]}}`, s)
	})

	t.Run("json numbers are kept", func(t *testing.T) {
		s, err := encodeJSON([]any{json.Number("12345678901234567890")})
		require.NoError(t, err)
		assert.Equal(t, `[12345678901234567890]`, s)
	})

	t.Run("typed collections", func(t *testing.T) {
		s, err := encodeJSON(map[string]any{"m": map[string]string{"b": "2", "a": "1"}, "s": []string{"x"}})
		require.NoError(t, err)
		assert.Equal(t, `{"m": {"a": "1", "b": "2"}, "s": ["x"]}`, s)
	})
}
