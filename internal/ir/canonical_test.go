package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarshalCanonical(t *testing.T) {
	testCases := []struct {
		name  string
		input Value
		want  string
	}{
		{"string", String("bookings"), `"bookings"`},
		{"empty string", String(""), `""`},
		{"int", Int(42), "42"},
		{"negative int", Int(-1), "-1"},
		{"min int64", Int(-9223372036854775808), "-9223372036854775808"},
		{"bool", Bool(true), "true"},
		{"empty array", Array{}, "[]"},
		{"nil array", Array(nil), "[]"},
		{"empty object", Object{}, "{}"},
		{"sorted keys", Object{"zebra": Int(1), "alpha": Int(2)}, `{"alpha":2,"zebra":1}`},
		{"nested", Object{"z": Object{"b": Int(1), "a": Int(2)}, "a": Array{String("x")}}, `{"a":["x"],"z":{"a":2,"b":1}}`},
		{"html not escaped", String("a < b && c > d"), `"a < b && c > d"`},
		{"line separators not escaped", String("a b c"), "\"a b c\""},
		{"literal backslash u2028", String(` `), `"\\u2028"`},
		{"newline", String("a\nb"), `"a\nb"`},
		{"tab", String("a\tb"), `"a\tb"`},
		{"quote", String(`a"b`), `"a\"b"`},
		{"backslash", String(`a\b`), `"a\\b"`},
		{"control character", String("a\x01b"), `"a\u0001b"`},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := MarshalCanonical(tc.input)
			require.NoError(t, err)
			assert.Equal(t, tc.want, string(got))
		})
	}
}

func TestMarshalCanonical_UTF16KeyOrder(t *testing.T) {
	// U+10000 encodes as the surrogate pair D800 DC00, which sorts before
	// U+E000 in UTF-16 but after it in UTF-8.
	obj := Object{"": Int(1), "\U00010000": Int(2)}

	got, err := MarshalCanonical(obj)
	require.NoError(t, err)
	assert.Equal(t, "{\"\U00010000\":2,\"\":1}", string(got))
}

func TestMarshalCanonical_NFC(t *testing.T) {
	decomposed := "café"
	composed := "café"

	a, err := MarshalCanonical(Object{decomposed: String(decomposed)})
	require.NoError(t, err)
	b, err := MarshalCanonical(Object{composed: String(composed)})
	require.NoError(t, err)
	assert.Equal(t, string(b), string(a))
}

func TestMarshalCanonical_NFCKeyCollision(t *testing.T) {
	_, err := MarshalCanonical(Object{"café": Int(1), "café": Int(2)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "collide")
}

func TestMarshalCanonical_RejectsNull(t *testing.T) {
	_, err := MarshalCanonical(nil)
	require.Error(t, err)

	_, err = MarshalCanonical(Object{"limit": nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), `["limit"]`)
}

func TestMarshalCanonical_Idempotent(t *testing.T) {
	obj := Object{"metrics": Strings([]string{"bookings", "revenue"}), "limit": Int(3)}
	first, err := MarshalCanonical(obj)
	require.NoError(t, err)
	for i := 0; i < 10; i++ {
		again, err := MarshalCanonical(obj)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestSortedKeys(t *testing.T) {
	obj := Object{"where": Int(0), "group_by": Int(0), "metrics": Int(0), "limit": Int(0)}
	assert.Equal(t, []string{"group_by", "limit", "metrics", "where"}, obj.SortedKeys())
}
