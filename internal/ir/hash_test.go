package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashWithDomain(t *testing.T) {
	sum := sha256.Sum256([]byte("d\x00data"))
	assert.Equal(t, hex.EncodeToString(sum[:]), hashWithDomain("d", []byte("data")))
}

func TestHash_DomainSeparation(t *testing.T) {
	v := Object{"metrics": Strings([]string{"bookings"})}

	a, err := Hash(DomainQuerySpec, v)
	require.NoError(t, err)
	b, err := Hash(DomainRequest, v)
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}

func TestHash_BoundaryAmbiguity(t *testing.T) {
	// Without the separator these two would hash the same bytes.
	assert.NotEqual(t, hashWithDomain("ab", []byte("c")), hashWithDomain("a", []byte("bc")))
}

func TestHash_Error(t *testing.T) {
	_, err := Hash(DomainRequest, Array{nil})
	require.Error(t, err)
	assert.Contains(t, err.Error(), DomainRequest)
}
