package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes keep fingerprints of different document kinds apart. The
// version suffix changes whenever the encoding of that kind changes.
const (
	DomainQuerySpec = "metricq/query-spec/v1"
	DomainRequest   = "metricq/request/v1"
)

// hashWithDomain returns the hex SHA-256 of domain, a 0x00 separator, and
// data.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Hash returns the fingerprint of v under domain.
func Hash(domain string, v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", domain, err)
	}
	return hashWithDomain(domain, canonical), nil
}
