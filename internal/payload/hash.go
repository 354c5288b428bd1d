package payload

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// DomainPayload prefixes payload content hashes.
// Version suffix enables future algorithm migration.
const DomainPayload = "schemastore/payload/v1"

// hashWithDomain computes SHA-256 with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ContentHash computes a content-addressed identifier for a payload.
// Structurally equal payloads hash identically regardless of map ordering
// or whether a whole number was stored as Int or Float.
func ContentHash(v Value) (string, error) {
	canonical, err := MarshalCanonical(v)
	if err != nil {
		return "", fmt.Errorf("ContentHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainPayload, canonical), nil
}

// ShortHash returns the first 12 hex digits of ContentHash, or "-" when the
// payload cannot be hashed.
func ShortHash(v Value) string {
	h, err := ContentHash(v)
	if err != nil {
		return "-"
	}
	return h[:12]
}
