package canon

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
)

// Domain prefixes for content hashes.
// Version suffix enables future algorithm migration.
const (
	DomainQueuePayload = "deployfin/queue-payload/v1"
	DomainStateBlob    = "deployfin/state-blob/v1"
)

// HashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
// The null separator prevents domain/data boundary ambiguity.
func HashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// Fingerprint canonicalises a JSON payload and hashes it under the queue
// payload domain. Two payloads that differ only in key order or number
// spelling share a fingerprint.
func Fingerprint(payload json.RawMessage) (string, error) {
	if len(payload) == 0 {
		payload = json.RawMessage("null")
	}
	canonical, err := Canonicalize(payload)
	if err != nil {
		return "", fmt.Errorf("fingerprint: %w", err)
	}
	return HashWithDomain(DomainQueuePayload, canonical), nil
}

// Checksum hashes a persisted state blob verbatim.
func Checksum(blob []byte) string {
	return HashWithDomain(DomainStateBlob, blob)
}
