package op

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"time"
)

// Domain prefixes for content-addressed digests.
// The version suffix allows a future algorithm migration.
const (
	DomainOperation = "trustlog/operation/v1"
	DomainState     = "trustlog/state/v1"
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

// ContentHash computes the content-addressed digest of an operation.
// Seq is excluded: the same record hashes identically wherever it sits in
// the log. The payload is hashed as its JSON text so that payloads of
// unknown types (which may contain floats) still hash.
func ContentHash(o Operation) (string, error) {
	data, err := o.DataJSON()
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	obj := map[string]any{
		"id":          string(o.ID),
		"creator_uid": string(o.CreatorUID),
		"type":        string(o.Type),
		"data":        string(data),
	}
	if !o.CreatedAt.IsZero() {
		obj["created_at"] = o.CreatedAt.UTC().Format(time.RFC3339Nano)
	}
	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("content hash: %w", err)
	}
	return HashWithDomain(DomainOperation, canonical), nil
}
