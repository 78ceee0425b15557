// Package canonhash computes content digests over a canonical JSON form.
//
// Two payloads that differ only in field ordering or insignificant whitespace
// hash to the same digest, which is what submission dedup relies on. This is a
// correctness requirement, not an optimization.
package canonhash

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"strings"
)

// SumObject marshals v, canonicalizes the JSON, and returns the digest in
// "sha256:<hex>" form together with the canonical bytes.
func SumObject(v any) (string, []byte, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return "", nil, fmt.Errorf("marshal for hashing: %w", err)
	}
	canon, err := Canonicalize(b)
	if err != nil {
		return "", nil, err
	}
	sum := sha256.Sum256(canon)
	return "sha256:" + hex.EncodeToString(sum[:]), canon, nil
}

// SumText normalizes free text (trimmed, runs of whitespace collapsed to one
// space) and returns its digest in "sha256:<hex>" form.
func SumText(text string) string {
	norm := strings.Join(strings.Fields(text), " ")
	sum := sha256.Sum256([]byte(norm))
	return "sha256:" + hex.EncodeToString(sum[:])
}

// Canonicalize re-encodes raw JSON with object keys sorted and no
// insignificant whitespace. encoding/json sorts map keys on marshal, so a
// round trip through map[string]any yields a stable byte form.
func Canonicalize(raw []byte) ([]byte, error) {
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	canon, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("canonicalize: %w", err)
	}
	return canon, nil
}
