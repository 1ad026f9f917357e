package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainEvent      = "tiermigrate/event/v1"
	DomainTierConfig = "tiermigrate/tiers/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
// The null byte separator prevents domain/data boundary ambiguity.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// EventID computes the content-addressed ID of an audit event.
// The ID is stable given the same flow token, kind, payload and sequence.
func EventID(flowToken, kind string, payload map[string]any, seq int64) (string, error) {
	obj := map[string]any{
		"flow_token": flowToken,
		"kind":       kind,
		"payload":    payload,
		"seq":        seq,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainEvent, canonical), nil
}

// TierConfigHash fingerprints a tier table together with its per-tier
// templates. A store initialized with one table refuses to open with
// another.
func TierConfigHash(limits []string, templates map[string]any) (string, error) {
	lims := make([]any, len(limits))
	for i, l := range limits {
		lims[i] = l
	}
	obj := map[string]any{
		"limits":    lims,
		"templates": templates,
	}

	canonical, err := MarshalCanonical(obj)
	if err != nil {
		return "", fmt.Errorf("TierConfigHash: failed to marshal: %w", err)
	}

	return hashWithDomain(DomainTierConfig, canonical), nil
}
