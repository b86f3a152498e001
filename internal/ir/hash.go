package ir

import (
	"cmp"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"slices"
)

// Domain prefixes for content-addressed identity.
// Version suffix enables future algorithm migration.
const (
	DomainTopology = "bondbreak/topology/v1"
	DomainEvent    = "bondbreak/event/v1"
)

// hashWithDomain computes SHA-256 hash with domain separation.
// Format: SHA256(domain + 0x00 + data)
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SortBonds orders bonds by (owner, type, partner) in place.
func SortBonds(bonds []Bond) {
	slices.SortFunc(bonds, func(a, b Bond) int {
		if a.Owner != b.Owner {
			return cmp.Compare(a.Owner, b.Owner)
		}
		if a.Type != b.Type {
			return cmp.Compare(a.Type, b.Type)
		}
		return cmp.Compare(a.Partner, b.Partner)
	})
}

// SnapshotBonds converts a bond set into its canonical value form.
// The input is copied and sorted, so callers may pass bonds in any order.
func SnapshotBonds(bonds []Bond) []any {
	sorted := slices.Clone(bonds)
	SortBonds(sorted)

	out := make([]any, len(sorted))
	for i, b := range sorted {
		out[i] = map[string]any{
			"owner":   b.Owner,
			"type":    b.Type,
			"partner": b.Partner,
		}
	}
	return out
}

// TopologyHash computes a content hash over a bond set.
// Two stores holding the same bonds hash identically regardless of
// insertion order.
func TopologyHash(bonds []Bond) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"bonds":      SnapshotBonds(bonds),
		"ir_version": IRVersion,
	})
	if err != nil {
		return "", fmt.Errorf("TopologyHash: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainTopology, canonical), nil
}

// EventID computes a content-addressed id for a queued event at a given
// position within a flush. Duplicate events at different positions get
// different ids.
func EventID(step int64, position int, ev BreakEvent) (string, error) {
	canonical, err := MarshalCanonical(map[string]any{
		"step":     step,
		"position": position,
		"type":     ev.Type,
		"id1":      ev.ID1,
		"id2":      ev.ID2,
	})
	if err != nil {
		return "", fmt.Errorf("EventID: failed to marshal: %w", err)
	}
	return hashWithDomain(DomainEvent, canonical), nil
}
