package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content hashes. The version suffix allows the
// encoding to change without colliding with old hashes.
const (
	DomainSnapshot = "rulekit/snapshot/v1"
	DomainTick     = "rulekit/tick/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data) as lowercase hex.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// SnapshotHash is the content identity of a project snapshot. Two
// snapshots that differ only in key order or whitespace hash equal.
func SnapshotHash(snap *Snapshot) (string, error) {
	canonical, err := MarshalCanonical(snap)
	if err != nil {
		return "", fmt.Errorf("SnapshotHash: %w", err)
	}
	return hashWithDomain(DomainSnapshot, canonical), nil
}

// TickHash is the content identity of a tick result. Replay compares these
// to find the first divergent tick.
func TickHash(res TickResult) (string, error) {
	canonical, err := MarshalCanonical(res)
	if err != nil {
		return "", fmt.Errorf("TickHash: %w", err)
	}
	return hashWithDomain(DomainTick, canonical), nil
}

// MustSnapshotHash is like SnapshotHash but panics on error.
// Use only in tests or when the snapshot is known to be valid.
func MustSnapshotHash(snap *Snapshot) string {
	h, err := SnapshotHash(snap)
	if err != nil {
		panic(err)
	}
	return h
}

// MustTickHash is like TickHash but panics on error.
func MustTickHash(res TickResult) string {
	h, err := TickHash(res)
	if err != nil {
		panic(err)
	}
	return h
}
