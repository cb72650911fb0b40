// Package idhash computes deterministic identifiers for journal records.
package idhash

import (
	"encoding/hex"
	"fmt"

	"github.com/holiman/uint256"
	"golang.org/x/crypto/sha3"

	"soulverse-ledger/internal/domain"
)

// ComputeEntryID computes a deterministic journal entry_id using Keccak-256.
// Formula: KECCAK256(sequence|kind|caller|from|to|amount|timestamp_ms)
// Addresses are lowercase hex, amount is decimal base units.
// Returns hex-encoded hash (64 characters).
func ComputeEntryID(
	sequence uint64,
	kind domain.OperationKind,
	caller, from, to domain.Address,
	amount *uint256.Int,
	timestampMs int64,
) string {
	data := fmt.Sprintf("%d|%s|%x|%x|%x|%s|%d",
		sequence,
		kind,
		caller[:],
		from[:],
		to[:],
		domain.CopyAmount(amount).Dec(),
		timestampMs,
	)

	hasher := sha3.NewLegacyKeccak256()
	hasher.Write([]byte(data))
	return hex.EncodeToString(hasher.Sum(nil))
}

// EntryID computes the entry_id for e from its other fields.
func EntryID(e *domain.JournalEntry) string {
	return ComputeEntryID(e.Sequence, e.Kind, e.Caller, e.From, e.To, e.Amount, e.TimestampMs)
}
