package memory

import (
	"context"
	"errors"
	"testing"

	"soulverse-ledger/internal/domain"
	"soulverse-ledger/internal/storage"
)

func journalEntry(id string, seq uint64, kind domain.OperationKind, from, to domain.Address, ts int64) *domain.JournalEntry {
	return &domain.JournalEntry{
		EntryID:     id,
		Sequence:    seq,
		Kind:        kind,
		Caller:      from,
		From:        from,
		To:          to,
		Amount:      domain.Tokens(seq),
		TimestampMs: ts,
	}
}

func TestJournalStore_InsertAndGetByAccount(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	entries := []*domain.JournalEntry{
		journalEntry("e2", 2, domain.OpTransfer, aliceAddr, bobAddr, 2000),
		journalEntry("e1", 1, domain.OpTransfer, ownerAddr, aliceAddr, 1000),
		journalEntry("e3", 3, domain.OpBurn, ownerAddr, domain.ZeroAddress, 3000),
	}
	for _, e := range entries {
		if err := store.Insert(ctx, e); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByAccount(ctx, aliceAddr)
	if err != nil {
		t.Fatalf("GetByAccount failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got))
	}
	if got[0].EntryID != "e1" || got[1].EntryID != "e2" {
		t.Errorf("Expected sequence order e1,e2, got %s,%s", got[0].EntryID, got[1].EntryID)
	}

	last, err := store.LastSequence(ctx)
	if err != nil {
		t.Fatalf("LastSequence failed: %v", err)
	}
	if last != 3 {
		t.Errorf("LastSequence = %d, want 3", last)
	}
}

func TestJournalStore_GetAfterSequence(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	for _, seq := range []uint64{3, 1, 2} {
		id := string(rune('a' + seq))
		if err := store.Insert(ctx, journalEntry(id, seq, domain.OpTransfer, ownerAddr, aliceAddr, int64(seq))); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetAfterSequence(ctx, 1)
	if err != nil {
		t.Fatalf("GetAfterSequence failed: %v", err)
	}
	if len(got) != 2 || got[0].Sequence != 2 || got[1].Sequence != 3 {
		t.Errorf("Expected sequences 2,3, got %+v", got)
	}
}

func TestJournalStore_GetByTimeRange(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	for i, ts := range []int64{1000, 2000, 3000} {
		id := string(rune('a' + i))
		if err := store.Insert(ctx, journalEntry(id, uint64(i+1), domain.OpTransfer, ownerAddr, aliceAddr, ts)); err != nil {
			t.Fatalf("Insert failed: %v", err)
		}
	}

	got, err := store.GetByTimeRange(ctx, 2000, 3000)
	if err != nil {
		t.Fatalf("GetByTimeRange failed: %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Expected 2 entries in [2000, 3000], got %d", len(got))
	}
}

func TestJournalStore_DuplicateKey(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	e := journalEntry("dup", 1, domain.OpTransfer, ownerAddr, aliceAddr, 1000)
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	err := store.Insert(ctx, e)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Errorf("Expected ErrDuplicateKey, got %v", err)
	}
}

func TestJournalStore_InsertBulkAtomic(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	batch := []*domain.JournalEntry{
		journalEntry("b1", 1, domain.OpApprove, ownerAddr, aliceAddr, 1000),
		journalEntry("b1", 2, domain.OpApprove, ownerAddr, aliceAddr, 1000),
	}

	err := store.InsertBulk(ctx, batch)
	if !errors.Is(err, storage.ErrDuplicateKey) {
		t.Fatalf("Expected ErrDuplicateKey for intra-batch duplicate, got %v", err)
	}

	got, _ := store.GetByAccount(ctx, ownerAddr)
	if len(got) != 0 {
		t.Errorf("Failed batch should insert nothing, got %d entries", len(got))
	}

	if err := store.InsertBulk(ctx, nil); err != nil {
		t.Errorf("Empty batch should succeed, got %v", err)
	}
}

func TestJournalStore_InvalidInput(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	if err := store.Insert(ctx, nil); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for nil, got %v", err)
	}
	if err := store.Insert(ctx, &domain.JournalEntry{}); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput for empty ID, got %v", err)
	}
}

func TestJournalStore_ReturnsCopy(t *testing.T) {
	store := NewJournalStore()
	ctx := context.Background()

	e := journalEntry("c1", 1, domain.OpTransfer, ownerAddr, aliceAddr, 1000)
	if err := store.Insert(ctx, e); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	// Modify original
	e.Amount.SetUint64(0)

	got, _ := store.GetByAccount(ctx, aliceAddr)
	if !got[0].Amount.Eq(domain.Tokens(1)) {
		t.Error("Store should return copy, not reference")
	}
}
