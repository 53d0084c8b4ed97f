package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/gavel/internal/ir"
)

// createTestStore opens a fresh store in a temp dir.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// sealedEvent builds a sealed event with the given shape.
func sealedEvent(t *testing.T, seq int64, kind ir.EventKind, auctionID, identity string, amount int64) ir.Event {
	t.Helper()
	ev := ir.Event{
		Seq:       seq,
		Kind:      kind,
		AuctionID: auctionID,
		Identity:  identity,
		Amount:    amount,
		At:        1_700_000_000_000_000_000 + seq,
	}
	if kind == ir.KindAuctionCreated {
		ev.Deadline = 1_800_000_000_000_000_000
		ev.Item = []byte(`{"name":"lamp"}`)
	}
	sealed, err := ir.Seal(ev)
	if err != nil {
		t.Fatalf("Seal() failed: %v", err)
	}
	return sealed
}
