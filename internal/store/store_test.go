package store

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/roach88/gavel/internal/ir"
)

func TestOpen_CreatesNewDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Error("database file was not created")
	}
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")

	for i := 0; i < 3; i++ {
		s, err := Open(path)
		if err != nil {
			t.Fatalf("Open() iteration %d failed: %v", i, err)
		}
		s.Close()
	}

	s, err := Open(path)
	if err != nil {
		t.Fatalf("final Open() failed: %v", err)
	}
	defer s.Close()

	for _, table := range []string{"events", "transfers"} {
		var name string
		err := s.db.QueryRow(
			"SELECT name FROM sqlite_master WHERE type='table' AND name=?",
			table,
		).Scan(&name)
		if err != nil {
			t.Errorf("table %q not found after idempotent opens: %v", table, err)
		}
	}
}

func TestOpen_Pragmas(t *testing.T) {
	s := createTestStore(t)

	checks := map[string]string{
		"journal_mode": "wal",
		"foreign_keys": "1",
		"busy_timeout": "5000",
		"user_version": fmt.Sprint(currentSchemaVersion),
	}
	for name, want := range checks {
		got, err := s.pragma(name)
		if err != nil {
			t.Fatal(err)
		}
		if got != want {
			t.Errorf("PRAGMA %s = %q, want %q", name, got, want)
		}
	}
}

func TestOpen_BusyTimeout(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path, WithBusyTimeout(1500*time.Millisecond))
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	defer s.Close()

	got, err := s.pragma("busy_timeout")
	if err != nil {
		t.Fatal(err)
	}
	if got != "1500" {
		t.Errorf("busy_timeout = %s, want 1500", got)
	}
	if s.Path() != path {
		t.Errorf("Path() = %q, want %q", s.Path(), path)
	}
}

func TestSettingsDSN(t *testing.T) {
	cfg := settings{busyTimeout: 2 * time.Second}
	if got, want := cfg.dsn("a.db"), "a.db?_busy_timeout=2000&_foreign_keys=on"; got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
	if got, want := cfg.dsn("file:a.db?cache=shared"), "file:a.db?cache=shared&_busy_timeout=2000&_foreign_keys=on"; got != want {
		t.Errorf("dsn = %q, want %q", got, want)
	}
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	if _, err := s.db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion+1)); err != nil {
		t.Fatalf("bump version: %v", err)
	}
	s.Close()

	if _, err := Open(path); err == nil {
		t.Fatal("Open() accepted a database from a newer version")
	}
}

func TestLastSeq(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	seq, err := s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 0 {
		t.Errorf("LastSeq() on empty journal = %d, want 0", seq)
	}

	appendAll(t, s, sampleEvents(t)...)
	seq, err = s.LastSeq(ctx)
	if err != nil {
		t.Fatalf("LastSeq() failed: %v", err)
	}
	if seq != 5 {
		t.Errorf("LastSeq() = %d, want 5", seq)
	}
}

func TestStats(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	empty, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if empty.Events != 0 || empty.Transfers != 0 || empty.PaidOut != 0 {
		t.Errorf("Stats() on empty journal = %+v", empty)
	}

	events := sampleEvents(t)
	appendAll(t, s, events...)
	withdrawn := events[4]
	if err := s.Transfer(ctx, ir.Payout{AuctionID: "a1", To: "x", Amount: 100, EventID: withdrawn.ID}); err != nil {
		t.Fatalf("Transfer() failed: %v", err)
	}

	st, err := s.Stats(ctx)
	if err != nil {
		t.Fatalf("Stats() failed: %v", err)
	}
	if st.Events != int64(len(events)) {
		t.Errorf("Events = %d, want %d", st.Events, len(events))
	}
	var sum int64
	for _, n := range st.ByKind {
		sum += n
	}
	if sum != st.Events {
		t.Errorf("ByKind sums to %d, want %d", sum, st.Events)
	}
	if st.ByKind[string(ir.KindAuctionCreated)] != 2 {
		t.Errorf("AuctionCreated count = %d, want 2", st.ByKind[string(ir.KindAuctionCreated)])
	}
	if st.Transfers != 1 || st.PaidOut != 100 {
		t.Errorf("Transfers/PaidOut = %d/%d, want 1/100", st.Transfers, st.PaidOut)
	}
}
