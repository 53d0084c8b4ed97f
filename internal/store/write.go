package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/mattn/go-sqlite3"

	"github.com/roach88/gavel/internal/ir"
)

// ErrConflict is returned by Append when the seq or id is already taken,
// usually because another process appended since this one loaded the journal.
var ErrConflict = errors.New("journal conflict")

// Append durably writes one event. It implements engine.Journal.
//
// The event must be sealed (ID set) and valid. A duplicate seq or id is an
// error, not a no-op: the caller is about to act on stale state.
func (s *Store) Append(ctx context.Context, ev ir.Event) error {
	if err := ev.Validate(); err != nil {
		return fmt.Errorf("append event: %w", err)
	}
	if ev.ID == "" {
		return fmt.Errorf("append event: seq %d is not sealed", ev.Seq)
	}

	canonical, err := marshalEvent(ev)
	if err != nil {
		return fmt.Errorf("append event: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO events
		(seq, id, kind, auction_id, identity, amount, caller, item, deadline, at, canonical)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		ev.Seq,
		ev.ID,
		string(ev.Kind),
		ev.AuctionID,
		ev.Identity,
		ev.Amount,
		ev.Caller,
		ev.Item,
		ev.Deadline,
		ev.At,
		canonical,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("append %s seq %d: %w", ev.Kind, ev.Seq, ErrConflict)
		}
		return fmt.Errorf("append %s seq %d: %w", ev.Kind, ev.Seq, err)
	}

	return nil
}

// Transfer records a completed payout. It implements engine.Transferer for
// deployments where the journal itself is the payment rail.
//
// Uses ON CONFLICT(event_id) DO NOTHING, so recording the same payout twice
// is a no-op. The Withdrawn event it settles must already be journaled.
func (s *Store) Transfer(ctx context.Context, p ir.Payout) error {
	if p.EventID == "" || p.To == "" || p.Amount <= 0 {
		return fmt.Errorf("record transfer: incomplete payout %+v", p)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO transfers (event_id, auction_id, identity, amount)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id) DO NOTHING
	`,
		p.EventID,
		p.AuctionID,
		p.To,
		p.Amount,
	)
	if err != nil {
		return fmt.Errorf("record transfer: %w", err)
	}

	return nil
}

func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if !errors.As(err, &sqliteErr) {
		return false
	}
	return sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
		sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique
}
