package store

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/roach88/gavel/internal/ir"
)

const eventColumns = `seq, id, kind, auction_id, identity, amount, caller, item, deadline, at, canonical`

// ReadEvents returns the whole journal ordered by seq.
//
// Returns an empty slice (not nil) for an empty journal.
func (s *Store) ReadEvents(ctx context.Context) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		ORDER BY seq ASC
	`)
}

// ReadEventsSince returns up to limit events with seq > after, ordered by
// seq. A limit <= 0 means no limit.
func (s *Store) ReadEventsSince(ctx context.Context, after int64, limit int) ([]ir.Event, error) {
	if limit <= 0 {
		limit = -1 // SQLite: no limit
	}
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?
	`, after, limit)
}

// ReadAuctionEvents returns one auction's history ordered by seq.
func (s *Store) ReadAuctionEvents(ctx context.Context, auctionID string) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE auction_id = ?
		ORDER BY seq ASC
	`, auctionID)
}

// ReadBids returns the BidPlaced events of one auction ordered by seq.
func (s *Store) ReadBids(ctx context.Context, auctionID string) ([]ir.Event, error) {
	return s.queryEvents(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE auction_id = ? AND kind = ?
		ORDER BY seq ASC
	`, auctionID, string(ir.KindBidPlaced))
}

func (s *Store) queryEvents(ctx context.Context, query string, args ...any) ([]ir.Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	events := []ir.Event{}
	for rows.Next() {
		ev, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, ev)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}

	return events, nil
}

func scanEvent(rows *sql.Rows) (ir.Event, error) {
	var (
		ev        ir.Event
		kind      string
		canonical string
	)
	err := rows.Scan(
		&ev.Seq,
		&ev.ID,
		&kind,
		&ev.AuctionID,
		&ev.Identity,
		&ev.Amount,
		&ev.Caller,
		&ev.Item,
		&ev.Deadline,
		&ev.At,
		&canonical,
	)
	if err != nil {
		return ir.Event{}, fmt.Errorf("scan event: %w", err)
	}
	ev.Kind = ir.EventKind(kind)

	if err := verifyEvent(ev, canonical); err != nil {
		return ir.Event{}, err
	}
	return ev, nil
}

// ReadTransfers returns recorded payouts in the order of the Withdrawn events
// they settle. An empty auctionID returns payouts of every auction.
func (s *Store) ReadTransfers(ctx context.Context, auctionID string) ([]ir.Payout, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.event_id, t.auction_id, t.identity, t.amount
		FROM transfers t
		JOIN events e ON e.id = t.event_id
		WHERE ? = '' OR t.auction_id = ?
		ORDER BY e.seq ASC
	`, auctionID, auctionID)
	if err != nil {
		return nil, fmt.Errorf("query transfers: %w", err)
	}
	defer rows.Close()

	payouts := []ir.Payout{}
	for rows.Next() {
		var p ir.Payout
		if err := rows.Scan(&p.EventID, &p.AuctionID, &p.To, &p.Amount); err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		payouts = append(payouts, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate transfers: %w", err)
	}

	return payouts, nil
}

// PaidTo sums recorded payouts to identity across all auctions.
func (s *Store) PaidTo(ctx context.Context, identity string) (int64, error) {
	var total sql.NullInt64
	err := s.db.QueryRowContext(ctx,
		"SELECT SUM(amount) FROM transfers WHERE identity = ?", identity,
	).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("paid to %s: %w", identity, err)
	}
	return total.Int64, nil
}
