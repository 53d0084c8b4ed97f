package engine

import (
	"fmt"
	"time"

	"github.com/roach88/gavel/internal/ir"
)

// Restore rebuilds an auction from its AuctionCreated event without
// journaling anything. Subsequent events are fed through Apply.
func Restore(ev ir.Event, deps Deps) (*Auction, error) {
	if ev.Kind != ir.KindAuctionCreated {
		return nil, fmt.Errorf("%w: restore from %s (seq %d), want %s", ErrCorruptJournal, ev.Kind, ev.Seq, ir.KindAuctionCreated)
	}
	if ev.Identity == "" || ev.Deadline == 0 {
		return nil, fmt.Errorf("%w: AuctionCreated seq %d lacks seller or deadline", ErrCorruptJournal, ev.Seq)
	}
	deps.Seq.Observe(ev.Seq)
	return newAuction(Listing{
		ID:       ev.AuctionID,
		Seller:   ev.Identity,
		Item:     ev.Item,
		Deadline: time.Unix(0, ev.Deadline).UTC(),
	}, time.Unix(0, ev.At).UTC(), deps), nil
}

// Apply replays one journaled event onto the auction. It re-checks the
// invariants the live path enforced and returns ErrCorruptJournal when the
// event could not have been produced by this auction's history. Apply never
// journals, transfers, or notifies listeners.
func (a *Auction) Apply(ev ir.Event) error {
	if ev.AuctionID != a.id {
		return fmt.Errorf("%w: event seq %d targets %s, not %s", ErrCorruptJournal, ev.Seq, ev.AuctionID, a.id)
	}

	a.mu.Lock()
	defer a.mu.Unlock()
	a.deps.Seq.Observe(ev.Seq)

	switch ev.Kind {
	case ir.KindBidPlaced:
		if a.state == StateEnded {
			return a.corrupt(ev, "bid after finalize")
		}
		if ev.At >= a.deadline.UnixNano() {
			return a.corrupt(ev, "bid at or after deadline")
		}
		if ev.Amount <= a.highestBid || ev.Identity == "" {
			return a.corrupt(ev, fmt.Sprintf("bid %d does not exceed %d", ev.Amount, a.highestBid))
		}
		return a.applyBid(ev.Identity, ev.Amount)

	case ir.KindAuctionFinalized:
		if a.state == StateEnded {
			return a.corrupt(ev, "finalized twice")
		}
		if ev.Identity != a.highestBidder || ev.Amount != a.highestBid {
			return a.corrupt(ev, fmt.Sprintf("settlement %s/%d disagrees with leader %s/%d", ev.Identity, ev.Amount, a.highestBidder, a.highestBid))
		}
		return a.applyFinalize()

	case ir.KindWithdrawn:
		if owed := a.escrow.Balance(ev.Identity); owed != ev.Amount || owed == 0 {
			return a.corrupt(ev, fmt.Sprintf("withdrew %d but %s was owed %d", ev.Amount, ev.Identity, owed))
		}
		a.applyWithdraw(ev.Identity)
		return nil

	case ir.KindWithdrawalReverted:
		if ev.Amount <= 0 || ev.Amount > a.paidOut {
			return a.corrupt(ev, fmt.Sprintf("revert of %d exceeds paid out %d", ev.Amount, a.paidOut))
		}
		return a.applyRevert(ev.Identity, ev.Amount)

	case ir.KindAuctionCreated:
		return a.corrupt(ev, "auction created twice")
	}
	return a.corrupt(ev, "unknown event kind")
}

func (a *Auction) corrupt(ev ir.Event, reason string) error {
	return fmt.Errorf("%w: %s seq %d on %s: %s", ErrCorruptJournal, ev.Kind, ev.Seq, a.id, reason)
}
