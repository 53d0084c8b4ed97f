package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/roach88/gavel/internal/engine"
	"github.com/roach88/gavel/internal/ir"
	"github.com/roach88/gavel/internal/money"
)

// AuctionView is the readable state of one auction as the CLI prints it.
type AuctionView struct {
	ID            string    `json:"id"`
	Seller        string    `json:"seller"`
	Item          string    `json:"item,omitempty"`
	Deadline      time.Time `json:"deadline"`
	State         string    `json:"state"`
	Ended         bool      `json:"ended"`
	HighestBid    int64     `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	Bids          int       `json:"bids"`
	Remaining     string    `json:"remaining"`

	display string
}

func newAuctionView(snap engine.Snapshot, now time.Time, cur money.Currency) AuctionView {
	return AuctionView{
		ID:            snap.ID,
		Seller:        snap.Seller,
		Item:          string(snap.Item),
		Deadline:      snap.Deadline,
		State:         snap.State.String(),
		Ended:         snap.State == engine.StateEnded,
		HighestBid:    snap.HighestBid,
		HighestBidder: snap.HighestBidder,
		Bids:          snap.Bids,
		Remaining:     snap.Remaining(now).Truncate(time.Second).String(),
		display:       cur.Format(snap.HighestBid),
	}
}

func (v AuctionView) String() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Auction %s\n", v.ID)
	fmt.Fprintf(&b, "  Seller:      %s\n", v.Seller)
	if v.Item != "" {
		fmt.Fprintf(&b, "  Item:        %s\n", v.Item)
	}
	fmt.Fprintf(&b, "  State:       %s\n", v.State)
	fmt.Fprintf(&b, "  Deadline:    %s (remaining %s)\n", v.Deadline.Format(time.RFC3339), v.Remaining)
	leader := v.HighestBidder
	if leader == "" {
		leader = "none"
	}
	fmt.Fprintf(&b, "  Highest bid: %s by %s (%d bids)", v.display, leader, v.Bids)
	return b.String()
}

// line renders v as one list row.
func (v AuctionView) line() string {
	leader := v.HighestBidder
	if leader == "" {
		leader = "-"
	}
	return fmt.Sprintf("%s  %-5s  %s  %s  %s", v.ID, v.State, v.Remaining, v.display, leader)
}

// EventView is one journal entry as the CLI prints it.
type EventView struct {
	Seq       int64     `json:"seq"`
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	AuctionID string    `json:"auction_id"`
	Identity  string    `json:"identity,omitempty"`
	Amount    int64     `json:"amount"`
	Caller    string    `json:"caller,omitempty"`
	At        time.Time `json:"at"`

	display string
}

func newEventView(ev ir.Event, cur money.Currency) EventView {
	return EventView{
		Seq:       ev.Seq,
		ID:        ev.ID,
		Kind:      string(ev.Kind),
		AuctionID: ev.AuctionID,
		Identity:  ev.Identity,
		Amount:    ev.Amount,
		Caller:    ev.Caller,
		At:        time.Unix(0, ev.At).UTC(),
		display:   cur.Format(ev.Amount),
	}
}

func (v EventView) String() string {
	s := fmt.Sprintf("#%d %s %s %s", v.Seq, v.At.Format(time.RFC3339), v.Kind, v.AuctionID)
	if v.Identity != "" {
		s += " " + v.Identity
	}
	if v.Kind != string(ir.KindAuctionCreated) {
		s += " " + v.display
	}
	return s
}

func eventViews(events []ir.Event, cur money.Currency) []EventView {
	views := make([]EventView, len(events))
	for i, ev := range events {
		views[i] = newEventView(ev, cur)
	}
	return views
}

func joinLines[T fmt.Stringer](items []T, empty string) string {
	if len(items) == 0 {
		return empty
	}
	lines := make([]string, len(items))
	for i, it := range items {
		lines[i] = it.String()
	}
	return strings.Join(lines, "\n")
}
