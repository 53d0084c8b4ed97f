package ir

import (
	"encoding/base64"
	"fmt"
)

// EventKind names a journal event.
type EventKind string

const (
	KindAuctionCreated     EventKind = "AuctionCreated"
	KindBidPlaced          EventKind = "BidPlaced"
	KindAuctionFinalized   EventKind = "AuctionFinalized"
	KindWithdrawn          EventKind = "Withdrawn"
	KindWithdrawalReverted EventKind = "WithdrawalReverted"
)

// ValidKinds lists every kind the journal accepts.
var ValidKinds = map[EventKind]bool{
	KindAuctionCreated:     true,
	KindBidPlaced:          true,
	KindAuctionFinalized:   true,
	KindWithdrawn:          true,
	KindWithdrawalReverted: true,
}

// Event is one committed state change of one auction.
//
// Identity depends on Kind: the seller for AuctionCreated, the bidder for
// BidPlaced, the winner for AuctionFinalized (empty when nobody bid), and the
// paid identity for Withdrawn and WithdrawalReverted.
type Event struct {
	ID        string    `json:"id"`
	Seq       int64     `json:"seq"`
	Kind      EventKind `json:"kind"`
	AuctionID string    `json:"auction_id"`
	Identity  string    `json:"identity,omitempty"`
	Amount    int64     `json:"amount"`
	Caller    string    `json:"caller,omitempty"`   // AuctionFinalized only
	Item      []byte    `json:"item,omitempty"`     // AuctionCreated only, opaque
	Deadline  int64     `json:"deadline,omitempty"` // AuctionCreated only, unix nanos
	At        int64     `json:"at"`                 // clock time, unix nanos
}

// Object returns the canonical form of the event without its ID.
func (e Event) Object() Object {
	obj := Object{
		"seq":        Int(e.Seq),
		"kind":       String(e.Kind),
		"auction_id": String(e.AuctionID),
		"amount":     Int(e.Amount),
		"at":         Int(e.At),
	}
	if e.Identity != "" {
		obj["identity"] = String(e.Identity)
	}
	if e.Caller != "" {
		obj["caller"] = String(e.Caller)
	}
	if len(e.Item) > 0 {
		obj["item"] = String(base64.StdEncoding.EncodeToString(e.Item))
	}
	if e.Deadline != 0 {
		obj["deadline"] = Int(e.Deadline)
	}
	return obj
}

// Validate checks the fields every event must carry.
func (e Event) Validate() error {
	if !ValidKinds[e.Kind] {
		return fmt.Errorf("unknown event kind %q", e.Kind)
	}
	if e.AuctionID == "" {
		return fmt.Errorf("%s: auction id is required", e.Kind)
	}
	if e.Seq <= 0 {
		return fmt.Errorf("%s: seq must be positive, got %d", e.Kind, e.Seq)
	}
	if e.Amount < 0 {
		return fmt.Errorf("%s: negative amount %d", e.Kind, e.Amount)
	}
	return nil
}

// Payout is a single outbound transfer of withdrawn funds.
// EventID references the Withdrawn event that authorised it.
type Payout struct {
	AuctionID string `json:"auction_id"`
	To        string `json:"to"`
	Amount    int64  `json:"amount"`
	EventID   string `json:"event_id"`
}
