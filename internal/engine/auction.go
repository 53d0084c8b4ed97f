package engine

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/roach88/gavel/internal/ir"
	"github.com/roach88/gavel/internal/ledger"
)

// State is the lifecycle state of an auction.
type State int

const (
	StateOpen State = iota
	StateEnded
)

// String returns "Open" or "Ended".
func (s State) String() string {
	if s == StateEnded {
		return "Ended"
	}
	return "Open"
}

// MarshalText renders the state name in JSON output.
func (s State) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// Listing is the immutable part of an auction supplied at creation.
type Listing struct {
	ID       string
	Seller   string
	Item     []byte // opaque, never parsed
	Deadline time.Time
}

// Settlement is the outcome of Finalize. Winner is empty when nobody bid.
type Settlement struct {
	Winner string `json:"winner,omitempty"`
	Amount int64  `json:"amount"`
}

// Auction is one independent escrow state machine.
type Auction struct {
	id        string
	seller    string
	item      []byte
	deadline  time.Time
	createdAt time.Time
	deps      Deps

	mu            sync.Mutex
	state         State
	highestBid    int64
	highestBidder string
	bids          int
	deposited     int64 // sum of every accepted bid
	paidOut       int64 // sum of completed withdrawals
	escrow        *ledger.Ledger
}

// Open creates an auction and journals its AuctionCreated event.
// deps should already have defaults applied.
func Open(ctx context.Context, l Listing, deps Deps) (*Auction, error) {
	if l.ID == "" {
		return nil, fmt.Errorf("open auction: id is required")
	}
	if l.Seller == "" {
		return nil, newError(CodeInvalidIdentity, l.ID, "", "seller identity is required")
	}

	now := deps.Clock.Now()
	if !now.Before(l.Deadline) {
		return nil, InvalidDuration("deadline %s is not after now %s", l.Deadline.Format(time.RFC3339Nano), now.Format(time.RFC3339Nano))
	}

	a := newAuction(l, now, deps)
	ev, err := a.record(ctx, ir.Event{
		Kind:     ir.KindAuctionCreated,
		Identity: l.Seller,
		Item:     l.Item,
		Deadline: l.Deadline.UnixNano(),
	}, now)
	if err != nil {
		return nil, err
	}
	a.notify(ev)
	return a, nil
}

func newAuction(l Listing, createdAt time.Time, deps Deps) *Auction {
	item := make([]byte, len(l.Item))
	copy(item, l.Item)
	return &Auction{
		id:        l.ID,
		seller:    l.Seller,
		item:      item,
		deadline:  l.Deadline,
		createdAt: createdAt,
		deps:      deps,
		state:     StateOpen,
		escrow:    ledger.New(),
	}
}

// ID returns the auction id.
func (a *Auction) ID() string { return a.id }

// Seller returns the seller identity.
func (a *Auction) Seller() string { return a.seller }

// Deadline returns the bidding deadline.
func (a *Auction) Deadline() time.Time { return a.deadline }

// PlaceBid makes bidder the leader at amount.
//
// Rejections, checked in order: INVALID_AMOUNT (amount <= 0),
// INVALID_IDENTITY (empty bidder), AUCTION_CLOSED (ended or now >= deadline),
// ALREADY_HIGHER_BID (amount <= highest bid). On success the previous
// leader's amount, if any, is credited to that leader's escrow balance. A
// bidder outbidding itself is treated like any other outbid party.
func (a *Auction) PlaceBid(ctx context.Context, bidder string, amount int64) error {
	if amount <= 0 {
		return newError(CodeInvalidAmount, a.id, bidder, "bid must be positive, got %d", amount)
	}
	if bidder == "" {
		return newError(CodeInvalidIdentity, a.id, "", "bidder identity is required")
	}

	a.mu.Lock()
	now := a.deps.Clock.Now()
	if a.state == StateEnded {
		a.mu.Unlock()
		return newError(CodeAuctionClosed, a.id, bidder, "auction already ended")
	}
	if !now.Before(a.deadline) {
		a.mu.Unlock()
		return newError(CodeAuctionClosed, a.id, bidder, "bidding closed at %s", a.deadline.Format(time.RFC3339Nano))
	}
	if amount <= a.highestBid {
		a.mu.Unlock()
		return newError(CodeAlreadyHigherBid, a.id, bidder, "bid %d does not exceed highest bid %d", amount, a.highestBid)
	}
	if _, err := ledger.Add(a.deposited, amount); err != nil {
		a.mu.Unlock()
		return fmt.Errorf("place bid on %s: %w", a.id, ErrOverflow)
	}

	ev, err := a.record(ctx, ir.Event{Kind: ir.KindBidPlaced, Identity: bidder, Amount: amount}, now)
	if err != nil {
		a.mu.Unlock()
		return err
	}
	err = a.applyBid(bidder, amount)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	a.notify(ev)
	return nil
}

// applyBid moves the previous leader's amount into escrow and installs the
// new leader. Caller holds a.mu and has validated the bid.
func (a *Auction) applyBid(bidder string, amount int64) error {
	if a.highestBidder != "" {
		if err := a.escrow.Credit(a.highestBidder, a.highestBid); err != nil {
			return fmt.Errorf("refund %s on %s: %w", a.highestBidder, a.id, err)
		}
	}
	a.deposited += amount
	a.highestBid = amount
	a.highestBidder = bidder
	a.bids++
	return nil
}

// Withdraw pays caller its full escrow balance and returns the amount paid.
//
// The balance is zeroed and the Withdrawn event journaled before the
// Transferer runs, outside the auction lock. A re-entrant Withdraw from
// inside the transfer therefore gets NOTHING_TO_WITHDRAW. If the transfer
// fails the balance is restored and the transfer error returned.
func (a *Auction) Withdraw(ctx context.Context, caller string) (int64, error) {
	if caller == "" {
		return 0, newError(CodeInvalidIdentity, a.id, "", "caller identity is required")
	}

	a.mu.Lock()
	owed := a.escrow.Balance(caller)
	if owed == 0 {
		a.mu.Unlock()
		return 0, newError(CodeNothingToWithdraw, a.id, caller, "no withdrawable balance")
	}
	ev, err := a.record(ctx, ir.Event{Kind: ir.KindWithdrawn, Identity: caller, Amount: owed}, a.deps.Clock.Now())
	if err != nil {
		a.mu.Unlock()
		return 0, err
	}
	a.applyWithdraw(caller)
	a.mu.Unlock()
	a.notify(ev)

	payout := ir.Payout{AuctionID: a.id, To: caller, Amount: owed, EventID: ev.ID}
	if err := a.deps.Transfers.Transfer(ctx, payout); err != nil {
		return 0, a.revertWithdrawal(ctx, payout, err)
	}
	return owed, nil
}

func (a *Auction) applyWithdraw(caller string) int64 {
	amount := a.escrow.Take(caller)
	a.paidOut += amount
	return amount
}

// revertWithdrawal restores a balance whose transfer failed. The revert is
// journaled even when ctx is already canceled.
func (a *Auction) revertWithdrawal(ctx context.Context, p ir.Payout, cause error) error {
	ctx = context.WithoutCancel(ctx)
	a.mu.Lock()
	ev, err := a.record(ctx, ir.Event{Kind: ir.KindWithdrawalReverted, Identity: p.To, Amount: p.Amount}, a.deps.Clock.Now())
	if err != nil {
		a.mu.Unlock()
		a.deps.Logger.Error("withdrawal journaled as paid but transfer failed",
			"auction", a.id,
			"identity", p.To,
			"amount", p.Amount,
			"event", p.EventID,
			"transfer_error", cause,
			"journal_error", err,
		)
		return fmt.Errorf("%w: transfer: %w; revert: %w", ErrUnreconciled, cause, err)
	}
	err = a.applyRevert(p.To, p.Amount)
	a.mu.Unlock()
	if err != nil {
		return err
	}

	a.notify(ev)
	a.deps.Logger.Warn("transfer failed, balance restored",
		"auction", a.id,
		"identity", p.To,
		"amount", p.Amount,
		"error", cause,
	)
	return fmt.Errorf("transfer %d to %s: %w", p.Amount, p.To, cause)
}

func (a *Auction) applyRevert(identity string, amount int64) error {
	if err := a.escrow.Credit(identity, amount); err != nil {
		return fmt.Errorf("restore %s on %s: %w", identity, a.id, err)
	}
	a.paidOut -= amount
	return nil
}

// Finalize ends the auction and credits the winning amount to the seller.
//
// Any identity may call it. Rejections: ALREADY_ENDED if already finalized,
// TOO_EARLY if now < deadline. With no bids the auction still ends and the
// seller is credited nothing.
func (a *Auction) Finalize(ctx context.Context, caller string) (Settlement, error) {
	a.mu.Lock()
	if a.state == StateEnded {
		a.mu.Unlock()
		return Settlement{}, newError(CodeAlreadyEnded, a.id, caller, "auction already finalized")
	}
	now := a.deps.Clock.Now()
	if now.Before(a.deadline) {
		a.mu.Unlock()
		return Settlement{}, newError(CodeTooEarly, a.id, caller, "deadline %s not reached", a.deadline.Format(time.RFC3339Nano))
	}

	s := Settlement{Winner: a.highestBidder, Amount: a.highestBid}
	ev, err := a.record(ctx, ir.Event{
		Kind:     ir.KindAuctionFinalized,
		Identity: s.Winner,
		Amount:   s.Amount,
		Caller:   caller,
	}, now)
	if err != nil {
		a.mu.Unlock()
		return Settlement{}, err
	}
	err = a.applyFinalize()
	a.mu.Unlock()
	if err != nil {
		return Settlement{}, err
	}

	a.notify(ev)
	return s, nil
}

func (a *Auction) applyFinalize() error {
	a.state = StateEnded
	if a.highestBidder == "" {
		return nil
	}
	if err := a.escrow.Credit(a.seller, a.highestBid); err != nil {
		return fmt.Errorf("settle %s: %w", a.id, err)
	}
	return nil
}

// BalanceOf returns identity's withdrawable amount.
func (a *Auction) BalanceOf(identity string) int64 {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.escrow.Balance(identity)
}

// Escrow returns all non-zero balances sorted by identity.
func (a *Auction) Escrow() []ledger.Entry {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.escrow.Entries()
}

// Snapshot is a point-in-time copy of an auction's readable state.
type Snapshot struct {
	ID            string    `json:"id"`
	Seller        string    `json:"seller"`
	Item          []byte    `json:"item,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	Deadline      time.Time `json:"deadline"`
	HighestBid    int64     `json:"highest_bid"`
	HighestBidder string    `json:"highest_bidder,omitempty"`
	State         State     `json:"state"`
	Bids          int       `json:"bids"`
}

// Closed reports whether bidding is over at now, finalized or not.
func (s Snapshot) Closed(now time.Time) bool {
	return s.State == StateEnded || !now.Before(s.Deadline)
}

// Remaining returns the time left to bid at now, or 0 once closed.
func (s Snapshot) Remaining(now time.Time) time.Duration {
	if s.Closed(now) {
		return 0
	}
	return s.Deadline.Sub(now)
}

// Snapshot returns a copy of the auction's state.
func (a *Auction) Snapshot() Snapshot {
	a.mu.Lock()
	defer a.mu.Unlock()
	item := make([]byte, len(a.item))
	copy(item, a.item)
	return Snapshot{
		ID:            a.id,
		Seller:        a.seller,
		Item:          item,
		CreatedAt:     a.createdAt,
		Deadline:      a.deadline,
		HighestBid:    a.highestBid,
		HighestBidder: a.highestBidder,
		State:         a.state,
		Bids:          a.bids,
	}
}

// Holdings summarizes where an auction's funds sit.
type Holdings struct {
	Locked    int64 `json:"locked"`    // highest bid while open
	Owed      int64 `json:"owed"`      // sum of escrow balances
	Deposited int64 `json:"deposited"` // sum of accepted bids
	PaidOut   int64 `json:"paid_out"`  // sum of completed withdrawals
}

// Balanced reports whether no value was created or destroyed:
// locked + owed == deposited - paid out.
func (h Holdings) Balanced() bool {
	return h.Locked+h.Owed == h.Deposited-h.PaidOut
}

// Holdings returns the auction's current fund breakdown.
func (a *Auction) Holdings() Holdings {
	a.mu.Lock()
	defer a.mu.Unlock()
	h := Holdings{
		Owed:      a.escrow.Total(),
		Deposited: a.deposited,
		PaidOut:   a.paidOut,
	}
	if a.state == StateOpen {
		h.Locked = a.highestBid
	}
	return h
}

// record stamps, seals and journals ev. Caller holds a.mu (or owns a not yet
// published auction). Seq assignment and append happen under the shared
// sequence's commit lock, so the journal is written in seq order across
// auctions.
func (a *Auction) record(ctx context.Context, ev ir.Event, now time.Time) (ir.Event, error) {
	ev.AuctionID = a.id
	ev.At = now.UnixNano()

	var sealed ir.Event
	err := a.deps.Seq.Commit(func(seq int64) error {
		ev.Seq = seq
		var err error
		if sealed, err = ir.Seal(ev); err != nil {
			return fmt.Errorf("seal %s: %w", ev.Kind, err)
		}
		if err := a.deps.Journal.Append(ctx, sealed); err != nil {
			return fmt.Errorf("journal %s for %s: %w", ev.Kind, a.id, err)
		}
		return nil
	})
	if err != nil {
		return ir.Event{}, err
	}
	return sealed, nil
}

func (a *Auction) notify(ev ir.Event) {
	for _, l := range a.deps.Listeners {
		l(ev)
	}
}
