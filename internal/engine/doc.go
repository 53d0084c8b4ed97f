// Package engine implements the per-auction escrow state machine.
//
// An Auction accepts strictly increasing bids until its deadline, keeps the
// current leader's amount locked, and credits every outbid amount to a
// pull-payment ledger. After the deadline anyone may finalize it, which moves
// the winning amount into the seller's withdrawable balance.
//
// # Ordering
//
// Each Auction owns one mutex. PlaceBid, Withdraw and Finalize on the same
// auction are serialized by it; different auctions share nothing. Every
// operation validates first, then appends its event to the Journal, then
// mutates memory. A failed append leaves the auction untouched.
//
// # Time
//
// The engine never reads wall time. Deadlines are compared against the
// injected Clock, and events are stamped with a logical seq from Sequence.
//
// # Withdrawals
//
// Withdraw zeroes the caller's balance and journals the withdrawal before
// releasing the lock and calling the Transferer. The transfer is the only
// point where control passes to code outside the engine; a re-entrant
// Withdraw during it sees a zero balance. If the transfer fails the amount is
// re-credited and a WithdrawalReverted event is journaled.
//
// Listeners are notified after the lock is released, so they may call back
// into the auction. Notification order across goroutines follows lock
// acquisition but is not otherwise guaranteed; use Event.Seq to order.
package engine
