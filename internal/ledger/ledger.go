// Package ledger tracks per-auction pull-payment balances.
//
// A Ledger maps an identity to the amount it may withdraw. Balances only grow
// through Credit and only shrink through Take, which hands back the whole
// balance and zeroes it in the same step. That pairing is what makes a payout
// happen at most once per accumulated balance.
//
// Ledger is not safe for concurrent use. The owning auction serializes access.
package ledger

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// ErrOverflow is returned when a credit would exceed the int64 range.
var ErrOverflow = errors.New("ledger: balance overflow")

// Entry is one identity's withdrawable balance.
type Entry struct {
	Identity string `json:"identity"`
	Owed     int64  `json:"owed"`
}

// Ledger holds owed balances for one auction.
type Ledger struct {
	owed  map[string]int64
	total int64
}

// New returns an empty ledger.
func New() *Ledger {
	return &Ledger{owed: make(map[string]int64)}
}

// Credit adds amount to identity's balance. Non-positive amounts are rejected.
// The ledger is unchanged when an error is returned.
func (l *Ledger) Credit(identity string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("ledger: credit must be positive, got %d", amount)
	}
	next, err := Add(l.owed[identity], amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", identity, err)
	}
	total, err := Add(l.total, amount)
	if err != nil {
		return fmt.Errorf("credit %s: %w", identity, err)
	}
	l.owed[identity] = next
	l.total = total
	return nil
}

// Take returns identity's full balance and resets it to zero.
// A second Take without an intervening Credit returns 0.
func (l *Ledger) Take(identity string) int64 {
	amount := l.owed[identity]
	if amount == 0 {
		return 0
	}
	delete(l.owed, identity)
	l.total -= amount
	return amount
}

// Balance returns identity's current withdrawable amount.
func (l *Ledger) Balance(identity string) int64 {
	return l.owed[identity]
}

// Total returns the sum of all outstanding balances.
func (l *Ledger) Total() int64 {
	return l.total
}

// Entries returns all non-zero balances sorted by identity.
func (l *Ledger) Entries() []Entry {
	entries := make([]Entry, 0, len(l.owed))
	for id, owed := range l.owed {
		entries = append(entries, Entry{Identity: id, Owed: owed})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Identity < entries[j].Identity
	})
	return entries
}

// Add returns a+b or ErrOverflow. Amounts in this package are never negative,
// so only the upper bound is checked.
func Add(a, b int64) (int64, error) {
	if b > 0 && a > math.MaxInt64-b {
		return 0, ErrOverflow
	}
	return a + b, nil
}
