package harness

import "github.com/roach88/gavel/internal/ir"

// TraceEvent is the golden-relevant view of one journaled event.
type TraceEvent struct {
	Seq       int64  `json:"seq"`
	Kind      string `json:"kind"`
	AuctionID string `json:"auction_id"`
	Identity  string `json:"identity,omitempty"`
	Caller    string `json:"caller,omitempty"`
	Amount    int64  `json:"amount"`
}

func traceEvent(ev ir.Event) TraceEvent {
	return TraceEvent{
		Seq:       ev.Seq,
		Kind:      string(ev.Kind),
		AuctionID: ev.AuctionID,
		Identity:  ev.Identity,
		Caller:    ev.Caller,
		Amount:    ev.Amount,
	}
}

// Result is the outcome of a scenario execution.
type Result struct {
	// Pass is true when every step met its expectation and every assertion
	// held.
	Pass bool `json:"pass"`

	// Trace is the journal in seq order.
	Trace []TraceEvent `json:"trace"`

	// Payouts are the transfers that completed.
	Payouts []ir.Payout `json:"payouts"`

	// Errors describes every failed expectation. Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`
}

// NewResult creates a new passing result.
func NewResult() *Result {
	return &Result{
		Pass:    true,
		Trace:   []TraceEvent{},
		Payouts: []ir.Payout{},
		Errors:  []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}
