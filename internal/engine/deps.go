package engine

import (
	"context"
	"log/slog"
	"sync"

	"github.com/roach88/gavel/internal/ir"
)

// Journal durably records events before they take effect.
// Append must either persist the event or return an error.
type Journal interface {
	Append(ctx context.Context, ev ir.Event) error
}

// Transferer pays withdrawn funds to their owner. It is the single point where
// control leaves the engine and may re-enter it.
type Transferer interface {
	Transfer(ctx context.Context, p ir.Payout) error
}

// TransferFunc adapts a function to Transferer.
type TransferFunc func(ctx context.Context, p ir.Payout) error

// Transfer calls f.
func (f TransferFunc) Transfer(ctx context.Context, p ir.Payout) error {
	return f(ctx, p)
}

// Listener observes committed events. Listeners must not block.
type Listener func(ev ir.Event)

// Deps are the collaborators shared by every auction of one registry.
type Deps struct {
	Clock     Clock
	Seq       *Sequence
	Journal   Journal
	Transfers Transferer
	Listeners []Listener
	Logger    *slog.Logger
}

// WithDefaults fills unset collaborators: system clock, fresh sequence,
// in-memory journal, a transferer that only logs, and the default logger.
func (d Deps) WithDefaults() Deps {
	if d.Clock == nil {
		d.Clock = SystemClock{}
	}
	if d.Seq == nil {
		d.Seq = NewSequence()
	}
	if d.Journal == nil {
		d.Journal = NewMemoryJournal()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Transfers == nil {
		logger := d.Logger
		d.Transfers = TransferFunc(func(_ context.Context, p ir.Payout) error {
			logger.Debug("payout", "auction", p.AuctionID, "to", p.To, "amount", p.Amount)
			return nil
		})
	}
	return d
}

// MemoryJournal keeps events in memory. Safe for concurrent use.
type MemoryJournal struct {
	mu     sync.Mutex
	events []ir.Event
}

// NewMemoryJournal returns an empty journal.
func NewMemoryJournal() *MemoryJournal {
	return &MemoryJournal{}
}

// Append records ev.
func (j *MemoryJournal) Append(_ context.Context, ev ir.Event) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.events = append(j.events, ev)
	return nil
}

// Events returns a copy of all recorded events in append order.
func (j *MemoryJournal) Events() []ir.Event {
	j.mu.Lock()
	defer j.mu.Unlock()
	out := make([]ir.Event, len(j.events))
	copy(out, j.events)
	return out
}
