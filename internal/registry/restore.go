package registry

import (
	"fmt"

	"github.com/roach88/gavel/internal/engine"
	"github.com/roach88/gavel/internal/ir"
)

// Restore rebuilds auctions from journaled events in seq order. Nothing is
// journaled, transferred or sent to listeners. The shared sequence resumes
// after the highest seq seen.
//
// Events must be strictly increasing by seq. Restoring an auction whose id
// already exists in the registry is an error.
func (r *Registry) Restore(events []ir.Event) error {
	r.createMu.Lock()
	defer r.createMu.Unlock()

	var last int64
	for _, ev := range events {
		if ev.Seq <= last {
			return fmt.Errorf("%w: seq %d follows %d", engine.ErrCorruptJournal, ev.Seq, last)
		}
		last = ev.Seq

		if ev.Kind == ir.KindAuctionCreated {
			if _, err := r.Get(ev.AuctionID); err == nil {
				return fmt.Errorf("%w: auction %s created twice (seq %d)", engine.ErrCorruptJournal, ev.AuctionID, ev.Seq)
			}
			a, err := engine.Restore(ev, r.deps)
			if err != nil {
				return err
			}
			r.insert(a)
			continue
		}

		a, err := r.Get(ev.AuctionID)
		if err != nil {
			return fmt.Errorf("%w: %s seq %d for unknown auction %s", engine.ErrCorruptJournal, ev.Kind, ev.Seq, ev.AuctionID)
		}
		if err := a.Apply(ev); err != nil {
			return err
		}
	}

	r.log.Debug("registry restored", "events", len(events), "auctions", r.Len(), "seq", r.deps.Seq.Current())
	return nil
}
