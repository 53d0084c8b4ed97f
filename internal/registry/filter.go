package registry

import (
	"fmt"
	"strings"
)

// Status selects auctions by whether they still accept bids.
type Status string

const (
	StatusAll   Status = "all"
	StatusOpen  Status = "open"  // not finalized and before the deadline
	StatusEnded Status = "ended" // finalized or past the deadline
)

// ParseStatus parses a --status flag value. Empty means all.
func ParseStatus(s string) (Status, error) {
	switch Status(strings.ToLower(strings.TrimSpace(s))) {
	case "", StatusAll:
		return StatusAll, nil
	case StatusOpen:
		return StatusOpen, nil
	case StatusEnded:
		return StatusEnded, nil
	}
	return "", fmt.Errorf("unknown status %q (want open, ended or all)", s)
}

// ListFiltered returns ids matching status in creation order, evaluated
// against the registry clock.
func (r *Registry) ListFiltered(status Status) []string {
	ids := r.List()
	if status == StatusAll || status == "" {
		return ids
	}

	now := r.clock.Now()
	out := ids[:0]
	for _, id := range ids {
		a, err := r.Get(id)
		if err != nil {
			continue
		}
		closed := a.Snapshot().Closed(now)
		if closed == (status == StatusEnded) {
			out = append(out, id)
		}
	}
	return out
}
