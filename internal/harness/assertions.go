package harness

import (
	"fmt"
	"strings"

	"github.com/roach88/gavel/internal/registry"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s %s %s %d\n", ev.Seq, ev.Kind, ev.AuctionID, ev.Identity, ev.Amount)
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to final state.
type AssertionContext struct {
	Registry *registry.Registry
	Refs     map[string]string
}

func (c *AssertionContext) auctionID(ref string) string {
	if id, ok := c.Refs[ref]; ok {
		return id
	}
	return ref
}

// EvaluateAssertions evaluates all assertions against the result.
// Returns a slice of error messages for failed assertions.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var errors []string

	for i, assertion := range assertions {
		var err error

		switch assertion.Type {
		case AssertTraceCount:
			err = assertTraceCount(result.Trace, assertion)
		case AssertTraceOrder:
			err = assertTraceOrder(result.Trace, assertion)
		case AssertPaid:
			err = assertPaid(result, assertion)
		case AssertBalance, AssertHighestBid, AssertHighestBidder, AssertState, AssertConservation:
			if actx == nil || actx.Registry == nil {
				err = fmt.Errorf("assertion[%d]: %s requires registry context", i, assertion.Type)
			} else {
				err = assertState(actx, assertion)
			}
		default:
			err = fmt.Errorf("assertion[%d]: unknown assertion type %q", i, assertion.Type)
		}

		if err != nil {
			errors = append(errors, err.Error())
		}
	}

	return errors
}

// assertTraceCount checks if events of a kind appear exactly Count times.
func assertTraceCount(trace []TraceEvent, assertion Assertion) error {
	count := 0
	for _, ev := range trace {
		if ev.Kind == assertion.Kind {
			count++
		}
	}

	if count != assertion.Count {
		return &AssertionError{
			Type:     AssertTraceCount,
			Expected: fmt.Sprintf("%d occurrences of %s", assertion.Count, assertion.Kind),
			Actual:   fmt.Sprintf("%d occurrences", count),
			Trace:    trace,
		}
	}
	return nil
}

// assertTraceOrder checks that the first occurrences of the kinds appear in
// the given order. Intervening events are allowed.
func assertTraceOrder(trace []TraceEvent, assertion Assertion) error {
	positions := make(map[string]int)
	for i, ev := range trace {
		if positions[ev.Kind] == 0 {
			positions[ev.Kind] = i + 1 // 1-indexed for readability
		}
	}

	for _, kind := range assertion.Kinds {
		if positions[kind] == 0 {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("all kinds present: %v", assertion.Kinds),
				Actual:   fmt.Sprintf("missing kind: %s", kind),
				Trace:    trace,
			}
		}
	}

	for i := 1; i < len(assertion.Kinds); i++ {
		prev := assertion.Kinds[i-1]
		curr := assertion.Kinds[i]
		if positions[prev] >= positions[curr] {
			return &AssertionError{
				Type:     AssertTraceOrder,
				Expected: fmt.Sprintf("kinds in order: %v", assertion.Kinds),
				Actual: fmt.Sprintf("%s (pos %d) should be before %s (pos %d)",
					prev, positions[prev], curr, positions[curr]),
				Trace: trace,
			}
		}
	}
	return nil
}

// assertPaid sums completed payouts to an identity across auctions.
func assertPaid(result *Result, assertion Assertion) error {
	var total int64
	for _, p := range result.Payouts {
		if p.To == assertion.Identity {
			total += p.Amount
		}
	}
	if total != *assertion.Equals {
		return &AssertionError{
			Type:     AssertPaid,
			Expected: fmt.Sprintf("%s paid %d", assertion.Identity, *assertion.Equals),
			Actual:   fmt.Sprintf("paid %d", total),
		}
	}
	return nil
}

// assertState checks auction state held by the registry.
func assertState(actx *AssertionContext, assertion Assertion) error {
	if assertion.Type == AssertConservation {
		return assertConservation(actx)
	}

	id := actx.auctionID(assertion.Auction)
	a, err := actx.Registry.Get(id)
	if err != nil {
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("auction %s exists", assertion.Auction),
			Actual:   err.Error(),
		}
	}
	snap := a.Snapshot()

	var expected, actual string
	switch assertion.Type {
	case AssertBalance:
		expected = fmt.Sprint(*assertion.Equals)
		actual = fmt.Sprint(a.BalanceOf(assertion.Identity))
	case AssertHighestBid:
		expected = fmt.Sprint(*assertion.Equals)
		actual = fmt.Sprint(snap.HighestBid)
	case AssertHighestBidder:
		expected = assertion.Value
		actual = snap.HighestBidder
	case AssertState:
		expected = assertion.Value
		actual = snap.State.String()
	}

	if expected != actual {
		subject := assertion.Auction
		if assertion.Identity != "" {
			subject += "/" + assertion.Identity
		}
		return &AssertionError{
			Type:     assertion.Type,
			Expected: fmt.Sprintf("%s = %q", subject, expected),
			Actual:   fmt.Sprintf("%q", actual),
		}
	}
	return nil
}

// assertConservation checks that no auction created or destroyed funds.
func assertConservation(actx *AssertionContext) error {
	for _, id := range actx.Registry.List() {
		a, err := actx.Registry.Get(id)
		if err != nil {
			return err
		}
		if h := a.Holdings(); !h.Balanced() {
			return &AssertionError{
				Type:     AssertConservation,
				Expected: fmt.Sprintf("%s: locked + owed == deposited - paid out", id),
				Actual:   fmt.Sprintf("%+v", h),
			}
		}
	}
	return nil
}
