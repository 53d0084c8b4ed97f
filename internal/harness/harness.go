package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/gavel/internal/engine"
	"github.com/roach88/gavel/internal/ir"
	"github.com/roach88/gavel/internal/registry"
	"github.com/roach88/gavel/internal/store"
	"github.com/roach88/gavel/internal/testutil"
)

// errTransferRejected is what payouts return while fail_transfers is on.
var errTransferRejected = errors.New("transfer rejected by recipient")

// Harness executes one scenario.
type Harness struct {
	store  *store.Store
	reg    *registry.Registry
	clock  *testutil.FakeClock
	logger *slog.Logger

	refs          map[string]string // scenario reference -> auction id
	failTransfers bool
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation. An error
// is returned only when the harness itself cannot run; failed expectations
// are reported in Result.Errors.
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	h := &Harness{
		store:  st,
		clock:  testutil.NewFakeClock(),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
		refs:   make(map[string]string),
	}
	h.reg = registry.New(
		registry.WithClock(h.clock),
		registry.WithJournal(st),
		registry.WithTransferer(h),
		registry.WithIDGenerator(testutil.NewSequentialIDs("auction")),
		registry.WithLogger(h.logger),
	)

	ctx := context.Background()
	result := NewResult()

	for i, step := range scenario.Steps {
		if err := h.execute(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("step %d (%s): %w", i, step.Action, err)
		}
	}

	events, err := st.ReadEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("read trace: %w", err)
	}
	for _, ev := range events {
		result.Trace = append(result.Trace, traceEvent(ev))
	}

	payouts, err := st.ReadTransfers(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("read payouts: %w", err)
	}
	result.Payouts = payouts

	actx := &AssertionContext{Registry: h.reg, Refs: h.refs}
	for _, errMsg := range EvaluateAssertions(result, scenario.Assertions, actx) {
		result.AddError(errMsg)
	}

	return result, nil
}

// Transfer records the payout in the store unless transfers are failing.
func (h *Harness) Transfer(ctx context.Context, p ir.Payout) error {
	if h.failTransfers {
		return errTransferRejected
	}
	return h.store.Transfer(ctx, p)
}

// execute runs one step and compares its outcome with step.Expect.
func (h *Harness) execute(ctx context.Context, i int, step Step, result *Result) error {
	var opErr error

	switch step.Action {
	case ActionCreate:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		var a *engine.Auction
		a, opErr = h.reg.Create(ctx, step.Identity, []byte(step.Item), d)
		if opErr == nil {
			h.refs[step.Auction] = a.ID()
		}

	case ActionBid, ActionWithdraw, ActionFinalize:
		a, err := h.auction(step.Auction)
		if err != nil {
			return err
		}
		switch step.Action {
		case ActionBid:
			opErr = a.PlaceBid(ctx, step.Identity, step.Amount)
		case ActionWithdraw:
			_, opErr = a.Withdraw(ctx, step.Identity)
		case ActionFinalize:
			_, opErr = a.Finalize(ctx, step.Identity)
		}

	case ActionAdvance:
		d, err := time.ParseDuration(step.Duration)
		if err != nil {
			return err
		}
		h.clock.Advance(d)
		return nil

	case ActionFailTransfers:
		h.failTransfers = step.Fail
		return nil

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	got := outcome(opErr)
	if got == "" && opErr != nil {
		// Not a rejection or a payout failure: the journal broke.
		return opErr
	}
	if got != step.Expect {
		want := step.Expect
		if want == "" {
			want = "success"
		}
		if got == "" {
			got = "success"
		}
		result.AddError(fmt.Sprintf("steps[%d] %s %s: expected %s, got %s", i, step.Action, step.Auction, want, got))
	}

	h.logger.Debug("step completed", "step", i, "action", step.Action, "auction", step.Auction, "outcome", got)
	return nil
}

// auction resolves a scenario reference.
func (h *Harness) auction(ref string) (*engine.Auction, error) {
	id, ok := h.refs[ref]
	if !ok {
		return nil, fmt.Errorf("auction %q was never created", ref)
	}
	return h.reg.Get(id)
}

// outcome names an operation result the way Step.Expect spells it.
func outcome(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, errTransferRejected):
		return ExpectTransferFailed
	}
	return string(engine.CodeOf(err))
}
