package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/text/cases"

	"github.com/roach88/gavel/internal/ir"
	"github.com/roach88/gavel/internal/money"
	"github.com/roach88/gavel/internal/registry"
)

// NewShowCommand creates the show command.
func NewShowCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <auction-id>",
		Short: "Show an auction",
		Long:  `Print the seller, item, state, deadline with time remaining, and the current highest bid.`,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(_ context.Context, s *session) error {
				a, err := s.auction(args[0])
				if err != nil {
					return err
				}
				return s.out.Success(newAuctionView(a.Snapshot(), s.reg.Now(), s.cfg.Currency))
			})
		},
	}
}

// ListResult is the output of the list command.
type ListResult struct {
	Status   registry.Status `json:"status"`
	Search   string          `json:"search,omitempty"`
	Auctions []AuctionView   `json:"auctions"`
}

func (r ListResult) String() string {
	if len(r.Auctions) == 0 {
		return "No auctions found."
	}
	lines := make([]string, len(r.Auctions))
	for i, v := range r.Auctions {
		lines[i] = v.line()
	}
	return strings.Join(lines, "\n")
}

// NewListCommand creates the list command.
func NewListCommand(rootOpts *RootOptions) *cobra.Command {
	var status, search string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List auctions in creation order",
		Long: `List auctions in creation order.

--status open shows auctions still accepting bids, --status ended those that
were finalized or whose deadline has passed. --search keeps auctions whose
item name contains the term, ignoring case.

Examples:
  gavel list --status open
  gavel list --search lamp`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(_ context.Context, s *session) error {
				st, err := registry.ParseStatus(status)
				if err != nil {
					return s.out.Fail("parse --status", err)
				}
				now := s.reg.Now()
				match := nameMatcher(search)
				result := ListResult{Status: st, Search: search, Auctions: []AuctionView{}}
				for _, id := range s.reg.ListFiltered(st) {
					a, err := s.reg.Get(id)
					if err != nil {
						return s.out.Fail("list auctions", err)
					}
					if !match(a.Snapshot().Item) {
						continue
					}
					result.Auctions = append(result.Auctions, newAuctionView(a.Snapshot(), now, s.cfg.Currency))
				}
				return s.out.Success(result)
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "all", "filter by status (open|ended|all)")
	cmd.Flags().StringVar(&search, "search", "", "only auctions whose item name contains this text")

	return cmd
}

// nameMatcher returns a case-insensitive substring match on item names. An
// empty term matches every auction, including those without a name.
func nameMatcher(term string) func(item []byte) bool {
	fold := cases.Fold()
	want := fold.String(strings.TrimSpace(term))
	if want == "" {
		return func([]byte) bool { return true }
	}
	return func(item []byte) bool {
		return strings.Contains(fold.String(itemName(item)), want)
	}
}

// BalanceResult is the output of the balance command.
type BalanceResult struct {
	AuctionID string `json:"auction_id"`
	Identity  string `json:"identity"`
	Owed      int64  `json:"owed"`
	PaidTotal int64  `json:"paid_total"` // across all auctions

	cur money.Currency
}

func (r BalanceResult) String() string {
	return fmt.Sprintf("%s may withdraw %s from %s (paid so far across auctions: %s)",
		r.Identity, r.cur.Format(r.Owed), r.AuctionID, r.cur.Format(r.PaidTotal))
}

// NewBalanceCommand creates the balance command.
func NewBalanceCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance <auction-id> <identity>",
		Short: "Show a withdrawable balance",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				owed, err := s.reg.BalanceOf(args[0], args[1])
				if err != nil {
					return s.out.Fail("balance", err)
				}
				paid, err := s.store.PaidTo(ctx, args[1])
				if err != nil {
					return s.out.Fail("balance", err)
				}
				return s.out.Success(BalanceResult{
					AuctionID: args[0],
					Identity:  args[1],
					Owed:      owed,
					PaidTotal: paid,
					cur:       s.cfg.Currency,
				})
			})
		},
	}
}

// HistoryResult is the output of the history command.
type HistoryResult struct {
	AuctionID string      `json:"auction_id"`
	Events    []EventView `json:"events"`
	Payouts   []ir.Payout `json:"payouts"`
}

func (r HistoryResult) String() string {
	s := joinLines(r.Events, "No events.")
	for _, p := range r.Payouts {
		s += fmt.Sprintf("\npaid %d to %s (event %s)", p.Amount, p.To, p.EventID)
	}
	return s
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	var bidsOnly bool

	cmd := &cobra.Command{
		Use:   "history <auction-id>",
		Short: "Show an auction's journal and payouts",
		Long: `Print every journaled event of one auction in order, followed by the
payouts recorded for it. --bids restricts the output to the bid history.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				a, err := s.auction(args[0])
				if err != nil {
					return err
				}

				var events []ir.Event
				if bidsOnly {
					events, err = s.store.ReadBids(ctx, a.ID())
				} else {
					events, err = s.store.ReadAuctionEvents(ctx, a.ID())
				}
				if err != nil {
					return s.out.Fail("read history", err)
				}

				payouts := []ir.Payout{}
				if !bidsOnly {
					if payouts, err = s.store.ReadTransfers(ctx, a.ID()); err != nil {
						return s.out.Fail("read payouts", err)
					}
				}
				return s.out.Success(HistoryResult{
					AuctionID: a.ID(),
					Events:    eventViews(events, s.cfg.Currency),
					Payouts:   payouts,
				})
			})
		},
	}

	cmd.Flags().BoolVar(&bidsOnly, "bids", false, "show only BidPlaced events")

	return cmd
}

// EventsResult is the output of the events command.
type EventsResult struct {
	Events  []EventView `json:"events"`
	LastSeq int64       `json:"last_seq"`
}

func (r EventsResult) String() string {
	return joinLines(r.Events, "No events.")
}

// NewEventsCommand creates the events command.
func NewEventsCommand(rootOpts *RootOptions) *cobra.Command {
	var since int64
	var limit int

	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail the event journal",
		Long: `Print journal events with seq greater than --since, oldest first.

Feed the reported last_seq back as --since to resume.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				if since < 0 {
					return s.out.Fail("read events", fmt.Errorf("--since must not be negative, got %d", since))
				}
				events, err := s.store.ReadEventsSince(ctx, since, limit)
				if err != nil {
					return s.out.Fail("read events", err)
				}
				last := since
				if len(events) > 0 {
					last = events[len(events)-1].Seq
				}
				return s.out.Success(EventsResult{
					Events:  eventViews(events, s.cfg.Currency),
					LastSeq: last,
				})
			})
		},
	}

	cmd.Flags().Int64Var(&since, "since", 0, "only events with seq greater than this")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events (0 = all)")

	return cmd
}
