package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/roach88/gavel/internal/ir"
)

// CreateOptions holds flags for the create command.
type CreateOptions struct {
	*RootOptions
	Seller      string
	Name        string
	Description string
	Image       string
	Duration    time.Duration
}

// NewCreateCommand creates the create command.
func NewCreateCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &CreateOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "create",
		Short: "List an item for auction",
		Long: `Open a new auction owned by --seller that accepts bids for --duration.

The item name, description and image reference are stored as an opaque
JSON payload; the engine never interprets them.

Examples:
  gavel create --seller alice --name "Brass lamp" --duration 72h
  gavel create --seller alice --name Print --image ipfs://bafy... --duration 30m --format json`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(opts.RootOptions, cmd, func(ctx context.Context, s *session) error {
				return runCreate(ctx, s, opts)
			})
		},
	}

	cmd.Flags().StringVar(&opts.Seller, "seller", "", "seller identity (required)")
	cmd.Flags().StringVar(&opts.Name, "name", "", "item name")
	cmd.Flags().StringVar(&opts.Description, "description", "", "item description")
	cmd.Flags().StringVar(&opts.Image, "image", "", "item image reference")
	cmd.Flags().DurationVar(&opts.Duration, "duration", 0, "bidding duration, e.g. 24h (required)")
	_ = cmd.MarkFlagRequired("seller")
	_ = cmd.MarkFlagRequired("duration")

	return cmd
}

// itemPayload encodes the item fields as canonical JSON, omitting empty ones.
func itemPayload(name, description, image string) ([]byte, error) {
	fields := map[string]any{}
	if name != "" {
		fields["name"] = name
	}
	if description != "" {
		fields["description"] = description
	}
	if image != "" {
		fields["image"] = image
	}
	if len(fields) == 0 {
		return nil, nil
	}
	return ir.MarshalCanonical(fields)
}

// itemName returns the name field of an item payload written by create, or ""
// for payloads without one.
func itemName(item []byte) string {
	var fields struct {
		Name string `json:"name"`
	}
	if len(item) == 0 || json.Unmarshal(item, &fields) != nil {
		return ""
	}
	return fields.Name
}

func runCreate(ctx context.Context, s *session, opts *CreateOptions) error {
	item, err := itemPayload(opts.Name, opts.Description, opts.Image)
	if err != nil {
		return s.out.Fail("encode item", err)
	}

	a, err := s.reg.Create(ctx, opts.Seller, item, opts.Duration)
	if err != nil {
		return s.out.Fail("create auction", err)
	}
	s.out.VerboseLog("created %s, bidding closes %s", a.ID(), a.Deadline().Format(time.RFC3339))
	return s.out.Success(newAuctionView(a.Snapshot(), s.reg.Now(), s.cfg.Currency))
}

// BidResult is printed after an accepted bid.
type BidResult struct {
	AuctionID string `json:"auction_id"`
	Bidder    string `json:"bidder"`
	Amount    int64  `json:"amount"`
	Display   string `json:"display"`
}

func (r BidResult) String() string {
	return fmt.Sprintf("%s leads %s at %s", r.Bidder, r.AuctionID, r.Display)
}

// NewBidCommand creates the bid command.
func NewBidCommand(rootOpts *RootOptions) *cobra.Command {
	var bidder, amount string

	cmd := &cobra.Command{
		Use:   "bid <auction-id>",
		Short: "Place a bid",
		Long: `Bid on an open auction. The bid must exceed the current highest bid;
the previous leader's amount becomes withdrawable.

Amounts are decimal numbers of the configured currency and may carry its
symbol ("1.5", "1.5 ETH").

Examples:
  gavel bid 0192f3c1-... --bidder bob --amount 1.25`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				units, err := s.cfg.Currency.Parse(amount)
				if err != nil {
					return s.out.Fail("parse amount", err)
				}
				a, err := s.auction(args[0])
				if err != nil {
					return err
				}
				if err := a.PlaceBid(ctx, bidder, units); err != nil {
					return s.out.Fail("place bid", err)
				}
				return s.out.Success(BidResult{
					AuctionID: a.ID(),
					Bidder:    bidder,
					Amount:    units,
					Display:   s.cfg.Currency.Format(units),
				})
			})
		},
	}

	cmd.Flags().StringVar(&bidder, "bidder", "", "bidder identity (required)")
	cmd.Flags().StringVar(&amount, "amount", "", "bid amount (required)")
	_ = cmd.MarkFlagRequired("bidder")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

// WithdrawResult is printed after a completed payout.
type WithdrawResult struct {
	AuctionID string `json:"auction_id"`
	Identity  string `json:"identity"`
	Amount    int64  `json:"amount"`
	Display   string `json:"display"`
}

func (r WithdrawResult) String() string {
	return fmt.Sprintf("paid %s to %s from %s", r.Display, r.Identity, r.AuctionID)
}

// NewWithdrawCommand creates the withdraw command.
func NewWithdrawCommand(rootOpts *RootOptions) *cobra.Command {
	var identity string

	cmd := &cobra.Command{
		Use:   "withdraw <auction-id>",
		Short: "Withdraw an escrow balance",
		Long: `Pay out everything --identity is owed by the auction: outbid amounts
for bidders, the winning bid for the seller once finalized.

The payout is recorded in the transfers table. Withdrawing with nothing
owed fails with NOTHING_TO_WITHDRAW.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				a, err := s.auction(args[0])
				if err != nil {
					return err
				}
				paid, err := a.Withdraw(ctx, identity)
				if err != nil {
					return s.out.Fail("withdraw", err)
				}
				return s.out.Success(WithdrawResult{
					AuctionID: a.ID(),
					Identity:  identity,
					Amount:    paid,
					Display:   s.cfg.Currency.Format(paid),
				})
			})
		},
	}

	cmd.Flags().StringVar(&identity, "identity", "", "identity to pay (required)")
	_ = cmd.MarkFlagRequired("identity")

	return cmd
}

// FinalizeResult is printed after an auction ends.
type FinalizeResult struct {
	AuctionID string `json:"auction_id"`
	Seller    string `json:"seller"`
	Winner    string `json:"winner,omitempty"`
	Amount    int64  `json:"amount"`
	Display   string `json:"display"`
}

func (r FinalizeResult) String() string {
	if r.Winner == "" {
		return fmt.Sprintf("%s ended without bids", r.AuctionID)
	}
	return fmt.Sprintf("%s won by %s at %s; %s may now withdraw", r.AuctionID, r.Winner, r.Display, r.Seller)
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(rootOpts *RootOptions) *cobra.Command {
	var caller string

	cmd := &cobra.Command{
		Use:   "finalize <auction-id>",
		Short: "End an auction after its deadline",
		Long: `End the auction and credit the winning bid to the seller's escrow.

Anyone may finalize once the deadline has passed. Finalizing early fails
with TOO_EARLY, finalizing twice with ALREADY_ENDED.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(rootOpts, cmd, func(ctx context.Context, s *session) error {
				a, err := s.auction(args[0])
				if err != nil {
					return err
				}
				settled, err := a.Finalize(ctx, caller)
				if err != nil {
					return s.out.Fail("finalize", err)
				}
				return s.out.Success(FinalizeResult{
					AuctionID: a.ID(),
					Seller:    a.Seller(),
					Winner:    settled.Winner,
					Amount:    settled.Amount,
					Display:   s.cfg.Currency.Format(settled.Amount),
				})
			})
		},
	}

	cmd.Flags().StringVar(&caller, "caller", "", "identity finalizing the auction (recorded in the journal)")

	return cmd
}
