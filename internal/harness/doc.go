// Package harness runs auction scenarios written in YAML against a real
// registry and an in-memory SQLite journal, then checks assertions and
// optionally compares the event trace against a golden file.
//
// # Scenario Format
//
//	name: outbid_credits_escrow
//	description: "An outbid bidder can withdraw their bid"
//	steps:
//	  - action: create
//	    auction: A          # reference used by later steps
//	    identity: seller
//	    duration: 1h
//	  - action: bid
//	    auction: A
//	    identity: x
//	    amount: 100
//	  - action: finalize
//	    auction: A
//	    identity: z
//	    expect: TOO_EARLY   # error code; omit for success
//	  - action: advance
//	    duration: 1h
//	assertions:
//	  - type: balance
//	    auction: A
//	    identity: x
//	    equals: 100
//	  - type: conservation
//
// # Step Actions
//
//   - create: open an auction for identity (the seller)
//   - bid: identity bids amount
//   - withdraw: identity withdraws its whole balance
//   - finalize: identity finalizes the auction
//   - advance: move the fake clock forward by duration
//   - fail_transfers: from now on payouts fail (fail: true) or succeed
//
// # Assertion Types
//
//   - balance: withdrawable amount of identity in auction
//   - highest_bid, highest_bidder, state: auction snapshot fields
//   - paid: total successfully paid out to identity
//   - conservation: every auction's funds are accounted for
//   - trace_count, trace_order: journal event kinds
//
// # Deterministic Testing
//
// Every run starts at testutil.Epoch with auction ids auction-1,
// auction-2, ... so traces are identical across runs.
package harness
