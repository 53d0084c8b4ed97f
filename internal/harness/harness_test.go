package harness

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustParse(t *testing.T, src string) *Scenario {
	t.Helper()
	s, err := ParseScenario([]byte(src))
	require.NoError(t, err)
	return s
}

func TestRun_Minimal(t *testing.T) {
	result, err := Run(mustParse(t, minimalScenario))
	require.NoError(t, err)

	assert.True(t, result.Pass, "errors: %v", result.Errors)
	require.Len(t, result.Trace, 2)
	assert.Equal(t, TraceEvent{Seq: 1, Kind: "AuctionCreated", AuctionID: "auction-1", Identity: "seller"}, result.Trace[0])
	assert.Equal(t, TraceEvent{Seq: 2, Kind: "BidPlaced", AuctionID: "auction-1", Identity: "x", Amount: 5}, result.Trace[1])
	assert.Empty(t, result.Payouts)
}

func TestRun_UnexpectedRejectionFails(t *testing.T) {
	src := `
name: unexpected
description: "second bid is too low but the scenario expects success"
steps:
  - action: create
    auction: A
    identity: seller
    duration: 1h
  - action: bid
    auction: A
    identity: x
    amount: 5
  - action: bid
    auction: A
    identity: y
    amount: 5
assertions:
  - type: conservation
`
	result, err := Run(mustParse(t, src))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "expected success, got ALREADY_HIGHER_BID")
}

func TestRun_ExpectedRejectionThatSucceedsFails(t *testing.T) {
	src := `
name: wrong_expectation
description: "bid succeeds although a rejection is expected"
steps:
  - action: create
    auction: A
    identity: seller
    duration: 1h
  - action: bid
    auction: A
    identity: x
    amount: 5
    expect: AUCTION_CLOSED
assertions:
  - type: conservation
`
	result, err := Run(mustParse(t, src))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Contains(t, strings.Join(result.Errors, "\n"), "expected AUCTION_CLOSED, got success")
}

func TestRun_FailedAssertionsReported(t *testing.T) {
	src := `
name: bad_assertions
description: "every assertion is wrong"
steps:
  - action: create
    auction: A
    identity: seller
    duration: 1h
  - action: bid
    auction: A
    identity: x
    amount: 5
assertions:
  - type: highest_bid
    auction: A
    equals: 6
  - type: highest_bidder
    auction: A
    value: y
  - type: state
    auction: A
    value: Ended
  - type: paid
    identity: x
    equals: 5
  - type: trace_count
    kind: BidPlaced
    count: 3
  - type: balance
    auction: missing
    identity: x
    equals: 0
`
	result, err := Run(mustParse(t, src))
	require.NoError(t, err)

	assert.False(t, result.Pass)
	assert.Len(t, result.Errors, 6)
}

func TestRun_InvalidCreateIsAnExpectation(t *testing.T) {
	src := `
name: invalid_create
description: "zero duration is rejected"
steps:
  - action: create
    auction: A
    identity: seller
    duration: 0s
    expect: INVALID_DURATION
  - action: create
    auction: B
    identity: ""
    duration: 1h
    expect: INVALID_IDENTITY
assertions:
  - type: trace_count
    kind: AuctionCreated
    count: 0
`
	result, err := Run(mustParse(t, src))
	require.NoError(t, err)
	assert.True(t, result.Pass, "errors: %v", result.Errors)
}

func TestRun_StepOnFailedCreateIsHarnessError(t *testing.T) {
	src := `
name: dangling
description: "the auction was never created"
steps:
  - action: create
    auction: A
    identity: seller
    duration: 0s
    expect: INVALID_DURATION
  - action: bid
    auction: A
    identity: x
    amount: 1
assertions:
  - type: conservation
`
	_, err := Run(mustParse(t, src))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "never created")
}
