package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func TestPlaceBid_AcceptsAndReturnsFingerprint(t *testing.T) {
	ta := newTestAuction(t, testConfig())

	fingerprint := ta.mustBid(t, "alice", 2, 5)

	check.Equal(t, ComputeBidFingerprint("alice", decimal.NewFromInt(2), 5), fingerprint)
	check.Equal(t, 1, ta.BidCount())
	check.Equal(t, uint64(5), ta.UnitsSold()) // committed demand
	check.Equal(t, []string{fingerprint}, ta.sink.accepted)

	bid, err := ta.Bid(fingerprint)
	assert.Nil(t, err)
	check.Equal(t, "alice", bid.Bidder)
	check.Equal(t, uint64(5), bid.Quantity)
	check.Equal(t, uint64(0), bid.Filled)
	check.False(t, bid.Settled)
}

func TestPlaceBid_RejectsOutsideWindow(t *testing.T) {
	ta := newTestAuction(t, testConfig())

	ta.clock.now = testOpen.Add(-time.Minute)
	_, err := ta.PlaceBid("alice", decimal.NewFromInt(2), 1, decimal.NewFromInt(2))
	check.True(t, errors.Is(err, ErrAuctionNotOpen))

	ta.clock.now = ta.ClosesAt().Add(time.Minute)
	_, err = ta.PlaceBid("alice", decimal.NewFromInt(2), 1, decimal.NewFromInt(2))
	check.True(t, errors.Is(err, ErrAuctionNotOpen))

	check.Equal(t, 0, ta.BidCount())
}

func TestPlaceBid_RejectsBelowFloor(t *testing.T) {
	cfg := testConfig()
	cfg.FloorPrice = decimal.NewFromInt(5)
	ta := newTestAuction(t, cfg)

	_, err := ta.PlaceBid("alice", decimal.NewFromInt(4), 1, decimal.NewFromInt(4))
	check.True(t, errors.Is(err, ErrPriceBelowFloor))

	// Exactly at the floor is acceptable.
	ta.mustBid(t, "alice", 5, 1)
}

func TestPlaceBid_RejectsNonIncreasingPrice(t *testing.T) {
	ta := newTestAuction(t, testConfig())
	ta.mustBid(t, "alice", 3, 2)

	// Same price, even from the same bidder, must be rejected.
	_, err := ta.PlaceBid("alice", decimal.NewFromInt(3), 2, decimal.NewFromInt(6))
	check.True(t, errors.Is(err, ErrPriceNotIncreasing))

	_, err = ta.PlaceBid("bob", decimal.NewFromInt(2), 2, decimal.NewFromInt(4))
	check.True(t, errors.Is(err, ErrPriceNotIncreasing))

	// The rejection is atomic: nothing was recorded.
	check.Equal(t, 1, ta.BidCount())
	check.Equal(t, uint64(2), ta.UnitsSold())
}

func TestPlaceBid_RejectsInsufficientPayment(t *testing.T) {
	ta := newTestAuction(t, testConfig())

	// 3 units at price 2 requires payment of 6.
	_, err := ta.PlaceBid("alice", decimal.NewFromInt(2), 3, decimal.NewFromInt(5))
	check.True(t, errors.Is(err, ErrInsufficientPayment))

	// Overpayment is allowed.
	_, err = ta.PlaceBid("alice", decimal.NewFromInt(2), 3, decimal.NewFromInt(7))
	check.Nil(t, err)
}

func TestPlaceBid_RejectsZeroQuantity(t *testing.T) {
	ta := newTestAuction(t, testConfig())

	_, err := ta.PlaceBid("alice", decimal.NewFromInt(2), 0, decimal.Zero)
	check.True(t, errors.Is(err, ErrInvalidQuantity))
}

func TestPlaceBid_CapIsExact(t *testing.T) {
	// Scenario: cap 50, 51st insertion. The check precedes the increment, so
	// the comparison is >= and the 51st bid is rejected outright.
	ta := newTestAuction(t, testConfig())

	for i := int64(1); i <= 50; i++ {
		ta.mustBid(t, "alice", i+1, 1)
	}
	check.Equal(t, 50, ta.BidCount())

	_, err := ta.PlaceBid("bob", decimal.NewFromInt(100), 1, decimal.NewFromInt(100))
	check.True(t, errors.Is(err, ErrBidCapReached))
	check.Equal(t, 50, ta.BidCount())
}

func TestPlaceBid_RejectedAfterSettlement(t *testing.T) {
	ta := newTestAuction(t, testConfig())
	ta.mustBid(t, "alice", 2, 1)
	ta.settleAfterClose(t)

	ta.clock.now = ta.ClosesAt().Add(-time.Minute) // even inside the window
	_, err := ta.PlaceBid("bob", decimal.NewFromInt(3), 1, decimal.NewFromInt(3))
	check.True(t, errors.Is(err, ErrAuctionClosed))
}

func TestPlaceBid_MonotonicInvariantHolds(t *testing.T) {
	ta := newTestAuction(t, testConfig())

	prices := []int64{1, 3, 4, 8, 20}
	for _, p := range prices {
		ta.mustBid(t, "alice", p, 1)
	}

	recorded := ta.ledger.Prices()
	assert.Equal(t, len(prices), len(recorded))
	for i := 1; i < len(recorded); i++ {
		check.True(t, recorded[i].GreaterThan(recorded[i-1]))
	}
}

func TestNewAuction_RejectsInvalidConfig(t *testing.T) {
	base := testConfig()
	asset := newFakeAssetCustody()
	currency := newFakeCurrencyCustody()

	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"missing auction ID", func(c *Config) { c.AuctionID = "" }},
		{"zero floor price", func(c *Config) { c.FloorPrice = decimal.Zero }},
		{"negative floor price", func(c *Config) { c.FloorPrice = decimal.NewFromInt(-1) }},
		{"zero supply", func(c *Config) { c.TotalSupply = 0 }},
		{"window inverted", func(c *Config) { c.ClosesAt = c.OpensAt }},
		{"zero bid cap", func(c *Config) { c.MaxBids = 0 }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := base
			tc.mutate(&cfg)
			_, err := NewAuction(cfg, nil, nil, asset, currency)
			check.NotNil(t, err)
		})
	}
}

func TestNewAuction_RequiresCustody(t *testing.T) {
	_, err := NewAuction(testConfig(), nil, nil, nil, nil)
	check.NotNil(t, err)
}
