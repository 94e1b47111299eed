package core

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

var errCustodyDown = errors.New("custody unavailable")

type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

type fakeAssetCustody struct {
	transfers map[string]uint64
	failNext  bool
}

func newFakeAssetCustody() *fakeAssetCustody {
	return &fakeAssetCustody{transfers: make(map[string]uint64)}
}

func (f *fakeAssetCustody) Transfer(recipient string, units uint64) error {
	if f.failNext {
		f.failNext = false
		return errCustodyDown
	}
	f.transfers[recipient] += units
	return nil
}

type fakeCurrencyCustody struct {
	payouts  map[string]decimal.Decimal
	failNext bool
}

func newFakeCurrencyCustody() *fakeCurrencyCustody {
	return &fakeCurrencyCustody{payouts: make(map[string]decimal.Decimal)}
}

func (f *fakeCurrencyCustody) Pay(recipient string, amount decimal.Decimal) error {
	if f.failNext {
		f.failNext = false
		return errCustodyDown
	}
	f.payouts[recipient] = f.payouts[recipient].Add(amount)
	return nil
}

type recordingSink struct {
	accepted []string // fingerprints in acceptance order
	closed   bool
	claimed  map[string]uint64
	refunded map[string]decimal.Decimal
}

func newRecordingSink() *recordingSink {
	return &recordingSink{
		claimed:  make(map[string]uint64),
		refunded: make(map[string]decimal.Decimal),
	}
}

func (s *recordingSink) BidAccepted(fingerprint, _ string, _ uint64, _ decimal.Decimal) {
	s.accepted = append(s.accepted, fingerprint)
}

func (s *recordingSink) AuctionClosed(string, uint64, int) { s.closed = true }

func (s *recordingSink) AllocationClaimed(bidder string, units uint64) {
	s.claimed[bidder] += units
}

func (s *recordingSink) RefundIssued(bidder string, amount decimal.Decimal) {
	s.refunded[bidder] = s.refunded[bidder].Add(amount)
}

var testOpen = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testConfig() Config {
	return Config{
		AuctionID:   "auction-test",
		Operator:    "operator",
		FloorPrice:  decimal.NewFromInt(1),
		TotalSupply: 100,
		OpensAt:     testOpen,
		ClosesAt:    testOpen.Add(time.Hour),
		MaxBids:     50,
	}
}

type testAuction struct {
	*Auction
	clock    *fakeClock
	asset    *fakeAssetCustody
	currency *fakeCurrencyCustody
	sink     *recordingSink
}

func newTestAuction(t *testing.T, cfg Config) *testAuction {
	t.Helper()
	clock := &fakeClock{now: cfg.OpensAt.Add(time.Minute)}
	asset := newFakeAssetCustody()
	currency := newFakeCurrencyCustody()
	sink := newRecordingSink()
	a, err := NewAuction(cfg, clock, sink, asset, currency)
	if err != nil {
		t.Fatalf("NewAuction failed: %v", err)
	}
	return &testAuction{Auction: a, clock: clock, asset: asset, currency: currency, sink: sink}
}

// mustBid places a bid with exact payment and fails the test on rejection.
func (ta *testAuction) mustBid(t *testing.T, bidder string, price int64, quantity uint64) string {
	t.Helper()
	p := decimal.NewFromInt(price)
	payment := p.Mul(decimal.NewFromUint64(quantity))
	fingerprint, err := ta.PlaceBid(bidder, p, quantity, payment)
	if err != nil {
		t.Fatalf("PlaceBid(%s, %d, %d) failed: %v", bidder, price, quantity, err)
	}
	return fingerprint
}

// settleAfterClose advances the clock past the close time and settles.
func (ta *testAuction) settleAfterClose(t *testing.T) *SettlementResult {
	t.Helper()
	ta.clock.now = ta.ClosesAt().Add(time.Minute)
	result, err := ta.Settle("operator")
	if err != nil {
		t.Fatalf("Settle failed: %v", err)
	}
	return result
}
