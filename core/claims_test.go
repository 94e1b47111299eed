package core

import (
	"errors"
	"testing"
	"time"

	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

func settledAuction(t *testing.T) (*testAuction, string, string) {
	t.Helper()
	cfg := testConfig()
	cfg.TotalSupply = 5
	ta := newTestAuction(t, cfg)
	fpPartial := ta.mustBid(t, "alice", 2, 5) // filled 2, refund 6
	fpFull := ta.mustBid(t, "bob", 3, 3)      // filled 3, no refund
	ta.settleAfterClose(t)
	return ta, fpPartial, fpFull
}

func TestClaimAllocation_PaysExactlyOnce(t *testing.T) {
	ta, _, fpFull := settledAuction(t)

	units, err := ta.ClaimAllocation(fpFull, "bob")
	assert.Nil(t, err)
	check.Equal(t, uint64(3), units)
	check.Equal(t, uint64(3), ta.asset.transfers["bob"])
	check.Equal(t, uint64(3), ta.sink.claimed["bob"])

	// Second call finds a zero balance.
	_, err = ta.ClaimAllocation(fpFull, "bob")
	check.True(t, errors.Is(err, ErrNothingToClaim))
	check.Equal(t, uint64(3), ta.asset.transfers["bob"]) // no double payment
}

func TestClaimAllocation_OwnerOnly(t *testing.T) {
	ta, _, fpFull := settledAuction(t)

	_, err := ta.ClaimAllocation(fpFull, "mallory")
	check.True(t, errors.Is(err, ErrNotBidOwner))
	check.Equal(t, uint64(0), ta.asset.transfers["mallory"])
}

func TestClaimAllocation_UnknownFingerprint(t *testing.T) {
	ta, _, _ := settledAuction(t)

	_, err := ta.ClaimAllocation("no-such-bid", "bob")
	check.True(t, errors.Is(err, ErrUnknownBid))
}

func TestClaimAllocation_BeforeSettlement(t *testing.T) {
	ta := newTestAuction(t, testConfig())
	fp := ta.mustBid(t, "alice", 2, 5)

	_, err := ta.ClaimAllocation(fp, "alice")
	check.True(t, errors.Is(err, ErrBidNotSettled))
}

func TestClaimAllocation_ZeroFill(t *testing.T) {
	cfg := testConfig()
	cfg.TotalSupply = 3
	ta := newTestAuction(t, cfg)
	fpStarved := ta.mustBid(t, "alice", 2, 4)
	ta.mustBid(t, "bob", 3, 3)
	ta.settleAfterClose(t)

	_, err := ta.ClaimAllocation(fpStarved, "alice")
	check.True(t, errors.Is(err, ErrNothingToClaim))

	// The starved bid still has its full refund.
	amount, err := ta.ClaimRefund(fpStarved, "alice")
	assert.Nil(t, err)
	check.True(t, amount.Equal(decimal.NewFromInt(8)))
}

func TestClaimAllocation_CustodyFailureRestoresEntitlement(t *testing.T) {
	ta, _, fpFull := settledAuction(t)

	ta.asset.failNext = true
	_, err := ta.ClaimAllocation(fpFull, "bob")
	check.True(t, errors.Is(err, errCustodyDown))

	// The transfer never happened, so the claim is still available.
	units, err := ta.ClaimAllocation(fpFull, "bob")
	assert.Nil(t, err)
	check.Equal(t, uint64(3), units)
}

func TestClaimRefund_PaysExactlyOnce(t *testing.T) {
	ta, fpPartial, _ := settledAuction(t)

	amount, err := ta.ClaimRefund(fpPartial, "alice")
	assert.Nil(t, err)
	check.True(t, amount.Equal(decimal.NewFromInt(6)))
	check.True(t, ta.currency.payouts["alice"].Equal(decimal.NewFromInt(6)))
	check.True(t, ta.sink.refunded["alice"].Equal(decimal.NewFromInt(6)))

	_, err = ta.ClaimRefund(fpPartial, "alice")
	check.True(t, errors.Is(err, ErrNoRefundDue))
	check.True(t, ta.currency.payouts["alice"].Equal(decimal.NewFromInt(6)))
}

func TestClaimRefund_OwnerOnly(t *testing.T) {
	ta, fpPartial, _ := settledAuction(t)

	_, err := ta.ClaimRefund(fpPartial, "mallory")
	check.True(t, errors.Is(err, ErrNotBidOwner))
}

func TestClaimRefund_NothingDueOnFullFill(t *testing.T) {
	ta, _, fpFull := settledAuction(t)

	_, err := ta.ClaimRefund(fpFull, "bob")
	check.True(t, errors.Is(err, ErrNoRefundDue))
}

// reentrantCurrency calls back into ClaimRefund from inside Pay, the way a
// malicious payout hook would.
type reentrantCurrency struct {
	auction     *Auction
	fingerprint string
	caller      string
	reentryErr  error
	calls       int
}

func (r *reentrantCurrency) Pay(string, decimal.Decimal) error {
	r.calls++
	if r.calls == 1 {
		_, r.reentryErr = r.auction.ClaimRefund(r.fingerprint, r.caller)
	}
	return nil
}

func TestClaimRefund_ReentrantCallSeesZeroBalance(t *testing.T) {
	cfg := testConfig()
	cfg.TotalSupply = 2
	reentrant := &reentrantCurrency{}

	clock := &fakeClock{now: cfg.OpensAt.Add(time.Minute)}
	a, err := NewAuction(cfg, clock, nil, newFakeAssetCustody(), reentrant)
	assert.Nil(t, err)

	price := decimal.NewFromInt(2)
	fp, err := a.PlaceBid("alice", price, 5, price.Mul(decimal.NewFromInt(5)))
	assert.Nil(t, err)

	clock.now = cfg.ClosesAt.Add(time.Minute)
	_, err = a.Settle(cfg.Operator)
	assert.Nil(t, err)

	reentrant.auction = a
	reentrant.fingerprint = fp
	reentrant.caller = "alice"

	// Outer claim succeeds; the nested claim runs after the balance was
	// zeroed and must be rejected.
	amount, err := a.ClaimRefund(fp, "alice")
	assert.Nil(t, err)
	check.True(t, amount.Equal(decimal.NewFromInt(6))) // 3 unfilled at price 2
	check.Equal(t, 1, reentrant.calls)
	check.True(t, errors.Is(reentrant.reentryErr, ErrNoRefundDue))
}
