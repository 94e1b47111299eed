package core

import "github.com/shopspring/decimal"

// ClaimAllocation pays out the filled quantity of a settled bid to its owner
// through the asset custody collaborator. The filled quantity is zeroed
// before the external transfer runs, so a reentrant call observes an empty
// balance and fails with ErrNothingToClaim. A second call fails the same way.
func (a *Auction) ClaimAllocation(fingerprint, caller string) (uint64, error) {
	bid, ok := a.byFingerprint[fingerprint]
	if !ok {
		return 0, ErrUnknownBid
	}
	if bid.Bidder != caller {
		return 0, ErrNotBidOwner
	}
	if !bid.Settled {
		return 0, ErrBidNotSettled
	}
	if bid.Filled == 0 {
		return 0, ErrNothingToClaim
	}

	units := bid.Filled
	bid.Filled = 0
	if err := a.asset.Transfer(caller, units); err != nil {
		// The transfer never ran; the entitlement is still owed.
		bid.Filled = units
		return 0, err
	}

	a.events.AllocationClaimed(caller, units)
	return units, nil
}

// ClaimRefund pays out the refund balance of a bid to its owner through the
// currency custody collaborator. Same zero-then-pay ordering as
// ClaimAllocation; a second call fails with ErrNoRefundDue.
func (a *Auction) ClaimRefund(fingerprint, caller string) (decimal.Decimal, error) {
	bid, ok := a.byFingerprint[fingerprint]
	if !ok {
		return decimal.Zero, ErrUnknownBid
	}
	if bid.Bidder != caller {
		return decimal.Zero, ErrNotBidOwner
	}
	if bid.RefundDue.Sign() <= 0 {
		return decimal.Zero, ErrNoRefundDue
	}

	amount := bid.RefundDue
	bid.RefundDue = decimal.Zero
	if err := a.currency.Pay(caller, amount); err != nil {
		bid.RefundDue = amount
		return decimal.Zero, err
	}

	a.events.RefundIssued(caller, amount)
	return amount, nil
}
