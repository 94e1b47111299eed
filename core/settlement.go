package core

import "github.com/shopspring/decimal"

// BidOutcome records what settlement decided for a single bid.
type BidOutcome struct {
	Fingerprint string          `json:"fingerprint"`
	Bidder      string          `json:"bidder"`
	Price       decimal.Decimal `json:"price"`
	Quantity    uint64          `json:"quantity"`
	Filled      uint64          `json:"filled"`
	RefundDue   decimal.Decimal `json:"refund_due"`
}

// SettlementResult summarizes the one-shot clearing pass, with outcomes in
// processing order (highest price first).
type SettlementResult struct {
	AuctionID     string       `json:"auction_id"`
	UnitsSold     uint64       `json:"units_sold"`
	TotalSupply   uint64       `json:"total_supply"`
	BidsProcessed int          `json:"bids_processed"`
	Outcomes      []BidOutcome `json:"outcomes"`
}

// Settle runs the one-shot clearing pass. Only the configured operator may
// call it, only after the close time has passed or committed demand has
// reached total supply. A second call fails with ErrAuctionClosed.
//
// The ledger is drained highest price first. Each bid is allocated
// min(requested, remaining supply); a partial fill is refunded the unfilled
// quantity times the bid's price.
//
// Bids still in the ledger once supply is exhausted are drained too: they are
// marked settled with zero fill and a refund of their full payment. The
// original design left such bids unsettled with a zero refund, permanently
// locking the bidder's funds; this engine closes that gap.
func (a *Auction) Settle(caller string) (*SettlementResult, error) {
	if caller != a.cfg.Operator {
		return nil, ErrNotOperator
	}
	if a.closed {
		return nil, ErrAuctionClosed
	}
	now := a.clock.Now()
	if now.Before(a.cfg.ClosesAt) && a.unitsSold < a.cfg.TotalSupply {
		return nil, ErrSettlementTooEarly
	}

	remaining := a.cfg.TotalSupply
	var sold uint64
	outcomes := make([]BidOutcome, 0, a.ledger.Len())

	for remaining > 0 {
		bid, ok := a.ledger.RemoveHighest()
		if !ok {
			break
		}
		filled := bid.Quantity
		if filled > remaining {
			filled = remaining
		}
		bid.Filled = filled
		remaining -= filled
		sold += filled
		if filled < bid.Quantity {
			bid.RefundDue = bid.Price.Mul(decimal.NewFromUint64(bid.Quantity - filled))
		}
		bid.Settled = true
		outcomes = append(outcomes, outcomeFor(bid))
	}

	// Supply exhausted: refund every bid the loop never reached in full.
	for {
		bid, ok := a.ledger.RemoveHighest()
		if !ok {
			break
		}
		bid.RefundDue = bid.Price.Mul(decimal.NewFromUint64(bid.Quantity))
		bid.Settled = true
		outcomes = append(outcomes, outcomeFor(bid))
	}

	a.unitsSold = sold
	a.closed = true
	a.events.AuctionClosed(a.cfg.AuctionID, sold, len(outcomes))

	return &SettlementResult{
		AuctionID:     a.cfg.AuctionID,
		UnitsSold:     sold,
		TotalSupply:   a.cfg.TotalSupply,
		BidsProcessed: len(outcomes),
		Outcomes:      outcomes,
	}, nil
}

func outcomeFor(bid *Bid) BidOutcome {
	return BidOutcome{
		Fingerprint: bid.Fingerprint,
		Bidder:      bid.Bidder,
		Price:       bid.Price,
		Quantity:    bid.Quantity,
		Filled:      bid.Filled,
		RefundDue:   bid.RefundDue,
	}
}
