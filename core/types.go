package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const monetaryPrecision int32 = 4 // 4 decimal places for unit prices (0.0001 precision)

// Bid represents one bidder's standing offer for a slice of the auctioned supply.
// A Bid is immutable after insertion except for the single settlement write
// (Filled, RefundDue, Settled) and the one-time claim consumption writes that
// zero Filled and RefundDue.
type Bid struct {
	Bidder      string          `json:"bidder"`
	Price       decimal.Decimal `json:"price"` // price per unit
	Quantity    uint64          `json:"quantity"`
	Filled      uint64          `json:"filled"`
	RefundDue   decimal.Decimal `json:"refund_due"`
	Settled     bool            `json:"settled"`
	Fingerprint string          `json:"fingerprint"`
}

// Config holds the auction parameters fixed by the auctioneer before the open
// window. The auctioneer must guarantee asset custody of at least TotalSupply
// before the first bid is accepted.
type Config struct {
	AuctionID   string
	Operator    string // only the operator may trigger settlement
	FloorPrice  decimal.Decimal
	TotalSupply uint64
	OpensAt     time.Time
	ClosesAt    time.Time
	MaxBids     int
}

// Clock supplies the current time for open/close gating. The auction only
// compares against it, never mutates it.
type Clock interface {
	Now() time.Time
}

// SystemClock is the production Clock backed by time.Now.
type SystemClock struct{}

func (SystemClock) Now() time.Time { return time.Now() }

// EventSink receives one callback per observable state transition, for audit
// logging and external consumers.
type EventSink interface {
	BidAccepted(fingerprint, bidder string, quantity uint64, price decimal.Decimal)
	AuctionClosed(auctionID string, unitsSold uint64, bidsProcessed int)
	AllocationClaimed(bidder string, units uint64)
	RefundIssued(bidder string, amount decimal.Decimal)
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) BidAccepted(string, string, uint64, decimal.Decimal) {}
func (NopSink) AuctionClosed(string, uint64, int)                   {}
func (NopSink) AllocationClaimed(string, uint64)                    {}
func (NopSink) RefundIssued(string, decimal.Decimal)                {}

// AssetCustody holds the auctioned asset and transfers allocated units out.
// Invoked only by ClaimAllocation, and only after the bid's filled quantity
// has been zeroed.
type AssetCustody interface {
	Transfer(recipient string, units uint64) error
}

// CurrencyCustody holds bidders' payments and pays refunds out. Invoked only
// by ClaimRefund, and only after the bid's refund balance has been zeroed.
type CurrencyCustody interface {
	Pay(recipient string, amount decimal.Decimal) error
}
