package core

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Auction is the aggregate owning the bid ledger and every bid exclusively.
// Bids are mutated only through the two sanctioned paths (PlaceBid, Settle)
// and the two claim operations. All operations run to completion with no
// interleaving; there is no parallelism inside the core.
type Auction struct {
	cfg    Config
	clock  Clock
	events EventSink

	ledger        *Ledger
	byFingerprint map[string]*Bid

	// unitsSold tracks committed demand while the auction is open (it is
	// incremented by the requested quantity on every accepted bid, enabling
	// early settlement once demand reaches supply) and is overwritten with
	// the actual allocated total by the settlement pass.
	unitsSold uint64
	bidCount  int
	closed    bool

	asset    AssetCustody
	currency CurrencyCustody
}

// NewAuction validates the configuration and creates an auction with an empty
// ledger. A nil clock defaults to SystemClock and a nil sink to NopSink.
func NewAuction(cfg Config, clock Clock, events EventSink, asset AssetCustody, currency CurrencyCustody) (*Auction, error) {
	if cfg.AuctionID == "" {
		return nil, fmt.Errorf("auction ID is required")
	}
	if cfg.FloorPrice.Sign() <= 0 {
		return nil, fmt.Errorf("floor price must be positive, got %s", cfg.FloorPrice)
	}
	if cfg.TotalSupply == 0 {
		return nil, fmt.Errorf("total supply must be positive")
	}
	if !cfg.OpensAt.Before(cfg.ClosesAt) {
		return nil, fmt.Errorf("open time %s must precede close time %s", cfg.OpensAt, cfg.ClosesAt)
	}
	if cfg.MaxBids <= 0 {
		return nil, fmt.Errorf("max bid count must be positive, got %d", cfg.MaxBids)
	}
	if asset == nil || currency == nil {
		return nil, fmt.Errorf("asset and currency custody are required")
	}
	if clock == nil {
		clock = SystemClock{}
	}
	if events == nil {
		events = NopSink{}
	}
	return &Auction{
		cfg:           cfg,
		clock:         clock,
		events:        events,
		ledger:        NewLedger(),
		byFingerprint: make(map[string]*Bid),
		asset:         asset,
		currency:      currency,
	}, nil
}

// PlaceBid records a bid and returns its fingerprint. Every precondition is
// checked before any mutation, so a rejected bid leaves the auction unchanged.
//
// The bid cap check runs before the counter increment. The original ledger
// this engine descends from accepted cap+1 bids because of that ordering; the
// comparison here is >= so the effective maximum is exactly MaxBids.
func (a *Auction) PlaceBid(bidder string, price decimal.Decimal, quantity uint64, payment decimal.Decimal) (string, error) {
	if a.closed {
		return "", ErrAuctionClosed
	}
	now := a.clock.Now()
	if now.Before(a.cfg.OpensAt) || now.After(a.cfg.ClosesAt) {
		return "", ErrAuctionNotOpen
	}
	if quantity == 0 {
		return "", ErrInvalidQuantity
	}
	price = price.Round(monetaryPrecision)
	if price.Sign() <= 0 || price.LessThan(a.cfg.FloorPrice) {
		return "", ErrPriceBelowFloor
	}
	if a.bidCount >= a.cfg.MaxBids {
		return "", ErrBidCapReached
	}
	cost := price.Mul(decimal.NewFromUint64(quantity))
	if payment.LessThan(cost) {
		return "", ErrInsufficientPayment
	}
	if highest, ok := a.ledger.Highest(); ok && !price.GreaterThan(highest.Price) {
		return "", ErrPriceNotIncreasing
	}

	fingerprint := ComputeBidFingerprint(bidder, price, quantity)
	// Unique prices make fingerprint collisions impossible; assert anyway.
	if _, exists := a.byFingerprint[fingerprint]; exists {
		return "", ErrFingerprintCollision
	}

	bid := &Bid{
		Bidder:      bidder,
		Price:       price,
		Quantity:    quantity,
		Fingerprint: fingerprint,
	}
	if err := a.ledger.Insert(bid); err != nil {
		return "", err
	}
	a.byFingerprint[fingerprint] = bid
	a.bidCount++
	a.unitsSold += quantity

	a.events.BidAccepted(fingerprint, bidder, quantity, price)
	return fingerprint, nil
}

// Bid returns the bid addressed by the given fingerprint.
func (a *Auction) Bid(fingerprint string) (*Bid, error) {
	bid, ok := a.byFingerprint[fingerprint]
	if !ok {
		return nil, ErrUnknownBid
	}
	return bid, nil
}

// ID returns the auction identifier.
func (a *Auction) ID() string { return a.cfg.AuctionID }

// Closed reports whether the settlement pass has run.
func (a *Auction) Closed() bool { return a.closed }

// BidCount returns the number of accepted bids.
func (a *Auction) BidCount() int { return a.bidCount }

// UnitsSold returns committed demand while the auction is open and the actual
// allocated total after settlement.
func (a *Auction) UnitsSold() uint64 { return a.unitsSold }

// TotalSupply returns the configured supply.
func (a *Auction) TotalSupply() uint64 { return a.cfg.TotalSupply }

// FloorPrice returns the configured floor price.
func (a *Auction) FloorPrice() decimal.Decimal { return a.cfg.FloorPrice }

// ClosesAt returns the configured close time.
func (a *Auction) ClosesAt() time.Time { return a.cfg.ClosesAt }
