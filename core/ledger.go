package core

import "github.com/shopspring/decimal"

// Ledger is the ordered bid collection. Prices are required to be strictly
// increasing in insertion order, so the sequence is sorted by construction:
// insertion is an O(1) append, no comparison sort is ever needed, and the
// highest bid is always the tail. Strict increase also makes every price
// unique, so a price maps to exactly one bid.
type Ledger struct {
	prices []decimal.Decimal
	bids   map[string]*Bid // keyed by canonical price string
}

// NewLedger returns an empty ledger.
func NewLedger() *Ledger {
	return &Ledger{bids: make(map[string]*Bid)}
}

// Insert appends a bid to the ledger. The bid's price must be strictly
// greater than the current maximum (the tail of the sequence); anything else
// is rejected with ErrPriceNotIncreasing and the ledger is unchanged.
func (l *Ledger) Insert(bid *Bid) error {
	if n := len(l.prices); n > 0 && !bid.Price.GreaterThan(l.prices[n-1]) {
		return ErrPriceNotIncreasing
	}
	l.prices = append(l.prices, bid.Price)
	l.bids[bid.Price.String()] = bid
	return nil
}

// Highest returns the bid with the highest price without removing it.
func (l *Ledger) Highest() (*Bid, bool) {
	n := len(l.prices)
	if n == 0 {
		return nil, false
	}
	return l.bids[l.prices[n-1].String()], true
}

// RemoveHighest pops and returns the bid with the highest price.
func (l *Ledger) RemoveHighest() (*Bid, bool) {
	n := len(l.prices)
	if n == 0 {
		return nil, false
	}
	key := l.prices[n-1].String()
	l.prices = l.prices[:n-1]
	bid := l.bids[key]
	delete(l.bids, key)
	return bid, true
}

// Lookup returns the bid recorded at the given price, if any.
func (l *Ledger) Lookup(price decimal.Decimal) (*Bid, bool) {
	bid, ok := l.bids[price.String()]
	return bid, ok
}

// Len returns the number of bids currently in the ledger.
func (l *Ledger) Len() int {
	return len(l.prices)
}

// Prices returns a copy of the recorded price sequence in insertion order.
func (l *Ledger) Prices() []decimal.Decimal {
	out := make([]decimal.Decimal, len(l.prices))
	copy(out, l.prices)
	return out
}
