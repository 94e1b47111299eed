package core

import (
	"crypto/sha256"
	"fmt"

	"github.com/shopspring/decimal"
)

// ComputeBidFingerprint derives the deterministic identifier a client uses to
// address a bid without a separate identifier registry.
//
// Formula: SHA256(bidder + "|" + price + "|" + quantity)
//
// The price is rounded to monetaryPrecision and rendered in canonical decimal
// form so the fingerprint is independent of how the value was originally
// written (2, 2.0, 2.0000).
//
// Two identical (bidder, price, quantity) tuples would collide, but the
// ledger's strict price ordering forbids price reuse, so distinct bids can
// never share a fingerprint. PlaceBid asserts this rather than relying on it.
func ComputeBidFingerprint(bidder string, price decimal.Decimal, quantity uint64) string {
	data := fmt.Sprintf("%s|%s|%d", bidder, price.Round(monetaryPrecision).String(), quantity)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}

// ComputeSettlementHash commits to a settlement outcome for attested receipts.
//
// Formula: SHA256(auction_id + "|" + units_sold + "|" + nonce)
func ComputeSettlementHash(auctionID string, unitsSold uint64, nonce string) string {
	data := fmt.Sprintf("%s|%d|%s", auctionID, unitsSold, nonce)
	hash := sha256.Sum256([]byte(data))
	return fmt.Sprintf("%x", hash)
}
