package core

import "errors"

// All core operations reject invalid preconditions synchronously with one of
// these errors and perform no state change. None are retriable by the core
// itself; the caller must resubmit with corrected inputs.
var (
	// Timing errors
	ErrAuctionNotOpen     = errors.New("auction is not open for bidding")
	ErrAuctionClosed      = errors.New("auction already closed")
	ErrSettlementTooEarly = errors.New("settlement attempted before close time")

	// Ordering errors
	ErrPriceNotIncreasing = errors.New("bid price must exceed the current maximum")

	// Funding errors
	ErrInsufficientPayment = errors.New("payment does not cover price times quantity")

	// Capacity errors
	ErrBidCapReached = errors.New("maximum bid count reached")

	// Validation errors
	ErrPriceBelowFloor = errors.New("bid price below floor price")
	ErrInvalidQuantity = errors.New("bid quantity must be positive")

	// Authorization errors
	ErrNotOperator = errors.New("caller is not the auction operator")
	ErrNotBidOwner = errors.New("caller does not own this bid")

	// State errors
	ErrFingerprintCollision = errors.New("fingerprint already in use")

	ErrUnknownBid     = errors.New("no bid matches the given fingerprint")
	ErrBidNotSettled  = errors.New("bid has not been processed by settlement")
	ErrNothingToClaim = errors.New("no allocation available to claim")
	ErrNoRefundDue    = errors.New("no refund available to claim")
)
