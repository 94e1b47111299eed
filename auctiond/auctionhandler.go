package main

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opensale/saleapi"
)

// logSink writes one audit log line per observable auction state transition.
type logSink struct{}

func (logSink) BidAccepted(fingerprint, bidder string, quantity uint64, price decimal.Decimal) {
	log.Printf("INFO: Bid accepted: fingerprint=%s bidder=%s quantity=%d price=%s", fingerprint, bidder, quantity, price)
}

func (logSink) AuctionClosed(auctionID string, unitsSold uint64, bidsProcessed int) {
	log.Printf("INFO: Auction %s closed: %d units sold across %d bids", auctionID, unitsSold, bidsProcessed)
}

func (logSink) AllocationClaimed(bidder string, units uint64) {
	log.Printf("INFO: Allocation claimed: bidder=%s units=%d", bidder, units)
}

func (logSink) RefundIssued(bidder string, amount decimal.Decimal) {
	log.Printf("INFO: Refund issued: bidder=%s amount=%s", bidder, amount)
}

// sealedBidPayload is the plaintext structure inside a sealed bid.
type sealedBidPayload struct {
	Price    decimal.Decimal `json:"price"`
	Quantity uint64          `json:"quantity"`
}

// unsealBid opens a sealed bid and returns the hidden price and quantity.
func (s *AuctionServer) unsealBid(sealed *saleapi.SealedBidPayload) (decimal.Decimal, uint64, error) {
	hashAlg := HashAlgorithmSHA256
	if sealed.HashAlgorithm != "" {
		hashAlg = HashAlgorithm(sealed.HashAlgorithm)
	}

	plaintext, err := DecryptHybrid(sealed.AESKeyEncrypted, sealed.EncryptedPayload, sealed.Nonce, s.keyManager.privateKey, hashAlg)
	if err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to open sealed bid: %w", err)
	}

	var payload sealedBidPayload
	if err := json.Unmarshal(plaintext, &payload); err != nil {
		return decimal.Zero, 0, fmt.Errorf("failed to decode sealed bid payload: %w", err)
	}

	return payload.Price, payload.Quantity, nil
}

// ProcessBid places a bid on the auction. Sealed bids are opened inside the
// TEE first; the cleartext price and quantity fields are ignored when a
// sealed payload is present.
func (s *AuctionServer) ProcessBid(req saleapi.BidRequest) saleapi.BidResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	price, quantity := req.Price, req.Quantity
	if req.SealedBid != nil {
		var err error
		price, quantity, err = s.unsealBid(req.SealedBid)
		if err != nil {
			log.Printf("ERROR: Sealed bid from %s rejected: %v", req.Bidder, err)
			return saleapi.BidResponse{
				Type:    "bid_response",
				Success: false,
				Message: err.Error(),
			}
		}
	}

	fingerprint, err := s.auction.PlaceBid(req.Bidder, price, quantity, req.Payment)
	if err != nil {
		log.Printf("WARNING: Bid from %s rejected: %v", req.Bidder, err)
		return saleapi.BidResponse{
			Type:    "bid_response",
			Success: false,
			Message: err.Error(),
		}
	}

	s.currency.Deposit(req.Payment)

	return saleapi.BidResponse{
		Type:        "bid_response",
		Success:     true,
		Message:     "bid accepted",
		Fingerprint: fingerprint,
	}
}

// ProcessSettlement runs the one-shot clearing pass and wraps the outcome in
// an NSM attestation.
func (s *AuctionServer) ProcessSettlement(attester EnclaveAttester, req saleapi.SettleRequest) saleapi.SettlementResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	startTime := time.Now()

	result, err := s.auction.Settle(req.Operator)
	if err != nil {
		log.Printf("WARNING: Settlement rejected: %v", err)
		return saleapi.SettlementResponse{
			Type:           "settlement_response",
			Success:        false,
			Message:        err.Error(),
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	attestation, err := GenerateSettlementAttestation(attester, s.auction, result)
	if err != nil {
		// The clearing pass already committed; claims stay available even
		// though no receipt could be produced.
		log.Printf("ERROR: Settlement attestation failed: %v", err)
		return saleapi.SettlementResponse{
			Type:           "settlement_response",
			Success:        false,
			Message:        fmt.Sprintf("settlement committed but attestation failed: %v", err),
			UnitsSold:      result.UnitsSold,
			BidsProcessed:  result.BidsProcessed,
			ProcessingTime: time.Since(startTime).Milliseconds(),
		}
	}

	return saleapi.SettlementResponse{
		Type:                  "settlement_response",
		Success:               true,
		Message:               "auction settled",
		UnitsSold:             result.UnitsSold,
		BidsProcessed:         result.BidsProcessed,
		AttestationCOSEBase64: attestation.EncodeBase64(),
		ProcessingTime:        time.Since(startTime).Milliseconds(),
	}
}

// ProcessClaim withdraws a settled bid's allocation or refund.
func (s *AuctionServer) ProcessClaim(req saleapi.ClaimRequest) saleapi.ClaimResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch req.Type {
	case "claim_allocation":
		units, err := s.auction.ClaimAllocation(req.Fingerprint, req.Caller)
		if err != nil {
			log.Printf("WARNING: Allocation claim for %s rejected: %v", req.Fingerprint, err)
			return saleapi.ClaimResponse{Type: "claim_response", Success: false, Message: err.Error()}
		}
		return saleapi.ClaimResponse{
			Type:    "claim_response",
			Success: true,
			Message: "allocation transferred",
			Units:   units,
		}

	case "claim_refund":
		amount, err := s.auction.ClaimRefund(req.Fingerprint, req.Caller)
		if err != nil {
			log.Printf("WARNING: Refund claim for %s rejected: %v", req.Fingerprint, err)
			return saleapi.ClaimResponse{Type: "claim_response", Success: false, Message: err.Error()}
		}
		return saleapi.ClaimResponse{
			Type:    "claim_response",
			Success: true,
			Message: "refund paid",
			Amount:  amount,
		}

	default:
		return saleapi.ClaimResponse{
			Type:    "claim_response",
			Success: false,
			Message: fmt.Sprintf("unknown claim type: %s", req.Type),
		}
	}
}

// ProcessStatus returns a read-only snapshot of the auction.
func (s *AuctionServer) ProcessStatus() saleapi.StatusResponse {
	s.mu.Lock()
	defer s.mu.Unlock()

	return saleapi.StatusResponse{
		Type:        "status_response",
		AuctionID:   s.auction.ID(),
		FloorPrice:  s.auction.FloorPrice(),
		TotalSupply: s.auction.TotalSupply(),
		UnitsSold:   s.auction.UnitsSold(),
		BidCount:    s.auction.BidCount(),
		Closed:      s.auction.Closed(),
		ClosesAt:    s.auction.ClosesAt(),
	}
}
