package saleapi

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"
)

// TestAttestationCOSE_EncodeBase64 tests encoding raw COSE bytes to base64
func TestAttestationCOSE_EncodeBase64(t *testing.T) {
	coseBytes := AttestationCOSE([]byte("mock-cose-attestation-data"))

	encoded := coseBytes.EncodeBase64()
	check.NotEqual(t, "", string(encoded))

	decoded, err := encoded.Decode()
	check.Nil(t, err)
	check.Equal(t, coseBytes, decoded)
}

// TestAttestationCOSE_GzipRoundTrip tests gzip compression round-trip
func TestAttestationCOSE_GzipRoundTrip(t *testing.T) {
	original := AttestationCOSE([]byte("mock-cose-attestation-data-with-enough-bytes-to-actually-compress"))

	compressed, err := original.EncodeGzip()
	check.Nil(t, err)
	check.NotEqual(t, "", string(compressed))

	decompressed, err := compressed.Decompress()
	check.Nil(t, err)
	check.Equal(t, original, decompressed)
}

// TestAttestationCOSEBase64_DecodeInvalid tests error handling for bad base64
func TestAttestationCOSEBase64_DecodeInvalid(t *testing.T) {
	_, err := AttestationCOSEBase64("not-valid-base64!!!@@@").Decode()
	check.NotNil(t, err)
	check.True(t, strings.Contains(err.Error(), "decode base64"))
}

// TestAttestationCOSEGzip_DecompressInvalid tests error handling for non-gzip input
func TestAttestationCOSEGzip_DecompressInvalid(t *testing.T) {
	tests := []struct {
		name           string
		input          AttestationCOSEGzip
		errorSubstring string
	}{
		{
			name:           "invalid base64",
			input:          "!!!invalid!!!",
			errorSubstring: "decode base64",
		},
		{
			name:           "valid base64 but not gzip",
			input:          "bW9jaw==",
			errorSubstring: "gzip",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := tt.input.Decompress()
			check.NotNil(t, err)
			check.Nil(t, result)
			check.True(t, strings.Contains(err.Error(), tt.errorSubstring))
		})
	}
}

// TestBidRequest_JSONRoundTrip tests that sealed bid requests survive JSON transport
func TestBidRequest_JSONRoundTrip(t *testing.T) {
	original := BidRequest{
		Type:      "bid_request",
		AuctionID: "auction-1",
		Bidder:    "alice",
		Payment:   decimal.NewFromInt(100),
		SealedBid: &SealedBidPayload{
			AESKeyEncrypted:  "a2V5",
			EncryptedPayload: "cGF5bG9hZA==",
			Nonce:            "bm9uY2U=",
		},
	}

	data, err := json.Marshal(original)
	check.Nil(t, err)

	var decoded BidRequest
	check.Nil(t, json.Unmarshal(data, &decoded))
	check.Equal(t, original.AuctionID, decoded.AuctionID)
	check.Equal(t, original.Bidder, decoded.Bidder)
	check.True(t, original.Payment.Equal(decoded.Payment))
	check.NotNil(t, decoded.SealedBid)
	check.Equal(t, original.SealedBid.EncryptedPayload, decoded.SealedBid.EncryptedPayload)
}

// TestSettlementUserData_JSONRoundTrip tests the attestation payload format
func TestSettlementUserData_JSONRoundTrip(t *testing.T) {
	original := SettlementUserData{
		AuctionID:   "auction-1",
		FloorPrice:  decimal.NewFromInt(1),
		TotalSupply: 10,
		UnitsSold:   8,
		Outcomes: []AttestedOutcome{
			{Fingerprint: "fp-1", Price: decimal.NewFromInt(3), Quantity: 5, Filled: 5},
			{Fingerprint: "fp-2", Price: decimal.NewFromInt(2), Quantity: 5, Filled: 3, RefundDue: decimal.NewFromInt(4)},
		},
		SettlementHash:  "deadbeef",
		SettlementNonce: "nonce",
	}

	data, err := json.Marshal(original)
	check.Nil(t, err)

	var decoded SettlementUserData
	check.Nil(t, json.Unmarshal(data, &decoded))
	check.Equal(t, original.AuctionID, decoded.AuctionID)
	check.Equal(t, original.UnitsSold, decoded.UnitsSold)
	check.Equal(t, 2, len(decoded.Outcomes))
	check.Equal(t, "fp-1", decoded.Outcomes[0].Fingerprint)
	check.True(t, decoded.Outcomes[1].RefundDue.Equal(decimal.NewFromInt(4)))
}
