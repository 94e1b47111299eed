package saleapi

import (
	"bytes"
	"compress/gzip"
	"encoding/base64"
	"fmt"
	"io"
	"time"

	"github.com/shopspring/decimal"
)

// SealedBidPayload carries a bid whose price and quantity are encrypted with
// hybrid RSA-OAEP/AES-256-GCM to the auction operator's public key. Sealed
// bids are only ever opened inside the TEE where the auction runs, so no
// bidder learns a competitor's price before settlement.
type SealedBidPayload struct {
	AESKeyEncrypted  string `json:"aes_key_encrypted"`        // base64-encoded RSA-OAEP encrypted AES key
	EncryptedPayload string `json:"encrypted_payload"`        // base64-encoded AES-GCM encrypted {"price": X, "quantity": N}
	Nonce            string `json:"nonce"`                    // base64-encoded GCM nonce (12 bytes)
	HashAlgorithm    string `json:"hash_algorithm,omitempty"` // Optional: "SHA-256" (default) or "SHA-1" for RSA-OAEP
}

// PCRs represents the Platform Configuration Registers from AWS Nitro Enclaves
type PCRs struct {
	// PCR0: Hash of the Enclave Image File (EIF)
	ImageFileHash string `json:"0"`

	// PCR1: Hash of the Linux kernel and initial RAM data (initramfs)
	KernelHash string `json:"1"`

	// PCR2: Hash of user applications, excluding the boot ramfs
	ApplicationHash string `json:"2"`

	// PCR3: Hash of the IAM role assigned to the parent instance
	IAMRoleHash string `json:"3"`

	// PCR4: Hash of the parent instance's ID
	InstanceIDHash string `json:"4"`

	// PCR8: Hash of the enclave image file's signing certificate
	SigningCertHash string `json:"8,omitempty"`
}

// AttestationDoc represents the base structured attestation data from AWS
// Nitro Enclaves, shared by all attestation types.
type AttestationDoc struct {
	// Module ID identifies the enclave
	ModuleID string `json:"module_id"`

	// Timestamp when the attestation was generated
	Timestamp time.Time `json:"timestamp"`

	// Digest algorithm used (e.g., "SHA384")
	DigestAlgorithm string `json:"digest"`

	// PCRs (Platform Configuration Registers) containing measurements
	PCRs PCRs `json:"pcrs"`

	// Certificate containing the attestation signature
	Certificate string `json:"certificate"`

	// Cabundle for certificate chain validation
	CABundle []string `json:"cabundle"`

	// Public key used for attestation
	PublicKey string `json:"public_key"`

	// Nonce for replay protection
	Nonce string `json:"nonce"`
}

// AttestedOutcome is a per-bid settlement outcome as embedded in the
// attestation. Bids are addressed by fingerprint only; bidder identity is
// never leaked in the attestation document.
type AttestedOutcome struct {
	Fingerprint string          `json:"fingerprint"`
	Price       decimal.Decimal `json:"price"`
	Quantity    uint64          `json:"quantity"`
	Filled      uint64          `json:"filled"`
	RefundDue   decimal.Decimal `json:"refund_due"`
}

// SettlementUserData is the settlement-specific data embedded in the
// attestation: the full clearing outcome plus a nonce-keyed commitment hash.
type SettlementUserData struct {
	AuctionID       string            `json:"auction_id"`
	FloorPrice      decimal.Decimal   `json:"floor_price"`
	TotalSupply     uint64            `json:"total_supply"`
	UnitsSold       uint64            `json:"units_sold"`
	BidsProcessed   int               `json:"bids_processed"`
	Outcomes        []AttestedOutcome `json:"outcomes"`
	SettlementHash  string            `json:"settlement_hash"`
	SettlementNonce string            `json:"settlement_nonce"`
	Timestamp       time.Time         `json:"timestamp"`
}

// SettlementAttestationDoc represents attestation specifically for settlement
type SettlementAttestationDoc struct {
	AttestationDoc
	// User data embedded in the attestation (settlement outcome)
	UserData *SettlementUserData `json:"user_data"`
}

// KeyAttestationUserData represents the key-specific data embedded in key attestation
type KeyAttestationUserData struct {
	KeyAlgorithm string `json:"key_algorithm"` // e.g., "RSA-2048"
	PublicKey    string `json:"public_key"`    // PEM-encoded public key
}

// KeyAttestationDoc represents attestation specifically for key distribution
type KeyAttestationDoc struct {
	AttestationDoc
	UserData *KeyAttestationUserData `json:"user_data"`
}

// AttestationCOSE holds raw COSE_Sign1 bytes as produced by the NSM.
type AttestationCOSE []byte

// AttestationCOSEBase64 is a base64-encoded COSE attestation for JSON transport.
type AttestationCOSEBase64 string

// AttestationCOSEGzip is a gzipped-then-base64 COSE attestation, the compact
// form used in settlement receipts handed to bidders.
type AttestationCOSEGzip string

// EncodeBase64 encodes the COSE bytes for JSON transport.
func (a AttestationCOSE) EncodeBase64() AttestationCOSEBase64 {
	return AttestationCOSEBase64(base64.StdEncoding.EncodeToString(a))
}

// EncodeGzip compresses and base64-encodes the COSE bytes.
func (a AttestationCOSE) EncodeGzip() (AttestationCOSEGzip, error) {
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write(a); err != nil {
		return "", fmt.Errorf("gzip attestation: %w", err)
	}
	if err := zw.Close(); err != nil {
		return "", fmt.Errorf("close gzip writer: %w", err)
	}
	return AttestationCOSEGzip(base64.StdEncoding.EncodeToString(buf.Bytes())), nil
}

// Decode returns the raw COSE bytes.
func (a AttestationCOSEBase64) Decode() (AttestationCOSE, error) {
	raw, err := base64.StdEncoding.DecodeString(string(a))
	if err != nil {
		return nil, fmt.Errorf("decode base64 attestation: %w", err)
	}
	return AttestationCOSE(raw), nil
}

// Decompress returns the raw COSE bytes from the gzipped form.
func (a AttestationCOSEGzip) Decompress() (AttestationCOSE, error) {
	compressed, err := base64.StdEncoding.DecodeString(string(a))
	if err != nil {
		return nil, fmt.Errorf("decode base64 attestation: %w", err)
	}
	zr, err := gzip.NewReader(bytes.NewReader(compressed))
	if err != nil {
		return nil, fmt.Errorf("open gzip reader: %w", err)
	}
	defer zr.Close()
	raw, err := io.ReadAll(zr)
	if err != nil {
		return nil, fmt.Errorf("decompress attestation: %w", err)
	}
	return AttestationCOSE(raw), nil
}

// BidRequest submits a bid to the auction daemon. If SealedBid is present the
// Price and Quantity fields are ignored and taken from the sealed payload
// after decryption inside the TEE.
type BidRequest struct {
	Type      string            `json:"type"` // "bid_request"
	AuctionID string            `json:"auction_id"`
	Bidder    string            `json:"bidder"`
	Price     decimal.Decimal   `json:"price"`
	Quantity  uint64            `json:"quantity"`
	Payment   decimal.Decimal   `json:"payment"`
	SealedBid *SealedBidPayload `json:"sealed_bid,omitempty"`
}

// BidResponse acknowledges a bid with its fingerprint, the handle the bidder
// later uses to claim an allocation or refund.
type BidResponse struct {
	Type        string `json:"type"` // "bid_response"
	Success     bool   `json:"success"`
	Message     string `json:"message"`
	Fingerprint string `json:"fingerprint,omitempty"`
}

// SettleRequest triggers the one-shot clearing pass.
type SettleRequest struct {
	Type     string `json:"type"` // "settle_request"
	Operator string `json:"operator"`
}

// SettlementResponse reports the clearing outcome together with the NSM
// attestation over the settlement user data.
type SettlementResponse struct {
	Type                  string                `json:"type"` // "settlement_response"
	Success               bool                  `json:"success"`
	Message               string                `json:"message"`
	UnitsSold             uint64                `json:"units_sold"`
	BidsProcessed         int                   `json:"bids_processed"`
	AttestationCOSEBase64 AttestationCOSEBase64 `json:"attestation_cose_base64,omitempty"`
	ProcessingTime        int64                 `json:"processing_time_ms"`
}

// ClaimRequest withdraws a settled bid's allocation or refund.
type ClaimRequest struct {
	Type        string `json:"type"` // "claim_allocation" or "claim_refund"
	Fingerprint string `json:"fingerprint"`
	Caller      string `json:"caller"`
}

// ClaimResponse reports what was paid out.
type ClaimResponse struct {
	Type    string          `json:"type"` // "claim_response"
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Units   uint64          `json:"units,omitempty"`
	Amount  decimal.Decimal `json:"amount,omitempty"`
}

// StatusResponse is a read-only snapshot of the auction aggregate.
type StatusResponse struct {
	Type        string          `json:"type"` // "status_response"
	AuctionID   string          `json:"auction_id"`
	FloorPrice  decimal.Decimal `json:"floor_price"`
	TotalSupply uint64          `json:"total_supply"`
	UnitsSold   uint64          `json:"units_sold"`
	BidCount    int             `json:"bid_count"`
	Closed      bool            `json:"closed"`
	ClosesAt    time.Time       `json:"closes_at"`
}

// KeyResponse returns the operator's sealing public key with its attestation,
// so bidders can verify they are encrypting to a genuine enclave key.
type KeyResponse struct {
	Type                  string                `json:"type"` // "key_response"
	PublicKey             string                `json:"public_key"` // PEM format
	AttestationCOSEBase64 AttestationCOSEBase64 `json:"attestation_cose_base64,omitempty"`
}
