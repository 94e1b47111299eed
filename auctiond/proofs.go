package main

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/hex"
	"encoding/json"
	"encoding/pem"
	"fmt"
	"log"
	"time"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"

	"github.com/cloudx-io/opensale/core"
	"github.com/cloudx-io/opensale/saleapi"
)

// EnclaveAttester interface for dependency injection and testing
type EnclaveAttester interface {
	Attest(options enclave.AttestationOptions) ([]byte, error)
}

// generateSecureRandomBytes generates cryptographically secure random bytes
// Uses crypto/rand which automatically leverages the best available entropy:
// - In NSM enclave: crypto/rand uses NSM-enhanced kernel entropy pool
// - In development: crypto/rand uses standard kernel entropy pool
func generateSecureRandomBytes(length int) ([]byte, error) {
	randomBytes := make([]byte, length)
	if _, err := rand.Read(randomBytes); err != nil {
		return nil, fmt.Errorf("entropy generation failed: %w", err)
	}
	return randomBytes, nil
}

func generateNonce() (string, error) {
	randomBytes, err := generateSecureRandomBytes(32) // 256 bits of entropy
	if err != nil {
		return "", fmt.Errorf("failed to generate secure nonce - %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}

// stripBidder converts a core settlement outcome to its attested form,
// removing bidder identity so it is not leaked in the attestation document.
func stripBidder(outcome core.BidOutcome) saleapi.AttestedOutcome {
	return saleapi.AttestedOutcome{
		Fingerprint: outcome.Fingerprint,
		Price:       outcome.Price,
		Quantity:    outcome.Quantity,
		Filled:      outcome.Filled,
		RefundDue:   outcome.RefundDue,
	}
}

// GenerateSettlementAttestation embeds the full clearing outcome in an NSM
// attestation so every bidder can verify their fill and refund against the
// enclave-signed receipt.
func GenerateSettlementAttestation(attester EnclaveAttester, auction *core.Auction, result *core.SettlementResult) (saleapi.AttestationCOSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	settlementNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate settlement nonce: %w", err)
	}

	outcomes := make([]saleapi.AttestedOutcome, 0, len(result.Outcomes))
	for _, outcome := range result.Outcomes {
		outcomes = append(outcomes, stripBidder(outcome))
	}

	userData := &saleapi.SettlementUserData{
		AuctionID:       result.AuctionID,
		FloorPrice:      auction.FloorPrice(),
		TotalSupply:     result.TotalSupply,
		UnitsSold:       result.UnitsSold,
		BidsProcessed:   result.BidsProcessed,
		Outcomes:        outcomes,
		SettlementHash:  core.ComputeSettlementHash(result.AuctionID, result.UnitsSold, settlementNonce),
		SettlementNonce: settlementNonce,
		Timestamp:       time.Now(),
	}

	userDataBytes, err := json.Marshal(userData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM attestation failed: %v", err)
		return nil, fmt.Errorf("NSM attestation failed: %w", err)
	}

	log.Printf("INFO: Settlement attestation generated: %d bytes", len(attestationCBOR))

	return saleapi.AttestationCOSE(attestationCBOR), nil
}

// publicKeyToPEM converts an RSA public key to PEM format
func publicKeyToPEM(publicKey *rsa.PublicKey) (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(publicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// GenerateKeyAttestation generates raw COSE bytes for the sealing public key
func GenerateKeyAttestation(attester EnclaveAttester, publicKey *rsa.PublicKey) (saleapi.AttestationCOSE, error) {
	if attester == nil {
		return nil, fmt.Errorf("enclave attester is nil")
	}

	publicKeyPEM, err := publicKeyToPEM(publicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to convert public key to PEM: %w", err)
	}

	keyUserData := &saleapi.KeyAttestationUserData{
		KeyAlgorithm: "RSA-2048",
		PublicKey:    publicKeyPEM,
	}

	userDataBytes, err := json.Marshal(keyUserData)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal key user data: %w", err)
	}

	randomNonce, err := generateNonce()
	if err != nil {
		return nil, fmt.Errorf("failed to generate attestation nonce: %w", err)
	}

	attestationCBOR, err := attester.Attest(enclave.AttestationOptions{
		UserData: userDataBytes,
		Nonce:    []byte(randomNonce),
	})
	if err != nil {
		log.Printf("ERROR: NSM key attestation failed: %v", err)
		return nil, fmt.Errorf("NSM key attestation failed: %w", err)
	}

	log.Printf("Key attestation generated: %d bytes", len(attestationCBOR))

	return saleapi.AttestationCOSE(attestationCBOR), nil
}
