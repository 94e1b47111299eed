package main

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"

	"github.com/cloudx-io/opensale/saleapi"
)

// KeyManager manages the daemon's RSA key pair for sealed-bid decryption
type KeyManager struct {
	privateKey *rsa.PrivateKey // Keep private - sensitive!
	PublicKey  *rsa.PublicKey
}

// NewKeyManager creates a new KeyManager and generates a fresh RSA key pair
func NewKeyManager() (*KeyManager, error) {
	privateKey, err := GenerateRSAKeyPair()
	if err != nil {
		return nil, fmt.Errorf("failed to generate key pair: %w", err)
	}

	return &KeyManager{
		privateKey: privateKey,
		PublicKey:  &privateKey.PublicKey,
	}, nil
}

// PublicKeyPEM returns the public key in PEM format
func (km *KeyManager) PublicKeyPEM() (string, error) {
	derBytes, err := x509.MarshalPKIXPublicKey(km.PublicKey)
	if err != nil {
		return "", fmt.Errorf("failed to marshal public key: %w", err)
	}

	pemBlock := &pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: derBytes,
	}

	return string(pem.EncodeToMemory(pemBlock)), nil
}

// HandleKeyRequest returns the sealing public key with its attestation, so a
// bidder can verify it is encrypting to a genuine enclave key before sealing
// a bid.
func HandleKeyRequest(attester EnclaveAttester, keyManager *KeyManager) (*saleapi.KeyResponse, error) {
	publicKeyPEM, err := keyManager.PublicKeyPEM()
	if err != nil {
		return nil, fmt.Errorf("failed to export public key: %w", err)
	}

	attestationCOSE, err := GenerateKeyAttestation(attester, keyManager.PublicKey)
	if err != nil {
		return nil, fmt.Errorf("failed to generate key attestation: %w", err)
	}

	return &saleapi.KeyResponse{
		Type:                  "key_response",
		PublicKey:             publicKeyPEM,
		AttestationCOSEBase64: attestationCOSE.EncodeBase64(),
	}, nil
}
