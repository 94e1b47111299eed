package main

import (
	"fmt"
	"testing"

	enclave "github.com/edgebitio/nitro-enclaves-sdk-go"
	"github.com/peterldowns/testy/assert"
	"github.com/peterldowns/testy/check"
	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opensale/core"
	"github.com/cloudx-io/opensale/saleapi/parsing"
)

func settleTestServer(t *testing.T) (*AuctionServer, *core.SettlementResult) {
	t.Helper()

	server := newTestServer(t, 5)
	placeBid(t, server, "alice", 2, 5)
	placeBid(t, server, "bob", 3, 3)

	result, err := server.auction.Settle("operator")
	assert.NoError(t, err)
	return server, result
}

func TestGenerateSettlementAttestation(t *testing.T) {
	server, result := settleTestServer(t)
	mockEnclave := CreateMockEnclave(t)

	coseBytes, err := GenerateSettlementAttestation(mockEnclave, server.auction, result)
	assert.NoError(t, err)

	doc, err := parsing.ParseSettlementAttestation(coseBytes)
	assert.NoError(t, err)
	check.Equal(t, "test-enclave-12345", doc.ModuleID)
	check.Equal(t, "SHA384", doc.DigestAlgorithm)

	userData := doc.UserData
	check.Equal(t, server.auction.ID(), userData.AuctionID)
	check.True(t, userData.FloorPrice.Equal(decimal.NewFromInt(1)))
	check.Equal(t, uint64(5), userData.TotalSupply)
	check.Equal(t, uint64(5), userData.UnitsSold)
	check.Equal(t, 2, userData.BidsProcessed)
	assert.Equal(t, 2, len(userData.Outcomes))

	// Outcomes carry fingerprints and economics but never bidder identity.
	for i, outcome := range result.Outcomes {
		check.Equal(t, outcome.Fingerprint, userData.Outcomes[i].Fingerprint)
		check.True(t, userData.Outcomes[i].Price.Equal(outcome.Price))
		check.Equal(t, outcome.Filled, userData.Outcomes[i].Filled)
		check.True(t, userData.Outcomes[i].RefundDue.Equal(outcome.RefundDue))
	}

	check.Equal(t, 64, len(userData.SettlementNonce))
	expected := core.ComputeSettlementHash(userData.AuctionID, userData.UnitsSold, userData.SettlementNonce)
	check.Equal(t, expected, userData.SettlementHash)
}

func TestGenerateSettlementAttestation_NilAttester(t *testing.T) {
	server, result := settleTestServer(t)

	_, err := GenerateSettlementAttestation(nil, server.auction, result)
	assert.NotNil(t, err)
}

func TestGenerateSettlementAttestation_NSMFailure(t *testing.T) {
	server, result := settleTestServer(t)
	failing := &MockEnclaveHandle{
		AttestFunc: func(enclave.AttestationOptions) ([]byte, error) {
			return nil, fmt.Errorf("NSM device unavailable")
		},
	}

	_, err := GenerateSettlementAttestation(failing, server.auction, result)
	assert.NotNil(t, err)
}

func TestGenerateKeyAttestation(t *testing.T) {
	keyManager, err := NewKeyManager()
	assert.NoError(t, err)
	mockEnclave := CreateMockEnclave(t)

	coseBytes, err := GenerateKeyAttestation(mockEnclave, keyManager.PublicKey)
	assert.NoError(t, err)

	doc, err := parsing.ParseKeyAttestation(coseBytes)
	assert.NoError(t, err)
	check.Equal(t, "RSA-2048", doc.UserData.KeyAlgorithm)

	expectedPEM, err := keyManager.PublicKeyPEM()
	assert.NoError(t, err)
	check.Equal(t, expectedPEM, doc.UserData.PublicKey)
}

func TestHandleKeyRequest(t *testing.T) {
	keyManager, err := NewKeyManager()
	assert.NoError(t, err)
	mockEnclave := CreateMockEnclave(t)

	resp, err := HandleKeyRequest(mockEnclave, keyManager)
	assert.NoError(t, err)
	check.Equal(t, "key_response", resp.Type)

	expectedPEM, err := keyManager.PublicKeyPEM()
	assert.NoError(t, err)
	check.Equal(t, expectedPEM, resp.PublicKey)

	coseBytes, err := resp.AttestationCOSEBase64.Decode()
	assert.NoError(t, err)
	doc, err := parsing.ParseKeyAttestation(coseBytes)
	assert.NoError(t, err)
	check.Equal(t, expectedPEM, doc.UserData.PublicKey)
}
