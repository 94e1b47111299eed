package validation

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opensale/core"
	"github.com/cloudx-io/opensale/saleapi"
	"github.com/cloudx-io/opensale/saleapi/parsing"
)

// SettlementValidationInput contains all inputs needed for settlement
// attestation validation.
type SettlementValidationInput struct {
	AttestationCOSEBase64 saleapi.AttestationCOSEBase64 // From SettlementResponse
	Fingerprint           string                        // The bidder's own bid
	BidPrice              decimal.Decimal               // Price the bidder committed to
	Quantity              uint64                        // Quantity the bidder requested
	ExpectedFilled        *uint64                       // nil = accept any fill quantity
}

// ValidateSettlementAttestation validates a TEE settlement attestation and verifies:
// - The bid's outcome is included in the clearing receipt
// - The fill matches the bidder's expectation (when one is supplied)
// - Every refund equals (requested - filled) x price
// - Allocated units are conserved against total supply
// - The settlement commitment hash matches
//
// Returns:
//   - SettlementValidationResult with detailed results (call result.IsValid() to check overall status)
//   - error if validation cannot be performed (e.g., malformed input, missing config)
func ValidateSettlementAttestation(input *SettlementValidationInput) (*SettlementValidationResult, error) {
	// Perform common attestation validation (PCRs, certificate, signature)
	baseResult, err := validateCommonAttestation(input.AttestationCOSEBase64)
	if err != nil {
		return nil, err
	}

	coseBytes, err := input.AttestationCOSEBase64.Decode()
	if err != nil {
		return nil, fmt.Errorf("decode COSE bytes: %w", err)
	}

	settlementAttestation, err := parsing.ParseSettlementAttestation(coseBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse attestation from attestation_cose_base64: %w", err)
	}

	// Create settlement-specific result with base validation results
	result := &SettlementValidationResult{
		BaseValidationResult: *baseResult,
	}

	// Validate user data is present
	if settlementAttestation.UserData == nil {
		result.ValidationDetails = append(result.ValidationDetails, "Attestation user data missing")
		return result, nil
	}

	userData := settlementAttestation.UserData
	result.OutcomeIncluded = validateOutcomeInclusion(input, userData, result)
	result.FilledValid = validateFill(input, userData, result)
	result.RefundArithmeticValid = validateRefundArithmetic(userData, result)
	result.ConservationValid = validateConservation(userData, result)
	result.SettlementHashValid = validateSettlementHash(userData, result)

	return result, nil
}

// findOutcome returns the attested outcome for the given fingerprint, or nil.
func findOutcome(userData *saleapi.SettlementUserData, fingerprint string) *saleapi.AttestedOutcome {
	for i := range userData.Outcomes {
		if userData.Outcomes[i].Fingerprint == fingerprint {
			return &userData.Outcomes[i]
		}
	}
	return nil
}

func validateOutcomeInclusion(input *SettlementValidationInput, userData *saleapi.SettlementUserData, result *SettlementValidationResult) bool {
	outcome := findOutcome(userData, input.Fingerprint)
	if outcome == nil {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid outcome NOT found in attestation. Fingerprint: %s", input.Fingerprint))
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Total outcomes in attestation: %d", len(userData.Outcomes)))
		return false
	}

	if !outcome.Price.Equal(input.BidPrice) {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Attested price mismatch: expected %s, attestation has %s", input.BidPrice, outcome.Price))
		return false
	}
	if outcome.Quantity != input.Quantity {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Attested quantity mismatch: expected %d, attestation has %d", input.Quantity, outcome.Quantity))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Bid outcome found in attestation: %s", input.Fingerprint))
	return true
}

func validateFill(input *SettlementValidationInput, userData *saleapi.SettlementUserData, result *SettlementValidationResult) bool {
	if input.ExpectedFilled == nil {
		result.ValidationDetails = append(result.ValidationDetails, "Fill validation skipped: no expected fill supplied")
		return true
	}

	outcome := findOutcome(userData, input.Fingerprint)
	if outcome == nil {
		result.ValidationDetails = append(result.ValidationDetails, "Fill validation failed: bid outcome missing")
		return false
	}

	if outcome.Filled == *input.ExpectedFilled {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fill validation passed: %d units", outcome.Filled))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Fill mismatch: expected %d, attestation has %d", *input.ExpectedFilled, outcome.Filled))
	return false
}

// validateRefundArithmetic checks every attested outcome, not just the
// caller's: a receipt with a bad refund anywhere is not trustworthy.
func validateRefundArithmetic(userData *saleapi.SettlementUserData, result *SettlementValidationResult) bool {
	for _, outcome := range userData.Outcomes {
		unfilled := outcome.Quantity - outcome.Filled
		expected := outcome.Price.Mul(decimal.NewFromUint64(unfilled))
		if outcome.Filled > outcome.Quantity {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Refund arithmetic failed: outcome %s filled %d exceeds requested %d", outcome.Fingerprint, outcome.Filled, outcome.Quantity))
			return false
		}
		if !outcome.RefundDue.Equal(expected) {
			result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Refund arithmetic failed: outcome %s expected %s, attestation has %s", outcome.Fingerprint, expected, outcome.RefundDue))
			return false
		}
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Refund arithmetic valid across %d outcomes", len(userData.Outcomes)))
	return true
}

// validateConservation checks that the allocated units sum to the attested
// units sold and never exceed total supply.
func validateConservation(userData *saleapi.SettlementUserData, result *SettlementValidationResult) bool {
	var totalFilled uint64
	for _, outcome := range userData.Outcomes {
		totalFilled += outcome.Filled
	}

	if totalFilled != userData.UnitsSold {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation failed: outcomes allocate %d units but attestation reports %d sold", totalFilled, userData.UnitsSold))
		return false
	}
	if userData.UnitsSold > userData.TotalSupply {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation failed: %d units sold exceeds total supply %d", userData.UnitsSold, userData.TotalSupply))
		return false
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Conservation valid: %d of %d units allocated", userData.UnitsSold, userData.TotalSupply))
	return true
}

func validateSettlementHash(userData *saleapi.SettlementUserData, result *SettlementValidationResult) bool {
	if userData.SettlementNonce == "" {
		result.ValidationDetails = append(result.ValidationDetails, "Settlement nonce missing from attestation")
		return false
	}

	computedHash := core.ComputeSettlementHash(userData.AuctionID, userData.UnitsSold, userData.SettlementNonce)
	if computedHash == userData.SettlementHash {
		result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement hash validation passed: %s", computedHash))
		return true
	}

	result.ValidationDetails = append(result.ValidationDetails, fmt.Sprintf("Settlement hash mismatch: computed %s, attestation has %s", computedHash, userData.SettlementHash))
	return false
}
