package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/cloudx-io/opensale/saleapi"
	"github.com/cloudx-io/opensale/validation"
)

func main() {
	// Define CLI flags
	var (
		settlementInput = flag.String("settlement", "", "Settlement response JSON (file path or inline JSON)")
		bidInput        = flag.String("bid", "", "Bid record JSON (file path or inline JSON)")
		outputFormat    = flag.String("format", "text", "Output format: text or json")
		help            = flag.Bool("help", false, "Show usage information")
	)

	flag.Parse()

	// Show help
	if *help {
		showUsage()
		os.Exit(0)
	}

	// Check for required inputs
	if *settlementInput == "" || *bidInput == "" {
		showUsage()
		fmt.Fprintf(os.Stderr, "\nError: Both inputs are required (--settlement, --bid)\n")
		os.Exit(1)
	}

	// Parse inputs
	settlementJSON, err := readJSONInput(*settlementInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading settlement response: %v\n", err)
		os.Exit(2)
	}

	bidJSON, err := readJSONInput(*bidInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error reading bid record: %v\n", err)
		os.Exit(2)
	}

	// Extract validation data
	validationInput, err := extractValidationInput(settlementJSON, bidJSON)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error extracting validation data: %v\n", err)
		os.Exit(2)
	}

	// Validate using library
	result, err := validation.ValidateSettlementAttestation(validationInput)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Validation error: %v\n", err)
		os.Exit(2)
	}

	// Output results
	if *outputFormat == "json" {
		outputJSON(result)
	} else {
		outputText(result)
	}

	// Exit with appropriate code
	if !result.IsValid() {
		os.Exit(1)
	}
	os.Exit(0)
}

func showUsage() {
	fmt.Println("TEE Settlement Attestation Validator")
	fmt.Println()
	fmt.Println("Validates TEE settlement attestations against a bidder's own records.")
	fmt.Println()
	fmt.Println("Usage:")
	fmt.Println("  settlement-validator --settlement <json> --bid <json> [options]")
	fmt.Println()
	fmt.Println("Required Flags:")
	fmt.Println("  --settlement <json>               Settlement response (what the daemon returned)")
	fmt.Println("  --bid <json>                      Bid record (what the bidder submitted)")
	fmt.Println()
	fmt.Println("Optional Flags:")
	fmt.Println("  --format <text|json>              Output format (default: text)")
	fmt.Println("  --help                            Show this help message")
	fmt.Println()
	fmt.Println("Input Format:")
	fmt.Println("  Each flag accepts either a file path or inline JSON string.")
	fmt.Println()
	fmt.Println("Settlement Response (from the daemon's settlement_response):")
	fmt.Println("  {")
	fmt.Println("    \"attestation_cose_base64\": \"hEShATg...\"")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Bid Record (kept by the bidder when the bid was placed):")
	fmt.Println("  {")
	fmt.Println("    \"fingerprint\": \"9f2c4e...\",")
	fmt.Println("    \"price\": \"2.50\",")
	fmt.Println("    \"quantity\": 5,")
	fmt.Println("    \"expected_filled\": 3                              // optional")
	fmt.Println("  }")
	fmt.Println()
	fmt.Println("Examples:")
	fmt.Println("  # Using files")
	fmt.Println("  settlement-validator --settlement settlement.json --bid my_bid.json")
	fmt.Println()
	fmt.Println("  # Using inline JSON")
	fmt.Println("  settlement-validator \\")
	fmt.Println("    --settlement '{\"attestation_cose_base64\":\"hEShATg...\"}' \\")
	fmt.Println("    --bid '{\"fingerprint\":\"9f2c4e...\",\"price\":\"2.50\",\"quantity\":5}'")
	fmt.Println()
	fmt.Println("Exit Codes:")
	fmt.Println("  0 - Validation passed")
	fmt.Println("  1 - Validation failed")
	fmt.Println("  2 - Invalid input or runtime error")
}

func readJSONInput(input string) ([]byte, error) {
	// Try reading as file first
	if data, err := os.ReadFile(input); err == nil {
		return data, nil
	}
	// Treat as inline JSON
	return []byte(input), nil
}

func extractValidationInput(settlementJSON, bidJSON []byte) (*validation.SettlementValidationInput, error) {
	// Parse settlement response
	var settlement struct {
		AttestationCOSEBase64 string `json:"attestation_cose_base64"`
	}
	if err := json.Unmarshal(settlementJSON, &settlement); err != nil {
		return nil, fmt.Errorf("parse settlement response: %w", err)
	}
	if settlement.AttestationCOSEBase64 == "" {
		return nil, fmt.Errorf("missing or invalid 'attestation_cose_base64' in settlement response")
	}

	// Parse bid record
	var bid struct {
		Fingerprint    string          `json:"fingerprint"`
		Price          decimal.Decimal `json:"price"`
		Quantity       uint64          `json:"quantity"`
		ExpectedFilled *uint64         `json:"expected_filled"`
	}
	if err := json.Unmarshal(bidJSON, &bid); err != nil {
		return nil, fmt.Errorf("parse bid record: %w", err)
	}
	if bid.Fingerprint == "" {
		return nil, fmt.Errorf("missing or invalid 'fingerprint' in bid record")
	}

	return &validation.SettlementValidationInput{
		AttestationCOSEBase64: saleapi.AttestationCOSEBase64(settlement.AttestationCOSEBase64),
		Fingerprint:           bid.Fingerprint,
		BidPrice:              bid.Price,
		Quantity:              bid.Quantity,
		ExpectedFilled:        bid.ExpectedFilled,
	}, nil
}

func outputText(result *validation.SettlementValidationResult) {
	fmt.Println("TEE Settlement Attestation Validator")
	fmt.Println("====================================")
	fmt.Println()

	fmt.Println("Validation Results:")
	fmt.Println("-------------------")

	fmt.Println()
	fmt.Println("Summary:")
	fmt.Printf("  PCRs Valid:               %v\n", result.PCRsValid)
	fmt.Printf("  Certificate Valid:        %v\n", result.CertificateValid)
	fmt.Printf("  Signature Valid:          %v\n", result.SignatureValid)
	fmt.Printf("  Outcome Included:         %v\n", result.OutcomeIncluded)
	fmt.Printf("  Fill Valid:               %v\n", result.FilledValid)
	fmt.Printf("  Refund Arithmetic Valid:  %v\n", result.RefundArithmeticValid)
	fmt.Printf("  Conservation Valid:       %v\n", result.ConservationValid)
	fmt.Printf("  Settlement Hash Valid:    %v\n", result.SettlementHashValid)

	fmt.Println()
	fmt.Println("Details:")
	for _, detail := range result.ValidationDetails {
		fmt.Printf("  - %s\n", detail)
	}

	fmt.Println()
	fmt.Println("====================================")
	if result.IsValid() {
		fmt.Println("VALIDATION: ✓ PASSED")
		fmt.Println("Exit Code: 0")
	} else {
		fmt.Println("VALIDATION: ✗ FAILED")
		fmt.Println("Exit Code: 1")
	}
}

func outputJSON(result *validation.SettlementValidationResult) {
	output := map[string]any{
		"valid":                   result.IsValid(),
		"pcrs_valid":              result.PCRsValid,
		"certificate_valid":       result.CertificateValid,
		"signature_valid":         result.SignatureValid,
		"outcome_included":        result.OutcomeIncluded,
		"fill_valid":              result.FilledValid,
		"refund_arithmetic_valid": result.RefundArithmeticValid,
		"conservation_valid":      result.ConservationValid,
		"settlement_hash_valid":   result.SettlementHashValid,
		"details":                 result.ValidationDetails,
	}

	data, err := json.MarshalIndent(output, "", "  ")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error marshaling JSON: %v\n", err)
		os.Exit(2)
	}
	fmt.Println(string(data))
}
