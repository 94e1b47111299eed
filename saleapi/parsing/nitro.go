package parsing

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fxamacker/cbor/v2"

	"github.com/cloudx-io/opensale/saleapi"
)

// NitroAttestationDocument represents the raw CBOR structure from AWS Nitro Enclaves
type NitroAttestationDocument struct {
	ModuleID    string            `cbor:"module_id"`
	Digest      string            `cbor:"digest"`
	Timestamp   uint64            `cbor:"timestamp"`
	PCRs        map[uint64][]byte `cbor:"pcrs"`
	Certificate []byte            `cbor:"certificate"`
	CABundle    [][]byte          `cbor:"cabundle"`
	PublicKey   []byte            `cbor:"public_key"`
	UserData    []byte            `cbor:"user_data"`
	Nonce       []byte            `cbor:"nonce"`
}

// FormatPCR formats PCR bytes as hex string
func FormatPCR(pcrData []byte) string {
	if len(pcrData) == 0 {
		return ""
	}
	return fmt.Sprintf("%x", pcrData)
}

// EncodeCertificateBundle converts certificate bundle to base64 strings
func EncodeCertificateBundle(bundle [][]byte) []string {
	result := make([]string, len(bundle))
	for i, cert := range bundle {
		result[i] = base64.StdEncoding.EncodeToString(cert)
	}
	return result
}

// ExtractPCRs extracts and formats PCR values from the raw CBOR PCR map
func ExtractPCRs(rawPCRs map[uint64][]byte) saleapi.PCRs {
	return saleapi.PCRs{
		ImageFileHash:   FormatPCR(rawPCRs[0]),
		KernelHash:      FormatPCR(rawPCRs[1]),
		ApplicationHash: FormatPCR(rawPCRs[2]),
		IAMRoleHash:     FormatPCR(rawPCRs[3]),
		InstanceIDHash:  FormatPCR(rawPCRs[4]),
		SigningCertHash: FormatPCR(rawPCRs[8]),
	}
}

// ParseAttestationDoc extracts the COSE_Sign1 payload, decodes the nested
// CBOR attestation document, and returns the structured form plus the raw
// user data bytes for type-specific parsing.
func ParseAttestationDoc(coseBytes saleapi.AttestationCOSE) (saleapi.AttestationDoc, []byte, error) {
	payload, err := ExtractCOSEPayload(coseBytes)
	if err != nil {
		return saleapi.AttestationDoc{}, nil, err
	}

	var raw NitroAttestationDocument
	if err := cbor.Unmarshal(payload, &raw); err != nil {
		return saleapi.AttestationDoc{}, nil, fmt.Errorf("parse attestation document: %w", err)
	}

	doc := saleapi.AttestationDoc{
		ModuleID:        raw.ModuleID,
		Timestamp:       time.UnixMilli(int64(raw.Timestamp)).UTC(),
		DigestAlgorithm: raw.Digest,
		PCRs:            ExtractPCRs(raw.PCRs),
		Certificate:     base64.StdEncoding.EncodeToString(raw.Certificate),
		CABundle:        EncodeCertificateBundle(raw.CABundle),
		PublicKey:       base64.StdEncoding.EncodeToString(raw.PublicKey),
		Nonce:           string(raw.Nonce),
	}
	return doc, raw.UserData, nil
}

// ParseSettlementAttestation parses a settlement attestation, including its
// JSON user data.
func ParseSettlementAttestation(coseBytes saleapi.AttestationCOSE) (*saleapi.SettlementAttestationDoc, error) {
	doc, userDataBytes, err := ParseAttestationDoc(coseBytes)
	if err != nil {
		return nil, err
	}

	var userData saleapi.SettlementUserData
	if err := json.Unmarshal(userDataBytes, &userData); err != nil {
		return nil, fmt.Errorf("parse settlement user data: %w", err)
	}

	return &saleapi.SettlementAttestationDoc{
		AttestationDoc: doc,
		UserData:       &userData,
	}, nil
}

// ParseKeyAttestation parses a key attestation, including its JSON user data.
func ParseKeyAttestation(coseBytes saleapi.AttestationCOSE) (*saleapi.KeyAttestationDoc, error) {
	doc, userDataBytes, err := ParseAttestationDoc(coseBytes)
	if err != nil {
		return nil, err
	}

	var userData saleapi.KeyAttestationUserData
	if err := json.Unmarshal(userDataBytes, &userData); err != nil {
		return nil, fmt.Errorf("parse key user data: %w", err)
	}

	return &saleapi.KeyAttestationDoc{
		AttestationDoc: doc,
		UserData:       &userData,
	}, nil
}
