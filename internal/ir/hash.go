package ir

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// Domain prefixes for content-addressed digests.
// The version suffix allows a future algorithm change.
const (
	DomainResult  = "uov/result/v1"
	DomainRuleSet = "uov/ruleset/v1"
)

// hashWithDomain computes SHA256(domain + 0x00 + data). The null separator
// keeps the domain/data boundary unambiguous.
func hashWithDomain(domain string, data []byte) string {
	h := sha256.New()
	h.Write([]byte(domain))
	h.Write([]byte{0x00})
	h.Write(data)
	return hex.EncodeToString(h.Sum(nil))
}

// ResultDigest computes the audit digest of a validation result. RunID and
// Digest do not participate, so replaying the same input under a new run
// yields the same digest.
func ResultDigest(r ValidationResult) (string, error) {
	canonical, err := MarshalCanonical(r.CanonicalMap())
	if err != nil {
		return "", fmt.Errorf("ResultDigest: %w", err)
	}
	return hashWithDomain(DomainResult, canonical), nil
}

// RuleSetDigest computes the digest of a decoded rule document.
func RuleSetDigest(doc map[string]any) (string, error) {
	canonical, err := MarshalCanonical(doc)
	if err != nil {
		return "", fmt.Errorf("RuleSetDigest: %w", err)
	}
	return hashWithDomain(DomainRuleSet, canonical), nil
}
