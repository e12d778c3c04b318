// Package services holds small application services that sit beside the
// state manager rather than inside it.
package services

import (
	"strings"

	"go.uber.org/zap"
)

// defaultCrisisTerms are phrases whose presence in a reflection flags
// crisis mode. Matching is case-insensitive substring matching; the terms
// are phrases rather than single words to keep false positives down.
var defaultCrisisTerms = []string{
	"kill myself",
	"end my life",
	"want to die",
	"suicide",
	"suicidal",
	"self harm",
	"self-harm",
	"hurt myself",
	"no reason to live",
	"better off without me",
	"can't go on",
}

// ScanResult is the outcome of a crisis-language scan
type ScanResult struct {
	Detected    bool
	MatchedTerm string
}

// CrisisScanner checks reflection content for crisis language. It carries
// no state beyond its term list and is safe for concurrent use.
type CrisisScanner struct {
	terms  []string
	logger *zap.Logger
}

// NewCrisisScanner creates a scanner with the default term list
func NewCrisisScanner(logger *zap.Logger) *CrisisScanner {
	return NewCrisisScannerWithTerms(defaultCrisisTerms, logger)
}

// NewCrisisScannerWithTerms creates a scanner with a custom term list
func NewCrisisScannerWithTerms(terms []string, logger *zap.Logger) *CrisisScanner {
	if logger == nil {
		logger = zap.NewNop()
	}
	normalized := make([]string, 0, len(terms))
	for _, t := range terms {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			normalized = append(normalized, t)
		}
	}
	return &CrisisScanner{terms: normalized, logger: logger}
}

// Scan checks the text for crisis language and returns the first match
func (s *CrisisScanner) Scan(text string) ScanResult {
	lowered := strings.ToLower(text)
	for _, term := range s.terms {
		if strings.Contains(lowered, term) {
			s.logger.Warn("Crisis language detected in reflection")
			return ScanResult{Detected: true, MatchedTerm: term}
		}
	}
	return ScanResult{}
}
