// Package testutil provides deterministic helpers shared by tests and
// the conformance harness.
package testutil

// FixedTokenGenerator generates the same pass token every time.
//
// This enables deterministic test execution and golden snapshot
// comparison: the same scenario with the same FixedTokenGenerator
// produces byte-identical traces and container names.
//
// Thread-safety: stateless and safe for concurrent use.
type FixedTokenGenerator struct {
	token string
}

// NewFixedTokenGenerator creates a fixed pass-token generator.
// If token is empty, Generate returns "test-pass-default".
func NewFixedTokenGenerator(token string) *FixedTokenGenerator {
	if token == "" {
		token = "test-pass-default"
	}
	return &FixedTokenGenerator{token: token}
}

// Generate returns the fixed pass token.
//
// Implements record.TokenGenerator.
func (g *FixedTokenGenerator) Generate() string {
	return g.token
}
