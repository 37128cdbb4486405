package record

import "github.com/google/uuid"

// TokenGenerator generates unique pass tokens for recording correlation.
// Implemented by UUIDv7Generator (production) and the fixed generator in
// internal/testutil (tests).
type TokenGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-ordered UUIDv7 pass tokens.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string, falling back to UUIDv4 if the
// system clock source fails.
func (UUIDv7Generator) Generate() string {
	u, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return u.String()
}
