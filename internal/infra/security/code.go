package security

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// DigitCodeGenerator draws uniformly distributed numeric codes from crypto/rand.
type DigitCodeGenerator struct {
	Digits int
}

func (g DigitCodeGenerator) NewCode() (string, error) {
	digits := g.Digits
	if digits <= 0 {
		digits = 6
	}
	limit := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(digits)), nil)
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", fmt.Errorf("code: entropy read failed: %w", err)
	}
	return fmt.Sprintf("%0*d", digits, n), nil
}
