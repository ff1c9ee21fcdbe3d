package domain

import (
	"crypto/rand"
	"math/big"
)

const (
	codeMin  = 100000
	codeSpan = 900000
)

// GenerateCode returns a 6-digit numeric verification code drawn from
// crypto/rand.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(codeSpan))
	if err != nil {
		return "", err
	}
	return big.NewInt(codeMin + n.Int64()).String(), nil
}

// GenerateBatchCodes returns n codes unique within the batch. Collisions
// are retried a bounded number of times before giving up.
func GenerateBatchCodes(n int) ([]string, error) {
	if n <= 0 {
		return nil, ErrEmptyBatch
	}

	codes := make([]string, 0, n)
	seen := make(map[string]struct{}, n)
	attempts := 0
	maxAttempts := n * 20

	for len(codes) < n {
		if attempts >= maxAttempts {
			return nil, ErrDuplicateCode
		}
		attempts++

		code, err := GenerateCode()
		if err != nil {
			return nil, err
		}
		if _, dup := seen[code]; dup {
			continue
		}
		seen[code] = struct{}{}
		codes = append(codes, code)
	}

	return codes, nil
}
