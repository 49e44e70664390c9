package otp

import (
	"crypto/rand"
	"io"
	"math/big"
)

// randomDigits returns n independent, uniformly distributed decimal digits. The result is
// a fixed-width string; leading zeros are significant.
func randomDigits(source io.Reader, n int) (string, error) {
	const digits = "0123456789"
	result := make([]byte, n)

	for i := range result {
		num, err := rand.Int(source, big.NewInt(int64(len(digits))))
		if err != nil {
			return "", err
		}
		result[i] = digits[num.Int64()]
	}

	return string(result), nil
}
