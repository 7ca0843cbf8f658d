package app

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"strconv"

	"github.com/zonixt/eauction/internal/domain"
)

var codeSpan = big.NewInt(domain.OTPCodeMax - domain.OTPCodeMin + 1)

// GenerateCode returns a uniformly random code in [OTPCodeMin, OTPCodeMax].
// crypto/rand.Int rejection-samples, so there is no modulo bias.
func GenerateCode() (string, error) {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		return "", fmt.Errorf("generate OTP code: %w", err)
	}
	return strconv.FormatInt(n.Int64()+domain.OTPCodeMin, 10), nil
}
