package utils

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

const (
	codeMin = 100000
	codeMax = 999999
)

var codeSpan = big.NewInt(codeMax - codeMin + 1)

// GenerateCode returns a uniformly distributed 6-digit one-time code.
// It panics if the system randomness source is unavailable.
func GenerateCode() string {
	n, err := rand.Int(rand.Reader, codeSpan)
	if err != nil {
		panic(fmt.Sprintf("crypto/rand unavailable: %v", err))
	}
	return fmt.Sprintf("%06d", n.Int64()+codeMin)
}
