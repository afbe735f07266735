package usecase

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
)

// CodeLength is the number of digits of every issued code.
const CodeLength = 6

var codeSpace = big.NewInt(1_000_000)

// CodeGenerator produces one-time codes.
type CodeGenerator interface {
	Generate() (string, error)
}

// RandomCode draws codes uniformly from 000000-999999.
type RandomCode struct {
	source io.Reader
}

// NewRandomCode reads from crypto/rand.
func NewRandomCode() *RandomCode {
	return &RandomCode{source: rand.Reader}
}

func (g *RandomCode) Generate() (string, error) {
	n, err := rand.Int(g.source, codeSpace)
	if err != nil {
		return "", fmt.Errorf("read random source: %w", err)
	}
	return fmt.Sprintf("%0*d", CodeLength, n.Int64()), nil
}
