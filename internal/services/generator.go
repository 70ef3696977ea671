package services

import (
	"crypto/rand"
	"fmt"
	"math/big"
)

// Character set for alias generation: URL-safe, case-sensitive.
const aliasCharset = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// DefaultAliasLength is the length of a first-attempt generated alias.
const DefaultAliasLength = 6

// AliasGenerator produces candidate aliases. Generation is pure and gives no
// uniqueness guarantee; the LinkService enforces uniqueness through the
// store's insert-and-check protocol.
type AliasGenerator interface {
	Generate(length int) (string, error)
}

// RandomAliasGenerator draws aliases from crypto/rand so that codes are not
// guessable or sequential.
type RandomAliasGenerator struct{}

// NewRandomAliasGenerator creates a RandomAliasGenerator.
func NewRandomAliasGenerator() *RandomAliasGenerator {
	return &RandomAliasGenerator{}
}

// Generate returns a random alias of the requested length.
func (g *RandomAliasGenerator) Generate(length int) (string, error) {
	result := make([]byte, length)
	charsetLen := big.NewInt(int64(len(aliasCharset)))

	for i := 0; i < length; i++ {
		randomIndex, err := rand.Int(rand.Reader, charsetLen)
		if err != nil {
			return "", fmt.Errorf("error generating random number: %w", err)
		}
		result[i] = aliasCharset[randomIndex.Int64()]
	}

	return string(result), nil
}
