// Package security generates the signing secrets used for API bearer tokens.
package security

import (
	"crypto/rand"
	"errors"
	"fmt"
	"math/big"
)

const (
	SecretAlphabet      = "ABCDEFGHJKLMNPQRSTUVWXYZabcdefghijkmnopqrstuvwxyz23456789"
	DefaultSecretLength = 48
	MinSecretLength     = 16
)

var (
	ErrSecretTooShort = errors.New("secret length below minimum")
	errEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// NewSecretKey returns a random signing secret drawn from SecretAlphabet.
func NewSecretKey(length int) (string, error) {
	if length == 0 {
		length = DefaultSecretLength
	}
	if length < MinSecretLength {
		return "", fmt.Errorf("%w: %d < %d", ErrSecretTooShort, length, MinSecretLength)
	}
	return randomString(length, SecretAlphabet)
}

// randomString draws each position uniformly from alphabet with crypto/rand.
func randomString(length int, alphabet string) (string, error) {
	if len(alphabet) == 0 {
		return "", errEmptyAlphabet
	}

	limit := big.NewInt(int64(len(alphabet)))
	value := make([]byte, length)
	for index := range value {
		position, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", fmt.Errorf("read random: %w", err)
		}
		value[index] = alphabet[position.Int64()]
	}
	return string(value), nil
}
