package security

import (
	"crypto/rand"
	"errors"
	"math/big"
)

const (
	secretKeyAlphabet = "abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"
	secretKeyLength   = 64
)

var (
	ErrNegativeLength = errors.New("length must be non-negative")
	ErrEmptyAlphabet  = errors.New("alphabet must not be empty")
)

// RandomString draws length characters uniformly from alphabet using crypto/rand.
func RandomString(length int, alphabet string) (string, error) {
	switch {
	case length < 0:
		return "", ErrNegativeLength
	case length == 0:
		return "", nil
	case alphabet == "":
		return "", ErrEmptyAlphabet
	}

	limit := big.NewInt(int64(len(alphabet)))
	value := make([]byte, length)
	for index := range value {
		position, err := rand.Int(rand.Reader, limit)
		if err != nil {
			return "", err
		}
		value[index] = alphabet[position.Int64()]
	}
	return string(value), nil
}

// NewSecretKey returns a session signing key for processes started without SECRET_KEY.
func NewSecretKey() (string, error) {
	return RandomString(secretKeyLength, secretKeyAlphabet)
}
