package deck

import (
	"crypto/rand"
	"math/big"

	"github.com/google/uuid"
)

const (
	linkIDAlphabet = "abcdefghijkmnopqrstuvwxyzABCDEFGHJKLMNPQRSTUVWXYZ23456789"
	linkIDLength   = 8
)

// IDProvider issues identifiers for new records.
type IDProvider interface {
	NewID() (string, error)
}

type uuidProvider struct{}

// NewUUIDProvider constructs an IDProvider that issues UUIDv7 identifiers.
func NewUUIDProvider() IDProvider {
	return &uuidProvider{}
}

func (p *uuidProvider) NewID() (string, error) {
	value, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	return value.String(), nil
}

type shortIDProvider struct {
	length int
}

// NewShortIDProvider issues short random identifiers suitable for URL path segments.
func NewShortIDProvider() IDProvider {
	return &shortIDProvider{length: linkIDLength}
}

func (p *shortIDProvider) NewID() (string, error) {
	alphabetSize := big.NewInt(int64(len(linkIDAlphabet)))
	result := make([]byte, p.length)
	for index := range result {
		n, err := rand.Int(rand.Reader, alphabetSize)
		if err != nil {
			return "", err
		}
		result[index] = linkIDAlphabet[n.Int64()]
	}
	return string(result), nil
}
