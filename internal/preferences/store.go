// Package preferences stores small per-profile settings such as the editor theme or
// the last opened slide.
package preferences

import (
	"context"
	"errors"
	"strings"
	"unicode"
)

const (
	maxKeyLength   = 64
	maxValueLength = 4096
)

var (
	// ErrNotFound is returned when a preference is not set.
	ErrNotFound = errors.New("preferences: not found")
	// ErrInvalidKey rejects keys outside [a-z0-9._-] or longer than 64 characters.
	ErrInvalidKey = errors.New("preferences: invalid key")
	// ErrInvalidProfile rejects an empty profile id.
	ErrInvalidProfile = errors.New("preferences: invalid profile")
	// ErrValueTooLarge rejects values above 4 KiB.
	ErrValueTooLarge = errors.New("preferences: value too large")
)

// Store persists preferences scoped by profile.
type Store interface {
	All(ctx context.Context, profileID string) (map[string]string, error)
	Get(ctx context.Context, profileID, key string) (string, error)
	Set(ctx context.Context, profileID, key, value string) error
	Delete(ctx context.Context, profileID, key string) error
}

// ValidateKey normalizes and checks a preference key.
func ValidateKey(rawKey string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(rawKey))
	if key == "" || len(key) > maxKeyLength {
		return "", ErrInvalidKey
	}
	for _, r := range key {
		if r > unicode.MaxASCII {
			return "", ErrInvalidKey
		}
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '.' || r == '_' || r == '-' {
			continue
		}
		return "", ErrInvalidKey
	}
	return key, nil
}

func validateEntry(profileID, rawKey string) (string, string, error) {
	profile := strings.TrimSpace(profileID)
	if profile == "" {
		return "", "", ErrInvalidProfile
	}
	key, err := ValidateKey(rawKey)
	if err != nil {
		return "", "", err
	}
	return profile, key, nil
}

func validateValue(value string) error {
	if len(value) > maxValueLength {
		return ErrValueTooLarge
	}
	return nil
}
