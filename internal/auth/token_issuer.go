// Package auth issues and validates the short-lived tokens that grant a viewer
// access to one share link.
package auth

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const (
	defaultTokenTTL     = 12 * time.Hour
	defaultViewerIssuer = "decks-api"
)

var (
	errMissingSigningSecret = errors.New("auth: signing secret must be provided")
	errMissingLinkClaim     = errors.New("auth: link claim must be provided")
	errMissingEmailClaim    = errors.New("auth: email claim must be provided")
)

// ViewerClaims is the JWT payload granted after a viewer submits an email for a link.
type ViewerClaims struct {
	LinkID string `json:"link_id"`
	Email  string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuerConfig configures the viewer token issuer.
type TokenIssuerConfig struct {
	SigningSecret []byte
	Issuer        string
	TokenTTL      time.Duration
	Clock         func() time.Time
}

// TokenIssuer signs viewer tokens with HS256.
type TokenIssuer struct {
	signingSecret []byte
	issuer        string
	ttl           time.Duration
	clock         func() time.Time
}

// NewTokenIssuer constructs a TokenIssuer with sane defaults.
func NewTokenIssuer(cfg TokenIssuerConfig) (*TokenIssuer, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, errMissingSigningSecret
	}
	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = defaultTokenTTL
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultViewerIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &TokenIssuer{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		ttl:           ttl,
		clock:         clock,
	}, nil
}

// TTL reports how long issued tokens stay valid.
func (i *TokenIssuer) TTL() time.Duration {
	return i.ttl
}

// IssueViewerToken produces a signed JWT for the viewer and its expiry time.
func (i *TokenIssuer) IssueViewerToken(linkID, email string) (string, time.Time, error) {
	if strings.TrimSpace(linkID) == "" {
		return "", time.Time{}, errMissingLinkClaim
	}
	if strings.TrimSpace(email) == "" {
		return "", time.Time{}, errMissingEmailClaim
	}

	now := i.clock().UTC()
	expiresAt := now.Add(i.ttl).UTC()
	claims := ViewerClaims{
		LinkID: linkID,
		Email:  email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    i.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.signingSecret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}
