package auth

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const bearerPrefix = "Bearer "

var (
	ErrMissingSessionSigningKey = errors.New("session validator: signing key required")
	ErrMissingSessionCookieName = errors.New("session validator: cookie name required")
	ErrMissingSessionToken      = errors.New("session validator: token required")
	ErrInvalidSessionToken      = errors.New("session validator: invalid token")
	ErrExpiredSessionToken      = errors.New("session validator: token expired")
	ErrSessionLinkMismatch      = errors.New("session validator: token issued for another link")
)

// SessionValidatorConfig describes how to validate viewer tokens.
type SessionValidatorConfig struct {
	SigningSecret []byte
	Issuer        string
	CookieName    string
	Clock         func() time.Time
}

// SessionValidator validates HS256 viewer tokens from a cookie or bearer header.
type SessionValidator struct {
	signingSecret []byte
	issuer        string
	cookieName    string
	clock         func() time.Time
}

// NewSessionValidator constructs a validator with the provided configuration.
func NewSessionValidator(cfg SessionValidatorConfig) (*SessionValidator, error) {
	if len(cfg.SigningSecret) == 0 {
		return nil, ErrMissingSessionSigningKey
	}
	cookieName := strings.TrimSpace(cfg.CookieName)
	if cookieName == "" {
		return nil, ErrMissingSessionCookieName
	}
	issuer := strings.TrimSpace(cfg.Issuer)
	if issuer == "" {
		issuer = defaultViewerIssuer
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	return &SessionValidator{
		signingSecret: append([]byte(nil), cfg.SigningSecret...),
		issuer:        issuer,
		cookieName:    cookieName,
		clock:         clock,
	}, nil
}

// CookieName returns the cookie name configured for viewer sessions.
func (v *SessionValidator) CookieName() string {
	return v.cookieName
}

// ValidateToken validates the supplied JWT string and returns the parsed claims.
func (v *SessionValidator) ValidateToken(tokenString string) (ViewerClaims, error) {
	token := strings.TrimSpace(tokenString)
	if token == "" {
		return ViewerClaims{}, ErrMissingSessionToken
	}

	claims := &ViewerClaims{}
	parsed, err := jwt.ParseWithClaims(
		token,
		claims,
		func(t *jwt.Token) (interface{}, error) {
			if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
				return nil, fmt.Errorf("%w: unexpected signing algorithm %s", ErrInvalidSessionToken, t.Method.Alg())
			}
			return v.signingSecret, nil
		},
		jwt.WithTimeFunc(v.clock),
		jwt.WithIssuer(v.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return ViewerClaims{}, ErrExpiredSessionToken
		}
		return ViewerClaims{}, fmt.Errorf("%w: %v", ErrInvalidSessionToken, err)
	}
	if parsed == nil || !parsed.Valid {
		return ViewerClaims{}, ErrInvalidSessionToken
	}
	if strings.TrimSpace(claims.LinkID) == "" || strings.TrimSpace(claims.Email) == "" {
		return ViewerClaims{}, ErrInvalidSessionToken
	}
	return *claims, nil
}

// ValidateRequest reads the token from the bearer header or the session cookie and
// checks that it was issued for linkID.
func (v *SessionValidator) ValidateRequest(r *http.Request, linkID string) (ViewerClaims, error) {
	if r == nil {
		return ViewerClaims{}, ErrMissingSessionToken
	}
	token := ""
	if header := r.Header.Get("Authorization"); strings.HasPrefix(header, bearerPrefix) {
		token = strings.TrimPrefix(header, bearerPrefix)
	} else if cookie, err := r.Cookie(v.cookieName); err == nil && cookie != nil {
		token = cookie.Value
	}
	claims, err := v.ValidateToken(token)
	if err != nil {
		return ViewerClaims{}, err
	}
	if claims.LinkID != linkID {
		return ViewerClaims{}, ErrSessionLinkMismatch
	}
	return claims, nil
}
