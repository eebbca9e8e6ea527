// Package tokens builds and parses the signed bearer tokens handed out by the
// account flows. Everything here is pure computation: no store, no network.
package tokens

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretBytes is the smallest HMAC key accepted for HS384.
const MinSecretBytes = 48

var signingMethod = jwt.SigningMethodHS384

var errUnsupportedAlg = errors.New("unsupported signing algorithm")

// Claims is the payload bound by the token signature.
type Claims struct {
	UserID *uint    `json:"user_id,omitempty"`
	Roles  []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Codec issues and verifies HS384 tokens with a fixed key and validity window.
type Codec struct {
	secret   []byte
	validity time.Duration
	now      func() time.Time
}

type Option func(*Codec)

// WithClock replaces time.Now for issuance and expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Codec) { c.now = now }
}

// NewCodec returns a Codec signing with secret; tokens live validityDays days.
func NewCodec(secret []byte, validityDays int, opts ...Option) (*Codec, error) {
	if len(secret) < MinSecretBytes {
		return nil, fmt.Errorf("tokens: secret must be at least %d bytes", MinSecretBytes)
	}
	if validityDays <= 0 {
		return nil, fmt.Errorf("tokens: validity must be at least one day, got %d", validityDays)
	}
	c := &Codec{
		secret:   secret,
		validity: time.Duration(validityDays) * 24 * time.Hour,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Issue signs a fresh token for subject. userID and roles are optional claims.
func (c *Codec) Issue(subject string, userID *uint, roles []string) (string, error) {
	issuedAt := c.now().UTC()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(c.validity)),
		},
	}
	if len(roles) > 0 {
		claims.Roles = append([]string(nil), roles...)
	}

	t := jwt.NewWithClaims(signingMethod, claims)
	signed, err := t.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("tokens: sign: %w", err)
	}
	return signed, nil
}

// Verify reports whether token is well formed, correctly signed and unexpired.
func (c *Codec) Verify(token string) bool {
	_, err := c.Parse(token)
	return err == nil
}

// Parse verifies token and returns its claims, or a *TokenError.
func (c *Codec) Parse(token string) (*Claims, error) {
	if strings.TrimSpace(token) == "" {
		return nil, &TokenError{Kind: KindMalformed, Err: errors.New("empty token")}
	}

	var claims Claims
	parsed, err := jwt.ParseWithClaims(token, &claims, c.keyFunc,
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, classify(err)
	}
	if !parsed.Valid {
		return nil, &TokenError{Kind: KindMalformed, Err: errors.New("token not valid")}
	}
	return &claims, nil
}

func (c *Codec) ExtractSubject(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.Subject, nil
}

// ExtractID returns the jti claim. A verified token may still carry an empty id.
func (c *Codec) ExtractID(token string) (string, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return "", err
	}
	return claims.ID, nil
}

func (c *Codec) ExtractExpiration(token string) (time.Time, error) {
	claims, err := c.Parse(token)
	if err != nil {
		return time.Time{}, err
	}
	return claims.ExpiresAt.Time, nil
}

func (c *Codec) keyFunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != signingMethod.Alg() {
		return nil, fmt.Errorf("%w: %v", errUnsupportedAlg, t.Header["alg"])
	}
	return c.secret, nil
}
