package share

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Audience is the audience claim of every share token
const Audience = "recap-share"

// ErrInvalidToken is returned for malformed, tampered or expired tokens
var ErrInvalidToken = errors.New("invalid share token")

// Config holds share token configuration
type Config struct {
	Secret string        `yaml:"secret"`
	Issuer string        `yaml:"issuer"`
	TTL    time.Duration `yaml:"ttl"`
}

// Issuer signs and verifies read-only share links for drafts
type Issuer struct {
	cfg Config
	now func() time.Time
}

// NewIssuer creates a new share token issuer
func NewIssuer(cfg Config) (*Issuer, error) {
	if len(cfg.Secret) < 16 {
		return nil, fmt.Errorf("share secret must be at least 16 characters")
	}
	if cfg.TTL <= 0 {
		cfg.TTL = 7 * 24 * time.Hour
	}
	if cfg.Issuer == "" {
		cfg.Issuer = "recap-backend"
	}
	return &Issuer{cfg: cfg, now: time.Now}, nil
}

// Issue returns a signed token granting read access to draftID and its expiry
func (i *Issuer) Issue(draftID string) (string, time.Time, error) {
	now := i.now()
	expiresAt := now.Add(i.cfg.TTL)
	claims := jwt.RegisteredClaims{
		Issuer:    i.cfg.Issuer,
		Audience:  jwt.ClaimStrings{Audience},
		Subject:   draftID,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(expiresAt),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(i.cfg.Secret))
	if err != nil {
		return "", time.Time{}, fmt.Errorf("failed to sign share token: %w", err)
	}
	return signed, expiresAt, nil
}

// Parse validates a token and returns the draft ID it grants
func (i *Issuer) Parse(tokenStr string) (string, error) {
	claims := &jwt.RegisteredClaims{}
	_, err := jwt.ParseWithClaims(tokenStr, claims,
		func(t *jwt.Token) (any, error) { return []byte(i.cfg.Secret), nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithAudience(Audience),
		jwt.WithIssuer(i.cfg.Issuer),
		jwt.WithTimeFunc(i.now),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return "", fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return claims.Subject, nil
}
