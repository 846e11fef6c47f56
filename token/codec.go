package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Kind selects which credential a Codec operation works with. The two kinds
// share a claim shape but are signed with independent secrets and lifetimes,
// so a token issued under one kind never verifies under the other.
type Kind uint8

const (
	// KindAccess is the short-lived per-request credential. Never persisted.
	KindAccess Kind = iota
	// KindRefresh is the long-lived credential tracked by the session store
	// and consumed exactly once through rotation.
	KindRefresh
)

var (
	// ErrExpired is returned by Verify when the token's signature is sound
	// but its expiry has passed.
	ErrExpired = errors.New("token expired")
	// ErrInvalid is returned by Verify for every other failure: malformed
	// structure, signature mismatch, wrong kind's secret, bad claims.
	ErrInvalid = errors.New("token invalid")
)

// Config carries the signing secrets and lifetimes for both kinds. Secrets
// must be non-empty and distinct from each other.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	AccessTTL     time.Duration
	RefreshTTL    time.Duration
	Issuer        string
	Leeway        time.Duration
}

// Claims is the signed payload of both credential kinds. JSON field names
// match the wire format consumed by existing clients.
type Claims struct {
	AccountID string `json:"userId"`
	Email     string `json:"email"`
	Admin     bool   `json:"isAdmin"`
	jwt.RegisteredClaims
}

// Codec issues and verifies signed, time-bound credentials. A Codec is
// immutable after construction and safe for concurrent use.
type Codec struct {
	config Config
}

// NewCodec validates cfg and returns a ready Codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("access secret required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("refresh secret required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("access and refresh secrets must differ")
	}
	if cfg.AccessTTL <= 0 || cfg.RefreshTTL <= 0 {
		return nil, errors.New("invalid TTL configuration")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("invalid leeway configuration")
	}

	return &Codec{config: cfg}, nil
}

// Issue signs a credential of the given kind for the subject. Issued-at and
// expires-at are derived from the current time and the kind's lifetime. Each
// credential carries a unique JTI, so two issuances in the same second never
// collide.
func (c *Codec) Issue(kind Kind, accountID, email string, admin bool) (string, error) {
	secret, ttl, err := c.kindParams(kind)
	if err != nil {
		return "", err
	}

	now := time.Now()
	claims := Claims{
		AccountID: accountID,
		Email:     email,
		Admin:     admin,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    c.config.Issuer,
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// IssuePair issues one access and one refresh credential for the subject.
func (c *Codec) IssuePair(accountID, email string, admin bool) (access, refresh string, err error) {
	access, err = c.Issue(KindAccess, accountID, email, admin)
	if err != nil {
		return "", "", err
	}
	refresh, err = c.Issue(KindRefresh, accountID, email, admin)
	if err != nil {
		return "", "", err
	}
	return access, refresh, nil
}

// Verify checks tokenStr against the secret for kind and returns its claims.
// Expiry is reported as [ErrExpired]; every other failure, including a token
// signed under the other kind, is [ErrInvalid].
func (c *Codec) Verify(kind Kind, tokenStr string) (*Claims, error) {
	secret, _, err := c.kindParams(kind)
	if err != nil {
		return nil, err
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if c.config.Leeway > 0 {
		options = append(options, jwt.WithLeeway(c.config.Leeway))
	}
	if c.config.Issuer != "" {
		options = append(options, jwt.WithIssuer(c.config.Issuer))
	}

	parser := jwt.NewParser(options...)
	parsed, err := parser.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if t.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpired
		}
		return nil, ErrInvalid
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid || claims.AccountID == "" {
		return nil, ErrInvalid
	}

	return claims, nil
}

// Lifetime returns the configured TTL for kind.
func (c *Codec) Lifetime(kind Kind) time.Duration {
	_, ttl, err := c.kindParams(kind)
	if err != nil {
		return 0
	}
	return ttl
}

func (c *Codec) kindParams(kind Kind) ([]byte, time.Duration, error) {
	switch kind {
	case KindAccess:
		return c.config.AccessSecret, c.config.AccessTTL, nil
	case KindRefresh:
		return c.config.RefreshSecret, c.config.RefreshTTL, nil
	default:
		return nil, 0, errors.New("unknown token kind")
	}
}
