package trigger

import (
	"errors"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var ErrInvalidToken = errors.New("invalid token")

const (
	DefaultIssuerName = "shiplaned"
	DefaultTokenTTL   = 24 * time.Hour
)

// Identity is who a verified token speaks for.
type Identity struct {
	Subject   string
	ExpiresAt time.Time
}

// Issuer issues and verifies the bearer tokens which authorize
// triggering runs over the API.
//
// Tokens are JWS with HMAC-SHA256 signatures. Whoever holds the shared
// secret can mint them, so keep the secret to the daemon and its
// operators.
type Issuer struct {
	secret []byte
	name   string
	ttl    time.Duration
}

type Option func(*Issuer) *Issuer

func WithIssuerName(name string) Option {
	return func(i *Issuer) *Issuer {
		i.name = name
		return i
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(i *Issuer) *Issuer {
		i.ttl = ttl
		return i
	}
}

func NewIssuer(secret []byte, options ...Option) *Issuer {
	i := &Issuer{
		secret: secret,
		name:   DefaultIssuerName,
		ttl:    DefaultTokenTTL,
	}
	for _, opt := range options {
		i = opt(i)
	}
	return i
}

// Issue mints a token for subject, expiring after the issuer's ttl.
func (i *Issuer) Issue(subject string) (string, error) {
	now := time.Now()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ID:        uuid.NewString(),
		Issuer:    i.name,
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
	})
	return tok.SignedString(i.secret)
}

// Verify checks a token and returns the identity it speaks for.
//
// Any failure (malformed token, bad signature, expiry, foreign issuer)
// reports ErrInvalidToken with the cause attached.
func (i *Issuer) Verify(token string) (Identity, error) {
	claims := &jwt.RegisteredClaims{}
	if _, err := jwt.ParseWithClaims(
		token, claims,
		func(t *jwt.Token) (interface{}, error) { return i.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(i.name),
		jwt.WithExpirationRequired(),
	); err != nil {
		return Identity{}, errors.Join(ErrInvalidToken, err)
	}

	return Identity{
		Subject:   claims.Subject,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}
