package session

import (
	"errors"
	"fmt"
	"time"

	"github.com/AdamBeresnev/tourney-registration/internal/apperrors"
	"github.com/AdamBeresnev/tourney-registration/internal/clock"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// DefaultTTL is the fixed validity window of an issued session.
const DefaultTTL = 7 * 24 * time.Hour

// MinSecretLength is the minimum HMAC key length accepted by NewCodec.
const MinSecretLength = 32

// Claims is the signed session payload. Roles is a snapshot taken at issue
// time; it is not re-read from the store until the session is reissued.
type Claims struct {
	Subject     string
	Username    string
	CountryCode string
	AvatarURL   string
	Roles       []string
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// HasRole reports whether the snapshot contains any of the given roles.
func (c *Claims) HasRole(names ...string) bool {
	for _, have := range c.Roles {
		for _, want := range names {
			if have == want {
				return true
			}
		}
	}
	return false
}

type sessionClaims struct {
	jwt.RegisteredClaims
	Username    string   `json:"username"`
	CountryCode string   `json:"country_code"`
	AvatarURL   string   `json:"avatar_url,omitempty"`
	Roles       []string `json:"roles"`
}

// Codec issues and verifies HS256 session tokens. It holds no mutable state
// and is safe for concurrent use.
type Codec struct {
	secret []byte
	ttl    time.Duration
	clock  clock.Clock
}

func NewCodec(secret []byte, ttl time.Duration, clk clock.Clock) (*Codec, error) {
	if len(secret) < MinSecretLength {
		return nil, fmt.Errorf("session secret must be at least %d bytes", MinSecretLength)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	if clk == nil {
		clk = clock.System()
	}
	return &Codec{secret: secret, ttl: ttl, clock: clk}, nil
}

func (c *Codec) TTL() time.Duration {
	return c.ttl
}

// Issue signs claims. IssuedAt and ExpiresAt on the input are ignored.
func (c *Codec) Issue(claims Claims) (string, error) {
	if claims.Subject == "" {
		return "", errors.New("session subject is required")
	}

	now := c.clock.Now()
	roles := claims.Roles
	if roles == nil {
		roles = []string{}
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   claims.Subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
			ID:        uuid.NewString(),
		},
		Username:    claims.Username,
		CountryCode: claims.CountryCode,
		AvatarURL:   claims.AvatarURL,
		Roles:       roles,
	})

	signed, err := token.SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("signing session: %w", err)
	}
	return signed, nil
}

// Verify checks signature and expiry. Every failure is an InvalidSession error.
func (c *Codec) Verify(tokenString string) (*Claims, error) {
	if tokenString == "" {
		return nil, apperrors.InvalidSession("missing session", nil)
	}

	var parsed sessionClaims
	_, err := jwt.ParseWithClaims(tokenString, &parsed, func(_ *jwt.Token) (any, error) {
		return c.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(c.clock.Now),
	)
	if err != nil {
		return nil, mapJWTError(err)
	}

	if parsed.Subject == "" {
		return nil, apperrors.InvalidSession("session has no subject", nil)
	}

	claims := &Claims{
		Subject:     parsed.Subject,
		Username:    parsed.Username,
		CountryCode: parsed.CountryCode,
		AvatarURL:   parsed.AvatarURL,
		Roles:       parsed.Roles,
		ExpiresAt:   parsed.ExpiresAt.Time.UTC(),
	}
	if claims.Roles == nil {
		claims.Roles = []string{}
	}
	if parsed.IssuedAt != nil {
		claims.IssuedAt = parsed.IssuedAt.Time.UTC()
	}
	return claims, nil
}

func mapJWTError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return apperrors.InvalidSession("session expired", err)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return apperrors.InvalidSession("session signature is invalid", err)
	case errors.Is(err, jwt.ErrTokenMalformed):
		return apperrors.InvalidSession("session is malformed", err)
	default:
		return apperrors.InvalidSession("session is invalid", err)
	}
}
