// Package jwt verifies access tokens minted by the identity provider.
//
// The application never signs tokens itself. It only parses and validates
// provider-issued session tokens to learn who the caller is and which
// authenticator assurance level the session carries.
package jwt

import (
	"context"
	"errors"
	"time"

	libJWT "github.com/golang-jwt/jwt/v5"
)

var (
	// ErrInvalidSigningMethod is returned when the token signing method is not supported.
	ErrInvalidSigningMethod = errors.New("invalid JWT signing method")

	// ErrSigningKeyTooShort is returned when the HS256 secret is shorter than 32 bytes.
	ErrSigningKeyTooShort = errors.New("HS256 signing key must be at least 32 bytes (256 bits)")

	// ErrTokenExpired is returned when the token has expired.
	ErrTokenExpired = errors.New("JWT token has expired")

	// ErrInvalidToken is returned when the token is malformed or fails validation.
	ErrInvalidToken = errors.New("invalid token")
)

// AAL values carried by provider session tokens.
const (
	// AAL1 is a password-only session.
	AAL1 = "aal1"
	// AAL2 is a session that completed a second factor.
	AAL2 = "aal2"
)

// Verifier parses and validates provider-issued access tokens.
type Verifier interface {
	Verify(tokenStr string) (Claims, error)
}

type clocker interface {
	Now() time.Time
}

type jwtContextKey struct{}

// Config defines the inputs for building a token verifier.
type Config struct {
	// Secret is the provider's HMAC signing key.
	Secret []byte
	// Audiences are the accepted token audiences.
	Audiences []string
	// Leeway tolerates small clock skew between us and the provider.
	Leeway time.Duration
	// Clock provides the current time source.
	Clock clocker
}

// Claims is the subset of provider token claims the application reads.
type Claims struct {
	libJWT.RegisteredClaims

	// Email is the authenticated user's email.
	Email string `json:"email"`
	// AAL is the authenticator assurance level of the session (aal1 or aal2).
	AAL string `json:"aal"`
	// SessionID identifies the provider session.
	SessionID string `json:"session_id"`
	// Role is the provider-assigned role (e.g. authenticated).
	Role string `json:"role"`
}

// UserID returns the subject claim, which the provider sets to the user ID.
func (c Claims) UserID() string {
	return c.Subject
}

// AtAAL2 reports whether the session completed a second factor.
func (c Claims) AtAAL2() bool {
	return c.AAL == AAL2
}

// GetAuth returns the claims stored in the context, if any.
func GetAuth(ctx context.Context) *Claims {
	clm, ok := ctx.Value(jwtContextKey{}).(Claims)
	if !ok {
		return nil
	}
	return &clm
}

// SetAuth stores verified claims in the context.
func SetAuth(ctx context.Context, clm Claims) context.Context {
	return context.WithValue(ctx, jwtContextKey{}, clm)
}

// Symmetric verifies tokens using the provider's shared HMAC secret.
type Symmetric struct {
	secret    []byte
	audiences []string
	leeway    time.Duration
	clock     clocker
}

// NewHS256 constructs a Symmetric verifier for HS256 tokens.
func NewHS256(cfg Config) (*Symmetric, error) {
	if len(cfg.Secret) < 32 {
		return nil, ErrSigningKeyTooShort
	}

	return &Symmetric{
		secret:    cfg.Secret,
		audiences: cfg.Audiences,
		leeway:    cfg.Leeway,
		clock:     cfg.Clock,
	}, nil
}

// Verify parses and validates a provider access token.
func (s *Symmetric) Verify(tokenStr string) (Claims, error) {
	var claims Claims

	opts := []libJWT.ParserOption{
		libJWT.WithValidMethods([]string{libJWT.SigningMethodHS256.Alg()}),
		libJWT.WithExpirationRequired(),
		libJWT.WithLeeway(s.leeway),
	}
	for _, aud := range s.audiences {
		opts = append(opts, libJWT.WithAudience(aud))
	}
	if s.clock != nil {
		opts = append(opts, libJWT.WithTimeFunc(s.clock.Now))
	}

	token, err := libJWT.ParseWithClaims(tokenStr, &claims,
		func(t *libJWT.Token) (any, error) {
			if t.Method != libJWT.SigningMethodHS256 {
				return nil, ErrInvalidSigningMethod
			}
			return s.secret, nil
		},
		opts...,
	)
	if err != nil {
		if errors.Is(err, libJWT.ErrTokenExpired) {
			return Claims{}, ErrTokenExpired
		}
		return Claims{}, err
	}

	if !token.Valid {
		return Claims{}, ErrInvalidToken
	}

	return claims, nil
}
