// Package idp is a thin client for the external identity provider.
//
// The provider owns credentials, sessions, and MFA factors. This package
// only shuttles requests to its REST API and decodes the responses; no
// secrets are persisted on our side.
package idp

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Factor statuses reported by the provider.
const (
	// FactorStatusVerified marks a factor that completed enrollment.
	FactorStatusVerified = "verified"
	// FactorStatusUnverified marks a factor that was enrolled but never confirmed.
	FactorStatusUnverified = "unverified"
)

// FactorTypeTOTP is the only factor type this application enrolls.
const FactorTypeTOTP = "totp"

// Session is a provider session with its token pair.
type Session struct {
	AccessToken  string `json:"access_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int64  `json:"expires_in"`
	ExpiresAt    int64  `json:"expires_at"`
	RefreshToken string `json:"refresh_token"`
	User         User   `json:"user"`
}

// User is the provider's view of an account.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Phone     string    `json:"phone"`
	CreatedAt time.Time `json:"created_at"`
	Factors   []Factor  `json:"factors"`
}

// Factor is an MFA factor registered with the provider.
type Factor struct {
	ID           string    `json:"id"`
	FriendlyName string    `json:"friendly_name"`
	FactorType   string    `json:"factor_type"`
	Status       string    `json:"status"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Verified reports whether the factor completed enrollment.
func (f Factor) Verified() bool {
	return f.Status == FactorStatusVerified
}

// TOTPEnrollment carries the shared secret material for a new TOTP factor.
type TOTPEnrollment struct {
	QRCode string `json:"qr_code"`
	Secret string `json:"secret"`
	URI    string `json:"uri"`
}

// Enrollment is the provider's response to enrolling a new factor.
type Enrollment struct {
	ID           string         `json:"id"`
	Type         string         `json:"type"`
	FriendlyName string         `json:"friendly_name"`
	TOTP         TOTPEnrollment `json:"totp"`
}

// Challenge is a pending factor verification.
type Challenge struct {
	ID        string `json:"id"`
	Type      string `json:"factor_type"`
	ExpiresAt int64  `json:"expires_at"`
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	// Status is the HTTP status code.
	Status int
	// Code is the provider's stable error code, when present.
	Code string
	// Message is the provider's human-readable message.
	Message string
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("idp: %s (%s, status %d)", e.Message, e.Code, e.Status)
	}
	return fmt.Sprintf("idp: %s (status %d)", e.Message, e.Status)
}

// AsAPIError unwraps err into an APIError, if it is one.
func AsAPIError(err error) (*APIError, bool) {
	var apiErr *APIError
	ok := errors.As(err, &apiErr)
	return apiErr, ok
}

// Provider is the operation surface the identity module depends on.
type Provider interface {
	SignInWithPassword(ctx context.Context, email, password string) (*Session, error)
	SignUp(ctx context.Context, email, password string) (*Session, error)
	ExchangeCode(ctx context.Context, authCode string) (*Session, error)
	RefreshSession(ctx context.Context, refreshToken string) (*Session, error)
	SignOut(ctx context.Context, accessToken string) error

	GetUser(ctx context.Context, accessToken string) (*User, error)
	EnrollTOTP(ctx context.Context, accessToken, friendlyName string) (*Enrollment, error)
	ChallengeFactor(ctx context.Context, accessToken, factorID string) (*Challenge, error)
	VerifyFactor(ctx context.Context, accessToken, factorID, challengeID, code string) (*Session, error)
	DeleteFactor(ctx context.Context, accessToken, factorID string) error
}
