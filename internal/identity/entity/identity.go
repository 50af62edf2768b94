// Package entity holds the identity module's view types. The identity
// provider owns all authentication state; these types are projections of
// its responses, never locally persisted.
package entity

import (
	"time"

	"github.com/lendfast/dealready/internal/pkg/idp"
)

// Session is an authenticated provider session.
type Session struct {
	AccessToken  string
	RefreshToken string
	TokenType    string
	ExpiresIn    int64
	ExpiresAt    int64
}

// Active reports whether the session carries a usable access token.
func (s Session) Active() bool {
	return s.AccessToken != ""
}

// Account is the provider's view of the signed-in user.
type Account struct {
	ID        string
	Email     string
	CreatedAt time.Time
}

// Factor is an MFA factor as reported by the provider.
type Factor struct {
	ID           string
	FriendlyName string
	Type         string
	Verified     bool
	CreatedAt    time.Time
}

// SessionFromProvider converts a provider session. A nil session maps to the
// zero value so callers can test with Active.
func SessionFromProvider(s *idp.Session) Session {
	if s == nil {
		return Session{}
	}
	return Session{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
		ExpiresAt:    s.ExpiresAt,
	}
}

// AccountFromProvider converts a provider user.
func AccountFromProvider(u *idp.User) Account {
	if u == nil {
		return Account{}
	}
	return Account{ID: u.ID, Email: u.Email, CreatedAt: u.CreatedAt}
}

// FactorsFromProvider converts the provider's factor list.
func FactorsFromProvider(fs []idp.Factor) []Factor {
	out := make([]Factor, 0, len(fs))
	for _, f := range fs {
		out = append(out, Factor{
			ID:           f.ID,
			FriendlyName: f.FriendlyName,
			Type:         f.FactorType,
			Verified:     f.Verified(),
			CreatedAt:    f.CreatedAt,
		})
	}
	return out
}

// VerifiedTOTP returns the first verified TOTP factor from a provider user,
// or false when the user has none.
func VerifiedTOTP(u *idp.User) (idp.Factor, bool) {
	if u == nil {
		return idp.Factor{}, false
	}
	for _, f := range u.Factors {
		if f.FactorType == idp.FactorTypeTOTP && f.Verified() {
			return f, true
		}
	}
	return idp.Factor{}, false
}
