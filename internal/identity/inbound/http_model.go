package inbound

import (
	"time"

	"github.com/lendfast/dealready/internal/identity/entity"
)

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SignupRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type SessionResponse struct {
	AccessToken  string `json:"access_token,omitempty"`
	RefreshToken string `json:"refresh_token,omitempty"`
	TokenType    string `json:"token_type,omitempty"`
	ExpiresIn    int64  `json:"expires_in,omitempty"`
}

func newSessionResponse(s entity.Session) SessionResponse {
	return SessionResponse{
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		TokenType:    s.TokenType,
		ExpiresIn:    s.ExpiresIn,
	}
}

type SignupResponse struct {
	Session             SessionResponse `json:"session"`
	PendingVerification bool            `json:"pending_verification,omitempty"`
}

func (SignupResponse) Message() string {
	return "Account created."
}

type FactorModel struct {
	ID           string    `json:"id"`
	FriendlyName string    `json:"friendly_name"`
	Type         string    `json:"type"`
	Verified     bool      `json:"verified"`
	CreatedAt    time.Time `json:"created_at"`
}

func newFactorModels(fs []entity.Factor) []FactorModel {
	out := make([]FactorModel, 0, len(fs))
	for _, f := range fs {
		out = append(out, FactorModel{
			ID:           f.ID,
			FriendlyName: f.FriendlyName,
			Type:         f.Type,
			Verified:     f.Verified,
			CreatedAt:    f.CreatedAt,
		})
	}
	return out
}

type FactorsResponse struct {
	Email   string        `json:"email"`
	Factors []FactorModel `json:"factors"`
}

func newFactorsResponse(acc entity.Account, fs []entity.Factor) FactorsResponse {
	return FactorsResponse{Email: acc.Email, Factors: newFactorModels(fs)}
}

type EnrollStartRequest struct {
	FriendlyName string `json:"friendly_name"`
}

type EnrollStartResponse struct {
	FactorID string `json:"factor_id"`
	Secret   string `json:"secret"`
	URI      string `json:"uri"`
	QRCode   string `json:"qr_code"`
}

type EnrollVerifyRequest struct {
	FactorID string `json:"factor_id"`
	Code     string `json:"code"`
}

type EnrollVerifyResponse struct {
	Factors []FactorModel `json:"factors"`
}

func (EnrollVerifyResponse) Message() string {
	return "Two-factor authentication updated."
}

type UnenrollRequest struct {
	Confirm bool `json:"confirm"`
}

type ChallengeStartRequest struct{}

type ChallengeStartResponse struct {
	SetupRequired bool   `json:"setup_required,omitempty"`
	FactorID      string `json:"factor_id,omitempty"`
	ChallengeID   string `json:"challenge_id,omitempty"`
	ExpiresAt     int64  `json:"expires_at,omitempty"`
}

type ChallengeVerifyRequest struct {
	FactorID    string `json:"factor_id"`
	ChallengeID string `json:"challenge_id"`
	Code        string `json:"code"`
}
