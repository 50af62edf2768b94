package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/idp"
)

type ChallengeVerifyInput struct {
	AccessToken string `validate:"required"`
	FactorID    string `validate:"required"`
	ChallengeID string `validate:"required"`
	Code        string `validate:"required"`
}

type ChallengeVerifyOutput struct {
	Session entity.Session
}

// minChallengeCodeLength is deliberately looser than the enrollment check:
// login verification accepts recovery-style codes, not just 6-digit TOTP.
const minChallengeCodeLength = 6

// ChallengeVerify completes a login-time challenge and upgrades the session
// to the higher assurance level.
func (s *Usecase) ChallengeVerify(ctx context.Context, in ChallengeVerifyInput) (*ChallengeVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "ChallengeVerify")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.Code = strings.TrimSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if len(in.Code) < minChallengeCodeLength {
		return nil, goerror.NewInvalidFormat("code must be at least 6 characters")
	}

	sess, err := s.idp.VerifyFactor(ctx, in.AccessToken, in.FactorID, in.ChallengeID, in.Code)
	if err != nil {
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
			slog.WarnContext(ctx, "challenge code rejected", "user_id", clm.UserID(), "factor_id", in.FactorID)
			msg := apiErr.Message
			if msg == "" {
				msg = "verification code rejected"
			}
			return nil, goerror.NewBusiness(msg, goerror.CodeUnauthorized)
		}
		slog.ErrorContext(ctx, "challenge verification failed", "user_id", clm.UserID(), "factor_id", in.FactorID, "error", err)
		return nil, goerror.NewUpstream(err, "could not verify the code")
	}

	out := &ChallengeVerifyOutput{Session: entity.SessionFromProvider(sess)}
	if !out.Session.Active() {
		slog.ErrorContext(ctx, "provider did not return an upgraded session", "user_id", clm.UserID())
		return nil, goerror.NewBusiness("provider did not return an upgraded session", goerror.CodeUpstream)
	}

	return out, nil
}
