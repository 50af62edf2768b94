package usecase

import (
	"context"
	"log/slog"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
)

type ChallengeStartInput struct {
	AccessToken string `validate:"required"`
}

type ChallengeStartOutput struct {
	// SetupRequired is set when the user has no verified TOTP factor and
	// must enroll before the session can be upgraded.
	SetupRequired bool
	FactorID      string
	ChallengeID   string
	ExpiresAt     int64
}

// ChallengeStart opens a login-time verification challenge against the
// user's verified TOTP factor. The challenge starts immediately so the
// client can render the code prompt in one round trip.
func (s *Usecase) ChallengeStart(ctx context.Context, in ChallengeStartInput) (*ChallengeStartOutput, error) {
	ctx, span := s.startSpan(ctx, "ChallengeStart")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.idp.GetUser(ctx, in.AccessToken)
	if err != nil {
		return nil, providerError(ctx, err, "could not start verification")
	}

	factor, ok := entity.VerifiedTOTP(user)
	if !ok {
		slog.InfoContext(ctx, "no verified totp factor, enrollment needed", "user_id", clm.UserID())
		return &ChallengeStartOutput{SetupRequired: true}, nil
	}

	chal, err := s.idp.ChallengeFactor(ctx, in.AccessToken, factor.ID)
	if err != nil {
		return nil, providerError(ctx, err, "could not start verification")
	}

	return &ChallengeStartOutput{
		FactorID:    factor.ID,
		ChallengeID: chal.ID,
		ExpiresAt:   chal.ExpiresAt,
	}, nil
}
