package usecase

import (
	"context"
	"log/slog"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/idp"
)

type UnenrollInput struct {
	AccessToken string `validate:"required"`
	FactorID    string `validate:"required"`
	// Confirm must be sent explicitly; removing a factor downgrades the
	// account's sign-in protection.
	Confirm bool `validate:"required"`
}

type UnenrollOutput struct {
	Factors []entity.Factor
}

func (s *Usecase) Unenroll(ctx context.Context, in UnenrollInput) (*UnenrollOutput, error) {
	ctx, span := s.startSpan(ctx, "Unenroll")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	if err := s.idp.DeleteFactor(ctx, in.AccessToken, in.FactorID); err != nil {
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status == 404 {
			slog.WarnContext(ctx, "factor not found on unenroll", "user_id", clm.UserID(), "factor_id", in.FactorID)
			return nil, goerror.NewBusiness("factor not found", goerror.CodeNotFound)
		}
		return nil, providerError(ctx, err, "could not remove the factor")
	}

	out := &UnenrollOutput{}
	user, err := s.idp.GetUser(ctx, in.AccessToken)
	if err != nil {
		slog.WarnContext(ctx, "failed to refresh factor list after unenroll", "user_id", clm.UserID(), "error", err)
	} else {
		out.Factors = entity.FactorsFromProvider(user.Factors)
	}

	s.publish(ctx, "auth.mfa_unenrolled", s.repoMessaging.PublishMFAUnenrolled, AuthEvent{
		UserID:   clm.UserID(),
		Email:    clm.Email,
		FactorID: in.FactorID,
	})

	return out, nil
}
