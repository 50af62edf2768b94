package usecase

import (
	"context"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
)

type FactorsInput struct {
	AccessToken string `validate:"required"`
}

type FactorsOutput struct {
	Account entity.Account
	Factors []entity.Factor
}

// Factors lists the user's MFA factors. The provider is the single source
// of truth, so every read is a re-fetch; nothing is cached locally.
func (s *Usecase) Factors(ctx context.Context, in FactorsInput) (*FactorsOutput, error) {
	ctx, span := s.startSpan(ctx, "Factors")
	defer span.End()

	if _, err := s.authenticated(ctx); err != nil {
		return nil, err
	}

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	user, err := s.idp.GetUser(ctx, in.AccessToken)
	if err != nil {
		return nil, providerError(ctx, err, "could not load security settings")
	}

	return &FactorsOutput{
		Account: entity.AccountFromProvider(user),
		Factors: entity.FactorsFromProvider(user.Factors),
	}, nil
}
