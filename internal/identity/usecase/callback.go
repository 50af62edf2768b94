package usecase

import (
	"context"
	"log/slog"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/idp"
)

type CallbackInput struct {
	Code string `validate:"required"`
}

type CallbackOutput struct {
	Session entity.Session
}

// Callback completes the provider's redirect flow by exchanging the
// one-time auth code for a session.
func (s *Usecase) Callback(ctx context.Context, in CallbackInput) (*CallbackOutput, error) {
	ctx, span := s.startSpan(ctx, "Callback")
	defer span.End()

	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	sess, err := s.idp.ExchangeCode(ctx, in.Code)
	if err != nil {
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
			slog.WarnContext(ctx, "auth code exchange rejected", "status", apiErr.Status)
			return nil, goerror.NewBusiness("sign in link is invalid or expired", goerror.CodeUnauthorized)
		}
		slog.ErrorContext(ctx, "auth code exchange failed", "error", err)
		return nil, goerror.NewUpstream(err, "sign in is temporarily unavailable")
	}

	return &CallbackOutput{Session: entity.SessionFromProvider(sess)}, nil
}
