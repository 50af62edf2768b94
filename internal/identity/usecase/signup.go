package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/idp"
)

type SignupInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required,password"`
}

type SignupOutput struct {
	Session entity.Session
	// PendingVerification is set when the provider requires email
	// confirmation before issuing a session.
	PendingVerification bool
}

func (s *Usecase) Signup(ctx context.Context, in SignupInput) (*SignupOutput, error) {
	ctx, span := s.startSpan(ctx, "Signup")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	sess, err := s.idp.SignUp(ctx, in.Email, in.Password)
	if err != nil {
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
			slog.WarnContext(ctx, "sign up rejected by provider", "email", in.Email, "status", apiErr.Status)
			msg := apiErr.Message
			if msg == "" {
				msg = "sign up rejected"
			}
			return nil, goerror.NewBusiness(msg, goerror.CodeConflict)
		}
		slog.ErrorContext(ctx, "sign up failed", "email", in.Email, "error", err)
		return nil, goerror.NewUpstream(err, "sign up is temporarily unavailable")
	}

	out := &SignupOutput{Session: entity.SessionFromProvider(sess)}
	out.PendingVerification = !out.Session.Active()

	return out, nil
}
