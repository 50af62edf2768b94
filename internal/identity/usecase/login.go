package usecase

import (
	"context"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/idp"
)

type LoginInput struct {
	Email    string `validate:"required,email"`
	Password string `validate:"required"`
}

type LoginOutput struct {
	Session entity.Session
}

// Login exchanges credentials for a provider session. The same operation
// backs both the broker and the admin login form; only the client-side
// redirect target differs.
func (s *Usecase) Login(ctx context.Context, in LoginInput) (*LoginOutput, error) {
	ctx, span := s.startSpan(ctx, "Login")
	defer span.End()

	in.Email = strings.TrimSpace(in.Email)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	sess, err := s.idp.SignInWithPassword(ctx, in.Email, in.Password)
	if err != nil {
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
			slog.WarnContext(ctx, "sign in rejected by provider", "email", in.Email, "status", apiErr.Status)
			return nil, goerror.NewBusiness("invalid email or password", goerror.CodeUnauthorized)
		}
		slog.ErrorContext(ctx, "sign in failed", "email", in.Email, "error", err)
		return nil, goerror.NewUpstream(err, "sign in is temporarily unavailable")
	}

	s.publish(ctx, "auth.signed_in", s.repoMessaging.PublishSignedIn, AuthEvent{UserID: sess.User.ID, Email: in.Email})

	return &LoginOutput{Session: entity.SessionFromProvider(sess)}, nil
}
