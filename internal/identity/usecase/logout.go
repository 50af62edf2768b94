package usecase

import (
	"context"
	"log/slog"

	"github.com/lendfast/dealready/internal/pkg/jwt"
)

type LogoutInput struct {
	AccessToken string
}

// Logout revokes the provider session. Revocation failures are logged but
// not surfaced; the cookie is cleared by the inbound layer either way.
func (s *Usecase) Logout(ctx context.Context, in LogoutInput) error {
	ctx, span := s.startSpan(ctx, "Logout")
	defer span.End()

	if in.AccessToken == "" {
		return nil
	}

	if err := s.idp.SignOut(ctx, in.AccessToken); err != nil {
		slog.WarnContext(ctx, "provider sign out failed", "error", err)
	}

	userID := ""
	if clm := jwt.GetAuth(ctx); clm != nil {
		userID = clm.UserID()
	}
	s.publish(ctx, "auth.signed_out", s.repoMessaging.PublishSignedOut, AuthEvent{UserID: userID})

	return nil
}
