package usecase

import (
	"context"
	"log/slog"
	"strings"
	"unicode"

	"github.com/lendfast/dealready/internal/identity/entity"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/idp"
)

type EnrollVerifyInput struct {
	AccessToken string `validate:"required"`
	FactorID    string `validate:"required"`
	Code        string `validate:"required,totpcode"`
}

type EnrollVerifyOutput struct {
	// Session is the refreshed (aal2) session returned by the provider,
	// zero when the provider kept the current one.
	Session entity.Session
	Factors []entity.Factor
}

// EnrollVerify confirms a pending TOTP enrollment. The code must be exactly
// six digits after whitespace removal; a malformed code never reaches the
// provider. The factor can only be verified through a challenge issued in
// this same call.
func (s *Usecase) EnrollVerify(ctx context.Context, in EnrollVerifyInput) (*EnrollVerifyOutput, error) {
	ctx, span := s.startSpan(ctx, "EnrollVerify")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.Code = stripSpace(in.Code)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}

	chal, err := s.idp.ChallengeFactor(ctx, in.AccessToken, in.FactorID)
	if err != nil {
		return nil, providerError(ctx, err, "could not verify the code")
	}
	if chal.ID == "" {
		slog.ErrorContext(ctx, "provider did not issue a challenge", "user_id", clm.UserID(), "factor_id", in.FactorID)
		return nil, goerror.NewBusiness("provider did not issue a challenge", goerror.CodeUpstream)
	}

	sess, err := s.idp.VerifyFactor(ctx, in.AccessToken, in.FactorID, chal.ID, in.Code)
	if err != nil {
		if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
			slog.WarnContext(ctx, "enrollment code rejected", "user_id", clm.UserID(), "factor_id", in.FactorID)
			msg := apiErr.Message
			if msg == "" {
				msg = "verification code rejected"
			}
			return nil, goerror.NewBusiness(msg, goerror.CodeUnauthorized)
		}
		slog.ErrorContext(ctx, "factor verification failed", "user_id", clm.UserID(), "factor_id", in.FactorID, "error", err)
		return nil, goerror.NewUpstream(err, "could not verify the code")
	}

	s.releaseEnrollLock(ctx, clm.UserID())

	out := &EnrollVerifyOutput{Session: entity.SessionFromProvider(sess)}

	token := in.AccessToken
	if out.Session.Active() {
		token = out.Session.AccessToken
	}
	user, err := s.idp.GetUser(ctx, token)
	if err != nil {
		slog.WarnContext(ctx, "failed to refresh factor list after enrollment", "user_id", clm.UserID(), "error", err)
	} else {
		out.Factors = entity.FactorsFromProvider(user.Factors)
	}

	s.publish(ctx, "auth.mfa_enrolled", s.repoMessaging.PublishMFAEnrolled, AuthEvent{
		UserID:   clm.UserID(),
		Email:    clm.Email,
		FactorID: in.FactorID,
	})

	return out, nil
}

// stripSpace removes all whitespace so codes pasted as "123 456" verify.
func stripSpace(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, s)
}
