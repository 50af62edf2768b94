package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/lock"
	"github.com/lendfast/dealready/internal/pkg/qr"
)

type EnrollStartInput struct {
	AccessToken  string `validate:"required"`
	FriendlyName string `validate:"max=64"`
}

type EnrollStartOutput struct {
	FactorID string
	Secret   string
	URI      string
	// QRCode is a PNG data URL of the otpauth URI.
	QRCode string
}

// EnrollStart begins a TOTP enrollment attempt. A per-user lock keeps a
// second attempt from clobbering an in-flight one; the lock is released by
// EnrollVerify or EnrollCancel, or expires on its own.
func (s *Usecase) EnrollStart(ctx context.Context, in EnrollStartInput) (*EnrollStartOutput, error) {
	ctx, span := s.startSpan(ctx, "EnrollStart")
	defer span.End()

	clm, err := s.authenticated(ctx)
	if err != nil {
		return nil, err
	}

	in.FriendlyName = strings.TrimSpace(in.FriendlyName)
	if err := s.validator.Validate(in); err != nil {
		return nil, goerror.NewInvalidInput(err)
	}
	if in.FriendlyName == "" {
		in.FriendlyName = "Authenticator app"
	}

	ttl := s.cfg.GetMinute("modules.identity.enroll_lock_ttl_minutes")
	if _, err := s.locker.Acquire(ctx, enrollLockName(clm.UserID()), ttl); err != nil {
		if errors.Is(err, lock.ErrAlreadyHeld) {
			slog.WarnContext(ctx, "enrollment already in progress", "user_id", clm.UserID())
			return nil, goerror.NewBusiness("an enrollment is already in progress", goerror.CodeConflict)
		}
		slog.ErrorContext(ctx, "failed to acquire enrollment lock", "user_id", clm.UserID(), "error", err)
		return nil, goerror.NewServer(err)
	}

	enr, err := s.idp.EnrollTOTP(ctx, in.AccessToken, in.FriendlyName)
	if err != nil {
		s.releaseEnrollLock(ctx, clm.UserID())
		return nil, providerError(ctx, err, "could not start enrollment")
	}

	if enr.ID == "" || enr.TOTP.Secret == "" || enr.TOTP.URI == "" {
		slog.ErrorContext(ctx, "provider returned incomplete enrollment data", "user_id", clm.UserID(), "factor_id", enr.ID)
		s.releaseEnrollLock(ctx, clm.UserID())
		return nil, goerror.NewBusiness("provider returned incomplete enrollment data", goerror.CodeUpstream)
	}

	qrCode, err := qr.DataURL(enr.TOTP.URI)
	if err != nil {
		slog.ErrorContext(ctx, "failed to render enrollment qr code", "user_id", clm.UserID(), "error", err)
		s.releaseEnrollLock(ctx, clm.UserID())
		return nil, goerror.NewServer(err)
	}

	return &EnrollStartOutput{
		FactorID: enr.ID,
		Secret:   enr.TOTP.Secret,
		URI:      enr.TOTP.URI,
		QRCode:   qrCode,
	}, nil
}

func (s *Usecase) releaseEnrollLock(ctx context.Context, userID string) {
	if err := s.locker.ForceRelease(ctx, enrollLockName(userID)); err != nil {
		slog.WarnContext(ctx, "failed to release enrollment lock", "user_id", userID, "error", err)
	}
}
