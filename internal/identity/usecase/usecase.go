package usecase

import (
	"context"
	"log/slog"

	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/goerror"
	"github.com/lendfast/dealready/internal/pkg/goroutine"
	"github.com/lendfast/dealready/internal/pkg/idp"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/lock"
	"github.com/lendfast/dealready/internal/pkg/validator"
	"go.opentelemetry.io/otel/trace"
)

// AuthEvent is the payload for authentication lifecycle audit events.
type AuthEvent struct {
	UserID   string
	Email    string
	FactorID string
}

type repoMessaging interface {
	PublishSignedIn(ctx context.Context, msg AuthEvent) error
	PublishSignedOut(ctx context.Context, msg AuthEvent) error
	PublishMFAEnrolled(ctx context.Context, msg AuthEvent) error
	PublishMFAUnenrolled(ctx context.Context, msg AuthEvent) error
}

// enrollLockName scopes the one-enrollment-at-a-time lock to a user.
func enrollLockName(userID string) string {
	return "mfa_enroll:" + userID
}

type Usecase struct {
	idp           idp.Provider
	repoMessaging repoMessaging
	locker        lock.Locker
	validator     validator.Validator
	cfg           config.Config
	clock         clock.Clocker
	ins           instrument.Instrumentation
	goroutine     *goroutine.Manager
}

type Dependency struct {
	IDP           idp.Provider
	RepoMessaging repoMessaging
	Locker        lock.Locker
	Validator     validator.Validator
	Config        config.Config
	Clock         clock.Clocker
	Instrument    instrument.Instrumentation
	Goroutine     *goroutine.Manager
}

func New(dep Dependency) *Usecase {
	return &Usecase{
		idp:           dep.IDP,
		repoMessaging: dep.RepoMessaging,
		locker:        dep.Locker,
		validator:     dep.Validator,
		cfg:           dep.Config,
		clock:         dep.Clock,
		ins:           dep.Instrument,
		goroutine:     dep.Goroutine,
	}
}

func (s *Usecase) startSpan(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.ins.Tracer("identity.usecase").Start(ctx, name)
}

func (s *Usecase) authenticated(ctx context.Context) (*jwt.Claims, error) {
	clm := jwt.GetAuth(ctx)
	if clm == nil {
		return nil, goerror.NewBusiness("Authentication required", goerror.CodeUnauthorized)
	}
	return clm, nil
}

// providerError maps an identity provider failure to the error taxonomy.
// Provider 4xx responses become business errors carrying the provider
// message; everything else is an upstream failure the caller may retry.
func providerError(ctx context.Context, err error, fallback string) error {
	if apiErr, ok := idp.AsAPIError(err); ok && apiErr.Status < 500 {
		msg := apiErr.Message
		if msg == "" {
			msg = fallback
		}
		code := goerror.CodeUnauthorized
		if apiErr.Status == 409 || apiErr.Status == 422 {
			code = goerror.CodeConflict
		}
		return goerror.NewBusiness(msg, code)
	}

	slog.ErrorContext(ctx, "identity provider request failed", "error", err)
	return goerror.NewUpstream(err, fallback)
}

func (s *Usecase) publish(ctx context.Context, name string, fn func(context.Context, AuthEvent) error, msg AuthEvent) {
	if err := fn(ctx, msg); err != nil {
		slog.WarnContext(ctx, "failed to publish audit event", "event", name, "user_id", msg.UserID, "error", err)
	}
}
