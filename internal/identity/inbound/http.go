package inbound

import (
	"context"

	"github.com/lendfast/dealready/internal/identity/usecase"
	"github.com/lendfast/dealready/internal/pkg/router"
)

type uc interface {
	Login(ctx context.Context, in usecase.LoginInput) (*usecase.LoginOutput, error)
	Signup(ctx context.Context, in usecase.SignupInput) (*usecase.SignupOutput, error)
	Logout(ctx context.Context, in usecase.LogoutInput) error
	Callback(ctx context.Context, in usecase.CallbackInput) (*usecase.CallbackOutput, error)

	EnrollStart(ctx context.Context, in usecase.EnrollStartInput) (*usecase.EnrollStartOutput, error)
	EnrollVerify(ctx context.Context, in usecase.EnrollVerifyInput) (*usecase.EnrollVerifyOutput, error)
	EnrollCancel(ctx context.Context) error
	Unenroll(ctx context.Context, in usecase.UnenrollInput) (*usecase.UnenrollOutput, error)
	Factors(ctx context.Context, in usecase.FactorsInput) (*usecase.FactorsOutput, error)

	ChallengeStart(ctx context.Context, in usecase.ChallengeStartInput) (*usecase.ChallengeStartOutput, error)
	ChallengeVerify(ctx context.Context, in usecase.ChallengeVerifyInput) (*usecase.ChallengeVerifyOutput, error)
}

func RegisterHTTPEndpoint(r *router.Router, uc uc) {
	end := &HTTPEndpoint{uc: uc}

	// Session pass-through
	r.POST("/login", end.Login)
	r.POST("/admin/login", end.Login) // same exchange, admin client redirects itself
	r.POST("/signup", end.Signup)
	r.POST("/logout", end.Logout)
	r.GET("/auth/callback", end.Callback)

	// Step-up verification (reachable before the session is upgraded)
	r.GET("/mfa/challenge", end.ChallengeStart)
	r.POST("/mfa/verify", end.ChallengeVerify)

	// Security settings
	r.GET("/app/settings/security", end.Factors)
	r.POST("/app/settings/security/enroll", end.EnrollStart)
	r.POST("/app/settings/security/enroll/verify", end.EnrollVerify)
	r.POST("/app/settings/security/enroll/cancel", end.EnrollCancel)
	r.DELETE("/app/settings/security/factors/:id", end.Unenroll)
}
