// Package identity wires the authentication and MFA module: session
// pass-through to the identity provider, TOTP enrollment, and login-time
// step-up verification.
package identity

import (
	"github.com/lendfast/dealready/internal/identity/inbound"
	"github.com/lendfast/dealready/internal/identity/outbound/mq"
	"github.com/lendfast/dealready/internal/identity/usecase"
	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/goroutine"
	"github.com/lendfast/dealready/internal/pkg/idp"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/lock"
	"github.com/lendfast/dealready/internal/pkg/messaging"
	"github.com/lendfast/dealready/internal/pkg/router"
	"github.com/lendfast/dealready/internal/pkg/validator"
)

type Dependency struct {
	Router     *router.Router             `validate:"required"`
	IDP        idp.Provider               `validate:"required"`
	Locker     lock.Locker                `validate:"required"`
	Messaging  messaging.Messaging        `validate:"required"`
	Goroutine  *goroutine.Manager         `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repoMsg := mq.NewMessaging(dep.Messaging, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		IDP:           dep.IDP,
		RepoMessaging: repoMsg,
		Locker:        dep.Locker,
		Validator:     dep.Validator,
		Config:        dep.Config,
		Clock:         dep.Clock,
		Instrument:    dep.Instrument,
		Goroutine:     dep.Goroutine,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
