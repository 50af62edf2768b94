// Package deal wires deal, submission, and document pass-through
// persistence for the broker workspace and the admin review pages.
package deal

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/lendfast/dealready/internal/deal/inbound"
	"github.com/lendfast/dealready/internal/deal/outbound/db"
	"github.com/lendfast/dealready/internal/deal/usecase"
	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/router"
	"github.com/lendfast/dealready/internal/pkg/storage"
	"github.com/lendfast/dealready/internal/pkg/uid"
	"github.com/lendfast/dealready/internal/pkg/validator"
)

type Dependency struct {
	DBConn     *pgxpool.Pool              `validate:"required"`
	Router     *router.Router             `validate:"required"`
	Storage    storage.Store              `validate:"required"`
	Config     config.Config              `validate:"required"`
	Instrument instrument.Instrumentation `validate:"required"`
	UUID       uid.StringID               `validate:"required"`
	UID        uid.NumberID               `validate:"required"`
	Clock      clock.Clocker              `validate:"required"`
	Validator  validator.Validator        `validate:"required"`
}

func New(dep Dependency) error {
	if err := dep.Validator.Validate(dep); err != nil {
		return err
	}

	repo := db.NewDB(dep.DBConn, dep.Instrument)

	uc := usecase.New(usecase.Dependency{
		RepoDB:     repo,
		Storage:    dep.Storage,
		Validator:  dep.Validator,
		Config:     dep.Config,
		UUID:       dep.UUID,
		UID:        dep.UID,
		Clock:      dep.Clock,
		Instrument: dep.Instrument,
	})

	inbound.RegisterHTTPEndpoint(dep.Router, uc)

	return nil
}
