package app

import (
	"log/slog"
	"os"

	"github.com/lendfast/dealready/internal/deal"
	"github.com/lendfast/dealready/internal/identity"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.identity.enabled") {
		if err := identity.New(identity.Dependency{
			Router:     a.router,
			IDP:        a.idp,
			Locker:     a.locker,
			Messaging:  a.messaging,
			Goroutine:  a.goroutine,
			Config:     a.config,
			Instrument: a.ins,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module identity", "error", err)
			os.Exit(1)
		}
	}

	if a.config.GetBool("modules.deal.enabled") {
		if err := deal.New(deal.Dependency{
			DBConn:     a.dbConn,
			Router:     a.router,
			Storage:    a.storage,
			Config:     a.config,
			Instrument: a.ins,
			UUID:       a.uuid,
			UID:        a.uid,
			Clock:      a.clock,
			Validator:  a.validator,
		}); err != nil {
			slog.Error("failed to init module deal", "error", err)
			os.Exit(1)
		}
	}
}
