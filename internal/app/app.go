package app

import (
	"context"
	"net/http"

	"github.com/casbin/casbin/v3"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/lendfast/dealready/internal/gate"
	"github.com/lendfast/dealready/internal/pkg/clock"
	"github.com/lendfast/dealready/internal/pkg/config"
	"github.com/lendfast/dealready/internal/pkg/goroutine"
	"github.com/lendfast/dealready/internal/pkg/idp"
	"github.com/lendfast/dealready/internal/pkg/instrument"
	"github.com/lendfast/dealready/internal/pkg/jwt"
	"github.com/lendfast/dealready/internal/pkg/lock"
	"github.com/lendfast/dealready/internal/pkg/messaging"
	"github.com/lendfast/dealready/internal/pkg/pgxcasbin"
	"github.com/lendfast/dealready/internal/pkg/router"
	"github.com/lendfast/dealready/internal/pkg/storage"
	"github.com/lendfast/dealready/internal/pkg/uid"
	"github.com/lendfast/dealready/internal/pkg/validator"
)

// App wires dependencies and manages service lifecycle.
type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config config.Config
	ins    instrument.Instrumentation

	// libraries
	goroutine *goroutine.Manager
	validator validator.Validator
	clock     clock.Clocker
	uid       uid.NumberID
	uuid      uid.StringID
	jwt       jwt.Verifier

	// resources
	dbConn        *pgxpool.Pool
	cacheConn     *redis.Client
	locker        lock.Locker
	idp           idp.Provider
	messaging     messaging.Messaging
	storage       storage.Store
	casbin        *casbin.Enforcer
	casbinWatcher *pgxcasbin.Watcher

	// access gate
	gatePolicy *gate.Policy

	// server
	router     *router.Router
	httpServer *http.Server

	//
	closers []struct {
		name string
		fn   func(context.Context) error
	}
}

// New initializes the application with default wiring and returns an App instance.
func New() *App {
	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig()
	app.initInstrument()
	app.initLibraries()
	app.initJWT()
	app.initDatabase()
	app.initCache()
	app.initIdentityProvider()
	app.initStorage()
	app.initMessaging()
	app.initCasbin()
	app.initGate()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
