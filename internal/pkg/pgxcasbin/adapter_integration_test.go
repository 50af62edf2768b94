package pgxcasbin

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/model"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const testModel = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[role_definition]
g = _, _

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = g(r.sub, p.sub) && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

const testTableDDL = `
create table if not exists access_policy_rules (
	id bigserial primary key,
	ptype text not null,
	v0 text, v1 text, v2 text, v3 text, v4 text, v5 text,
	unique (ptype, v0, v1, v2, v3, v4, v5)
)`

func newTestPool(t *testing.T) *pgxpool.Pool {
	t.Helper()

	if os.Getenv("DEALREADY_INTEGRATION") == "" {
		t.Skip("set DEALREADY_INTEGRATION to run container-backed tests")
	}

	ctx := context.Background()

	ctr, err := tcpostgres.Run(ctx, "postgres:16-alpine",
		tcpostgres.WithDatabase("dealready_test"),
		tcpostgres.WithUsername("dealready"),
		tcpostgres.WithPassword("dealready"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("start postgres container: %v", err)
	}
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(ctr); err != nil {
			t.Logf("terminate postgres container: %v", err)
		}
	})

	connStr, err := ctr.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		t.Fatalf("connection string: %v", err)
	}

	pool, err := pgxpool.New(ctx, connStr)
	if err != nil {
		t.Fatalf("create pool: %v", err)
	}
	t.Cleanup(pool.Close)

	if _, err := pool.Exec(ctx, testTableDDL); err != nil {
		t.Fatalf("create policy table: %v", err)
	}

	return pool
}

func newTestEnforcer(t *testing.T, pool *pgxpool.Pool) *casbin.Enforcer {
	t.Helper()

	ctx := context.Background()

	m, err := model.NewModelFromString(testModel)
	if err != nil {
		t.Fatalf("parse model: %v", err)
	}

	adapter, err := NewAdapter(ctx, pool, WithTableName("access_policy_rules"))
	if err != nil {
		t.Fatalf("new adapter: %v", err)
	}

	e, err := casbin.NewEnforcer(m, adapter)
	if err != nil {
		t.Fatalf("new enforcer: %v", err)
	}
	e.EnableAutoSave(true)

	return e
}

func TestAdapterPersistsGroupingPolicies(t *testing.T) {
	pool := newTestPool(t)
	e := newTestEnforcer(t, pool)

	if _, err := e.AddGroupingPolicy("user-1", "admin"); err != nil {
		t.Fatalf("add grouping policy: %v", err)
	}
	if _, err := e.AddPolicy("admin", "*", "*"); err != nil {
		t.Fatalf("add policy: %v", err)
	}

	// A fresh enforcer over the same table must see the persisted rules.
	reloaded := newTestEnforcer(t, pool)

	ok, err := reloaded.HasRoleForUser("user-1", "admin")
	if err != nil {
		t.Fatalf("has role: %v", err)
	}
	if !ok {
		t.Fatal("expected user-1 to carry the admin role after reload")
	}

	allowed, err := reloaded.Enforce("user-1", "/admin/deals", "GET")
	if err != nil {
		t.Fatalf("enforce: %v", err)
	}
	if !allowed {
		t.Fatal("expected admin wildcard policy to allow the request")
	}
}

func TestAdapterRemovesPolicies(t *testing.T) {
	pool := newTestPool(t)
	e := newTestEnforcer(t, pool)

	if _, err := e.AddGroupingPolicy("user-2", "admin"); err != nil {
		t.Fatalf("add grouping policy: %v", err)
	}
	if _, err := e.RemoveGroupingPolicy("user-2", "admin"); err != nil {
		t.Fatalf("remove grouping policy: %v", err)
	}

	reloaded := newTestEnforcer(t, pool)

	ok, err := reloaded.HasRoleForUser("user-2", "admin")
	if err != nil {
		t.Fatalf("has role: %v", err)
	}
	if ok {
		t.Fatal("expected removed role to stay removed after reload")
	}
}

func TestWatcherNotifiesPeers(t *testing.T) {
	pool := newTestPool(t)
	ctx := context.Background()

	received := make(chan string, 1)

	peer, err := NewWatcher(ctx, pool, WatcherOptions{
		Channel: "access_policy_watcher_test",
		LocalID: "peer",
	})
	if err != nil {
		t.Fatalf("new peer watcher: %v", err)
	}
	t.Cleanup(peer.Close)

	if err := peer.SetUpdateCallback(func(msg string) {
		select {
		case received <- msg:
		default:
		}
	}); err != nil {
		t.Fatalf("set callback: %v", err)
	}

	sender, err := NewWatcher(ctx, pool, WatcherOptions{
		Channel: "access_policy_watcher_test",
		LocalID: "sender",
	})
	if err != nil {
		t.Fatalf("new sender watcher: %v", err)
	}
	t.Cleanup(sender.Close)

	// The peer listener needs a moment to attach before the notify.
	deadline := time.After(10 * time.Second)
	for {
		if err := sender.Update(); err != nil {
			t.Fatalf("update: %v", err)
		}
		select {
		case <-received:
			return
		case <-time.After(500 * time.Millisecond):
		case <-deadline:
			t.Fatal("timed out waiting for watcher notification")
		}
	}
}
