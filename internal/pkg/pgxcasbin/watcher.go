package pgxcasbin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/casbin/casbin/v3"
	"github.com/casbin/casbin/v3/persist"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sethvargo/go-retry"
	"go.uber.org/atomic"
)

const defaultChannel = "access_policy_watcher"

// Watcher propagates policy changes between instances over Postgres
// LISTEN/NOTIFY. Any received message triggers a full policy reload;
// incremental sync is not worth the complexity at our policy sizes.
type Watcher struct {
	mu sync.RWMutex

	opt      WatcherOptions
	pool     *pgxpool.Pool
	callback func(string)

	closed atomic.Bool
	cancel context.CancelFunc
}

var _ persist.Watcher = (*Watcher)(nil)

// WatcherOptions configures a Watcher instance.
type WatcherOptions struct {
	// Channel sets the Postgres listen channel.
	Channel string
	// LocalID identifies this watcher instance. Defaults to a random UUID.
	LocalID string
	// NotifySelf replays self-originated events to the local callback.
	NotifySelf bool
	// Verbose enables payload logging.
	Verbose bool
}

type watcherMessage struct {
	ID string `json:"id"`
}

// NewWatcher starts a watcher on an existing pgx pool. The pool is not
// owned and is left open on Close.
func NewWatcher(ctx context.Context, pool *pgxpool.Pool, opt WatcherOptions) (*Watcher, error) {
	if err := pool.Ping(ctx); err != nil {
		return nil, errors.Join(ErrPingPool, err)
	}

	if opt.Channel == "" {
		opt.Channel = defaultChannel
	}
	if opt.LocalID == "" {
		opt.LocalID = uuid.New().String()
	}

	listenCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{opt: opt, pool: pool, cancel: cancel}

	go w.run(listenCtx)

	return w, nil
}

// DefaultCallback returns a callback that reloads the enforcer's
// policies from storage.
func DefaultCallback(e casbin.IEnforcer) func(string) {
	return func(string) {
		if err := e.LoadPolicy(); err != nil {
			slog.Error("pgxcasbin failed to reload policy", "error", err)
		}
	}
}

// SetUpdateCallback registers the handler invoked on update messages.
func (w *Watcher) SetUpdateCallback(callback func(string)) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.callback = callback
	return nil
}

// Update notifies all watcher instances that policies changed.
func (w *Watcher) Update() error {
	payload, err := json.Marshal(watcherMessage{ID: w.opt.LocalID})
	if err != nil {
		return err
	}

	cmd := fmt.Sprintf("select pg_notify('%s', $1)", w.opt.Channel)
	if _, err := w.pool.Exec(context.Background(), cmd, string(payload)); err != nil {
		return errors.Join(ErrNotifyMessage, err)
	}

	if w.opt.Verbose {
		slog.Info("pgxcasbin sent update", "channel", w.opt.Channel, "payload", string(payload))
	}
	return nil
}

// Close stops the listener. The underlying pool stays open.
func (w *Watcher) Close() {
	if w.closed.CompareAndSwap(false, true) {
		w.cancel()
	}
}

func (w *Watcher) run(ctx context.Context) {
	backoff := retry.WithCappedDuration(5*time.Second, retry.NewFibonacci(200*time.Millisecond))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := w.listen(ctx); errors.Is(err, context.Canceled) {
			return nil
		} else if err != nil {
			slog.Error("pgxcasbin listen failed", "error", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		slog.Error("pgxcasbin listener stopped with error", "error", err)
		return
	}
	slog.Info("pgxcasbin listener exited")
}

func (w *Watcher) listen(ctx context.Context) error {
	conn, err := w.pool.Acquire(ctx)
	if err != nil {
		return errors.Join(ErrAcquireConn, err)
	}
	defer conn.Release()

	if _, err := conn.Exec(ctx, "listen "+w.opt.Channel); err != nil {
		return errors.Join(ErrListenChannel, err)
	}

	for {
		notification, err := conn.Conn().WaitForNotification(ctx)
		if errors.Is(err, context.Canceled) {
			return err
		} else if err != nil {
			return errors.Join(ErrWaitNotification, err)
		}

		if w.opt.Verbose {
			slog.Info("pgxcasbin received update",
				"channel", w.opt.Channel, "local_id", w.opt.LocalID, "payload", notification.Payload)
		}

		var msg watcherMessage
		if err := json.Unmarshal([]byte(notification.Payload), &msg); err != nil {
			slog.Error("pgxcasbin invalid notification payload", "payload", notification.Payload, "error", err)
			continue
		}
		if msg.ID == w.opt.LocalID && !w.opt.NotifySelf {
			continue
		}

		w.mu.RLock()
		callback := w.callback
		w.mu.RUnlock()

		if callback == nil {
			slog.Warn("pgxcasbin callback is not set, skipping update")
			continue
		}
		callback(notification.Payload)
	}
}
