// Package app wires the domain modules into one transactional facade.
// Every mutating operation runs on a scratch pad over the backing store
// and either commits fully or leaves no trace. Operations are strictly
// ordered by a single mutex, matching the execution model the ledger
// semantics rely on: two claims for the same balance can never interleave.
//
// Domain events are published on the bus only after a successful commit,
// so observers never see state that was rolled back.
package app

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/streamfi/streamfi"
	"github.com/streamfi/streamfi/ebus"
	"github.com/streamfi/streamfi/errors"
	"github.com/streamfi/streamfi/store"
	"github.com/streamfi/streamfi/x/cash"
	"github.com/streamfi/streamfi/x/paysched"
	"github.com/streamfi/streamfi/x/paystream"
	"github.com/streamfi/streamfi/x/ramp"
)

// Clock returns the current operation time. Injectable for tests.
type Clock func() streamfi.UnixTime

// App is the entry point to the payment streaming ledger. Construct with
// New, all methods are safe for concurrent use.
type App struct {
	mu     sync.Mutex
	db     streamfi.CacheableKVStore
	bus    *ebus.EBus
	logger *slog.Logger
	clock  Clock

	cash    cash.CashController
	streams *paystream.Handler
	scheds  *paysched.Handler
	ramps   *ramp.Handler
}

// New creates an App backed by an in-memory store unless configured
// otherwise.
func New(opts ...Option) *App {
	ctrl := cash.NewController()
	a := &App{
		db:      store.MemStore(),
		bus:     ebus.New(),
		logger:  slog.Default(),
		clock:   func() streamfi.UnixTime { return streamfi.AsUnixTime(time.Now()) },
		cash:    ctrl,
		streams: paystream.NewHandler(ctrl),
		scheds:  paysched.NewHandler(ctrl),
		ramps:   ramp.NewHandler(ctrl),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Option configures an App instance.
type Option func(*App)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *App) {
		a.logger = logger
	}
}

// WithStore sets the backing store, for example a persistent BoltStore.
func WithStore(db streamfi.CacheableKVStore) Option {
	return func(a *App) {
		a.db = db
	}
}

// WithClock sets the time source.
func WithClock(clock Clock) Option {
	return func(a *App) {
		a.clock = clock
	}
}

// WithBus sets the event bus. Subscribe before issuing operations.
func WithBus(bus *ebus.EBus) Option {
	return func(a *App) {
		a.bus = bus
	}
}

// Bus returns the event bus to subscribe observers on.
func (a *App) Bus() *ebus.EBus {
	return a.bus
}

// opCtx stamps the caller identity and the operation time into the
// context handlers read them from.
func (a *App) opCtx(ctx context.Context, signer streamfi.Address) context.Context {
	ctx = streamfi.WithNow(ctx, a.clock())
	if signer != nil {
		ctx = streamfi.WithSigner(ctx, signer)
	}
	return ctx
}

// exec runs one mutating operation on a cache wrap and commits on
// success. The returned events are emitted after the commit and after the
// store lock is released, so a listener may call back into the app; a
// failing listener is logged but never fails the already committed
// operation.
func (a *App) exec(ctx context.Context, op string, fn func(db streamfi.KVStore) ([]any, error)) error {
	events, err := a.commit(op, fn)
	if err != nil {
		return err
	}
	for _, event := range events {
		if err := a.bus.Emit(ctx, event); err != nil {
			a.logger.Error("event listener failed", "op", op, "err", err)
		}
	}
	return nil
}

func (a *App) commit(op string, fn func(db streamfi.KVStore) ([]any, error)) ([]any, error) {
	a.mu.Lock()
	defer a.mu.Unlock()

	cache := a.db.CacheWrap()
	events, err := fn(cache)
	if err != nil {
		cache.Discard()
		a.logger.Warn("operation rejected", "op", op, "err", err)
		return nil, err
	}
	if err := cache.Write(); err != nil {
		cache.Discard()
		a.logger.Error("commit failed", "op", op, "err", err)
		return nil, errors.Wrap(err, "cannot commit")
	}
	a.logger.Info("operation committed", "op", op)
	return events, nil
}

// view runs a read-only query against the committed state.
func (a *App) view(fn func(db streamfi.KVStore) error) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	return fn(a.db)
}
