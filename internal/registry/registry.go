// Package registry owns the set of auctions: it creates them, hands out
// stable ids, enumerates them in creation order and rebuilds them from a
// journal.
//
// Each auction has its own lock. The registry's lock only guards the id
// arena, never an auction's state.
package registry

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/roach88/gavel/internal/engine"
)

// Registry is the arena of auctions.
//
// Thread-safety: all methods are safe for concurrent use. Listeners run while
// a creation is in progress and must not call Create.
type Registry struct {
	deps  engine.Deps
	ids   IDGenerator
	minD  time.Duration
	maxD  time.Duration
	log   *slog.Logger
	clock engine.Clock

	// createMu orders journal appends of AuctionCreated with arena inserts so
	// List matches journal order.
	createMu sync.Mutex

	mu       sync.RWMutex
	auctions map[string]*engine.Auction
	order    []string
}

// Option configures a Registry.
type Option func(*Registry)

// WithClock sets the time source for every auction.
func WithClock(c engine.Clock) Option {
	return func(r *Registry) { r.deps.Clock = c }
}

// WithJournal sets where events are durably recorded before they apply.
func WithJournal(j engine.Journal) Option {
	return func(r *Registry) { r.deps.Journal = j }
}

// WithTransferer sets how withdrawn funds leave the engine.
func WithTransferer(t engine.Transferer) Option {
	return func(r *Registry) { r.deps.Transfers = t }
}

// WithSequence shares an existing event sequence, typically one resumed
// from a store.
func WithSequence(s *engine.Sequence) Option {
	return func(r *Registry) { r.deps.Seq = s }
}

// WithIDGenerator replaces the default UUIDv7 ids.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Registry) { r.ids = g }
}

// WithListener registers l for every committed event.
func WithListener(l engine.Listener) Option {
	return func(r *Registry) { r.deps.Listeners = append(r.deps.Listeners, l) }
}

// WithDurationBounds restricts bidding durations to [min, max]. Zero leaves
// that side unbounded (a duration must still be positive).
func WithDurationBounds(min, max time.Duration) Option {
	return func(r *Registry) {
		r.minD = min
		r.maxD = max
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Registry) { r.deps.Logger = l }
}

// New creates an empty registry.
func New(opts ...Option) *Registry {
	r := &Registry{
		ids:      UUIDv7Generator{},
		auctions: make(map[string]*engine.Auction),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.deps = r.deps.WithDefaults()
	r.log = r.deps.Logger
	r.clock = r.deps.Clock
	return r
}

// Now returns the registry clock's current time.
func (r *Registry) Now() time.Time {
	return r.clock.Now()
}

// Sequence returns the event sequence shared by all auctions.
func (r *Registry) Sequence() *engine.Sequence {
	return r.deps.Seq
}

// Create opens a new auction owned by seller that accepts bids for
// duration from now. item is stored as-is.
//
// The AuctionCreated event is journaled before the auction becomes visible
// through Get or List.
func (r *Registry) Create(ctx context.Context, seller string, item []byte, duration time.Duration) (*engine.Auction, error) {
	if seller == "" {
		return nil, &engine.Error{Code: engine.CodeInvalidIdentity, Message: "seller identity is required"}
	}
	if err := r.checkDuration(duration); err != nil {
		return nil, err
	}

	r.createMu.Lock()
	defer r.createMu.Unlock()

	id := r.ids.Generate()
	r.mu.RLock()
	_, taken := r.auctions[id]
	r.mu.RUnlock()
	if taken {
		return nil, fmt.Errorf("create auction: id %q already in use", id)
	}

	a, err := engine.Open(ctx, engine.Listing{
		ID:       id,
		Seller:   seller,
		Item:     item,
		Deadline: r.clock.Now().Add(duration),
	}, r.deps)
	if err != nil {
		return nil, err
	}

	r.insert(a)
	r.log.Debug("auction created",
		"auction", id,
		"seller", seller,
		"deadline", a.Deadline(),
	)
	return a, nil
}

func (r *Registry) checkDuration(d time.Duration) error {
	if d <= 0 {
		return engine.InvalidDuration("bidding duration must be positive, got %s", d)
	}
	if r.minD > 0 && d < r.minD {
		return engine.InvalidDuration("bidding duration %s is below minimum %s", d, r.minD)
	}
	if r.maxD > 0 && d > r.maxD {
		return engine.InvalidDuration("bidding duration %s exceeds maximum %s", d, r.maxD)
	}
	return nil
}

func (r *Registry) insert(a *engine.Auction) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.auctions[a.ID()] = a
	r.order = append(r.order, a.ID())
}

// Get returns the auction with id, or a NOT_FOUND error.
func (r *Registry) Get(id string) (*engine.Auction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.auctions[id]
	if !ok {
		return nil, engine.NotFound(id)
	}
	return a, nil
}

// List returns every auction id in creation order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// BalanceOf returns identity's withdrawable amount in auction id.
func (r *Registry) BalanceOf(id, identity string) (int64, error) {
	a, err := r.Get(id)
	if err != nil {
		return 0, err
	}
	return a.BalanceOf(identity), nil
}

// Len returns the number of auctions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}
