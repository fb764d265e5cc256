package tenantsync

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrClosed is returned by Switch after Close
var ErrClosed = errors.New("tenant sync layer is closed")

// Scope is the session-scoped context a Layer subscribes under
type Scope struct {
	Actor identity.Actor
}

// NewScope validates the actor and returns its scope
func NewScope(actor identity.Actor) (*Scope, error) {
	if err := actor.Validate(); err != nil {
		return nil, shared.NewValidationError(err.Error())
	}
	return &Scope{Actor: actor}, nil
}

// TenantID returns the scoped company id
func (s *Scope) TenantID() string {
	if s == nil {
		return ""
	}
	return s.Actor.CompanyID
}

// Listener receives every snapshot the layer publishes
type Listener func(*Snapshot)

// Layer keeps one snapshot per tracked collection in sync with the store for
// a single active tenant.
//
// Switch is serialized: the previous tenant's subscriptions are closed before
// the next tenant's open. Every publication carries the generation of the
// Switch that opened its subscription, and publications from an older
// generation are dropped.
type Layer struct {
	store       shared.DocumentStore
	logger      *zap.Logger
	collections []shared.Collection

	switchMu sync.Mutex
	subs     []shared.Subscription
	closed   bool

	pubMu      sync.Mutex
	generation atomic.Uint64
	scope      atomic.Pointer[Scope]
	snapshots  map[shared.Collection]*atomic.Pointer[Snapshot]
	listeners  map[int]Listener
	order      []int
	nextID     int
}

// Option configures a Layer
type Option func(*Layer)

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) Option {
	return func(l *Layer) {
		if logger != nil {
			l.logger = logger
		}
	}
}

// WithCollections limits the layer to a subset of collections
func WithCollections(collections ...shared.Collection) Option {
	return func(l *Layer) {
		if len(collections) > 0 {
			l.collections = append([]shared.Collection(nil), collections...)
		}
	}
}

// NewLayer creates a layer with no active tenant
func NewLayer(store shared.DocumentStore, opts ...Option) *Layer {
	l := &Layer{
		store:       store,
		logger:      zap.NewNop(),
		collections: shared.TrackedCollections,
		listeners:   make(map[int]Listener),
	}
	for _, opt := range opts {
		opt(l)
	}

	l.snapshots = make(map[shared.Collection]*atomic.Pointer[Snapshot], len(l.collections))
	for _, c := range l.collections {
		p := &atomic.Pointer[Snapshot]{}
		p.Store(EmptySnapshot(c, ""))
		l.snapshots[c] = p
	}
	return l
}

// Switch re-scopes the layer. A nil scope logs out: every subscription
// closes and every snapshot becomes empty. Feed subscription failures are
// logged and leave that collection empty. Listeners must not call Switch.
func (l *Layer) Switch(ctx context.Context, scope *Scope) error {
	l.switchMu.Lock()
	defer l.switchMu.Unlock()

	if l.closed {
		return ErrClosed
	}
	return l.switchLocked(ctx, scope)
}

func (l *Layer) switchLocked(ctx context.Context, scope *Scope) error {
	l.pubMu.Lock()
	gen := l.generation.Add(1)
	l.pubMu.Unlock()

	for _, sub := range l.subs {
		if err := sub.Close(); err != nil {
			l.logger.Warn("Failed to close feed subscription", zap.Error(err))
		}
	}
	l.subs = nil

	tenantID := scope.TenantID()
	l.scope.Store(scope)

	l.pubMu.Lock()
	for _, c := range l.collections {
		l.publishLocked(EmptySnapshot(c, tenantID))
	}
	l.pubMu.Unlock()

	if scope == nil {
		l.logger.Info("Tenant scope cleared")
		return nil
	}

	for _, c := range l.collections {
		sub, err := l.store.Subscribe(ctx, c, tenantID, l.feedHandler(gen, c, tenantID))
		if err != nil {
			l.logger.Warn("Feed subscription failed, collection stays empty",
				zap.String("tenant_id", tenantID),
				zap.String("collection", string(c)),
				zap.Error(err),
			)
			continue
		}
		l.subs = append(l.subs, sub)
	}

	l.logger.Info("Tenant scope switched",
		zap.String("tenant_id", tenantID),
		zap.String("user_id", scope.Actor.UserID),
		zap.Int("subscriptions", len(l.subs)),
	)
	return nil
}

func (l *Layer) feedHandler(gen uint64, c shared.Collection, tenantID string) shared.FeedHandler {
	return func(records []shared.Record, err error) {
		if err != nil {
			l.logger.Warn("Feed error, clearing snapshot",
				zap.String("tenant_id", tenantID),
				zap.String("collection", string(c)),
				zap.Error(err),
			)
			l.publish(gen, EmptySnapshot(c, tenantID))
			return
		}

		scoped := make([]shared.Record, 0, len(records))
		for _, r := range records {
			if r.CompanyID == tenantID {
				scoped = append(scoped, r)
			}
		}
		l.publish(gen, NewSnapshot(c, tenantID, scoped))
	}
}

func (l *Layer) publish(gen uint64, snap *Snapshot) {
	l.pubMu.Lock()
	defer l.pubMu.Unlock()

	if l.generation.Load() != gen {
		return
	}
	l.publishLocked(snap)
}

func (l *Layer) publishLocked(snap *Snapshot) {
	p, ok := l.snapshots[snap.Collection()]
	if !ok {
		return
	}
	p.Store(snap)

	for _, id := range l.order {
		l.notify(l.listeners[id], snap)
	}
}

func (l *Layer) notify(fn Listener, snap *Snapshot) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("Snapshot listener panicked",
				zap.String("collection", string(snap.Collection())),
				zap.Any("panic", r),
			)
		}
	}()
	fn(snap)
}

// Snapshot returns the current snapshot of a collection. Untracked
// collections always read as empty.
func (l *Layer) Snapshot(c shared.Collection) *Snapshot {
	if p, ok := l.snapshots[c]; ok {
		return p.Load()
	}
	return EmptySnapshot(c, l.TenantID())
}

// Scope returns the active scope, nil when logged out
func (l *Layer) Scope() *Scope {
	return l.scope.Load()
}

// TenantID returns the active tenant, "" when logged out
func (l *Layer) TenantID() string {
	return l.scope.Load().TenantID()
}

// OnUpdate registers a listener called synchronously with every published
// snapshot. The returned function unregisters it.
func (l *Layer) OnUpdate(fn Listener) func() {
	l.pubMu.Lock()
	id := l.nextID
	l.nextID++
	l.listeners[id] = fn
	l.order = append(l.order, id)
	l.pubMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			l.pubMu.Lock()
			defer l.pubMu.Unlock()
			delete(l.listeners, id)
			for i, v := range l.order {
				if v == id {
					l.order = append(l.order[:i], l.order[i+1:]...)
					break
				}
			}
		})
	}
}

// Follow keeps the layer scoped to the session's actor until stop is called.
// An actor that fails validation is treated as a logout.
func (l *Layer) Follow(ctx context.Context, session identity.Session) (stop func()) {
	return session.Watch(func(actor *identity.Actor) {
		var scope *Scope
		if actor != nil {
			s, err := NewScope(*actor)
			if err != nil {
				l.logger.Warn("Ignoring invalid session actor", zap.Error(err))
			} else {
				scope = s
			}
		}
		if err := l.Switch(ctx, scope); err != nil && !errors.Is(err, ErrClosed) {
			l.logger.Error("Failed to switch tenant scope", zap.Error(err))
		}
	})
}

// Close logs out and stops the layer. Further Switch calls fail.
func (l *Layer) Close() error {
	l.switchMu.Lock()
	defer l.switchMu.Unlock()

	if l.closed {
		return nil
	}
	err := l.switchLocked(context.Background(), nil)
	l.closed = true
	return err
}

// Read implements Source for the active tenant only
func (l *Layer) Read(_ context.Context, tenantID string, c shared.Collection) (*Snapshot, error) {
	active := l.TenantID()
	if active == "" || active != tenantID {
		return nil, shared.NewForbiddenError(fmt.Sprintf("tenant %q is not the active scope", tenantID))
	}
	return l.Snapshot(c), nil
}

var _ Source = (*Layer)(nil)
