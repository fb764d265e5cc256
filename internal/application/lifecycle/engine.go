package lifecycle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/telemetry"
	"github.com/go-playground/validator/v10"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	// maxCASAttempts bounds read-modify-write retries on version conflicts
	maxCASAttempts = 3
	// maxIDAttempts bounds id allocation retries on collisions
	maxIDAttempts = 5
)

// errUnchanged aborts an update whose outcome would be a no-op
var errUnchanged = errors.New("unchanged")

// Engine executes the document lifecycle: creation, conversion, payment,
// status changes and Owner clearance. Every operation is scoped to the
// actor's company and checks the permission gate before touching the store.
type Engine struct {
	store     shared.DocumentStore
	source    tenantsync.Source
	claims    shared.ClaimStore
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
	claimTTL  time.Duration
	publisher shared.EventPublisher
	metrics   *telemetry.BusinessMetrics
}

// Option configures an Engine
type Option func(*Engine)

// WithLogger sets the engine logger
func WithLogger(logger *zap.Logger) Option {
	return func(e *Engine) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithClock overrides time.Now
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// WithClaimTTL sets how long a conversion claim is held at most
func WithClaimTTL(ttl time.Duration) Option {
	return func(e *Engine) {
		if ttl > 0 {
			e.claimTTL = ttl
		}
	}
}

// NewEngine creates an Engine. source is read for idempotency scans and id
// allocation; claims serializes conversions of the same source.
func NewEngine(store shared.DocumentStore, source tenantsync.Source, claims shared.ClaimStore, opts ...Option) *Engine {
	e := &Engine{
		store:    store,
		source:   source,
		claims:   claims,
		validate: newValidator(),
		logger:   zap.NewNop(),
		now:      time.Now,
		claimTTL: shared.DefaultClaimTTL,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SetEventPublisher sets the event publisher for audit and notification handlers
func (e *Engine) SetEventPublisher(publisher shared.EventPublisher) {
	e.publisher = publisher
}

// SetBusinessMetrics sets the business metrics collector
func (e *Engine) SetBusinessMetrics(bm *telemetry.BusinessMetrics) {
	e.metrics = bm
}

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// checkInput runs struct validation and converts failures to a ValidationError
func (e *Engine) checkInput(in any) error {
	err := e.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return shared.NewValidationError(err.Error())
	}
	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, fmt.Sprintf("%s failed on %s", fe.Namespace(), fe.Tag()))
	}
	return shared.NewValidationError(strings.Join(msgs, "; "))
}

// authorize validates the actor and runs the permission gate
func authorize(actor identity.Actor, action string, caps ...identity.Capability) error {
	if err := actor.Validate(); err != nil {
		return shared.NewValidationError(err.Error())
	}
	if !actor.CanAny(caps...) {
		return shared.NewForbiddenError(fmt.Sprintf("%s is not allowed to %s", actor.Role, action))
	}
	return nil
}

func requirePrivileged(actor identity.Actor, action string) error {
	if err := actor.Validate(); err != nil {
		return shared.NewValidationError(err.Error())
	}
	if !actor.IsPrivileged() {
		return shared.NewForbiddenError(fmt.Sprintf("only Owner or SuperAdmin can %s", action))
	}
	return nil
}

// get loads a record and its decoded body
func get[T any](ctx context.Context, e *Engine, c shared.Collection, tenantID, id string) (*T, *shared.Record, error) {
	if strings.TrimSpace(id) == "" {
		return nil, nil, shared.NewValidationError("id is required")
	}
	rec, err := e.store.Get(ctx, c, tenantID, id)
	if err != nil {
		return nil, nil, shared.StoreUnavailable(err)
	}
	v, err := tenantsync.DecodeOne[T](*rec)
	if err != nil {
		return nil, nil, shared.StoreUnavailable(err)
	}
	return v, rec, nil
}

// update runs a read-modify-write against the record version, retrying on
// version conflicts. fn is re-run on a freshly loaded value every attempt.
func update[T any](ctx context.Context, e *Engine, c shared.Collection, tenantID, id string, fn func(*T) error) (*T, error) {
	for attempt := 0; attempt < maxCASAttempts; attempt++ {
		v, rec, err := get[T](ctx, e, c, tenantID, id)
		if err != nil {
			return nil, err
		}
		if err := fn(v); err != nil {
			return nil, err
		}
		if err := e.put(ctx, rec, v); err != nil {
			if errors.Is(err, shared.ErrConcurrencyConflict) {
				e.logger.Debug("Version conflict, retrying",
					zap.String("collection", string(c)),
					zap.String("id", id),
					zap.Int("attempt", attempt+1),
				)
				continue
			}
			return nil, err
		}
		return v, nil
	}
	return nil, shared.NewConcurrencyError(fmt.Sprintf("%s/%s kept changing, giving up", c, id))
}

func (e *Engine) put(ctx context.Context, rec *shared.Record, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s/%s: %w", rec.Collection, rec.ID, err)
	}
	rec.Data = data
	rec.UpdatedAt = e.now()
	return shared.StoreUnavailable(e.store.Update(ctx, rec))
}

// insert reserves the next PREFIX-#### id from the tenant counter, lets
// assign stamp it on the body, and inserts. An id already taken by a record
// older than the counter is skipped.
func (e *Engine) insert(ctx context.Context, c shared.Collection, tenantID, prefix string, assign func(id string) any) (*shared.Record, error) {
	for attempt := 0; attempt < maxIDAttempts; attempt++ {
		id, err := e.reserveID(ctx, c, tenantID, prefix)
		if err != nil {
			return nil, err
		}
		data, err := json.Marshal(assign(id))
		if err != nil {
			return nil, fmt.Errorf("failed to encode %s/%s: %w", c, id, err)
		}
		now := e.now()
		rec := &shared.Record{
			Collection: c,
			ID:         id,
			CompanyID:  tenantID,
			Data:       data,
			CreatedAt:  now,
			UpdatedAt:  now,
		}
		err = e.store.Insert(ctx, rec)
		if err == nil {
			return rec, nil
		}
		if !errors.Is(err, shared.ErrAlreadyExists) {
			return nil, shared.StoreUnavailable(err)
		}
	}
	return nil, shared.NewConcurrencyError(fmt.Sprintf("could not allocate a free %s id", prefix))
}

// compensate undoes an insert after a later step failed
func (e *Engine) compensate(ctx context.Context, c shared.Collection, tenantID, id string, cause error) {
	if err := e.store.Delete(context.WithoutCancel(ctx), c, tenantID, id); err != nil {
		e.logger.Error("Failed to roll back partial write",
			zap.String("collection", string(c)),
			zap.String("tenant_id", tenantID),
			zap.String("id", id),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	e.logger.Warn("Rolled back partial write",
		zap.String("collection", string(c)),
		zap.String("tenant_id", tenantID),
		zap.String("id", id),
		zap.NamedError("cause", cause),
	)
}

// idempotent runs create at most once per claim key. lookup reports an
// existing result; it is consulted before claiming, after losing a claim and
// again under the claim so the decision is made on the latest store state.
func (e *Engine) idempotent(ctx context.Context, key string, lookup func() (*Result, error), create func() (*Result, error)) (*Result, error) {
	if res, err := lookup(); err != nil || res != nil {
		return res, err
	}

	ok, err := e.claims.Claim(ctx, key, e.claimTTL)
	if err != nil {
		return nil, shared.StoreUnavailable(fmt.Errorf("failed to take claim %s: %w", key, err))
	}
	if !ok {
		res, err := lookup()
		if err != nil || res != nil {
			return res, err
		}
		return nil, shared.NewConcurrencyError("another request is converting this document")
	}
	telemetry.AddEvent(trace.SpanFromContext(ctx), "claim_acquired", telemetry.SpanAttrClaimKey, key)
	defer func() {
		if err := e.claims.Release(context.WithoutCancel(ctx), key); err != nil {
			e.logger.Warn("Failed to release claim", zap.String("key", key), zap.Error(err))
		}
	}()

	if res, err := lookup(); err != nil || res != nil {
		return res, err
	}
	return create()
}

// publish hands events to the bus. The write already happened, so failures
// are logged only.
func (e *Engine) publish(ctx context.Context, events ...shared.DomainEvent) {
	if e.publisher == nil || len(events) == 0 {
		return
	}
	if err := e.publisher.Publish(ctx, events...); err != nil {
		e.logger.Warn("Failed to publish domain events", zap.Int("count", len(events)), zap.Error(err))
	}
}

func claimKey(kind, tenantID, id string) string {
	return kind + ":" + tenantID + ":" + id
}
