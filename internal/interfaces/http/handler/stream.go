package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/bizops/backend/internal/application/analytics"
	"github.com/bizops/backend/internal/application/tenantsync"
	"github.com/bizops/backend/internal/domain/identity"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/interfaces/http/dto"
	"github.com/bizops/backend/internal/interfaces/http/middleware"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SSE event names
const (
	EventConnected = "connected"
	EventSnapshot  = "snapshot"
	EventTelemetry = "telemetry"
	EventHeartbeat = "heartbeat"
	EventLogout    = "logout"
)

// SSEMessage is one server-sent event
type SSEMessage struct {
	Event string
	Data  string
	ID    string
}

// SnapshotEvent is the data of a snapshot event
type SnapshotEvent struct {
	Collection shared.Collection `json:"collection"`
	TenantID   string            `json:"tenantId"`
	Snapshot   []shared.Record   `json:"snapshot"`
}

// StreamRegistry tracks the sessions of open streams by user so a logout can
// reach them.
type StreamRegistry struct {
	mu     sync.Mutex
	byUser map[string]map[*streamSession]struct{}
}

type streamSession struct {
	tokenID string
	session *identity.MemorySession
}

// NewStreamRegistry creates an empty registry
func NewStreamRegistry() *StreamRegistry {
	return &StreamRegistry{byUser: make(map[string]map[*streamSession]struct{})}
}

func (r *StreamRegistry) register(userID, tokenID string, session *identity.MemorySession) func() {
	s := &streamSession{tokenID: tokenID, session: session}

	r.mu.Lock()
	if r.byUser[userID] == nil {
		r.byUser[userID] = make(map[*streamSession]struct{})
	}
	r.byUser[userID][s] = struct{}{}
	r.mu.Unlock()

	return func() {
		r.mu.Lock()
		defer r.mu.Unlock()
		delete(r.byUser[userID], s)
		if len(r.byUser[userID]) == 0 {
			delete(r.byUser, userID)
		}
	}
}

// Logout ends the sessions of userID's streams opened with tokenID, or every
// one of them when tokenID is empty. It returns how many were logged out.
func (r *StreamRegistry) Logout(userID, tokenID string) int {
	r.mu.Lock()
	var targets []*identity.MemorySession
	for s := range r.byUser[userID] {
		if tokenID == "" || s.tokenID == tokenID {
			targets = append(targets, s.session)
		}
	}
	r.mu.Unlock()

	for _, session := range targets {
		session.Set(nil)
	}
	return len(targets)
}

// Count returns the number of open streams
func (r *StreamRegistry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, sessions := range r.byUser {
		n += len(sessions)
	}
	return n
}

// StreamHandler serves the tenant snapshot stream. Each connection owns a
// tenantsync.Layer scoped by a session that follows the bearer's actor, and
// an analytics.Aggregator on that layer whose results go out as telemetry
// events.
type StreamHandler struct {
	BaseHandler
	store      shared.DocumentStore
	registry   *StreamRegistry
	logger     *zap.Logger
	heartbeat  time.Duration
	maxStreams int
	analytics  []analytics.Option
	ctx        context.Context
	cancel     context.CancelFunc
}

// StreamOption is a functional option for StreamHandler
type StreamOption func(*StreamHandler)

// WithStreamLogger sets the logger
func WithStreamLogger(logger *zap.Logger) StreamOption {
	return func(h *StreamHandler) {
		h.logger = logger
	}
}

// WithStreamHeartbeat sets the heartbeat interval
func WithStreamHeartbeat(interval time.Duration) StreamOption {
	return func(h *StreamHandler) {
		if interval > 0 {
			h.heartbeat = interval
		}
	}
}

// WithMaxStreams caps concurrent streams. Zero means unlimited.
func WithMaxStreams(max int) StreamOption {
	return func(h *StreamHandler) {
		h.maxStreams = max
	}
}

// WithStreamAnalytics configures the per-stream aggregators
func WithStreamAnalytics(opts ...analytics.Option) StreamOption {
	return func(h *StreamHandler) {
		h.analytics = append(h.analytics, opts...)
	}
}

// NewStreamHandler creates a new StreamHandler
func NewStreamHandler(store shared.DocumentStore, registry *StreamRegistry, opts ...StreamOption) *StreamHandler {
	ctx, cancel := context.WithCancel(context.Background())
	h := &StreamHandler{
		store:      store,
		registry:   registry,
		logger:     zap.NewNop(),
		heartbeat:  30 * time.Second,
		maxStreams: 10000,
		ctx:        ctx,
		cancel:     cancel,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Stop disconnects every open stream
func (h *StreamHandler) Stop() {
	h.cancel()
	h.logger.Info("Snapshot stream handler stopped")
}

// Stream godoc
//
//	@Summary		Subscribe to tenant snapshots via SSE
//	@Description	Emits the full membership of each collection whenever it changes, followed by recomputed telemetry
//	@Tags			stream
//	@Produce		text/event-stream
//	@Success		200	{string}	string	"SSE stream"
//	@Failure		401	{object}	dto.Response
//	@Failure		503	{object}	dto.Response
//	@Security		BearerAuth
//	@Router			/stream [get]
func (h *StreamHandler) Stream(c *gin.Context) {
	actor, ok := h.Actor(c)
	if !ok {
		return
	}
	if h.maxStreams > 0 && h.registry.Count() >= h.maxStreams {
		h.ErrorWithCode(c, dto.ErrCodeTooManyStreams, "Maximum number of streams reached")
		return
	}

	var tokenID string
	if claims := middleware.GetJWTClaims(c); claims != nil {
		tokenID = claims.ID
	}
	streamID := uuid.NewString()
	log := h.logger.With(
		zap.String("stream_id", streamID),
		zap.String("tenant_id", actor.CompanyID),
		zap.String("user_id", actor.UserID),
	)

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")
	c.Writer.Header().Set("X-Accel-Buffering", "no")
	c.Status(http.StatusOK)

	layer := tenantsync.NewLayer(h.store, tenantsync.WithLogger(log))
	defer func() { _ = layer.Close() }()

	pending := newPendingSnapshots()
	defer layer.OnUpdate(pending.put)()

	aggOpts := append([]analytics.Option{analytics.WithLogger(log)}, h.analytics...)
	aggOpts = append(aggOpts, analytics.WithRecomputeHook(pending.putTelemetry))
	agg := analytics.NewAggregator(layer, aggOpts...)
	defer agg.Close()

	session := identity.NewMemorySession(&actor)
	defer h.registry.register(actor.UserID, tokenID, session)()

	// Follow is registered first so the layer has cleared by the time the
	// logout watcher fires.
	defer layer.Follow(h.ctx, session)()

	loggedOut := make(chan struct{})
	var once sync.Once
	defer session.Watch(func(a *identity.Actor) {
		if a == nil {
			once.Do(func() { close(loggedOut) })
		}
	})()

	log.Info("Snapshot stream opened")
	seq := 0
	send := func(event string, v any) {
		data, err := json.Marshal(v)
		if err != nil {
			log.Error("Failed to marshal SSE event", zap.String("event", event), zap.Error(err))
			return
		}
		seq++
		writeEvent(c.Writer, SSEMessage{Event: event, Data: string(data), ID: strconv.Itoa(seq)})
		c.Writer.Flush()
	}
	flush := func() {
		snaps, latest := pending.drain()
		for _, snap := range snaps {
			records := snap.Records()
			if records == nil {
				records = []shared.Record{}
			}
			send(EventSnapshot, SnapshotEvent{
				Collection: snap.Collection(),
				TenantID:   snap.TenantID(),
				Snapshot:   records,
			})
		}
		// a cleared layer recomputes for no tenant; there is nothing to report
		if latest != nil && latest.TenantID != "" {
			send(EventTelemetry, latest)
		}
	}

	send(EventConnected, gin.H{
		"stream_id": streamID,
		"tenant_id": actor.CompanyID,
		"timestamp": time.Now().Unix(),
	})

	ticker := time.NewTicker(h.heartbeat)
	defer ticker.Stop()

	reqCtx := c.Request.Context()
	for {
		select {
		case <-reqCtx.Done():
			log.Info("Snapshot stream closed by client")
			return
		case <-h.ctx.Done():
			log.Info("Snapshot stream closed by server shutdown")
			return
		case <-loggedOut:
			flush()
			send(EventLogout, gin.H{"timestamp": time.Now().Unix()})
			log.Info("Snapshot stream closed by logout")
			return
		case <-pending.ready:
			flush()
		case <-ticker.C:
			send(EventHeartbeat, gin.H{"timestamp": time.Now().Unix()})
		}
	}
}

// pendingSnapshots keeps the latest unsent snapshot per collection and the
// latest unsent telemetry. A slow client skips intermediate results but
// always receives the newest.
type pendingSnapshots struct {
	mu        sync.Mutex
	latest    map[shared.Collection]*tenantsync.Snapshot
	telemetry *analytics.Telemetry
	ready     chan struct{}
}

func newPendingSnapshots() *pendingSnapshots {
	return &pendingSnapshots{
		latest: make(map[shared.Collection]*tenantsync.Snapshot),
		ready:  make(chan struct{}, 1),
	}
}

func (p *pendingSnapshots) put(snap *tenantsync.Snapshot) {
	p.mu.Lock()
	p.latest[snap.Collection()] = snap
	p.mu.Unlock()
	p.signal()
}

func (p *pendingSnapshots) putTelemetry(t *analytics.Telemetry) {
	p.mu.Lock()
	p.telemetry = t
	p.mu.Unlock()
	p.signal()
}

func (p *pendingSnapshots) signal() {
	select {
	case p.ready <- struct{}{}:
	default:
	}
}

// drain returns the pending snapshots in tracked-collection order and the
// pending telemetry, if any
func (p *pendingSnapshots) drain() ([]*tenantsync.Snapshot, *analytics.Telemetry) {
	p.mu.Lock()
	defer p.mu.Unlock()

	out := make([]*tenantsync.Snapshot, 0, len(p.latest))
	for _, c := range shared.TrackedCollections {
		if snap, ok := p.latest[c]; ok {
			out = append(out, snap)
		}
	}
	clear(p.latest)
	t := p.telemetry
	p.telemetry = nil
	return out, t
}

// writeEvent writes an SSE event
func writeEvent(w io.Writer, msg SSEMessage) {
	if msg.Event != "" {
		fmt.Fprintf(w, "event: %s\n", msg.Event)
	}
	if msg.ID != "" {
		fmt.Fprintf(w, "id: %s\n", msg.ID)
	}
	fmt.Fprintf(w, "data: %s\n\n", msg.Data)
}
