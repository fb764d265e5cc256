// Package feed carries "collection X of company Y changed" signals from
// writers to the store's live subscriptions. It moves no document data;
// subscribers re-read the store when poked.
package feed

import (
	"context"
	"errors"
	"sync"

	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// ErrClosed is returned by a Notifier after Close
var ErrClosed = errors.New("feed: notifier closed")

// DefaultChannel is the pub/sub and LISTEN channel used when none is configured
const DefaultChannel = "bizops_documents"

// Op is the kind of write that produced a change
type Op string

const (
	OpInsert Op = "insert"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
	// OpResync is emitted locally after a transport reconnect, when changes
	// may have been missed
	OpResync Op = "resync"
)

// Change describes one write to a tenant's collection
type Change struct {
	Collection shared.Collection `json:"collection"`
	CompanyID  string            `json:"companyId"`
	ID         string            `json:"id,omitempty"`
	Op         Op                `json:"op"`
	Timestamp  int64             `json:"ts"`
}

// Topic is the dispatch key of the change
func (c Change) Topic() string {
	return Topic(c.Collection, c.CompanyID)
}

// Topic builds the dispatch key for a tenant's collection
func Topic(c shared.Collection, companyID string) string {
	return string(c) + ":" + companyID
}

// Notifier fans change signals out to subscribers of the same topic,
// possibly across processes. Callbacks must not block.
type Notifier interface {
	Publish(ctx context.Context, change Change) error
	Subscribe(c shared.Collection, companyID string, fn func(Change)) (cancel func(), err error)
	Close() error
}

// hub is the in-process dispatch table shared by every Notifier
type hub struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string]map[uint64]func(Change)
	logger *zap.Logger
}

func newHub(logger *zap.Logger) *hub {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &hub{
		subs:   make(map[string]map[uint64]func(Change)),
		logger: logger,
	}
}

func (h *hub) add(topic string, fn func(Change)) func() {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.nextID++
	id := h.nextID
	if h.subs[topic] == nil {
		h.subs[topic] = make(map[uint64]func(Change))
	}
	h.subs[topic][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs[topic], id)
			if len(h.subs[topic]) == 0 {
				delete(h.subs, topic)
			}
		})
	}
}

func (h *hub) dispatch(change Change) {
	h.mu.RLock()
	fns := make([]func(Change), 0, len(h.subs[change.Topic()]))
	for _, fn := range h.subs[change.Topic()] {
		fns = append(fns, fn)
	}
	h.mu.RUnlock()

	for _, fn := range fns {
		h.call(fn, change)
	}
}

// resyncAll pokes every subscriber after the transport lost messages
func (h *hub) resyncAll(ts int64) {
	h.mu.RLock()
	var pending []func()
	for _, byID := range h.subs {
		for _, fn := range byID {
			pending = append(pending, func() { fn(Change{Op: OpResync, Timestamp: ts}) })
		}
	}
	h.mu.RUnlock()

	for _, p := range pending {
		p()
	}
}

func (h *hub) call(fn func(Change), change Change) {
	defer func() {
		if r := recover(); r != nil {
			h.logger.Error("Panic in change subscriber",
				zap.String("topic", change.Topic()),
				zap.Any("panic", r),
			)
		}
	}()
	fn(change)
}

func (h *hub) topics() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}
