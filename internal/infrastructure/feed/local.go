package feed

import (
	"context"
	"sync/atomic"

	"github.com/bizops/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// LocalNotifier dispatches changes within the process, synchronously on the
// publisher's goroutine
type LocalNotifier struct {
	hub    *hub
	closed atomic.Bool
}

// NewLocalNotifier creates a LocalNotifier
func NewLocalNotifier(logger *zap.Logger) *LocalNotifier {
	return &LocalNotifier{hub: newHub(logger)}
}

// Publish delivers the change to current subscribers of its topic
func (n *LocalNotifier) Publish(_ context.Context, change Change) error {
	if n.closed.Load() {
		return ErrClosed
	}
	n.hub.dispatch(change)
	return nil
}

// Subscribe registers fn for changes to the tenant's collection
func (n *LocalNotifier) Subscribe(c shared.Collection, companyID string, fn func(Change)) (func(), error) {
	if n.closed.Load() {
		return nil, ErrClosed
	}
	return n.hub.add(Topic(c, companyID), fn), nil
}

// Close stops delivery
func (n *LocalNotifier) Close() error {
	n.closed.Store(true)
	return nil
}

var _ Notifier = (*LocalNotifier)(nil)
