package feed

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/lib/pq"
	"go.uber.org/zap"
)

const listenerPingInterval = 90 * time.Second

// PostgresNotifier relays changes through LISTEN/NOTIFY on the document
// database itself, so it needs no extra infrastructure
type PostgresNotifier struct {
	db       *sql.DB
	listener *pq.Listener
	channel  string
	hub      *hub
	logger   *zap.Logger

	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewPostgresNotifier opens a dedicated LISTEN connection on dsn. Publishing
// goes through db.
func NewPostgresNotifier(db *sql.DB, dsn, channel string, logger *zap.Logger) (*PostgresNotifier, error) {
	if channel == "" {
		channel = DefaultChannel
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	n := &PostgresNotifier{
		db:      db,
		channel: channel,
		hub:     newHub(logger),
		logger:  logger,
		stopCh:  make(chan struct{}),
		doneCh:  make(chan struct{}),
	}
	n.listener = pq.NewListener(dsn, 100*time.Millisecond, 10*time.Second, n.onListenerEvent)
	if err := n.listener.Listen(channel); err != nil {
		_ = n.listener.Close()
		return nil, fmt.Errorf("failed to listen on %s: %w", channel, err)
	}
	go n.relay()

	logger.Info("Listening for document changes", zap.String("channel", channel))
	return n, nil
}

// Publish issues NOTIFY with the encoded change
func (n *PostgresNotifier) Publish(ctx context.Context, change Change) error {
	if change.Timestamp == 0 {
		change.Timestamp = time.Now().UnixNano()
	}
	payload, err := json.Marshal(change)
	if err != nil {
		return fmt.Errorf("failed to marshal change: %w", err)
	}
	if _, err := n.db.ExecContext(ctx, "SELECT pg_notify($1, $2)", n.channel, string(payload)); err != nil {
		return fmt.Errorf("failed to notify %s: %w", n.channel, err)
	}
	return nil
}

// Subscribe registers fn for changes to the tenant's collection
func (n *PostgresNotifier) Subscribe(c shared.Collection, companyID string, fn func(Change)) (func(), error) {
	select {
	case <-n.stopCh:
		return nil, ErrClosed
	default:
	}
	return n.hub.add(Topic(c, companyID), fn), nil
}

// Close stops listening and closes the LISTEN connection
func (n *PostgresNotifier) Close() error {
	var err error
	n.stopOnce.Do(func() {
		close(n.stopCh)
		<-n.doneCh
		err = n.listener.Close()
	})
	return err
}

func (n *PostgresNotifier) onListenerEvent(ev pq.ListenerEventType, err error) {
	switch ev {
	case pq.ListenerEventDisconnected:
		n.logger.Warn("Change listener disconnected", zap.String("channel", n.channel), zap.Error(err))
	case pq.ListenerEventReconnected:
		n.logger.Info("Change listener reconnected", zap.String("channel", n.channel))
	case pq.ListenerEventConnectionAttemptFailed:
		n.logger.Warn("Change listener reconnect failed", zap.String("channel", n.channel), zap.Error(err))
	}
}

func (n *PostgresNotifier) relay() {
	defer close(n.doneCh)

	ticker := time.NewTicker(listenerPingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-n.stopCh:
			return
		case <-ticker.C:
			go func() {
				if err := n.listener.Ping(); err != nil {
					n.logger.Debug("Change listener ping failed", zap.Error(err))
				}
			}()
		case msg, ok := <-n.listener.Notify:
			if !ok {
				return
			}
			// nil after a reconnect: anything sent meanwhile is lost
			if msg == nil {
				n.hub.resyncAll(time.Now().UnixNano())
				continue
			}
			var change Change
			if err := json.Unmarshal([]byte(msg.Extra), &change); err != nil {
				n.logger.Warn("Dropping malformed change notification",
					zap.String("channel", n.channel),
					zap.Error(err),
				)
				continue
			}
			n.hub.dispatch(change)
		}
	}
}

var _ Notifier = (*PostgresNotifier)(nil)
