package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/feed"
	"github.com/bizops/backend/internal/infrastructure/persistence/models"
	"github.com/bizops/backend/internal/infrastructure/persistence/tenant"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormDocumentStore implements shared.DocumentStore on a single documents
// table. Writes signal the notifier; subscriptions re-list their collection
// when signalled.
type GormDocumentStore struct {
	db       *gorm.DB
	notifier feed.Notifier
	logger   *zap.Logger
}

// GormDocumentStoreOption configures a GormDocumentStore
type GormDocumentStoreOption func(*GormDocumentStore)

// WithStoreLogger sets the store logger
func WithStoreLogger(logger *zap.Logger) GormDocumentStoreOption {
	return func(s *GormDocumentStore) {
		s.logger = logger
	}
}

// NewGormDocumentStore creates a store. A nil notifier gets an in-process one.
func NewGormDocumentStore(db *gorm.DB, notifier feed.Notifier, opts ...GormDocumentStoreOption) *GormDocumentStore {
	s := &GormDocumentStore{
		db:       db,
		notifier: notifier,
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.notifier == nil {
		s.notifier = feed.NewLocalNotifier(s.logger)
	}
	return s
}

func scope(db *gorm.DB, c shared.Collection, companyID string) *gorm.DB {
	return db.Where("company_id = ? AND collection = ?", companyID, string(c))
}

func checkScope(c shared.Collection, companyID string) error {
	if !c.IsValid() {
		return shared.NewValidationError(fmt.Sprintf("unknown collection %q", c))
	}
	if strings.TrimSpace(companyID) == "" {
		return shared.NewValidationError("companyId is required")
	}
	return nil
}

func checkRecord(rec *shared.Record) error {
	if err := checkScope(rec.Collection, rec.CompanyID); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return shared.NewValidationError("document id is required")
	}
	if !json.Valid(rec.Data) {
		return shared.NewValidationError(fmt.Sprintf("%s/%s body is not valid JSON", rec.Collection, rec.ID))
	}
	return nil
}

// Get implements shared.DocumentStore
func (s *GormDocumentStore) Get(ctx context.Context, c shared.Collection, companyID, id string) (*shared.Record, error) {
	if err := checkScope(c, companyID); err != nil {
		return nil, err
	}
	var m models.DocumentModel
	err := scope(s.db.WithContext(ctx), c, companyID).Where("id = ?", id).First(&m).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, shared.NewNotFoundError(fmt.Sprintf("%s/%s not found", c, id))
	}
	if err != nil {
		return nil, shared.StoreUnavailable(fmt.Errorf("failed to get %s/%s: %w", c, id, err))
	}
	rec := m.ToRecord()
	return &rec, nil
}

// List implements shared.DocumentStore
func (s *GormDocumentStore) List(ctx context.Context, c shared.Collection, companyID string) ([]shared.Record, error) {
	if err := checkScope(c, companyID); err != nil {
		return nil, err
	}
	var rows []models.DocumentModel
	err := scope(s.db.WithContext(ctx), c, companyID).
		Order("created_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, shared.StoreUnavailable(fmt.Errorf("failed to list %s for %s: %w", c, companyID, err))
	}
	records := make([]shared.Record, len(rows))
	for i := range rows {
		records[i] = rows[i].ToRecord()
	}
	return records, nil
}

// Insert implements shared.DocumentStore
func (s *GormDocumentStore) Insert(ctx context.Context, rec *shared.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	rec.Version = 1
	m := models.DocumentModelFromRecord(rec)

	res := s.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(m)
	if res.Error != nil {
		return shared.StoreUnavailable(fmt.Errorf("failed to insert %s/%s: %w", rec.Collection, rec.ID, res.Error))
	}
	if res.RowsAffected == 0 {
		return shared.NewAlreadyExistsError(fmt.Sprintf("%s/%s already exists", rec.Collection, rec.ID))
	}
	rec.CreatedAt, rec.UpdatedAt = m.CreatedAt, m.UpdatedAt

	s.notify(ctx, rec.Collection, rec.CompanyID, rec.ID, feed.OpInsert)
	return nil
}

// Update implements shared.DocumentStore
func (s *GormDocumentStore) Update(ctx context.Context, rec *shared.Record) error {
	if err := checkRecord(rec); err != nil {
		return err
	}
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = time.Now().UTC()
	}

	res := scope(s.db.WithContext(ctx).Model(&models.DocumentModel{}), rec.Collection, rec.CompanyID).
		Where("id = ? AND version = ?", rec.ID, rec.Version).
		Updates(map[string]any{
			"data":       string(rec.Data),
			"version":    gorm.Expr("version + 1"),
			"updated_at": rec.UpdatedAt,
		})
	if res.Error != nil {
		return shared.StoreUnavailable(fmt.Errorf("failed to update %s/%s: %w", rec.Collection, rec.ID, res.Error))
	}
	if res.RowsAffected == 0 {
		var count int64
		if err := scope(s.db.WithContext(ctx).Model(&models.DocumentModel{}), rec.Collection, rec.CompanyID).
			Where("id = ?", rec.ID).Count(&count).Error; err != nil {
			return shared.StoreUnavailable(fmt.Errorf("failed to check %s/%s: %w", rec.Collection, rec.ID, err))
		}
		if count == 0 {
			return shared.NewNotFoundError(fmt.Sprintf("%s/%s not found", rec.Collection, rec.ID))
		}
		return shared.NewConcurrencyError(fmt.Sprintf("%s/%s changed since version %d", rec.Collection, rec.ID, rec.Version))
	}
	rec.Version++

	s.notify(ctx, rec.Collection, rec.CompanyID, rec.ID, feed.OpUpdate)
	return nil
}

// Delete implements shared.DocumentStore
func (s *GormDocumentStore) Delete(ctx context.Context, c shared.Collection, companyID, id string) error {
	if err := checkScope(c, companyID); err != nil {
		return err
	}
	res := scope(s.db.WithContext(ctx), c, companyID).Where("id = ?", id).Delete(&models.DocumentModel{})
	if res.Error != nil {
		return shared.StoreUnavailable(fmt.Errorf("failed to delete %s/%s: %w", c, id, res.Error))
	}
	if res.RowsAffected == 0 {
		return shared.NewNotFoundError(fmt.Sprintf("%s/%s not found", c, id))
	}

	s.notify(ctx, c, companyID, id, feed.OpDelete)
	return nil
}

// ActiveTenantIDs lists every company that owns at least one document
func (s *GormDocumentStore) ActiveTenantIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := s.db.WithContext(tenant.CrossTenant(ctx)).Model(&models.DocumentModel{}).
		Distinct("company_id").
		Order("company_id").
		Pluck("company_id", &ids).Error
	if err != nil {
		return nil, shared.StoreUnavailable(fmt.Errorf("failed to list tenants: %w", err))
	}
	return ids, nil
}

// notify signals subscribers. The write is committed, so a failed signal is
// logged and the next successful one catches subscribers up.
func (s *GormDocumentStore) notify(ctx context.Context, c shared.Collection, companyID, id string, op feed.Op) {
	change := feed.Change{Collection: c, CompanyID: companyID, ID: id, Op: op}
	if err := s.notifier.Publish(context.WithoutCancel(ctx), change); err != nil {
		s.logger.Warn("Failed to publish change",
			zap.String("collection", string(c)),
			zap.String("tenant_id", companyID),
			zap.String("id", id),
			zap.Error(err),
		)
	}
}

// Subscribe implements shared.DocumentStore. The handler runs on a goroutine
// owned by the subscription, never concurrently with itself, and receives the
// full collection after each burst of changes.
func (s *GormDocumentStore) Subscribe(ctx context.Context, c shared.Collection, companyID string, handler shared.FeedHandler) (shared.Subscription, error) {
	if err := checkScope(c, companyID); err != nil {
		return nil, err
	}
	if handler == nil {
		return nil, shared.NewValidationError("feed handler is required")
	}

	subCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	sub := &subscription{
		store:      s,
		collection: c,
		companyID:  companyID,
		handler:    handler,
		poke:       make(chan struct{}, 1),
		cancel:     cancel,
		done:       make(chan struct{}),
	}

	unsubscribe, err := s.notifier.Subscribe(c, companyID, func(feed.Change) { sub.signal() })
	if err != nil {
		cancel()
		return nil, shared.StoreUnavailable(fmt.Errorf("failed to subscribe to %s: %w", feed.Topic(c, companyID), err))
	}
	sub.unsubscribe = unsubscribe

	sub.signal()
	go sub.run(subCtx)
	return sub, nil
}

type subscription struct {
	store       *GormDocumentStore
	collection  shared.Collection
	companyID   string
	handler     shared.FeedHandler
	poke        chan struct{}
	cancel      context.CancelFunc
	unsubscribe func()
	done        chan struct{}
	closeOnce   sync.Once
}

// signal coalesces pokes; one pending re-list covers any number of changes
func (s *subscription) signal() {
	select {
	case s.poke <- struct{}{}:
	default:
	}
}

func (s *subscription) run(ctx context.Context) {
	defer close(s.done)
	for {
		select {
		case <-ctx.Done():
			return
		case <-s.poke:
		}

		records, err := s.store.List(ctx, s.collection, s.companyID)
		if ctx.Err() != nil {
			return
		}
		s.deliver(records, err)
	}
}

func (s *subscription) deliver(records []shared.Record, err error) {
	defer func() {
		if r := recover(); r != nil {
			s.store.logger.Error("Feed handler panicked",
				zap.String("collection", string(s.collection)),
				zap.String("tenant_id", s.companyID),
				zap.Any("panic", r),
			)
		}
	}()
	s.handler(records, err)
}

// Close stops the feed and waits for an in-flight handler call to return
func (s *subscription) Close() error {
	s.closeOnce.Do(func() {
		s.unsubscribe()
		s.cancel()
		<-s.done
	})
	return nil
}

var _ shared.DocumentStore = (*GormDocumentStore)(nil)
