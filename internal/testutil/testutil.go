// Package testutil provides common test utilities for the backend.
// It contains helpers for opening throwaway document stores, starting
// containerized dependencies, and waiting on asynchronous feeds.
package testutil

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/bizops/backend/internal/domain/shared"
	"github.com/bizops/backend/internal/infrastructure/feed"
	"github.com/bizops/backend/internal/infrastructure/persistence"
	"github.com/bizops/backend/internal/infrastructure/persistence/models"
	"github.com/bizops/backend/internal/infrastructure/persistence/tenant"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// MockDB wraps a GORM database with sqlmock for testing.
type MockDB struct {
	DB    *gorm.DB
	Mock  sqlmock.Sqlmock
	SqlDB *sql.DB
}

// NewMockDB creates a postgres-dialect GORM handle backed by sqlmock. The
// connection is closed on test cleanup.
func NewMockDB(t *testing.T) *MockDB {
	t.Helper()

	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err, "Failed to create sqlmock")

	dialector := postgres.New(postgres.Config{
		Conn:       mockDB,
		DriverName: "postgres",
	})

	gormDB, err := gorm.Open(dialector, &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err, "Failed to open GORM connection")

	t.Cleanup(func() { _ = mockDB.Close() })

	return &MockDB{
		DB:    gormDB,
		Mock:  mock,
		SqlDB: mockDB,
	}
}

// ExpectationsWereMet verifies that all expectations were met.
func (m *MockDB) ExpectationsWereMet(t *testing.T) {
	t.Helper()
	require.NoError(t, m.Mock.ExpectationsWereMet(), "Unmet database expectations")
}

// NewSQLiteDB opens a private in-memory sqlite database with the documents
// table created. Each call gets its own database.
func NewSQLiteDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Discard,
	})
	require.NoError(t, err, "Failed to open sqlite")

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(&models.DocumentModel{}), "Failed to migrate documents table")
	require.NoError(t, tenant.RegisterGuard(db), "Failed to register tenant guard")

	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// NewDocumentStore returns a sqlite-backed document store with an in-process
// change feed.
func NewDocumentStore(t *testing.T) *persistence.GormDocumentStore {
	t.Helper()

	notifier := feed.NewLocalNotifier(zap.NewNop())
	t.Cleanup(func() { _ = notifier.Close() })
	return persistence.NewGormDocumentStore(NewSQLiteDB(t), notifier)
}

// FeedRecorder is a shared.FeedHandler that keeps every delivery.
type FeedRecorder struct {
	mu         sync.Mutex
	deliveries [][]shared.Record
	errs       []error
}

// NewFeedRecorder creates an empty recorder.
func NewFeedRecorder() *FeedRecorder {
	return &FeedRecorder{}
}

// Handle records one delivery. Pass it to DocumentStore.Subscribe.
func (r *FeedRecorder) Handle(records []shared.Record, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.deliveries = append(r.deliveries, records)
	r.errs = append(r.errs, err)
}

// Count returns the number of deliveries so far.
func (r *FeedRecorder) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.deliveries)
}

// Last returns the latest delivery and its error.
func (r *FeedRecorder) Last() ([]shared.Record, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.deliveries) == 0 {
		return nil, nil
	}
	i := len(r.deliveries) - 1
	return r.deliveries[i], r.errs[i]
}

// LastIDs returns the document ids of the latest delivery in order.
func (r *FeedRecorder) LastIDs() []string {
	records, _ := r.Last()
	ids := make([]string, len(records))
	for i, rec := range records {
		ids[i] = rec.ID
	}
	return ids
}

// ContextWithTimeout creates a context that is cancelled on test cleanup.
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// WaitForCondition waits for a condition to become true.
// Returns true if the condition was met, false if timeout occurred.
func WaitForCondition(t *testing.T, condition func() bool, timeout, interval time.Duration) bool {
	t.Helper()

	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return true
		}
		time.Sleep(interval)
	}
	return condition()
}
