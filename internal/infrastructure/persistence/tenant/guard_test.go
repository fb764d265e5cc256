package tenant_test

import (
	"context"
	"testing"
	"time"

	"github.com/bizops/backend/internal/infrastructure/persistence/models"
	"github.com/bizops/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

func guardedDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&models.DocumentModel{}))
	require.NoError(t, tenant.RegisterGuard(db))

	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	for _, company := range []string{"acme", "globex"} {
		require.NoError(t, db.Create(&models.DocumentModel{
			CompanyID: company, Collection: "invoices", ID: "INV-0001",
			Data: `{}`, Version: 1, CreatedAt: now, UpdatedAt: now,
		}).Error)
	}
	return db
}

func TestGuard_ScopedStatementsPass(t *testing.T) {
	db := guardedDB(t)
	ctx := context.Background()

	var rows []models.DocumentModel
	require.NoError(t, db.WithContext(ctx).Where("company_id = ? AND collection = ?", "acme", "invoices").Find(&rows).Error)
	assert.Len(t, rows, 1)

	require.NoError(t, db.WithContext(ctx).Where(&models.DocumentModel{CompanyID: "acme"}).Find(&rows).Error)
	assert.Len(t, rows, 1)

	var count int64
	require.NoError(t, db.WithContext(ctx).Model(&models.DocumentModel{}).Where("company_id IN ?", []string{"acme", "globex"}).Count(&count).Error)
	assert.Equal(t, int64(2), count)

	res := db.WithContext(ctx).Model(&models.DocumentModel{}).
		Where("company_id = ?", "acme").Where("id = ?", "INV-0001").
		Update("version", 2)
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)

	res = db.WithContext(ctx).Where("company_id = ?", "globex").Delete(&models.DocumentModel{})
	require.NoError(t, res.Error)
	assert.Equal(t, int64(1), res.RowsAffected)
}

func TestGuard_RejectsUnscopedStatements(t *testing.T) {
	db := guardedDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		run  func(tx *gorm.DB) error
	}{
		{"find without where", func(tx *gorm.DB) error {
			var rows []models.DocumentModel
			return tx.Find(&rows).Error
		}},
		{"where on id only", func(tx *gorm.DB) error {
			var row models.DocumentModel
			return tx.Where("id = ?", "INV-0001").First(&row).Error
		}},
		{"tenant inside an or", func(tx *gorm.DB) error {
			var rows []models.DocumentModel
			return tx.Where("company_id = ? OR collection = ?", "acme", "invoices").Find(&rows).Error
		}},
		{"update by id", func(tx *gorm.DB) error {
			return tx.Model(&models.DocumentModel{}).Where("id = ?", "INV-0001").Update("version", 9).Error
		}},
		{"delete by collection", func(tx *gorm.DB) error {
			return tx.Where("collection = ?", "invoices").Delete(&models.DocumentModel{}).Error
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.run(db.WithContext(ctx))
			assert.ErrorIs(t, err, tenant.ErrUnscopedStatement)
		})
	}

	var count int64
	require.NoError(t, db.WithContext(tenant.CrossTenant(ctx)).Model(&models.DocumentModel{}).Count(&count).Error)
	assert.Equal(t, int64(2), count, "rejected statements must not have run")
}

func TestGuard_CrossTenantAndUnguardedTables(t *testing.T) {
	db := guardedDB(t)
	ctx := context.Background()

	var ids []string
	err := db.WithContext(tenant.CrossTenant(ctx)).Model(&models.DocumentModel{}).
		Distinct("company_id").Order("company_id").Pluck("company_id", &ids).Error
	require.NoError(t, err)
	assert.Equal(t, []string{"acme", "globex"}, ids)

	var n int64
	require.NoError(t, db.WithContext(ctx).Raw("SELECT count(*) FROM documents").Scan(&n).Error)
	assert.Equal(t, int64(2), n)

	assert.True(t, tenant.IsCrossTenant(tenant.CrossTenant(ctx)))
	assert.False(t, tenant.IsCrossTenant(ctx))
}

func TestGuard_Options(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:"+uuid.NewString()+"?mode=memory&cache=shared"), &gorm.Config{
		Logger: gormlogger.Discard,
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })

	type ledger struct {
		ID    string `gorm:"primaryKey"`
		Owner string
	}
	require.NoError(t, db.AutoMigrate(&ledger{}))
	require.NoError(t, tenant.NewGuard(tenant.WithTables("ledgers"), tenant.WithColumn("owner")).Register(db))

	var rows []ledger
	assert.ErrorIs(t, db.Find(&rows).Error, tenant.ErrUnscopedStatement)
	assert.NoError(t, db.Where("owner = ?", "acme").Find(&rows).Error)

	var docs []models.DocumentModel
	require.NoError(t, db.AutoMigrate(&models.DocumentModel{}))
	assert.NoError(t, db.Find(&docs).Error, "documents is not guarded when other tables are configured")
}
