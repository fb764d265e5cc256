package persistence

import (
	"fmt"
	"time"

	"github.com/bizops/backend/internal/infrastructure/config"
	"github.com/bizops/backend/internal/infrastructure/persistence/models"
	"github.com/bizops/backend/internal/infrastructure/persistence/tenant"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// Database holds the document database connection
type Database struct {
	DB     *gorm.DB
	Driver string
}

// DatabaseOption configures NewDatabase
type DatabaseOption func(*gorm.Config)

// WithGormLogger routes GORM logging through the given logger
func WithGormLogger(l gormlogger.Interface) DatabaseOption {
	return func(c *gorm.Config) {
		c.Logger = l
	}
}

// NewDatabase opens the document database selected by cfg.Driver
func NewDatabase(cfg *config.DatabaseConfig, opts ...DatabaseOption) (*Database, error) {
	gormCfg := &gorm.Config{
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
		SkipDefaultTransaction: true,
	}
	for _, opt := range opts {
		opt(gormCfg)
	}

	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres", "":
		gormCfg.PrepareStmt = true
		dialector = postgres.Open(cfg.DSN())
	case "sqlite":
		dialector = sqlite.Open(cfg.DSN())
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, gormCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if err := tenant.RegisterGuard(db, tenant.WithTables(models.DocumentModel{}.TableName())); err != nil {
		return nil, fmt.Errorf("failed to register tenant guard: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	if cfg.Driver == "sqlite" {
		// a single connection serializes writers, sqlite has no row locks
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
		sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
		sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
	}

	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	driver := cfg.Driver
	if driver == "" {
		driver = "postgres"
	}
	return &Database{DB: db, Driver: driver}, nil
}

// AutoMigrate creates the documents table from the GORM model. Postgres
// deployments run the versioned migrations instead; this serves sqlite.
func (d *Database) AutoMigrate() error {
	if err := d.DB.AutoMigrate(&models.DocumentModel{}); err != nil {
		return fmt.Errorf("failed to migrate documents table: %w", err)
	}
	return nil
}

// Close closes the database connection
func (d *Database) Close() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Close()
}

// Ping checks if the database connection is alive
func (d *Database) Ping() error {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}
	return sqlDB.Ping()
}
