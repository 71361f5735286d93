package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/erp/connector/internal/infrastructure/config"
)

// Database is the PostgreSQL connection shared by every repository
type Database struct {
	DB *gorm.DB
}

type Option func(*openOptions)

type openOptions struct {
	logger  gormlogger.Interface
	plugins []gorm.Plugin
}

// WithLogger replaces the default silent gorm logger
func WithLogger(l gormlogger.Interface) Option {
	return func(o *openOptions) { o.logger = l }
}

// WithPlugins registers gorm plugins such as statement tracing
func WithPlugins(plugins ...gorm.Plugin) Option {
	return func(o *openOptions) { o.plugins = append(o.plugins, plugins...) }
}

// NewDatabase connects, registers the plugins, sizes the pool and pings.
// Driver errors are translated to gorm errors (gorm.ErrDuplicatedKey) so
// repositories can recognise unique violations on the queue and mapping tables.
func NewDatabase(cfg *config.DatabaseConfig, opts ...Option) (*Database, error) {
	o := openOptions{logger: gormlogger.Default.LogMode(gormlogger.Silent)}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := gorm.Open(postgres.Open(cfg.DSN()), &gorm.Config{
		Logger:                 o.logger,
		SkipDefaultTransaction: true,
		TranslateError:         true,
		PrepareStmt:            true,
	})
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	for _, p := range o.plugins {
		if err := db.Use(p); err != nil {
			return nil, fmt.Errorf("register gorm plugin %s: %w", p.Name(), err)
		}
	}

	d := &Database{DB: db}
	sqlDB, err := d.sqlDB()
	if err != nil {
		return nil, err
	}
	configurePool(sqlDB, cfg)
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return d, nil
}

func configurePool(sqlDB *sql.DB, cfg *config.DatabaseConfig) {
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(time.Duration(cfg.ConnMaxLifetime) * time.Minute)
	sqlDB.SetConnMaxIdleTime(time.Duration(cfg.ConnMaxIdleTime) * time.Minute)
}

func (d *Database) sqlDB() (*sql.DB, error) {
	sqlDB, err := d.DB.DB()
	if err != nil {
		return nil, fmt.Errorf("get sql.DB: %w", err)
	}
	return sqlDB, nil
}

// Ping backs the database health check
func (d *Database) Ping(ctx context.Context) error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (d *Database) Close() error {
	sqlDB, err := d.sqlDB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
