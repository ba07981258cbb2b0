// Package postgres implements the store and reporting ports on PostgreSQL
// through gorm. Nested gorm transactions become SAVEPOINTs.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/sirupsen/logrus"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"scan-in-analytics/pkg/config"
	"scan-in-analytics/pkg/models"
	"scan-in-analytics/pkg/store"
)

var _ store.Store = (*Store)(nil)

type Store struct {
	db  *gorm.DB
	log *logrus.Entry
}

// Open connects to cfg.DatabaseURL and migrates the schema.
func Open(cfg *config.Config, logg *logrus.Logger) (*Store, error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, err
	}

	db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{
		Logger: newGormLogger(logg, cfg.DBLogLevel),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	if sqlDB, err := db.DB(); err == nil && cfg.DBMaxOpenConn > 0 {
		sqlDB.SetMaxOpenConns(cfg.DBMaxOpenConn)
		sqlDB.SetMaxIdleConns(cfg.DBMaxOpenConn / 2)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	if err := db.AutoMigrate(models.All()...); err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %w", err)
	}

	return New(db, logrus.NewEntry(logg).WithField("module", "postgres")), nil
}

// New wraps an already opened connection.
func New(db *gorm.DB, log *logrus.Entry) *Store {
	return &Store{db: db, log: log}
}

func newGormLogger(logg *logrus.Logger, level string) logger.Interface {
	lvl := logger.Error
	switch strings.ToLower(level) {
	case "silent":
		lvl = logger.Silent
	case "warn":
		lvl = logger.Warn
	case "info":
		lvl = logger.Info
	}
	return logger.New(logg, logger.Config{
		SlowThreshold:             time.Second,
		LogLevel:                  lvl,
		IgnoreRecordNotFoundError: true,
		Colorful:                  false,
	})
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) Transaction(ctx context.Context, fn func(tx store.Tx) error) error {
	return s.db.WithContext(ctx).Transaction(func(db *gorm.DB) error {
		return fn(&pgTx{db: db})
	})
}

func (s *Store) SupportsSavepoints() bool { return true }

// IsTransient reports serialization failures and deadlocks. Connection
// failures are not retried: they abort the surrounding chunk transaction,
// so a new savepoint on the same connection cannot succeed.
func (s *Store) IsTransient(err error) bool {
	if errors.Is(err, store.ErrTransient) {
		return true
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}

// IsUniqueViolation reports a unique constraint failure.
func IsUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// Reset deletes all ingested rows, children first, in one transaction.
func (s *Store) Reset(ctx context.Context) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{
			&models.Document{},
			&models.Payment{},
			&models.LineItem{},
			&models.Invoice{},
			&models.Customer{},
			&models.Vendor{},
		} {
			if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(model).Error; err != nil {
				return fmt.Errorf("failed to clear %T: %w", model, err)
			}
		}
		s.log.Info("ingested tables cleared")
		return nil
	})
}

func (s *Store) RecordRun(ctx context.Context, run *models.IngestRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *Store) CountRuns(ctx context.Context, checksum string) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&models.IngestRun{}).Where("checksum = ?", checksum).Count(&n).Error
	return n, err
}
