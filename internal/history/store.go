package history

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/tphakala/datamerge/internal/errors"
	"github.com/tphakala/datamerge/internal/logger"
)

// slowQueryThreshold is the query duration above which gorm logs a warning.
const slowQueryThreshold = 200 * time.Millisecond

// DefaultLimit is the number of runs List returns when no limit is given.
const DefaultLimit = 20

// Store is the SQLite-backed run ledger.
type Store struct {
	db  *gorm.DB
	log logger.Logger
}

// Open opens (creating if needed) the ledger at path and migrates its schema.
func Open(path string, log logger.Logger) (*Store, error) {
	log = log.Module("history")
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, historyError(err, "create ledger directory").Context("path", path).Build()
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: logger.NewGormLoggerAdapter(log, slowQueryThreshold),
	})
	if err != nil {
		return nil, historyError(err, "open ledger").Context("path", path).Build()
	}
	if err := db.AutoMigrate(&Run{}, &SplitRecord{}, &ClassRecord{}); err != nil {
		if sqlDB, dbErr := db.DB(); dbErr == nil {
			_ = sqlDB.Close()
		}
		return nil, historyError(err, "migrate ledger").Context("path", path).Build()
	}

	log.Debug("Run ledger opened", logger.String("path", path))
	return &Store{db: db, log: log}, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return historyError(err, "close ledger").Build()
	}
	return sqlDB.Close()
}

// Save inserts or updates run together with its split and class records.
func (s *Store) Save(ctx context.Context, run *Run) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("run_id = ?", run.ID).Delete(&SplitRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Where("run_id = ?", run.ID).Delete(&ClassRecord{}).Error; err != nil {
			return err
		}
		// Records are written explicitly below so an upsert never duplicates them.
		splits, classes := run.Splits, run.Classes
		run.Splits, run.Classes = nil, nil
		err := tx.Omit(clause.Associations).Save(run).Error
		run.Splits, run.Classes = splits, classes
		if err != nil {
			return err
		}
		for i := range run.Splits {
			run.Splits[i].ID = 0
			run.Splits[i].RunID = run.ID
		}
		for i := range run.Classes {
			run.Classes[i].ID = 0
			run.Classes[i].RunID = run.ID
		}
		if len(run.Splits) > 0 {
			if err := tx.Create(&run.Splits).Error; err != nil {
				return err
			}
		}
		if len(run.Classes) > 0 {
			return tx.Create(&run.Classes).Error
		}
		return nil
	})
	if err != nil {
		return historyError(err, "save run").Context("run_id", run.ID).Build()
	}
	return nil
}

// Get returns the run with id, including its records.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	var run Run
	err := s.db.WithContext(ctx).
		Preload("Splits", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Classes", func(db *gorm.DB) *gorm.DB { return db.Order("class_id") }).
		First(&run, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errors.New(err).
			Component("history").
			Category(errors.CategoryNotFound).
			Context("run_id", id).
			Build()
	}
	if err != nil {
		return nil, historyError(err, "load run").Context("run_id", id).Build()
	}
	return &run, nil
}

// List returns the most recent runs, newest first. Records are not loaded.
func (s *Store) List(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultLimit
	}
	var runs []Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, historyError(err, "list runs").Build()
	}
	return runs, nil
}

func historyError(err error, op string) *errors.ErrorBuilder {
	return errors.New(err).
		Component("history").
		Category(errors.CategoryHistory).
		Context("operation", op)
}
