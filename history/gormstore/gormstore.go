// Package gormstore stores round history through gorm.
package gormstore

import (
	"context"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"github.com/ngicks/varpoll/history"
	"gorm.io/gorm"
)

var _ history.Recorder = (*Store)(nil)

type Store struct {
	db *gorm.DB
}

// New migrates the schema on db and returns a Store backed by it.
func New(db *gorm.DB) (*Store, error) {
	if err := db.AutoMigrate(&GormRecord{}); err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// NewSqlite3 opens a sqlite3 database at dbPath. The driver is pure Go; cgo is not needed.
func NewSqlite3(dbPath string, opts ...gorm.Option) (*Store, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), opts...)
	if err != nil {
		return nil, err
	}
	return New(db)
}

func (s *Store) Record(ctx context.Context, rec history.Record) error {
	row := FromRecord(rec)
	if row.Id == "" {
		row.Id = uuid.NewString()
	}
	return s.db.WithContext(ctx).Create(&row).Error
}

func (s *Store) List(ctx context.Context, pollerId string, limit int) ([]history.Record, error) {
	var rows []GormRecord
	q := s.db.WithContext(ctx).
		Where("poller_id = ?", pollerId).
		Order("started_at desc").
		Order("generation desc")
	if limit > 0 {
		q = q.Limit(limit)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]history.Record, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.ToRecord())
	}
	return out, nil
}

// Prune deletes records started before t and reports how many were removed.
func (s *Store) Prune(ctx context.Context, before time.Time) (int64, error) {
	result := s.db.WithContext(ctx).Where("started_at < ?", before.UTC()).Delete(&GormRecord{})
	return result.RowsAffected, result.Error
}

func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
