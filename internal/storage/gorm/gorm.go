// Package gormstorage implements storage.Store on top of GORM. The SQLite
// and Postgres backends wrap it and only differ in how the connection is
// opened.
package gormstorage

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/peterstace/simplefeatures/geom"
	"github.com/precisionmule/missionplanner/internal/geo"
	"github.com/precisionmule/missionplanner/internal/storage"
	"github.com/precisionmule/missionplanner/pkg/core"
	"github.com/rs/zerolog"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Entry is one key/value row.
type Entry struct {
	Key       string         `gorm:"primaryKey;size:128"`
	Value     datatypes.JSON `gorm:"not null"`
	UpdatedAt time.Time
}

// MissionArchive is an append-only snapshot of a saved mission. The JSON
// record is authoritative; the geometry columns are EPSG:3857 projections
// kept for spatial queries.
type MissionArchive struct {
	ID              uint           `gorm:"primaryKey;autoIncrement"`
	Key             string         `gorm:"index;size:128"`
	CreatedAt       time.Time      `gorm:"index"`
	Record          datatypes.JSON `gorm:"not null"`
	Boundary        geom.Polygon
	StartPosition   geom.Point
	PathWidthMeters float64
	Heading         float64
	ObstacleCount   int
}

var byKey = clause.OrderByColumn{Column: clause.Column{Name: "key"}}

// Models lists every table the backend migrates.
var Models = []any{&Entry{}, &MissionArchive{}}

// Backend implements storage.Store using GORM.
type Backend struct {
	db  *gorm.DB
	log zerolog.Logger
}

var (
	_ storage.Store           = (*Backend)(nil)
	_ storage.MissionArchiver = (*Backend)(nil)
)

// New creates a GORM backend on an open connection.
func New(db *gorm.DB, log zerolog.Logger) *Backend {
	return &Backend{db: db, log: log}
}

// DB exposes the connection for the wrapping backends.
func (b *Backend) DB() *gorm.DB {
	return b.db
}

// Init runs schema migration.
func (b *Backend) Init() error {
	if b.db == nil {
		return fmt.Errorf("gorm backend has no connection")
	}
	b.log.Info().Msg("Migrating schema")
	if err := b.db.AutoMigrate(Models...); err != nil {
		return fmt.Errorf("failed to migrate schema: %w", err)
	}
	return nil
}

// Close closes the connection pool.
func (b *Backend) Close() error {
	if b.db == nil {
		return nil
	}
	sqlDB, err := b.db.DB()
	if err != nil {
		return fmt.Errorf("failed to access sql interface: %w", err)
	}
	return sqlDB.Close()
}

// Get returns the value stored under key.
func (b *Backend) Get(ctx context.Context, key string) ([]byte, error) {
	var e Entry
	err := b.db.WithContext(ctx).Where(map[string]any{"key": key}).Take(&e).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, storage.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get %q: %w", key, err)
	}
	return []byte(e.Value), nil
}

// Set inserts or replaces the value under key.
func (b *Backend) Set(ctx context.Context, key string, value []byte) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	if err := upsertEntry(b.db.WithContext(ctx), key, value); err != nil {
		return err
	}
	b.log.Debug().Str("key", key).Int("bytes", len(value)).Msg("Stored entry")
	return nil
}

func upsertEntry(tx *gorm.DB, key string, value []byte) error {
	e := Entry{Key: key, Value: datatypes.JSON(value), UpdatedAt: time.Now().UTC()}
	err := tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_at"}),
	}).Create(&e).Error
	if err != nil {
		return fmt.Errorf("set %q: %w", key, err)
	}
	return nil
}

// Delete removes key. Deleting a missing key is not an error.
func (b *Backend) Delete(ctx context.Context, key string) error {
	if err := b.db.WithContext(ctx).Where(map[string]any{"key": key}).Delete(&Entry{}).Error; err != nil {
		return fmt.Errorf("delete %q: %w", key, err)
	}
	return nil
}

// Keys returns all keys in sorted order.
func (b *Backend) Keys(ctx context.Context) ([]string, error) {
	var keys []string
	if err := b.db.WithContext(ctx).Model(&Entry{}).Order(byKey).Pluck("key", &keys).Error; err != nil {
		return nil, fmt.Errorf("list keys: %w", err)
	}
	return keys, nil
}

// SaveMission stores rec under key and appends an archive snapshot in one
// transaction. If either write fails neither is kept.
func (b *Backend) SaveMission(ctx context.Context, key string, rec core.MissionRecord) error {
	if err := storage.ValidateKey(key); err != nil {
		return err
	}
	payload, err := rec.MarshalJSON()
	if err != nil {
		return fmt.Errorf("encode mission: %w", err)
	}
	row, err := archiveRow(key, payload, rec)
	if err != nil {
		return err
	}

	err = b.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := upsertEntry(tx, key, payload); err != nil {
			return err
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("archive %q: %w", key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	b.log.Info().Str("key", key).Uint("id", row.ID).Msg("Saved and archived mission")
	return nil
}

func archiveRow(key string, payload []byte, rec core.MissionRecord) (MissionArchive, error) {
	start, err := geo.PointTo3857(rec.StartMarker)
	if err != nil {
		return MissionArchive{}, fmt.Errorf("project start marker: %w", err)
	}
	boundary, err := geo.PolygonTo3857(rec.MissionPolygon)
	if err != nil {
		return MissionArchive{}, fmt.Errorf("project mission polygon: %w", err)
	}
	return MissionArchive{
		Key:             key,
		Record:          datatypes.JSON(payload),
		Boundary:        boundary,
		StartPosition:   start,
		PathWidthMeters: rec.PathWidthMeters,
		Heading:         rec.Heading,
		ObstacleCount:   len(rec.PolyObstacles) + len(rec.CircleObstacles),
	}, nil
}

// Archives returns the snapshots saved under key, newest first.
func (b *Backend) Archives(ctx context.Context, key string) ([]MissionArchive, error) {
	var rows []MissionArchive
	err := b.db.WithContext(ctx).Where(map[string]any{"key": key}).Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true}).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list archives %q: %w", key, err)
	}
	return rows, nil
}
