// Package postgres implements storage.Store on PostgreSQL through the GORM
// backend.
package postgres

import (
	"fmt"

	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/database"
	gormstorage "github.com/precisionmule/missionplanner/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend connects lazily in Init so a misconfigured database surfaces as
// an Init error, the same way the other backends report it.
type Backend struct {
	*gormstorage.Backend
	cfg     config.DatabaseConfig
	log     zerolog.Logger
	manager *database.Manager
}

// New creates a Postgres backend. No connection is made until Init.
func New(cfg config.DatabaseConfig, log zerolog.Logger) *Backend {
	return &Backend{cfg: cfg, log: log}
}

// Init connects, validates the connection and migrates the schema.
func (b *Backend) Init() error {
	b.manager = database.NewManager(b.log)
	if err := b.manager.ConnectPostgres(b.cfg); err != nil {
		return err
	}
	b.Backend = gormstorage.New(b.manager.DB, b.log)
	if err := b.Backend.Init(); err != nil {
		return fmt.Errorf("failed to setup DB: %w", err)
	}
	return nil
}

// Close closes the connection if Init succeeded.
func (b *Backend) Close() error {
	if b.Backend == nil {
		return nil
	}
	return b.Backend.Close()
}
