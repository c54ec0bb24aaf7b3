// Package sqlitestorage implements storage.Store on a SQLite file. It wraps
// the GORM backend; the only SQLite-specific concerns are opening the file
// and producing point-in-time backups via VACUUM INTO.
package sqlitestorage

import (
	"fmt"

	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/database"
	gormstorage "github.com/precisionmule/missionplanner/internal/storage/gorm"
	"github.com/rs/zerolog"
)

// Backend wraps the GORM backend for SQLite-specific behavior.
type Backend struct {
	*gormstorage.Backend
	manager *database.Manager
}

// New opens the SQLite database configured in cfg. An empty path keeps the
// database in memory.
func New(cfg config.SQLiteConfig, log zerolog.Logger) (*Backend, error) {
	m := database.NewManager(log)
	if err := m.ConnectSqlite(cfg.Path); err != nil {
		return nil, fmt.Errorf("failed to create SQLite DB: %w", err)
	}
	return &Backend{
		Backend: gormstorage.New(m.DB, log),
		manager: m,
	}, nil
}

// Backup writes a consistent copy of the database to path.
func (b *Backend) Backup(path string) error {
	return b.manager.DumpToDisk(path)
}
