package main

import (
	"fmt"

	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/storage"
	"github.com/precisionmule/missionplanner/internal/storage/memory"
	pgstorage "github.com/precisionmule/missionplanner/internal/storage/postgres"
	sqlitestorage "github.com/precisionmule/missionplanner/internal/storage/sqlite"
)

// openStore creates and initializes the configured storage backend.
func (a *app) openStore() (storage.Store, error) {
	storageCfg := config.GetStorageConfig()

	backend, err := a.createStorageBackend(storageCfg)
	if err != nil {
		a.logger.Error("Failed to create storage backend", "error", err)
		return nil, err
	}
	if err := backend.Init(); err != nil {
		a.logger.Error("Failed to initialize storage backend", "error", err)
		_ = backend.Close()
		return nil, fmt.Errorf("failed to initialize %s storage: %w", storageCfg.Type, err)
	}
	a.logger.Info("Using storage backend", "type", storageCfg.Type)
	return backend, nil
}

func (a *app) createStorageBackend(storageCfg config.StorageConfig) (storage.Store, error) {
	switch storageCfg.Type {
	case "postgres":
		a.logger.Info("Postgres storage backend initialized")
		return pgstorage.New(config.GetDatabaseConfig(), a.componentLogger("postgres")), nil

	case "sqlite":
		backend, err := sqlitestorage.New(storageCfg.SQLite, a.componentLogger("sqlite"))
		if err != nil {
			return nil, fmt.Errorf("failed to create SQLite backend: %w", err)
		}
		a.logger.Info("SQLite storage backend initialized", "path", storageCfg.SQLite.Path)
		return backend, nil

	case "memory", "":
		a.logger.Info("Memory storage backend initialized", "outputDir", storageCfg.Memory.OutputDir)
		return memory.New(storageCfg.Memory), nil

	default:
		return nil, fmt.Errorf("unknown storage type %q", storageCfg.Type)
	}
}
