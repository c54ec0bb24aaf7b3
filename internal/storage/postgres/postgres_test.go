package postgres

import (
	"io"
	"testing"

	"github.com/precisionmule/missionplanner/internal/config"
	"github.com/precisionmule/missionplanner/internal/storage"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

var (
	_ storage.Store           = (*Backend)(nil)
	_ storage.MissionArchiver = (*Backend)(nil)
)

func TestNew_DoesNotConnect(t *testing.T) {
	b := New(config.DatabaseConfig{Host: "db.invalid"}, zerolog.New(io.Discard))
	assert.Nil(t, b.Backend)
	assert.NoError(t, b.Close())
}

func TestInit_UnreachableServer(t *testing.T) {
	b := New(config.DatabaseConfig{
		Host:     "127.0.0.1",
		Port:     "1",
		Username: "postgres",
		Password: "postgres",
		Database: "missionplanner",
	}, zerolog.New(io.Discard))

	err := b.Init()
	assert.Error(t, err)
	assert.NoError(t, b.Close())
}
