package mission

import (
	"bytes"
	"context"
	"fmt"

	"github.com/precisionmule/missionplanner/internal/storage"
)

// Save stores the native record (circles kept as circles) under key. Backends
// that keep a mission archive store the entry and a snapshot together.
func (s *Session) Save(ctx context.Context, st storage.Store, key string) error {
	rec := s.ToRecord(false)
	if a, ok := st.(storage.MissionArchiver); ok {
		if err := a.SaveMission(ctx, key, rec); err != nil {
			return fmt.Errorf("save mission %q: %w", key, err)
		}
		return nil
	}
	if err := storage.SetObject(ctx, st, key, rec); err != nil {
		return fmt.Errorf("save mission %q: %w", key, err)
	}
	return nil
}

// Load replaces the session content with the record stored under key.
func (s *Session) Load(ctx context.Context, st storage.Store, key string) error {
	data, err := st.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("load mission %q: %w", key, err)
	}
	return s.Import(bytes.NewReader(data))
}
