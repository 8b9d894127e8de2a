package memory

import (
	"context"

	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
)

type SettingsStore struct {
	db *DB
}

func NewSettingsStore(db *DB) *SettingsStore {
	return &SettingsStore{db: db}
}

func (s *SettingsStore) Get(_ context.Context) (*settingsuc.Settings, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	if s.db.settings == nil {
		return nil, settingsuc.ErrNotFound
	}
	cp := copySettings(*s.db.settings)
	return &cp, nil
}

func (s *SettingsStore) Save(_ context.Context, in settingsuc.Settings) (*settingsuc.Settings, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	now := s.db.now()
	in = copySettings(in)
	in.UpdatedAt = &now
	s.db.settings = &in

	out := copySettings(in)
	return &out, nil
}

func copySettings(in settingsuc.Settings) settingsuc.Settings {
	tiers := make(map[string]int64, len(in.NominalSPP))
	for k, v := range in.NominalSPP {
		tiers[k] = v
	}
	in.NominalSPP = tiers
	return in
}

var _ settingsuc.Store = (*SettingsStore)(nil)
