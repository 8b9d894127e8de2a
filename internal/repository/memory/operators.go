package memory

import (
	"context"

	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

type OperatorStore struct {
	db *DB
}

func NewOperatorStore(db *DB) *OperatorStore {
	return &OperatorStore{db: db}
}

func (s *OperatorStore) FindByUsername(_ context.Context, username string) (*auth.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	a, ok := s.db.accounts[username]
	if !ok {
		return nil, auth.ErrNotFound
	}
	return &a, nil
}

func (s *OperatorStore) FindByID(_ context.Context, id string) (*auth.Account, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	for _, a := range s.db.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, auth.ErrNotFound
}

var _ auth.AccountFinder = (*OperatorStore)(nil)
