package student

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var (
	ErrInvalidInput = errors.New("invalid input")
	ErrNotFound     = errors.New("student not found")
	ErrNISConflict  = errors.New("nis already exists")
	// ErrHasTransactions is returned when deleting a student that has payment history.
	ErrHasTransactions = errors.New("student has transactions")
)

type Store interface {
	Create(ctx context.Context, in CreateInput) (*Student, error)
	GetByID(ctx context.Context, id string) (*Student, error)
	List(ctx context.Context, q ListQuery) ([]Student, error)
	Update(ctx context.Context, id string, in UpdateInput) (*Student, error)
	Delete(ctx context.Context, id string) error
}

type Usecase struct {
	store       Store
	searchLimit int
}

func New(store Store, searchLimit int) *Usecase {
	if searchLimit <= 0 {
		searchLimit = 5
	}
	return &Usecase{store: store, searchLimit: searchLimit}
}

func (u *Usecase) Create(ctx context.Context, in CreateInput) (*Student, error) {
	in.NIS = strings.TrimSpace(in.NIS)
	in.Nama = strings.TrimSpace(in.Nama)
	in.Kelas = strings.ToUpper(strings.TrimSpace(in.Kelas))
	in.NoTelpWali = strings.TrimSpace(in.NoTelpWali)

	if in.NIS == "" || in.Nama == "" || in.Kelas == "" || in.NoTelpWali == "" {
		return nil, ErrInvalidInput
	}
	in.EmailWali = normalizeEmail(in.EmailWali)
	if in.EmailWali != nil && !strings.Contains(*in.EmailWali, "@") {
		return nil, fmt.Errorf("%w: emailWali", ErrInvalidInput)
	}

	return u.store.Create(ctx, in)
}

func (u *Usecase) GetByID(ctx context.Context, id string) (*Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}
	return u.store.GetByID(ctx, id)
}

func (u *Usecase) List(ctx context.Context, q ListQuery) ([]Student, error) {
	if q.Limit <= 0 || q.Limit > 200 {
		q.Limit = 50
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	q.Search = strings.TrimSpace(q.Search)
	q.Kelas = strings.TrimSpace(q.Kelas)
	return u.store.List(ctx, q)
}

// Search returns the first matches on NIS or name. An empty query matches nothing.
func (u *Usecase) Search(ctx context.Context, query string, limit int) ([]Student, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []Student{}, nil
	}
	if limit <= 0 || limit > u.searchLimit {
		limit = u.searchLimit
	}
	return u.store.List(ctx, ListQuery{Search: query, Limit: limit})
}

func (u *Usecase) Update(ctx context.Context, id string, in UpdateInput) (*Student, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, ErrNotFound
	}

	for _, f := range []**string{&in.NIS, &in.Nama, &in.Kelas, &in.NoTelpWali} {
		if *f == nil {
			continue
		}
		v := strings.TrimSpace(**f)
		if v == "" {
			return nil, ErrInvalidInput
		}
		*f = &v
	}
	if in.Kelas != nil {
		k := strings.ToUpper(*in.Kelas)
		in.Kelas = &k
	}
	in.EmailWali = normalizeEmail(in.EmailWali)

	return u.store.Update(ctx, id, in)
}

func (u *Usecase) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return ErrNotFound
	}
	return u.store.Delete(ctx, id)
}

func normalizeEmail(s *string) *string {
	if s == nil {
		return nil
	}
	e := strings.ToLower(strings.TrimSpace(*s))
	if e == "" {
		return nil
	}
	return &e
}
