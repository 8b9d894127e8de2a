package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/google/uuid"

	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
)

type StudentStore struct {
	db *DB
}

func NewStudentStore(db *DB) *StudentStore {
	return &StudentStore{db: db}
}

func (s *StudentStore) Create(_ context.Context, in studentuc.CreateInput) (*studentuc.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, taken := s.db.studentByNIS[in.NIS]; taken {
		return nil, studentuc.ErrNISConflict
	}
	now := s.db.now()
	st := studentuc.Student{
		ID:         uuid.NewString(),
		NIS:        in.NIS,
		Nama:       in.Nama,
		Kelas:      in.Kelas,
		NoTelpWali: in.NoTelpWali,
		EmailWali:  in.EmailWali,
		Alamat:     in.Alamat,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	s.db.students[st.ID] = st
	s.db.studentByNIS[st.NIS] = st.ID
	return &st, nil
}

func (s *StudentStore) GetByID(_ context.Context, id string) (*studentuc.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	st, ok := s.db.students[id]
	if !ok {
		return nil, studentuc.ErrNotFound
	}
	return &st, nil
}

func (s *StudentStore) List(_ context.Context, q studentuc.ListQuery) ([]studentuc.Student, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	needle := strings.ToLower(q.Search)
	out := make([]studentuc.Student, 0, len(s.db.students))
	for _, st := range s.db.students {
		if needle != "" &&
			!strings.Contains(strings.ToLower(st.NIS), needle) &&
			!strings.Contains(strings.ToLower(st.Nama), needle) {
			continue
		}
		if q.Kelas != "" && !strings.EqualFold(st.Kelas, q.Kelas) {
			continue
		}
		out = append(out, st)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Nama != out[j].Nama {
			return out[i].Nama < out[j].Nama
		}
		return out[i].NIS < out[j].NIS
	})

	return page(out, q.Offset, q.Limit), nil
}

func (s *StudentStore) Update(_ context.Context, id string, in studentuc.UpdateInput) (*studentuc.Student, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, ok := s.db.students[id]
	if !ok {
		return nil, studentuc.ErrNotFound
	}
	if in.NIS != nil && *in.NIS != st.NIS {
		if _, taken := s.db.studentByNIS[*in.NIS]; taken {
			return nil, studentuc.ErrNISConflict
		}
		delete(s.db.studentByNIS, st.NIS)
		st.NIS = *in.NIS
		s.db.studentByNIS[st.NIS] = st.ID
	}
	if in.Nama != nil {
		st.Nama = *in.Nama
	}
	if in.Kelas != nil {
		st.Kelas = *in.Kelas
	}
	if in.NoTelpWali != nil {
		st.NoTelpWali = *in.NoTelpWali
	}
	if in.EmailWali != nil {
		st.EmailWali = in.EmailWali
	}
	if in.Alamat != nil {
		st.Alamat = in.Alamat
	}
	st.UpdatedAt = s.db.now()
	s.db.students[id] = st
	return &st, nil
}

func (s *StudentStore) Delete(_ context.Context, id string) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	st, ok := s.db.students[id]
	if !ok {
		return studentuc.ErrNotFound
	}
	for _, t := range s.db.trx {
		if t.StudentID == id {
			return studentuc.ErrHasTransactions
		}
	}
	delete(s.db.students, id)
	delete(s.db.studentByNIS, st.NIS)
	return nil
}

func page[T any](in []T, offset, limit int) []T {
	if offset >= len(in) {
		return []T{}
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

var _ studentuc.Store = (*StudentStore)(nil)
