package memory

import (
	"context"
	"sort"
	"strings"
	"time"

	"github.com/diqie123/school-cashier-pro/internal/usecase/dashboard"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

type TransactionStore struct {
	db *DB
}

func NewTransactionStore(db *DB) *TransactionStore {
	return &TransactionStore{db: db}
}

func (s *TransactionStore) GetStudentSnapshot(_ context.Context, studentID string) (*trxuc.StudentSnapshot, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	st, ok := s.db.students[studentID]
	if !ok {
		return nil, trxuc.ErrStudentMissing
	}
	return &trxuc.StudentSnapshot{ID: st.ID, NIS: st.NIS, Name: st.Nama, Kelas: st.Kelas}, nil
}

func (s *TransactionStore) Insert(_ context.Context, trx *trxuc.Transaction) error {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()

	if _, taken := s.db.trxByCode[trx.TransactionCode]; taken {
		return trxuc.ErrCodeConflict
	}
	st, ok := s.db.students[trx.StudentID]
	if !ok {
		return trxuc.ErrStudentMissing
	}
	trx.StudentNIS, trx.StudentName, trx.StudentKelas = st.NIS, st.Nama, st.Kelas

	cp := cloneTrx(trx)
	s.db.trx = append(s.db.trx, cp)
	s.db.trxByID[cp.ID] = cp
	s.db.trxByCode[cp.TransactionCode] = cp
	return nil
}

// NextDailySequence increments the counter for day under the store lock.
func (s *TransactionStore) NextDailySequence(_ context.Context, day string) (int64, error) {
	s.db.mu.Lock()
	defer s.db.mu.Unlock()
	s.db.counters[day]++
	return s.db.counters[day], nil
}

func (s *TransactionStore) CodeExists(_ context.Context, code string) (bool, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	_, ok := s.db.trxByCode[code]
	return ok, nil
}

func (s *TransactionStore) List(_ context.Context, q trxuc.ListQuery) ([]trxuc.Transaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	out := make([]trxuc.Transaction, 0)
	for _, t := range s.db.trx {
		if matches(t, q) {
			out = append(out, *cloneTrx(t))
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return page(out, q.Offset, q.Limit), nil
}

func matches(t *trxuc.Transaction, q trxuc.ListQuery) bool {
	if q.DateStart != nil && t.CreatedAt.Before(*q.DateStart) {
		return false
	}
	if q.DateEnd != nil && !t.CreatedAt.Before(*q.DateEnd) {
		return false
	}
	if q.Method != nil && t.PaymentMethod != *q.Method {
		return false
	}
	if q.Status != nil && t.Status != *q.Status {
		return false
	}
	if q.Kelas != nil && !strings.EqualFold(t.StudentKelas, *q.Kelas) {
		return false
	}
	if q.StudentID != nil && t.StudentID != *q.StudentID {
		return false
	}
	if q.PaymentType != nil {
		found := false
		for _, it := range t.Items {
			if strings.EqualFold(it.PaymentType, *q.PaymentType) {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}

func (s *TransactionStore) GetByID(_ context.Context, id string) (*trxuc.Transaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, ok := s.db.trxByID[id]
	if !ok {
		return nil, trxuc.ErrTransactionMissing
	}
	return cloneTrx(t), nil
}

func (s *TransactionStore) GetByCode(_ context.Context, code string) (*trxuc.Transaction, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	t, ok := s.db.trxByCode[code]
	if !ok {
		return nil, trxuc.ErrTransactionMissing
	}
	return cloneTrx(t), nil
}

func (s *TransactionStore) PaidSince(_ context.Context, from time.Time) ([]dashboard.PaidEntry, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	var out []dashboard.PaidEntry
	for _, t := range s.db.trx {
		if t.Status == trxuc.StatusPaid && !t.CreatedAt.Before(from) {
			out = append(out, dashboard.PaidEntry{CreatedAt: t.CreatedAt, Total: t.Total})
		}
	}
	return out, nil
}

func (s *TransactionStore) CountByStatus(_ context.Context, status trxuc.Status) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()

	n := 0
	for _, t := range s.db.trx {
		if t.Status == status {
			n++
		}
	}
	return n, nil
}

func (s *TransactionStore) CountStudents(_ context.Context) (int, error) {
	s.db.mu.RLock()
	defer s.db.mu.RUnlock()
	return len(s.db.students), nil
}

func cloneTrx(t *trxuc.Transaction) *trxuc.Transaction {
	cp := *t
	cp.Items = append([]trxuc.Item(nil), t.Items...)
	if t.CashReceived != nil {
		v := *t.CashReceived
		cp.CashReceived = &v
	}
	if t.ChangeGiven != nil {
		v := *t.ChangeGiven
		cp.ChangeGiven = &v
	}
	if t.Notes != nil {
		v := *t.Notes
		cp.Notes = &v
	}
	return &cp
}

var (
	_ trxuc.Store          = (*TransactionStore)(nil)
	_ trxuc.DailySequencer = (*TransactionStore)(nil)
	_ trxuc.CodeChecker    = (*TransactionStore)(nil)
	_ dashboard.Store      = (*TransactionStore)(nil)
)
