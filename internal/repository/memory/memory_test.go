package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

func TestStudentStore_SearchAndConflicts(t *testing.T) {
	db := NewSeeded()
	s := NewStudentStore(db)
	ctx := context.Background()

	got, err := s.List(ctx, studentuc.ListQuery{Search: "ahmad"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "12345", got[0].NIS)

	got, err = s.List(ctx, studentuc.ListQuery{Search: "1234", Limit: 3})
	require.NoError(t, err)
	require.Len(t, got, 3)

	got, err = s.List(ctx, studentuc.ListQuery{Kelas: "x-ipa-1"})
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "Dewi Lestari", got[0].Nama)

	_, err = s.Create(ctx, studentuc.CreateInput{NIS: "12345", Nama: "Dup", Kelas: "X-IPA-1", NoTelpWali: "1"})
	require.ErrorIs(t, err, studentuc.ErrNISConflict)
}

func TestTransactionStore_InsertAndFilters(t *testing.T) {
	db := New()
	st := db.AddStudent(studentuc.Student{NIS: "777", Nama: "Nina", Kelas: "X-IPA-2"})
	s := NewTransactionStore(db)
	ctx := context.Background()

	base := time.Date(2026, 10, 17, 9, 0, 0, 0, time.UTC)
	mk := func(code string, at time.Time, method trxuc.PaymentMethod, typ string) *trxuc.Transaction {
		return &trxuc.Transaction{
			ID:              code,
			TransactionCode: code,
			StudentID:       st.ID,
			StudentKelas:    st.Kelas,
			Items:           []trxuc.Item{{PaymentType: typ, Amount: 1000}},
			Subtotal:        1000,
			Total:           1000,
			PaymentMethod:   method,
			Status:          trxuc.StatusPaid,
			CreatedAt:       at,
		}
	}
	require.NoError(t, s.Insert(ctx, mk("A", base, trxuc.MethodCash, "SPP")))
	require.NoError(t, s.Insert(ctx, mk("B", base.Add(time.Hour), trxuc.MethodEWallet, "Buku")))
	require.NoError(t, s.Insert(ctx, mk("C", base.Add(48*time.Hour), trxuc.MethodCash, "Seragam")))

	require.ErrorIs(t, s.Insert(ctx, mk("A", base, trxuc.MethodCash, "SPP")), trxuc.ErrCodeConflict)

	ghost := mk("D", base, trxuc.MethodCash, "SPP")
	ghost.StudentID = "missing"
	require.ErrorIs(t, s.Insert(ctx, ghost), trxuc.ErrNotFound)

	all, err := s.List(ctx, trxuc.ListQuery{Limit: 10})
	require.NoError(t, err)
	require.Equal(t, []string{"C", "B", "A"}, codes(all))
	// snapshot comes from the student row at insert time
	require.Equal(t, "Nina", all[2].StudentName)
	require.Equal(t, "777", all[2].StudentNIS)

	cash := trxuc.MethodCash
	got, err := s.List(ctx, trxuc.ListQuery{Method: &cash})
	require.NoError(t, err)
	require.Equal(t, []string{"C", "A"}, codes(got))

	end := base.Add(24 * time.Hour)
	got, err = s.List(ctx, trxuc.ListQuery{DateStart: &base, DateEnd: &end})
	require.NoError(t, err)
	require.Equal(t, []string{"B", "A"}, codes(got))

	typ := "buku"
	got, err = s.List(ctx, trxuc.ListQuery{PaymentType: &typ})
	require.NoError(t, err)
	require.Equal(t, []string{"B"}, codes(got))

	err = NewStudentStore(db).Delete(ctx, st.ID)
	require.ErrorIs(t, err, studentuc.ErrHasTransactions)
}

func TestTransactionStore_DailySequence(t *testing.T) {
	s := NewTransactionStore(New())
	ctx := context.Background()

	n, _ := s.NextDailySequence(ctx, "2026-10-18")
	require.Equal(t, int64(1), n)
	n, _ = s.NextDailySequence(ctx, "2026-10-18")
	require.Equal(t, int64(2), n)
	n, _ = s.NextDailySequence(ctx, "2026-10-19")
	require.Equal(t, int64(1), n)
}

func TestStoredTransactionIsACopy(t *testing.T) {
	db := New()
	st := db.AddStudent(studentuc.Student{NIS: "1", Nama: "A", Kelas: "X-1"})
	s := NewTransactionStore(db)
	ctx := context.Background()

	trx := &trxuc.Transaction{ID: "id", TransactionCode: "TRX-1", StudentID: st.ID,
		Items: []trxuc.Item{{PaymentType: "SPP", Amount: 5}}}
	require.NoError(t, s.Insert(ctx, trx))
	trx.Items[0].Amount = 999

	got, err := s.GetByCode(ctx, "TRX-1")
	require.NoError(t, err)
	require.Equal(t, int64(5), got.Items[0].Amount)
}

func codes(ts []trxuc.Transaction) []string {
	out := make([]string, 0, len(ts))
	for _, t := range ts {
		out = append(out, t.TransactionCode)
	}
	return out
}
