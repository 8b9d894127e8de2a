package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/diqie123/school-cashier-pro/internal/usecase/dashboard"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

const codeConstraint = "transactions_transaction_code_key"

type TransactionStoreAdapter struct {
	repo *TransactionRepo
}

func NewTransactionStoreAdapter(repo *TransactionRepo) *TransactionStoreAdapter {
	return &TransactionStoreAdapter{repo: repo}
}

func (a *TransactionStoreAdapter) GetStudentSnapshot(ctx context.Context, studentID string) (*trxuc.StudentSnapshot, error) {
	if _, err := uuid.Parse(studentID); err != nil {
		return nil, trxuc.ErrStudentMissing
	}
	id, nis, nama, kelas, err := getStudentSnapshot(ctx, a.repo.db, studentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trxuc.ErrStudentMissing
		}
		return nil, err
	}
	return &trxuc.StudentSnapshot{ID: id, NIS: nis, Name: nama, Kelas: kelas}, nil
}

func (a *TransactionStoreAdapter) Insert(ctx context.Context, trx *trxuc.Transaction) error {
	tx, err := a.repo.Begin(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback(ctx) }()

	nis, nama, kelas, err := lockStudent(ctx, tx, trx.StudentID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return trxuc.ErrStudentMissing
		}
		return err
	}
	// the locked row is the snapshot of record
	trx.StudentNIS, trx.StudentName, trx.StudentKelas = nis, nama, kelas

	if err := insertTransaction(ctx, tx, toRow(trx)); err != nil {
		return translateInsertErr(err)
	}

	items := make([]TransactionItemRow, 0, len(trx.Items))
	for _, it := range trx.Items {
		items = append(items, TransactionItemRow{
			PaymentType: it.PaymentType,
			Description: it.Description,
			Amount:      it.Amount,
		})
	}
	if err := insertTransactionItems(ctx, tx, trx.ID, items); err != nil {
		return translateInsertErr(err)
	}

	if err := tx.Commit(ctx); err != nil {
		return translateInsertErr(err)
	}
	return nil
}

func translateInsertErr(err error) error {
	switch {
	case isUniqueViolation(err, codeConstraint):
		return fmt.Errorf("%w: %v", trxuc.ErrCodeConflict, err)
	case isForeignKeyViolation(err):
		return trxuc.ErrStudentMissing
	default:
		return err
	}
}

func (a *TransactionStoreAdapter) NextDailySequence(ctx context.Context, day string) (int64, error) {
	return nextDailySequence(ctx, a.repo.db, day)
}

func (a *TransactionStoreAdapter) CodeExists(ctx context.Context, code string) (bool, error) {
	return a.repo.CodeExists(ctx, code)
}

func (a *TransactionStoreAdapter) List(ctx context.Context, q trxuc.ListQuery) ([]trxuc.Transaction, error) {
	f := ListFilter{
		Limit:       q.Limit,
		Offset:      q.Offset,
		DateStart:   q.DateStart,
		DateEnd:     q.DateEnd,
		PaymentType: q.PaymentType,
		Kelas:       q.Kelas,
		StudentID:   q.StudentID,
	}
	if q.Method != nil {
		m := string(*q.Method)
		f.Method = &m
	}
	if q.Status != nil {
		s := string(*q.Status)
		f.Status = &s
	}
	if f.StudentID != nil {
		if _, err := uuid.Parse(*f.StudentID); err != nil {
			return []trxuc.Transaction{}, nil
		}
	}

	rows, err := a.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.ID)
	}
	items, err := a.repo.ItemsFor(ctx, ids)
	if err != nil {
		return nil, err
	}

	out := make([]trxuc.Transaction, 0, len(rows))
	for _, r := range rows {
		out = append(out, fromRow(r, items[r.ID]))
	}
	return out, nil
}

func (a *TransactionStoreAdapter) GetByID(ctx context.Context, id string) (*trxuc.Transaction, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, trxuc.ErrTransactionMissing
	}
	return a.getOne(ctx, "id", id)
}

func (a *TransactionStoreAdapter) GetByCode(ctx context.Context, code string) (*trxuc.Transaction, error) {
	return a.getOne(ctx, "transaction_code", code)
}

func (a *TransactionStoreAdapter) getOne(ctx context.Context, column, value string) (*trxuc.Transaction, error) {
	row, err := a.repo.GetBy(ctx, column, value)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, trxuc.ErrTransactionMissing
		}
		return nil, err
	}
	items, err := a.repo.ItemsFor(ctx, []string{row.ID})
	if err != nil {
		return nil, err
	}
	t := fromRow(*row, items[row.ID])
	return &t, nil
}

func (a *TransactionStoreAdapter) PaidSince(ctx context.Context, from time.Time) ([]dashboard.PaidEntry, error) {
	rows, err := a.repo.PaidSince(ctx, from, string(trxuc.StatusPaid))
	if err != nil {
		return nil, err
	}
	out := make([]dashboard.PaidEntry, 0, len(rows))
	for _, r := range rows {
		out = append(out, dashboard.PaidEntry{CreatedAt: r.CreatedAt, Total: r.Total})
	}
	return out, nil
}

func (a *TransactionStoreAdapter) CountByStatus(ctx context.Context, status trxuc.Status) (int, error) {
	return a.repo.CountByStatus(ctx, string(status))
}

func (a *TransactionStoreAdapter) CountStudents(ctx context.Context) (int, error) {
	return a.repo.CountStudents(ctx)
}

func toRow(t *trxuc.Transaction) TransactionRow {
	return TransactionRow{
		ID:              t.ID,
		TransactionCode: t.TransactionCode,
		StudentID:       t.StudentID,
		StudentName:     t.StudentName,
		StudentNIS:      t.StudentNIS,
		StudentKelas:    t.StudentKelas,
		Subtotal:        t.Subtotal,
		Discount:        t.Discount,
		Total:           t.Total,
		PaymentMethod:   string(t.PaymentMethod),
		CashReceived:    t.CashReceived,
		ChangeGiven:     t.ChangeGiven,
		Notes:           t.Notes,
		Status:          string(t.Status),
		Cashier:         t.Cashier,
		CashierID:       t.CashierID,
		CreatedAt:       t.CreatedAt,
	}
}

func fromRow(r TransactionRow, items []TransactionItemRow) trxuc.Transaction {
	out := trxuc.Transaction{
		ID:              r.ID,
		TransactionCode: r.TransactionCode,
		StudentID:       r.StudentID,
		StudentName:     r.StudentName,
		StudentNIS:      r.StudentNIS,
		StudentKelas:    r.StudentKelas,
		Items:           make([]trxuc.Item, 0, len(items)),
		Subtotal:        r.Subtotal,
		Discount:        r.Discount,
		Total:           r.Total,
		PaymentMethod:   trxuc.PaymentMethod(r.PaymentMethod),
		CashReceived:    r.CashReceived,
		ChangeGiven:     r.ChangeGiven,
		Notes:           r.Notes,
		Status:          trxuc.Status(r.Status),
		Cashier:         r.Cashier,
		CashierID:       r.CashierID,
		CreatedAt:       r.CreatedAt,
	}
	for _, it := range items {
		out.Items = append(out.Items, trxuc.Item{
			PaymentType: it.PaymentType,
			Description: it.Description,
			Amount:      it.Amount,
		})
	}
	return out
}

var (
	_ trxuc.Store          = (*TransactionStoreAdapter)(nil)
	_ trxuc.DailySequencer = (*TransactionStoreAdapter)(nil)
	_ trxuc.CodeChecker    = (*TransactionStoreAdapter)(nil)
	_ dashboard.Store      = (*TransactionStoreAdapter)(nil)
)
