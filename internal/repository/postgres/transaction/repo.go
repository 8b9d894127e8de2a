package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type TransactionRow struct {
	ID              string
	TransactionCode string
	StudentID       string
	StudentName     string
	StudentNIS      string
	StudentKelas    string
	Subtotal        int64
	Discount        int64
	Total           int64
	PaymentMethod   string
	CashReceived    *int64
	ChangeGiven     *int64
	Notes           *string
	Status          string
	Cashier         string
	CashierID       string
	CreatedAt       time.Time
}

type TransactionItemRow struct {
	TransactionID string
	Position      int
	PaymentType   string
	Description   string
	Amount        int64
}

// ListFilter mirrors the history filters; nil fields are ignored.
type ListFilter struct {
	Limit       int
	Offset      int
	DateStart   *time.Time
	DateEnd     *time.Time
	PaymentType *string
	Method      *string
	Status      *string
	Kelas       *string
	StudentID   *string
}

type TransactionRepo struct {
	db *pgxpool.Pool
}

func NewTransactionRepo(db *pgxpool.Pool) *TransactionRepo {
	return &TransactionRepo{db: db}
}

type queryer interface {
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

func (r *TransactionRepo) Begin(ctx context.Context) (pgx.Tx, error) {
	return r.db.BeginTx(ctx, pgx.TxOptions{})
}

const trxColumns = `
  id::text, transaction_code, student_id::text, student_name, student_nis, student_kelas,
  subtotal, discount, total, payment_method, cash_received, change_given, notes,
  status, cashier, cashier_id, created_at`

func scanTransaction(row pgx.Row) (*TransactionRow, error) {
	var out TransactionRow
	if err := row.Scan(
		&out.ID,
		&out.TransactionCode,
		&out.StudentID,
		&out.StudentName,
		&out.StudentNIS,
		&out.StudentKelas,
		&out.Subtotal,
		&out.Discount,
		&out.Total,
		&out.PaymentMethod,
		&out.CashReceived,
		&out.ChangeGiven,
		&out.Notes,
		&out.Status,
		&out.Cashier,
		&out.CashierID,
		&out.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &out, nil
}

// lockStudent reads the snapshot fields and holds the row until commit so a
// concurrent delete cannot slip in between snapshot and insert.
func lockStudent(ctx context.Context, q queryer, studentID string) (nis, nama, kelas string, err error) {
	const sql = `
SELECT nis, nama, kelas
FROM students
WHERE id = $1::uuid
FOR KEY SHARE;
`
	err = q.QueryRow(ctx, sql, studentID).Scan(&nis, &nama, &kelas)
	return nis, nama, kelas, err
}

func getStudentSnapshot(ctx context.Context, q queryer, studentID string) (id, nis, nama, kelas string, err error) {
	const sql = `
SELECT id::text, nis, nama, kelas
FROM students
WHERE id = $1::uuid;
`
	err = q.QueryRow(ctx, sql, studentID).Scan(&id, &nis, &nama, &kelas)
	return id, nis, nama, kelas, err
}

func insertTransaction(ctx context.Context, tx pgx.Tx, in TransactionRow) error {
	const q = `
INSERT INTO transactions (
  id, transaction_code, student_id, student_name, student_nis, student_kelas,
  subtotal, discount, total, payment_method, cash_received, change_given, notes,
  status, cashier, cashier_id, created_at
) VALUES (
  $1::uuid, $2, $3::uuid, $4, $5, $6,
  $7, $8, $9, $10, $11, $12, $13,
  $14, $15, $16, $17
);
`
	_, err := tx.Exec(ctx, q,
		in.ID,
		in.TransactionCode,
		in.StudentID,
		in.StudentName,
		in.StudentNIS,
		in.StudentKelas,
		in.Subtotal,
		in.Discount,
		in.Total,
		in.PaymentMethod,
		in.CashReceived,
		in.ChangeGiven,
		in.Notes,
		in.Status,
		in.Cashier,
		in.CashierID,
		in.CreatedAt,
	)
	return err
}

func insertTransactionItems(ctx context.Context, tx pgx.Tx, transactionID string, items []TransactionItemRow) error {
	const q = `
INSERT INTO transaction_items (transaction_id, position, payment_type, description, amount)
VALUES ($1::uuid, $2, $3, $4, $5);
`
	batch := &pgx.Batch{}
	for i, it := range items {
		batch.Queue(q, transactionID, i, it.PaymentType, it.Description, it.Amount)
	}
	br := tx.SendBatch(ctx, batch)
	for range items {
		if _, err := br.Exec(); err != nil {
			_ = br.Close()
			return err
		}
	}
	return br.Close()
}

// nextDailySequence bumps the counter row for day. The row lock taken by the
// upsert serializes concurrent commits on the same day.
func nextDailySequence(ctx context.Context, q queryer, day string) (int64, error) {
	const sql = `
INSERT INTO transaction_code_counters (day, last_value)
VALUES ($1::date, 1)
ON CONFLICT (day) DO UPDATE
SET last_value = transaction_code_counters.last_value + 1
RETURNING last_value;
`
	var n int64
	if err := q.QueryRow(ctx, sql, day).Scan(&n); err != nil {
		return 0, err
	}
	return n, nil
}

func (r *TransactionRepo) CodeExists(ctx context.Context, code string) (bool, error) {
	const q = `SELECT EXISTS (SELECT 1 FROM transactions WHERE transaction_code = $1);`
	var ok bool
	err := r.db.QueryRow(ctx, q, code).Scan(&ok)
	return ok, err
}

func (r *TransactionRepo) GetBy(ctx context.Context, column, value string) (*TransactionRow, error) {
	var where string
	switch column {
	case "id":
		where = "id = $1::uuid"
	case "transaction_code":
		where = "transaction_code = $1"
	default:
		return nil, fmt.Errorf("unsupported lookup column %q", column)
	}
	q := `SELECT` + trxColumns + ` FROM transactions WHERE ` + where + ` LIMIT 1;`
	return scanTransaction(r.db.QueryRow(ctx, q, value))
}

func (r *TransactionRepo) List(ctx context.Context, f ListFilter) ([]TransactionRow, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.DateStart != nil {
		add("created_at >= $%d", *f.DateStart)
	}
	if f.DateEnd != nil {
		add("created_at < $%d", *f.DateEnd)
	}
	if f.Method != nil {
		add("payment_method = $%d", *f.Method)
	}
	if f.Status != nil {
		add("status = $%d", *f.Status)
	}
	if f.Kelas != nil {
		add("lower(student_kelas) = lower($%d)", *f.Kelas)
	}
	if f.StudentID != nil {
		add("student_id = $%d::uuid", *f.StudentID)
	}
	if f.PaymentType != nil {
		add(`EXISTS (SELECT 1 FROM transaction_items ti
  WHERE ti.transaction_id = transactions.id AND lower(ti.payment_type) = lower($%d))`, *f.PaymentType)
	}

	q := `SELECT` + trxColumns + ` FROM transactions`
	if len(conds) > 0 {
		q += "\nWHERE " + strings.Join(conds, "\n  AND ")
	}
	args = append(args, f.Limit, f.Offset)
	q += fmt.Sprintf("\nORDER BY created_at DESC, transaction_code DESC\nLIMIT $%d OFFSET $%d;", len(args)-1, len(args))

	rows, err := r.db.Query(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]TransactionRow, 0, f.Limit)
	for rows.Next() {
		t, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}

// ItemsFor loads items for many transactions in one round trip.
func (r *TransactionRepo) ItemsFor(ctx context.Context, ids []string) (map[string][]TransactionItemRow, error) {
	out := make(map[string][]TransactionItemRow, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	const q = `
SELECT transaction_id::text, position, payment_type, description, amount
FROM transaction_items
WHERE transaction_id = ANY($1::uuid[])
ORDER BY transaction_id, position;
`
	rows, err := r.db.Query(ctx, q, ids)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var it TransactionItemRow
		if err := rows.Scan(&it.TransactionID, &it.Position, &it.PaymentType, &it.Description, &it.Amount); err != nil {
			return nil, err
		}
		out[it.TransactionID] = append(out[it.TransactionID], it)
	}
	return out, rows.Err()
}

type PaidRow struct {
	CreatedAt time.Time
	Total     int64
}

func (r *TransactionRepo) PaidSince(ctx context.Context, from time.Time, status string) ([]PaidRow, error) {
	const q = `
SELECT created_at, total
FROM transactions
WHERE status = $1 AND created_at >= $2;
`
	rows, err := r.db.Query(ctx, q, status, from)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []PaidRow
	for rows.Next() {
		var p PaidRow
		if err := rows.Scan(&p.CreatedAt, &p.Total); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func (r *TransactionRepo) CountByStatus(ctx context.Context, status string) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM transactions WHERE status = $1;`, status).Scan(&n)
	return n, err
}

func (r *TransactionRepo) CountStudents(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRow(ctx, `SELECT count(*) FROM students;`).Scan(&n)
	return n, err
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && (constraint == "" || pgErr.ConstraintName == constraint)
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
