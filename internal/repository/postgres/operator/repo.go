package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

type OperatorRow struct {
	ID           string
	Username     string
	Nama         string
	Role         string
	PasswordHash string
	IsActive     bool
}

type OperatorRepo struct {
	db *pgxpool.Pool
}

func NewOperatorRepo(db *pgxpool.Pool) *OperatorRepo {
	return &OperatorRepo{db: db}
}

func (r *OperatorRepo) findBy(ctx context.Context, where string, arg string) (*auth.Account, error) {
	q := `
SELECT id::text, username, nama, role, password_hash, is_active
FROM operators
WHERE ` + where + `
LIMIT 1;
`
	var out OperatorRow
	err := r.db.QueryRow(ctx, q, arg).Scan(
		&out.ID,
		&out.Username,
		&out.Nama,
		&out.Role,
		&out.PasswordHash,
		&out.IsActive,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, auth.ErrNotFound
		}
		return nil, err
	}
	return &auth.Account{
		ID:           out.ID,
		Username:     out.Username,
		Name:         out.Nama,
		Role:         auth.Role(out.Role),
		PasswordHash: out.PasswordHash,
		IsActive:     out.IsActive,
	}, nil
}

func (r *OperatorRepo) FindByUsername(ctx context.Context, username string) (*auth.Account, error) {
	return r.findBy(ctx, "lower(username) = lower($1)", username)
}

func (r *OperatorRepo) FindByID(ctx context.Context, id string) (*auth.Account, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, auth.ErrNotFound
	}
	return r.findBy(ctx, "id = $1::uuid", id)
}

// Upsert creates or refreshes an operator by username.
func (r *OperatorRepo) Upsert(ctx context.Context, in OperatorRow) (string, error) {
	const q = `
INSERT INTO operators (username, nama, role, password_hash, is_active)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (username) DO UPDATE
SET nama = EXCLUDED.nama,
    role = EXCLUDED.role,
    password_hash = EXCLUDED.password_hash,
    is_active = EXCLUDED.is_active,
    updated_at = now()
RETURNING id::text;
`
	var id string
	err := r.db.QueryRow(ctx, q, in.Username, in.Nama, in.Role, in.PasswordHash, in.IsActive).Scan(&id)
	return id, err
}

var _ auth.AccountFinder = (*OperatorRepo)(nil)
