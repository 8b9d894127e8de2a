package testutil

import (
	"context"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
)

func MustInsertStudent(t *testing.T, db *pgxpool.Pool, nis, nama, kelas string) string {
	t.Helper()

	var id string
	err := db.QueryRow(context.Background(), `
		INSERT INTO students (nis, nama, kelas, no_telp_wali)
		VALUES ($1, $2, $3, '081234567890')
		RETURNING id::text
	`, nis, nama, kelas).Scan(&id)

	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}

func MustInsertOperator(t *testing.T, db *pgxpool.Pool, username, nama, role, passwordHash string, active bool) string {
	t.Helper()

	var id string
	err := db.QueryRow(context.Background(), `
		INSERT INTO operators (username, nama, role, password_hash, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id::text
	`, username, nama, role, passwordHash, active).Scan(&id)

	require.NoError(t, err)
	require.NotEmpty(t, id)
	return id
}
