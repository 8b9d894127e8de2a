package postgres

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/diqie123/school-cashier-pro/internal/repository/postgres/testutil"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
)

func TestSettingsRepo_SaveAndGet(t *testing.T) {
	testutil.MustOpenDB(t)
	repo := NewSettingsRepo(testutil.MustOpenGorm(t))
	ctx := context.Background()

	saved, err := repo.Save(ctx, settingsuc.Settings{
		NamaSekolah: "SMA Negeri 1",
		TahunAjaran: "2026/2027",
		NominalSPP:  map[string]int64{"X": 450000, "XI": 500000},
		DefaultSPP:  500000,
	})
	require.NoError(t, err)
	require.NotNil(t, saved.UpdatedAt)

	got, err := repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "SMA Negeri 1", got.NamaSekolah)
	require.Equal(t, int64(500000), got.NominalSPP["XI"])

	// second save replaces the single row
	_, err = repo.Save(ctx, settingsuc.Settings{NamaSekolah: "SMA Negeri 2", DefaultSPP: 1})
	require.NoError(t, err)

	got, err = repo.Get(ctx)
	require.NoError(t, err)
	require.Equal(t, "SMA Negeri 2", got.NamaSekolah)
	require.Empty(t, got.NominalSPP)
}
