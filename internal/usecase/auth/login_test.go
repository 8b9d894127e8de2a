package auth

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type fakeFinder struct {
	accounts map[string]Account
}

func (f fakeFinder) FindByUsername(_ context.Context, username string) (*Account, error) {
	a, ok := f.accounts[username]
	if !ok {
		return nil, ErrNotFound
	}
	return &a, nil
}

func (f fakeFinder) FindByID(_ context.Context, id string) (*Account, error) {
	for _, a := range f.accounts {
		if a.ID == id {
			return &a, nil
		}
	}
	return nil, ErrNotFound
}

func newFinder(t *testing.T) fakeFinder {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("rahasia"), bcrypt.MinCost)
	require.NoError(t, err)
	return fakeFinder{accounts: map[string]Account{
		"siti": {ID: "op-1", Username: "siti", Name: "Siti Nurhaliza", Role: RoleKasir, PasswordHash: string(hash), IsActive: true},
		"budi": {ID: "op-2", Username: "budi", Name: "Budi", Role: RoleManager, PasswordHash: string(hash), IsActive: false},
	}}
}

func TestLogin_OK(t *testing.T) {
	uc := NewLoginUsecase(newFinder(t), "secret", 30)

	res, err := uc.Execute(context.Background(), " siti ", "rahasia")
	require.NoError(t, err)
	require.Equal(t, 1800, res.ExpiresIn)
	require.Equal(t, RoleKasir, res.User.Role)

	claims := jwt.MapClaims{}
	_, err = jwt.ParseWithClaims(res.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte("secret"), nil
	})
	require.NoError(t, err)
	require.Equal(t, "op-1", claims["sub"])
	require.Equal(t, "kasir", claims["role"])
	require.Equal(t, "Siti Nurhaliza", claims["nama"])
}

func TestLogin_Failures(t *testing.T) {
	uc := NewLoginUsecase(newFinder(t), "secret", 30)

	_, err := uc.Execute(context.Background(), "siti", "salah")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = uc.Execute(context.Background(), "nobody", "rahasia")
	require.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = uc.Execute(context.Background(), "budi", "rahasia")
	require.ErrorIs(t, err, ErrInactiveOperator)
}

func TestCommitPolicy(t *testing.T) {
	require.True(t, CanCommitTransaction(RoleAdmin))
	require.True(t, CanCommitTransaction(RoleKasir))
	require.False(t, CanCommitTransaction(RoleManager))
	require.False(t, CanCommitTransaction(Role("")))

	require.True(t, CanManageStudents(RoleAdmin))
	require.False(t, CanManageStudents(RoleKasir))
	require.False(t, CanManageSettings(RoleManager))
}
