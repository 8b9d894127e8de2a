package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrInactiveOperator   = errors.New("operator inactive")
	ErrNotFound           = errors.New("operator not found")
)

type AccountFinder interface {
	FindByUsername(ctx context.Context, username string) (*Account, error)
	FindByID(ctx context.Context, id string) (*Account, error)
}

// Account is an operator record including its credentials.
type Account struct {
	ID           string
	Username     string
	Name         string
	Role         Role
	PasswordHash string
	IsActive     bool
}

func (a Account) Operator() Operator {
	return Operator{ID: a.ID, Username: a.Username, Name: a.Name, Role: a.Role}
}

type LoginResult struct {
	AccessToken string   `json:"token"`
	ExpiresIn   int      `json:"expiresIn"` // seconds
	User        Operator `json:"user"`
}

type LoginUsecase struct {
	finder    AccountFinder
	jwtSecret []byte
	expMin    int
	now       func() time.Time
}

func NewLoginUsecase(finder AccountFinder, jwtSecret string, expiresMinutes int) *LoginUsecase {
	if expiresMinutes <= 0 {
		expiresMinutes = 60
	}
	return &LoginUsecase{
		finder:    finder,
		jwtSecret: []byte(jwtSecret),
		expMin:    expiresMinutes,
		now:       time.Now,
	}
}

func (u *LoginUsecase) Execute(ctx context.Context, username, password string) (*LoginResult, error) {
	acc, err := u.finder.FindByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		// Hide whether the username exists
		return nil, ErrInvalidCredentials
	}
	if !acc.IsActive {
		return nil, ErrInactiveOperator
	}

	if err := bcrypt.CompareHashAndPassword([]byte(acc.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	op := acc.Operator()
	signed, err := u.IssueToken(op)
	if err != nil {
		return nil, err
	}

	return &LoginResult{
		AccessToken: signed,
		ExpiresIn:   u.expMin * 60,
		User:        op,
	}, nil
}

// IssueToken signs an HS256 token carrying the operator identity and role.
func (u *LoginUsecase) IssueToken(op Operator) (string, error) {
	now := u.now()
	exp := now.Add(time.Duration(u.expMin) * time.Minute)

	claims := jwt.MapClaims{
		"sub":      op.ID,
		"typ":      "operator",
		"username": op.Username,
		"nama":     op.Name,
		"role":     string(op.Role),
		"iat":      now.Unix(),
		"exp":      exp.Unix(),
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(u.jwtSecret)
}

// Profile returns the stored account for the operator in ctx.
func (u *LoginUsecase) Profile(ctx context.Context, id string) (*Operator, error) {
	acc, err := u.finder.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	op := acc.Operator()
	return &op, nil
}
