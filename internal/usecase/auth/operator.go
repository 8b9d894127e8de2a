package auth

import "context"

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleKasir   Role = "kasir"
	RoleManager Role = "manager"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleKasir, RoleManager:
		return true
	default:
		return false
	}
}

// Operator is the logged-in user driving a request.
type Operator struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"nama"`
	Role     Role   `json:"role"`
}

// CanCommitTransaction is the one policy deciding who may record a payment.
// Route guards, the checkout workflow and the commit service all call it.
func CanCommitTransaction(role Role) bool {
	return role == RoleAdmin || role == RoleKasir
}

// CanManageStudents gates student create/update/delete.
func CanManageStudents(role Role) bool {
	return role == RoleAdmin
}

// CanManageSettings gates school profile and fee table changes.
func CanManageSettings(role Role) bool {
	return role == RoleAdmin
}

type operatorContextKey struct{}

func WithOperator(ctx context.Context, op Operator) context.Context {
	return context.WithValue(ctx, operatorContextKey{}, op)
}

func OperatorFromContext(ctx context.Context) (Operator, bool) {
	op, ok := ctx.Value(operatorContextKey{}).(Operator)
	return op, ok
}
