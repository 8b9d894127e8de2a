package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"

	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

const operatorLocal = "operator"

type JWTMiddleware struct {
	secret []byte
}

func NewJWTMiddleware(secret string) *JWTMiddleware {
	return &JWTMiddleware{secret: []byte(secret)}
}

// Protect validates the bearer token and stores the operator in Locals and
// in the request's user context.
func (m *JWTMiddleware) Protect() fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		if header == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "missing authorization header")
		}

		parts := strings.SplitN(header, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid authorization header")
		}

		token, err := jwt.Parse(parts[1], func(t *jwt.Token) (any, error) {
			if t.Method != jwt.SigningMethodHS256 {
				return nil, fiber.NewError(fiber.StatusUnauthorized, "invalid token signing method")
			}
			return m.secret, nil
		})
		if err != nil || token == nil || !token.Valid {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token")
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
		}
		if typ, _ := claims["typ"].(string); typ != "operator" {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token type")
		}

		op := auth.Operator{}
		op.ID, _ = claims["sub"].(string)
		op.Username, _ = claims["username"].(string)
		op.Name, _ = claims["nama"].(string)
		role, _ := claims["role"].(string)
		op.Role = auth.Role(role)
		if op.ID == "" || !op.Role.Valid() {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid token claims")
		}

		c.Locals(operatorLocal, op)
		c.SetUserContext(auth.WithOperator(c.UserContext(), op))
		return c.Next()
	}
}

// Operator returns the operator set by Protect.
func Operator(c *fiber.Ctx) (auth.Operator, bool) {
	op, ok := c.Locals(operatorLocal).(auth.Operator)
	return op, ok
}

// RequireRole lets the request through when policy accepts the operator's role.
func RequireRole(policy func(auth.Role) bool) fiber.Handler {
	return func(c *fiber.Ctx) error {
		op, ok := Operator(c)
		if !ok {
			return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
		}
		if !policy(op.Role) {
			return fiber.NewError(fiber.StatusForbidden, "role not allowed")
		}
		return c.Next()
	}
}
