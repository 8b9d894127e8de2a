package auth

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/diqie123/school-cashier-pro/internal/delivery/http/httpx"
	"github.com/diqie123/school-cashier-pro/internal/delivery/middleware"
	authuc "github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

type Handler struct {
	uc *authuc.LoginUsecase
}

func New(uc *authuc.LoginUsecase) *Handler {
	return &Handler{uc: uc}
}

type loginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

func (h *Handler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		return err
	}

	res, err := h.uc.Execute(c.UserContext(), req.Username, req.Password)
	switch {
	case errors.Is(err, authuc.ErrInvalidCredentials):
		return fiber.NewError(fiber.StatusUnauthorized, "username atau password salah")
	case errors.Is(err, authuc.ErrInactiveOperator):
		return fiber.NewError(fiber.StatusForbidden, "akun tidak aktif")
	case err != nil:
		return err
	}
	return c.JSON(res)
}

// Profile returns the stored record of the calling operator.
func (h *Handler) Profile(c *fiber.Ctx) error {
	op, ok := middleware.Operator(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}
	out, err := h.uc.Profile(c.UserContext(), op.ID)
	if errors.Is(err, authuc.ErrNotFound) {
		return fiber.NewError(fiber.StatusNotFound, "operator not found")
	}
	if err != nil {
		return err
	}
	return c.JSON(out)
}
