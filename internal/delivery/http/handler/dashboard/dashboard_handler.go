package dashboard

import (
	"github.com/gofiber/fiber/v2"

	dashboarduc "github.com/diqie123/school-cashier-pro/internal/usecase/dashboard"
)

type Handler struct {
	uc *dashboarduc.Usecase
}

func New(uc *dashboarduc.Usecase) *Handler {
	return &Handler{uc: uc}
}

func (h *Handler) Summary(c *fiber.Ctx) error {
	out, err := h.uc.Summary(c.UserContext())
	if err != nil {
		return err
	}
	return c.JSON(out)
}
