package settings

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/diqie123/school-cashier-pro/internal/delivery/http/httpx"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
)

type Handler struct {
	uc *settingsuc.Usecase
}

func New(uc *settingsuc.Usecase) *Handler {
	return &Handler{uc: uc}
}

func (h *Handler) Get(c *fiber.Ctx) error {
	out, err := h.uc.Get(c.UserContext())
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(out)
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var in settingsuc.UpdateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Update(c.UserContext(), in)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(out)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, settingsuc.ErrInvalidInput):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, settingsuc.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	default:
		return err
	}
}
