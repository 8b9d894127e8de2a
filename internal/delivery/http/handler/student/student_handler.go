package student

import (
	"errors"

	"github.com/gofiber/fiber/v2"

	"github.com/diqie123/school-cashier-pro/internal/delivery/http/httpx"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
)

type Handler struct {
	uc *studentuc.Usecase
}

func New(uc *studentuc.Usecase) *Handler {
	return &Handler{uc: uc}
}

func (h *Handler) Create(c *fiber.Ctx) error {
	var in studentuc.CreateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Create(c.UserContext(), in)
	return writeOne(c, out, err, fiber.StatusCreated)
}

func (h *Handler) List(c *fiber.Ctx) error {
	out, err := h.uc.List(c.UserContext(), studentuc.ListQuery{
		Limit:  c.QueryInt("limit", 50),
		Offset: c.QueryInt("offset", 0),
		Search: c.Query("search"),
		Kelas:  c.Query("kelas"),
	})
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// Search backs the student picker: first matches on NIS or name.
func (h *Handler) Search(c *fiber.Ctx) error {
	out, err := h.uc.Search(c.UserContext(), c.Query("q"), c.QueryInt("limit", 0))
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(fiber.Map{"items": out})
}

func (h *Handler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	return writeOne(c, out, err, fiber.StatusOK)
}

func (h *Handler) Update(c *fiber.Ctx) error {
	var in studentuc.UpdateInput
	if err := httpx.BindJSON(c, &in); err != nil {
		return err
	}
	out, err := h.uc.Update(c.UserContext(), c.Params("id"), in)
	return writeOne(c, out, err, fiber.StatusOK)
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	if err := h.uc.Delete(c.UserContext(), c.Params("id")); err != nil {
		return mapErr(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func writeOne(c *fiber.Ctx, out *studentuc.Student, err error, okStatus int) error {
	if err != nil {
		return mapErr(err)
	}
	return c.Status(okStatus).JSON(out)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, studentuc.ErrInvalidInput):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, studentuc.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, studentuc.ErrNISConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, studentuc.ErrHasTransactions):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
