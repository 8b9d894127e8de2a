package checkout

import (
	"context"
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/diqie123/school-cashier-pro/internal/delivery/http/httpx"
	"github.com/diqie123/school-cashier-pro/internal/delivery/middleware"
	checkoutuc "github.com/diqie123/school-cashier-pro/internal/usecase/checkout"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// Handler exposes checkout sessions. Every successful response is the
// session view.
type Handler struct {
	sessions *checkoutuc.Registry
}

func New(sessions *checkoutuc.Registry) *Handler {
	return &Handler{sessions: sessions}
}

type selectStudentRequest struct {
	StudentID string `json:"studentId" validate:"required"`
}

type addItemRequest struct {
	PaymentType string `json:"jenisPembayaran" validate:"required,max=100"`
	Amount      *int64 `json:"nominal" validate:"omitempty,gte=0"`
}

type updateItemRequest struct {
	Field string `json:"field" validate:"required,oneof=jenisPembayaran deskripsi nominal"`
	Value string `json:"value"`
}

func (h *Handler) Create(c *fiber.Ctx) error {
	op, ok := middleware.Operator(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}
	w := h.sessions.Create(op)
	return c.Status(fiber.StatusCreated).JSON(w.View())
}

func (h *Handler) Get(c *fiber.Ctx) error {
	return h.with(c, func(context.Context, *checkoutuc.Workflow) error { return nil })
}

func (h *Handler) Delete(c *fiber.Ctx) error {
	op, ok := middleware.Operator(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}
	if err := h.sessions.Delete(c.Params("id"), op); err != nil {
		return mapErr(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (h *Handler) Search(c *fiber.Ctx) error {
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		_, err := w.Search(ctx, c.Query("q"))
		return err
	})
}

func (h *Handler) SelectStudent(c *fiber.Ctx) error {
	var req selectStudentRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		return err
	}
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		return w.SelectStudent(ctx, req.StudentID)
	})
}

func (h *Handler) AddItem(c *fiber.Ctx) error {
	var req addItemRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		return err
	}
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		_, err := w.AddItem(ctx, req.PaymentType, req.Amount)
		return err
	})
}

func (h *Handler) UpdateItem(c *fiber.Ctx) error {
	index, err := itemIndex(c)
	if err != nil {
		return err
	}
	var req updateItemRequest
	if err := httpx.BindJSON(c, &req); err != nil {
		return err
	}
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		return w.UpdateItem(ctx, index, checkoutuc.Field(req.Field), req.Value)
	})
}

func (h *Handler) RemoveItem(c *fiber.Ctx) error {
	index, err := itemIndex(c)
	if err != nil {
		return err
	}
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		return w.RemoveItem(ctx, index)
	})
}

func (h *Handler) SetPayment(c *fiber.Ctx) error {
	var req checkoutuc.PaymentInput
	if err := httpx.BindJSON(c, &req); err != nil {
		return err
	}
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		return w.SetPayment(ctx, req)
	})
}

func (h *Handler) Proceed(c *fiber.Ctx) error {
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		return w.Proceed(ctx)
	})
}

func (h *Handler) Back(c *fiber.Ctx) error {
	return h.with(c, func(_ context.Context, w *checkoutuc.Workflow) error {
		return w.Back()
	})
}

func (h *Handler) ChangeStudent(c *fiber.Ctx) error {
	return h.with(c, func(_ context.Context, w *checkoutuc.Workflow) error {
		return w.ChangeStudent()
	})
}

func (h *Handler) Commit(c *fiber.Ctx) error {
	return h.with(c, func(ctx context.Context, w *checkoutuc.Workflow) error {
		_, err := w.Commit(ctx)
		return err
	})
}

func (h *Handler) StartNew(c *fiber.Ctx) error {
	return h.with(c, func(_ context.Context, w *checkoutuc.Workflow) error {
		w.StartNew()
		return nil
	})
}

func (h *Handler) Abandon(c *fiber.Ctx) error {
	return h.with(c, func(_ context.Context, w *checkoutuc.Workflow) error {
		w.Abandon()
		return nil
	})
}

// with resolves the caller's session, runs fn and answers with the view.
// Workflow errors still carry the view so pending notices reach the client.
func (h *Handler) with(c *fiber.Ctx, fn func(context.Context, *checkoutuc.Workflow) error) error {
	op, ok := middleware.Operator(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}
	w, err := h.sessions.Get(c.Params("id"), op)
	if err != nil {
		return mapErr(err)
	}

	if err := fn(c.UserContext(), w); err != nil {
		fe := mapErr(err)
		var ferr *fiber.Error
		if !errors.As(fe, &ferr) {
			return fe
		}
		return c.Status(ferr.Code).JSON(fiber.Map{
			"message": ferr.Message,
			"session": w.View(),
		})
	}
	return c.JSON(w.View())
}

func itemIndex(c *fiber.Ctx) (int, error) {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return 0, fiber.NewError(fiber.StatusBadRequest, "index must be a number")
	}
	return i, nil
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, checkoutuc.ErrSessionNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, checkoutuc.ErrInvalidStep),
		errors.Is(err, checkoutuc.ErrCommitInFlight),
		errors.Is(err, checkoutuc.ErrAbandoned):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, checkoutuc.ErrCommitTimeout), errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, err.Error())
	case errors.Is(err, trxuc.ErrValidation):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, trxuc.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, trxuc.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, trxuc.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	default:
		return err
	}
}
