package transaction

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/diqie123/school-cashier-pro/internal/delivery/http/httpx"
	"github.com/diqie123/school-cashier-pro/internal/delivery/middleware"
	"github.com/diqie123/school-cashier-pro/internal/receipt"
	"github.com/diqie123/school-cashier-pro/internal/report"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// maxExportRows bounds a single spreadsheet export.
const maxExportRows = 5000

type Handler struct {
	uc       *trxuc.Usecase
	settings *settingsuc.Usecase
	loc      *time.Location
	now      func() time.Time
}

func New(uc *trxuc.Usecase, settings *settingsuc.Usecase, loc *time.Location) *Handler {
	if loc == nil {
		loc = time.Local
	}
	return &Handler{uc: uc, settings: settings, loc: loc, now: time.Now}
}

func (h *Handler) Commit(c *fiber.Ctx) error {
	op, ok := middleware.Operator(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthenticated")
	}

	var in trxuc.Draft
	if err := httpx.BindJSON(c, &in); err != nil {
		return err
	}
	for _, it := range in.Items {
		if err := httpx.Validate(it); err != nil {
			return err
		}
	}

	out, err := h.uc.Commit(c.UserContext(), op, in)
	return writeOne(c, out, err, fiber.StatusCreated)
}

func (h *Handler) List(c *fiber.Ctx) error {
	q, err := h.listQuery(c)
	if err != nil {
		return err
	}
	out, err := h.uc.List(c.UserContext(), q)
	if err != nil {
		return mapErr(err)
	}
	return c.JSON(fiber.Map{"items": out})
}

// Export streams the filtered history as an xlsx workbook.
func (h *Handler) Export(c *fiber.Ctx) error {
	q, err := h.listQuery(c)
	if err != nil {
		return err
	}
	all, err := h.collect(c.UserContext(), q)
	if err != nil {
		return mapErr(err)
	}

	buf, err := report.TransactionsXLSX(all, h.loc)
	if err != nil {
		return err
	}

	from, _ := parseDay(c.Query("dateStart"), h.loc)
	to, _ := parseDay(c.Query("dateEnd"), h.loc)
	c.Set(fiber.HeaderContentType, report.ContentType)
	c.Attachment(report.Filename(from, to, h.now().In(h.loc)))
	return c.Send(buf.Bytes())
}

func (h *Handler) collect(ctx context.Context, q trxuc.ListQuery) ([]trxuc.Transaction, error) {
	const pageSize = 100
	q.Limit = pageSize
	q.Offset = 0

	var all []trxuc.Transaction
	for len(all) < maxExportRows {
		page, err := h.uc.List(ctx, q)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < pageSize {
			break
		}
		q.Offset += pageSize
	}
	return all, nil
}

func (h *Handler) GetByID(c *fiber.Ctx) error {
	out, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	return writeOne(c, out, err, fiber.StatusOK)
}

func (h *Handler) GetByCode(c *fiber.Ctx) error {
	out, err := h.uc.GetByCode(c.UserContext(), c.Params("code"))
	return writeOne(c, out, err, fiber.StatusOK)
}

// Receipt renders the plain-text receipt of a stored transaction.
func (h *Handler) Receipt(c *fiber.Ctx) error {
	t, err := h.uc.GetByID(c.UserContext(), c.Params("id"))
	if err != nil {
		return mapErr(err)
	}
	s, err := h.settings.Get(c.UserContext())
	if err != nil {
		return err
	}

	var buf bytes.Buffer
	school := receipt.School{Name: s.NamaSekolah, Address: s.Alamat, Phone: s.Telepon}
	if err := receipt.Render(&buf, t, school, h.loc); err != nil {
		return err
	}
	c.Set(fiber.HeaderContentType, fiber.MIMETextPlainCharsetUTF8)
	return c.Send(buf.Bytes())
}

func (h *Handler) listQuery(c *fiber.Ctx) (trxuc.ListQuery, error) {
	q := trxuc.ListQuery{
		Limit:  c.QueryInt("limit", 20),
		Offset: c.QueryInt("offset", 0),
	}

	start, err := parseDay(c.Query("dateStart"), h.loc)
	if err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, "dateStart must be YYYY-MM-DD")
	}
	q.DateStart = start

	end, err := parseDay(c.Query("dateEnd"), h.loc)
	if err != nil {
		return q, fiber.NewError(fiber.StatusBadRequest, "dateEnd must be YYYY-MM-DD")
	}
	if end != nil {
		// dateEnd is inclusive for callers
		next := end.AddDate(0, 0, 1)
		q.DateEnd = &next
	}

	if v := strings.TrimSpace(c.Query("jenisPembayaran")); v != "" {
		q.PaymentType = &v
	}
	if v := strings.TrimSpace(c.Query("metodePembayaran")); v != "" {
		m := trxuc.PaymentMethod(v)
		q.Method = &m
	}
	if v := strings.TrimSpace(c.Query("status")); v != "" {
		s := trxuc.Status(v)
		q.Status = &s
	}
	if v := strings.TrimSpace(c.Query("kelas")); v != "" {
		q.Kelas = &v
	}
	if v := strings.TrimSpace(c.Query("studentId")); v != "" {
		q.StudentID = &v
	}
	return q, nil
}

func parseDay(s string, loc *time.Location) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation("2006-01-02", s, loc)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func writeOne(c *fiber.Ctx, out *trxuc.Transaction, err error, okStatus int) error {
	if err != nil {
		return mapErr(err)
	}
	return c.Status(okStatus).JSON(out)
}

func mapErr(err error) error {
	switch {
	case errors.Is(err, trxuc.ErrValidation):
		return fiber.NewError(fiber.StatusUnprocessableEntity, err.Error())
	case errors.Is(err, trxuc.ErrNotFound):
		return fiber.NewError(fiber.StatusNotFound, err.Error())
	case errors.Is(err, trxuc.ErrForbidden):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, trxuc.ErrConflict):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "request timed out")
	default:
		return err
	}
}
