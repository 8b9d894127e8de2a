package transaction

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

type Store interface {
	// GetStudentSnapshot returns ErrStudentMissing when the student is gone.
	GetStudentSnapshot(ctx context.Context, studentID string) (*StudentSnapshot, error)

	// Insert writes header and items atomically. It returns ErrCodeConflict
	// when the code is taken and ErrStudentMissing when the student row
	// vanished in the meantime.
	Insert(ctx context.Context, trx *Transaction) error

	List(ctx context.Context, q ListQuery) ([]Transaction, error)
	GetByID(ctx context.Context, id string) (*Transaction, error)
	GetByCode(ctx context.Context, code string) (*Transaction, error)
}

type Usecase struct {
	store  Store
	codes  CodeGenerator
	policy DiscountPolicy
	loc    *time.Location
	now    func() time.Time
}

type Option func(*Usecase)

func WithDiscountPolicy(p DiscountPolicy) Option {
	return func(u *Usecase) { u.policy = p }
}

// WithLocation sets the timezone used for the date part of transaction codes.
func WithLocation(loc *time.Location) Option {
	return func(u *Usecase) {
		if loc != nil {
			u.loc = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(u *Usecase) { u.now = now }
}

func New(store Store, codes CodeGenerator, opts ...Option) *Usecase {
	u := &Usecase{
		store:  store,
		codes:  codes,
		policy: PolicyReject,
		loc:    time.Local,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}
	return u
}

func (u *Usecase) Policy() DiscountPolicy { return u.policy }

// Commit validates a draft and records it as a paid transaction.
func (u *Usecase) Commit(ctx context.Context, op auth.Operator, in Draft) (*Transaction, error) {
	if !auth.CanCommitTransaction(op.Role) {
		return nil, fmt.Errorf("%w: role %q may not record payments", ErrForbidden, op.Role)
	}

	if err := validateDraft(in); err != nil {
		return nil, err
	}

	sum, err := Calculate(in.Items, in.Discount, deref(in.CashReceived), in.PaymentMethod, u.policy)
	if err != nil {
		return nil, err
	}
	if sum.Total < 0 {
		return nil, ErrNegativeTotal
	}
	if in.PaymentMethod == MethodCash {
		if in.CashReceived == nil || sum.Change < 0 {
			return nil, fmt.Errorf("%w: total=%d received=%d", ErrInsufficientCash, sum.Total, deref(in.CashReceived))
		}
	}

	student, err := u.store.GetStudentSnapshot(ctx, in.StudentID)
	if err != nil {
		return nil, err
	}

	now := u.now()
	trx := &Transaction{
		ID:            uuid.NewString(),
		StudentID:     student.ID,
		StudentName:   student.Name,
		StudentNIS:    student.NIS,
		StudentKelas:  student.Kelas,
		Items:         append([]Item(nil), in.Items...),
		Subtotal:      sum.Subtotal,
		Discount:      sum.Discount,
		Total:         sum.Total,
		PaymentMethod: in.PaymentMethod,
		Notes:         trimNotes(in.Notes),
		Status:        StatusPaid,
		Cashier:       op.Name,
		CashierID:     op.ID,
		CreatedAt:     now,
	}
	if in.PaymentMethod == MethodCash {
		cash, change := sum.CashReceived, sum.Change
		trx.CashReceived = &cash
		trx.ChangeGiven = &change
	}

	// one retry with a fresh code
	for attempt := 0; ; attempt++ {
		code, err := u.codes.Next(ctx, now.In(u.loc))
		if err != nil {
			if errors.Is(err, ErrCodeConflict) && attempt == 0 {
				continue
			}
			return nil, err
		}
		trx.TransactionCode = code

		err = u.store.Insert(ctx, trx)
		if err == nil {
			break
		}
		if errors.Is(err, ErrCodeConflict) && attempt == 0 {
			log.Printf("[commit] code %s taken, retrying", code)
			continue
		}
		return nil, err
	}

	log.Printf("[commit] %s student=%s total=%d method=%s kasir=%s",
		trx.TransactionCode, trx.StudentNIS, trx.Total, trx.PaymentMethod, trx.Cashier)
	return trx, nil
}

func validateDraft(in Draft) error {
	if strings.TrimSpace(in.StudentID) == "" {
		return ErrMissingStudent
	}
	if len(in.Items) == 0 {
		return ErrNoItems
	}
	for i, it := range in.Items {
		if strings.TrimSpace(it.PaymentType) == "" {
			return fmt.Errorf("%w: item %d has no payment type", ErrValidation, i)
		}
	}
	if err := CheckAmount("discount", in.Discount); err != nil {
		return err
	}
	if in.CashReceived != nil {
		if err := CheckAmount("cash received", *in.CashReceived); err != nil {
			return err
		}
	}
	if !in.PaymentMethod.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidMethod, in.PaymentMethod)
	}

	subtotal, err := Subtotal(in.Items)
	if err != nil {
		return err
	}
	if in.Subtotal != subtotal || in.Total != subtotal-in.Discount {
		return fmt.Errorf("%w: subtotal=%d total=%d expected subtotal=%d total=%d",
			ErrTotalsMismatch, in.Subtotal, in.Total, subtotal, subtotal-in.Discount)
	}
	return nil
}

func (u *Usecase) List(ctx context.Context, q ListQuery) ([]Transaction, error) {
	if q.Limit <= 0 || q.Limit > 100 {
		q.Limit = 20
	}
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Method != nil && !q.Method.Valid() {
		return nil, ErrInvalidMethod
	}
	if q.Status != nil && !q.Status.Valid() {
		return nil, fmt.Errorf("%w: status %q", ErrValidation, *q.Status)
	}
	return u.store.List(ctx, q)
}

func (u *Usecase) GetByID(ctx context.Context, id string) (*Transaction, error) {
	if id == "" {
		return nil, fmt.Errorf("%w: id is required", ErrValidation)
	}
	return u.store.GetByID(ctx, id)
}

func (u *Usecase) GetByCode(ctx context.Context, code string) (*Transaction, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" {
		return nil, fmt.Errorf("%w: code is required", ErrValidation)
	}
	return u.store.GetByCode(ctx, code)
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}

func trimNotes(s *string) *string {
	if s == nil {
		return nil
	}
	t := strings.TrimSpace(*s)
	if t == "" {
		return nil
	}
	return &t
}
