package checkout

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// PaymentTypeSPP is the monthly tuition line, priced by grade tier.
const PaymentTypeSPP = "SPP"

type Field string

const (
	FieldPaymentType Field = "jenisPembayaran"
	FieldDescription Field = "deskripsi"
	FieldAmount      Field = "nominal"
)

var (
	ErrIndexOutOfRange = fmt.Errorf("%w: item index out of range", trxuc.ErrValidation)
	ErrUnknownField    = fmt.Errorf("%w: unknown item field", trxuc.ErrValidation)
)

// FeeTable resolves default SPP fees.
type FeeTable interface {
	LookupFeeTier(ctx context.Context, tier string) (int64, bool, error)
	DefaultFee(ctx context.Context) (int64, error)
}

type Pricing struct {
	Fees           FeeTable
	PlaceholderFee int64
}

// GradeTier returns the class prefix before the first dash: "XI-IPA-1" -> "XI".
func GradeTier(kelas string) string {
	tier, _, _ := strings.Cut(strings.TrimSpace(kelas), "-")
	return strings.ToUpper(strings.TrimSpace(tier))
}

// DefaultAmount prices a new line. kelas is empty when no student is selected.
func (p Pricing) DefaultAmount(ctx context.Context, paymentType, kelas string) (int64, error) {
	if !strings.EqualFold(strings.TrimSpace(paymentType), PaymentTypeSPP) || kelas == "" || p.Fees == nil {
		return p.PlaceholderFee, nil
	}
	fee, ok, err := p.Fees.LookupFeeTier(ctx, GradeTier(kelas))
	if err != nil {
		return 0, err
	}
	if ok {
		return fee, nil
	}
	return p.Fees.DefaultFee(ctx)
}

// Ledger is the ordered list of lines for one transaction being built.
// It is not safe for concurrent use; Workflow serializes access.
type Ledger struct {
	pricing Pricing
	kelas   string
	items   []trxuc.Item
}

func NewLedger(pricing Pricing) *Ledger {
	return &Ledger{pricing: pricing}
}

// Bind sets the class used to price SPP lines.
func (l *Ledger) Bind(kelas string) { l.kelas = kelas }

func (l *Ledger) AddItem(ctx context.Context, paymentType string, amount *int64) (trxuc.Item, error) {
	paymentType = strings.TrimSpace(paymentType)
	if paymentType == "" {
		return trxuc.Item{}, fmt.Errorf("%w: payment type is required", trxuc.ErrValidation)
	}

	var it trxuc.Item
	it.PaymentType = paymentType
	if amount != nil {
		it.Amount = *amount
	} else {
		def, err := l.pricing.DefaultAmount(ctx, paymentType, l.kelas)
		if err != nil {
			return trxuc.Item{}, err
		}
		it.Amount = def
	}
	if err := l.fits(-1, it); err != nil {
		return trxuc.Item{}, err
	}

	l.items = append(l.items, it)
	return it, nil
}

func (l *Ledger) UpdateItem(index int, field Field, value string) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}

	it := l.items[index]
	switch field {
	case FieldPaymentType:
		v := strings.TrimSpace(value)
		if v == "" {
			return fmt.Errorf("%w: payment type is required", trxuc.ErrValidation)
		}
		it.PaymentType = v
	case FieldDescription:
		it.Description = strings.TrimSpace(value)
	case FieldAmount:
		n, err := strconv.ParseInt(strings.TrimSpace(value), 10, 64)
		if err != nil {
			return fmt.Errorf("%w: %q", trxuc.ErrInvalidAmount, value)
		}
		it.Amount = n
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	if err := l.fits(index, it); err != nil {
		return err
	}

	l.items[index] = it
	return nil
}

// fits checks that the lines stay within amount bounds once it replaces the
// line at index, or is appended when index is negative.
func (l *Ledger) fits(index int, it trxuc.Item) error {
	items := l.Items()
	if index < 0 {
		items = append(items, it)
	} else {
		items[index] = it
	}
	_, err := trxuc.Subtotal(items)
	return err
}

func (l *Ledger) RemoveItem(index int) error {
	if index < 0 || index >= len(l.items) {
		return fmt.Errorf("%w: %d", ErrIndexOutOfRange, index)
	}
	l.items = append(l.items[:index], l.items[index+1:]...)
	return nil
}

// Items returns a copy of the current lines.
func (l *Ledger) Items() []trxuc.Item {
	return append([]trxuc.Item(nil), l.items...)
}

func (l *Ledger) Len() int { return len(l.items) }

func (l *Ledger) Reset() {
	l.items = nil
	l.kelas = ""
}
