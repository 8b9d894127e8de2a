package transaction

import (
	"fmt"
	"strings"
)

// DiscountPolicy decides what happens when the discount exceeds the subtotal.
type DiscountPolicy string

const (
	// PolicyReject refuses to commit a negative total.
	PolicyReject DiscountPolicy = "reject"
	// PolicyClamp caps the discount at the subtotal so the total becomes zero.
	PolicyClamp DiscountPolicy = "clamp"
)

func ParseDiscountPolicy(s string) (DiscountPolicy, error) {
	switch DiscountPolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", PolicyReject:
		return PolicyReject, nil
	case PolicyClamp:
		return PolicyClamp, nil
	default:
		return "", fmt.Errorf("unknown discount policy %q", s)
	}
}

// Summary is the derived money state of a transaction being built.
type Summary struct {
	Subtotal     int64         `json:"subtotal"`
	Discount     int64         `json:"diskon"`
	Total        int64         `json:"total"`
	CashReceived int64         `json:"uangDiterima"`
	Change       int64         `json:"kembalian"`
	Method       PaymentMethod `json:"metodePembayaran"`
}

// MaxAmount bounds every money value: a single item, the subtotal, the
// discount and the cash received.
const MaxAmount int64 = 1_000_000_000_000

// CheckAmount rejects negative values and values above MaxAmount.
func CheckAmount(what string, v int64) error {
	if v < 0 || v > MaxAmount {
		return fmt.Errorf("%w: %s %d", ErrInvalidAmount, what, v)
	}
	return nil
}

// Subtotal sums item amounts. It fails with ErrInvalidAmount when an item or
// the running sum leaves the [0, MaxAmount] range.
func Subtotal(items []Item) (int64, error) {
	var sum int64
	for i, it := range items {
		if err := CheckAmount(fmt.Sprintf("item %d amount", i), it.Amount); err != nil {
			return 0, err
		}
		if it.Amount > MaxAmount-sum {
			return 0, fmt.Errorf("%w: subtotal exceeds %d", ErrInvalidAmount, MaxAmount)
		}
		sum += it.Amount
	}
	return sum, nil
}

// Calculate derives subtotal, total and change. Amounts outside
// [0, MaxAmount] fail with ErrInvalidAmount; with PolicyReject a discount
// above the subtotal yields a negative total, which CanCommit refuses.
func Calculate(items []Item, discount, cashReceived int64, method PaymentMethod, policy DiscountPolicy) (Summary, error) {
	subtotal, err := Subtotal(items)
	if err != nil {
		return Summary{}, err
	}
	if err := CheckAmount("discount", discount); err != nil {
		return Summary{}, err
	}
	s := Summary{
		Subtotal: subtotal,
		Discount: discount,
		Method:   method,
	}
	if policy == PolicyClamp && s.Discount > s.Subtotal {
		s.Discount = s.Subtotal
	}
	s.Total = s.Subtotal - s.Discount

	if method == MethodCash {
		if err := CheckAmount("cash received", cashReceived); err != nil {
			return Summary{}, err
		}
		s.CashReceived = cashReceived
		s.Change = cashReceived - s.Total
	}
	return s, nil
}

// CanCommit reports whether the amounts allow the payment to be recorded.
func (s Summary) CanCommit() bool {
	if s.Total < 0 {
		return false
	}
	return s.Method != MethodCash || s.Change >= 0
}
