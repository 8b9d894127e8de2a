package transaction

import "time"

type PaymentMethod string

const (
	MethodCash         PaymentMethod = "Tunai"
	MethodBankTransfer PaymentMethod = "Transfer Bank"
	MethodEWallet      PaymentMethod = "E-Wallet"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCash, MethodBankTransfer, MethodEWallet:
		return true
	default:
		return false
	}
}

type Status string

const (
	StatusPaid      Status = "Lunas"
	StatusPending   Status = "Pending"
	StatusCancelled Status = "Dibatalkan"
)

func (s Status) Valid() bool {
	switch s {
	case StatusPaid, StatusPending, StatusCancelled:
		return true
	default:
		return false
	}
}

// Item is one payment line. Amount is in whole rupiah.
type Item struct {
	PaymentType string `json:"jenisPembayaran" validate:"required,max=100"`
	Description string `json:"deskripsi,omitempty" validate:"max=255"`
	Amount      int64  `json:"nominal" validate:"gte=0,lte=1000000000000"`
}

type Transaction struct {
	ID              string        `json:"id"`
	TransactionCode string        `json:"transactionCode"`
	StudentID       string        `json:"studentId"`
	StudentName     string        `json:"studentName"`
	StudentNIS      string        `json:"studentNis"`
	StudentKelas    string        `json:"studentKelas"`
	Items           []Item        `json:"items"`
	Subtotal        int64         `json:"subtotal"`
	Discount        int64         `json:"diskon"`
	Total           int64         `json:"total"`
	PaymentMethod   PaymentMethod `json:"metodePembayaran"`
	CashReceived    *int64        `json:"uangDiterima,omitempty"`
	ChangeGiven     *int64        `json:"kembalian,omitempty"`
	Notes           *string       `json:"catatan,omitempty"`
	Status          Status        `json:"status"`
	Cashier         string        `json:"kasir"`
	CashierID       string        `json:"kasirId"`
	CreatedAt       time.Time     `json:"createdAt"`
}

// StudentSnapshot is the copy of student identity stored on a transaction.
type StudentSnapshot struct {
	ID    string
	NIS   string
	Name  string
	Kelas string
}

// Draft is what a caller submits to Commit.
type Draft struct {
	StudentID     string        `json:"studentId"`
	Items         []Item        `json:"items"`
	Subtotal      int64         `json:"subtotal"`
	Discount      int64         `json:"diskon"`
	Total         int64         `json:"total"`
	PaymentMethod PaymentMethod `json:"metodePembayaran"`
	CashReceived  *int64        `json:"uangDiterima,omitempty"`
	Notes         *string       `json:"catatan,omitempty"`
}

type ListQuery struct {
	Limit       int
	Offset      int
	DateStart   *time.Time // inclusive
	DateEnd     *time.Time // exclusive
	PaymentType *string
	Method      *PaymentMethod
	Status      *Status
	Kelas       *string
	StudentID   *string
}
