// Package receipt renders a fixed-width plain-text proof of payment.
package receipt

import (
	"fmt"
	"io"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/diqie123/school-cashier-pro/internal/format"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// Width is the printable width of a 58mm thermal roll.
const Width = 40

type School struct {
	Name    string
	Address string
	Phone   string
}

func Render(w io.Writer, t *trxuc.Transaction, school School, loc *time.Location) error {
	var b strings.Builder
	dash := strings.Repeat("-", Width)

	center(&b, school.Name)
	if school.Address != "" {
		center(&b, school.Address)
	}
	if school.Phone != "" {
		center(&b, "Telp: "+school.Phone)
	}
	b.WriteString(dash + "\n")
	center(&b, "BUKTI PEMBAYARAN")
	b.WriteString("\n")

	fmt.Fprintf(&b, "ID Transaksi: %s\n", t.TransactionCode)
	fmt.Fprintf(&b, "Tanggal     : %s\n", format.DateTime(t.CreatedAt, loc))
	b.WriteString(dash + "\n")

	b.WriteString("Data Siswa:\n")
	fmt.Fprintf(&b, "NIS  : %s\n", t.StudentNIS)
	fmt.Fprintf(&b, "Nama : %s\n", t.StudentName)
	fmt.Fprintf(&b, "Kelas: %s\n", t.StudentKelas)
	b.WriteString(dash + "\n")

	b.WriteString("Rincian Pembayaran:\n")
	for i, it := range t.Items {
		line(&b, fmt.Sprintf("%d. %s", i+1, it.PaymentType), format.Rupiah(it.Amount))
		if it.Description != "" {
			b.WriteString("   " + it.Description + "\n")
		}
	}
	b.WriteString(dash + "\n")
	line(&b, "Subtotal", format.Rupiah(t.Subtotal))
	if t.Discount > 0 {
		line(&b, "Diskon", "-"+format.Rupiah(t.Discount))
	}
	line(&b, "TOTAL BAYAR", format.Rupiah(t.Total))
	b.WriteString(dash + "\n")

	fmt.Fprintf(&b, "Metode Pembayaran: %s\n", t.PaymentMethod)
	if t.PaymentMethod == trxuc.MethodCash {
		fmt.Fprintf(&b, "Uang Diterima: %s\n", format.Rupiah(deref(t.CashReceived)))
		fmt.Fprintf(&b, "Kembalian    : %s\n", format.Rupiah(deref(t.ChangeGiven)))
	}
	if t.Notes != nil {
		fmt.Fprintf(&b, "Catatan: %s\n", *t.Notes)
	}
	b.WriteString(dash + "\n")

	center(&b, "Petugas Kasir: "+t.Cashier)
	center(&b, "Terima kasih atas pembayarannya.")
	center(&b, "Simpan struk ini sebagai bukti")
	center(&b, "pembayaran.")

	_, err := io.WriteString(w, b.String())
	return err
}

func center(b *strings.Builder, s string) {
	n := utf8.RuneCountInString(s)
	if n < Width {
		b.WriteString(strings.Repeat(" ", (Width-n)/2))
	}
	b.WriteString(s)
	b.WriteString("\n")
}

// line writes label left and value right aligned on one row.
func line(b *strings.Builder, label, value string) {
	gap := Width - utf8.RuneCountInString(label) - utf8.RuneCountInString(value)
	if gap < 1 {
		gap = 1
	}
	b.WriteString(label + strings.Repeat(" ", gap) + value + "\n")
}

func deref(v *int64) int64 {
	if v == nil {
		return 0
	}
	return *v
}
