// Package report builds spreadsheet exports of the payment history.
package report

import (
	"bytes"
	"fmt"
	"sort"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/diqie123/school-cashier-pro/internal/format"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

const (
	SheetSummary = "Ringkasan"
	SheetDetail  = "Detail"

	ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var summaryHeaders = []string{
	"Kode Transaksi", "Tanggal", "NIS", "Nama Siswa", "Kelas",
	"Subtotal", "Diskon", "Total", "Metode", "Uang Diterima", "Kembalian", "Status", "Kasir",
}

var detailHeaders = []string{
	"Kode Transaksi", "Tanggal", "NIS", "Nama Siswa", "Jenis Pembayaran", "Deskripsi", "Nominal",
}

// TransactionsXLSX renders a workbook with one row per transaction on the
// summary sheet and one row per item on the detail sheet.
func TransactionsXLSX(trxs []trxuc.Transaction, loc *time.Location) (*bytes.Buffer, error) {
	if loc == nil {
		loc = time.Local
	}

	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, err
	}
	moneyStyle, err := f.NewStyle(&excelize.Style{NumFmt: 3}) // #,##0
	if err != nil {
		return nil, err
	}

	writeRow := func(sheet string, row int, values []any) error {
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
		return nil
	}
	writeHeaders := func(sheet string, headers []string) error {
		vals := make([]any, len(headers))
		for i, h := range headers {
			vals[i] = h
		}
		if err := writeRow(sheet, 1, vals); err != nil {
			return err
		}
		last, _ := excelize.CoordinatesToCellName(len(headers), 1)
		return f.SetCellStyle(sheet, "A1", last, headerStyle)
	}

	if err := f.SetSheetName("Sheet1", SheetSummary); err != nil {
		return nil, err
	}
	if _, err := f.NewSheet(SheetDetail); err != nil {
		return nil, err
	}
	if err := writeHeaders(SheetSummary, summaryHeaders); err != nil {
		return nil, err
	}
	if err := writeHeaders(SheetDetail, detailHeaders); err != nil {
		return nil, err
	}

	sorted := append([]trxuc.Transaction(nil), trxs...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	var grandTotal int64
	rowS, rowD := 2, 2
	for _, t := range sorted {
		when := format.DateTime(t.CreatedAt, loc)
		if err := writeRow(SheetSummary, rowS, []any{
			t.TransactionCode, when, t.StudentNIS, t.StudentName, t.StudentKelas,
			t.Subtotal, t.Discount, t.Total, string(t.PaymentMethod),
			optional(t.CashReceived), optional(t.ChangeGiven), string(t.Status), t.Cashier,
		}); err != nil {
			return nil, err
		}
		rowS++
		if t.Status == trxuc.StatusPaid {
			grandTotal += t.Total
		}

		for _, it := range t.Items {
			if err := writeRow(SheetDetail, rowD, []any{
				t.TransactionCode, when, t.StudentNIS, t.StudentName, it.PaymentType, it.Description, it.Amount,
			}); err != nil {
				return nil, err
			}
			rowD++
		}
	}

	if err := writeRow(SheetSummary, rowS+1, []any{"TOTAL LUNAS", "", "", "", "", "", "", grandTotal}); err != nil {
		return nil, err
	}

	_ = f.SetCellStyle(SheetSummary, "F2", fmt.Sprintf("H%d", rowS+1), moneyStyle)
	_ = f.SetCellStyle(SheetSummary, "J2", fmt.Sprintf("K%d", rowS), moneyStyle)
	_ = f.SetCellStyle(SheetDetail, "G2", fmt.Sprintf("G%d", rowD), moneyStyle)
	_ = f.SetColWidth(SheetSummary, "A", "A", 22)
	_ = f.SetColWidth(SheetSummary, "B", "B", 24)
	_ = f.SetColWidth(SheetSummary, "D", "D", 28)
	_ = f.SetColWidth(SheetDetail, "A", "B", 24)
	_ = f.SetColWidth(SheetDetail, "E", "F", 24)

	_ = f.AutoFilter(SheetSummary, "A1:M1", []excelize.AutoFilterOptions{})
	_ = f.SetPanes(SheetSummary, &excelize.Panes{Freeze: true, Split: true, YSplit: 1})
	_ = f.AutoFilter(SheetDetail, "A1:G1", []excelize.AutoFilterOptions{})
	_ = f.SetPanes(SheetDetail, &excelize.Panes{Freeze: true, Split: true, YSplit: 1})

	f.SetActiveSheet(0)
	return f.WriteToBuffer()
}

// Filename names an export by its date range, e.g. laporan_transaksi_20261001_20261018.xlsx.
func Filename(from, to *time.Time, now time.Time) string {
	switch {
	case from != nil && to != nil:
		return fmt.Sprintf("laporan_transaksi_%s_%s.xlsx", from.Format("20060102"), to.Format("20060102"))
	case from != nil:
		return fmt.Sprintf("laporan_transaksi_%s.xlsx", from.Format("20060102"))
	default:
		return fmt.Sprintf("laporan_transaksi_%s.xlsx", now.Format("20060102"))
	}
}

func optional(v *int64) any {
	if v == nil {
		return ""
	}
	return *v
}
