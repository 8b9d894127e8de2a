package dashboard

import (
	"context"
	"time"

	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// PaidEntry is the minimal projection of a paid transaction.
type PaidEntry struct {
	CreatedAt time.Time
	Total     int64
}

type Store interface {
	PaidSince(ctx context.Context, from time.Time) ([]PaidEntry, error)
	CountByStatus(ctx context.Context, status trxuc.Status) (int, error)
	CountStudents(ctx context.Context) (int, error)
}

type DayIncome struct {
	Date  string `json:"date"` // YYYY-MM-DD
	Total int64  `json:"total"`
	Count int    `json:"count"`
}

type Summary struct {
	TodayIncome  int64       `json:"pemasukanHariIni"`
	TodayCount   int         `json:"transaksiHariIni"`
	PendingCount int         `json:"transaksiPending"`
	StudentCount int         `json:"totalSiswa"`
	LastDays     []DayIncome `json:"pemasukanHarian"`
}

type Usecase struct {
	store Store
	loc   *time.Location
	now   func() time.Time
	days  int
}

func New(store Store, loc *time.Location) *Usecase {
	if loc == nil {
		loc = time.Local
	}
	return &Usecase{store: store, loc: loc, now: time.Now, days: 7}
}

func (u *Usecase) Summary(ctx context.Context) (*Summary, error) {
	now := u.now().In(u.loc)
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, u.loc)
	from := today.AddDate(0, 0, -(u.days - 1))

	entries, err := u.store.PaidSince(ctx, from)
	if err != nil {
		return nil, err
	}

	days := make([]DayIncome, u.days)
	index := make(map[string]int, u.days)
	for i := range days {
		d := from.AddDate(0, 0, i).Format("2006-01-02")
		days[i].Date = d
		index[d] = i
	}
	for _, e := range entries {
		i, ok := index[e.CreatedAt.In(u.loc).Format("2006-01-02")]
		if !ok {
			continue
		}
		days[i].Total += e.Total
		days[i].Count++
	}

	pending, err := u.store.CountByStatus(ctx, trxuc.StatusPending)
	if err != nil {
		return nil, err
	}
	students, err := u.store.CountStudents(ctx)
	if err != nil {
		return nil, err
	}

	last := days[len(days)-1]
	return &Summary{
		TodayIncome:  last.Total,
		TodayCount:   last.Count,
		PendingCount: pending,
		StudentCount: students,
		LastDays:     days,
	}, nil
}
