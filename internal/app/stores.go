package app

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/diqie123/school-cashier-pro/internal/config"
	"github.com/diqie123/school-cashier-pro/internal/db"
	"github.com/diqie123/school-cashier-pro/internal/repository/memory"
	operatorrepo "github.com/diqie123/school-cashier-pro/internal/repository/postgres/operator"
	settingsrepo "github.com/diqie123/school-cashier-pro/internal/repository/postgres/settings"
	studentrepo "github.com/diqie123/school-cashier-pro/internal/repository/postgres/student"
	trxrepo "github.com/diqie123/school-cashier-pro/internal/repository/postgres/transaction"
	authuc "github.com/diqie123/school-cashier-pro/internal/usecase/auth"
	dashboarduc "github.com/diqie123/school-cashier-pro/internal/usecase/dashboard"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// TransactionStore is everything the transaction side needs from storage.
type TransactionStore interface {
	trxuc.Store
	trxuc.DailySequencer
	trxuc.CodeChecker
	dashboarduc.Store
}

type Stores struct {
	Operators    authuc.AccountFinder
	Students     studentuc.Store
	Transactions TransactionStore
	Settings     settingsuc.Store
	closers      []func()
}

func (s Stores) Close() {
	for i := len(s.closers) - 1; i >= 0; i-- {
		s.closers[i]()
	}
}

// OpenStores picks the storage backend from STORAGE_DRIVER.
func OpenStores(cfg config.Config) (Stores, error) {
	switch cfg.StorageDriver {
	case config.DriverMemory:
		log.Printf("[app] WARN: memory storage, data is lost on restart")
		return MemoryStores(memory.NewSeeded()), nil
	case config.DriverPostgres:
		return postgresStores(cfg.DatabaseURL)
	default:
		return Stores{}, fmt.Errorf("unknown STORAGE_DRIVER %q", cfg.StorageDriver)
	}
}

func MemoryStores(m *memory.DB) Stores {
	return Stores{
		Operators:    memory.NewOperatorStore(m),
		Students:     memory.NewStudentStore(m),
		Transactions: memory.NewTransactionStore(m),
		Settings:     memory.NewSettingsStore(m),
	}
}

func postgresStores(url string) (Stores, error) {
	pool, err := db.NewPool(url)
	if err != nil {
		return Stores{}, fmt.Errorf("db connect: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		pool.Close()
		return Stores{}, err
	}

	gdb, err := db.OpenGorm(url)
	if err != nil {
		pool.Close()
		return Stores{}, fmt.Errorf("gorm open: %w", err)
	}

	closeGorm := func() {
		if sqlDB, err := gdb.DB(); err == nil {
			_ = sqlDB.Close()
		}
	}

	return Stores{
		Operators:    operatorrepo.NewOperatorRepo(pool),
		Students:     studentrepo.NewStudentRepo(gdb),
		Transactions: trxrepo.NewTransactionStoreAdapter(trxrepo.NewTransactionRepo(pool)),
		Settings:     settingsrepo.NewSettingsRepo(gdb),
		closers:      []func(){pool.Close, closeGorm},
	}, nil
}
