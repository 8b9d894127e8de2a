// Package memory is the in-process storage driver used for local runs and tests.
package memory

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// DB holds every table behind one lock.
type DB struct {
	mu sync.RWMutex

	students     map[string]studentuc.Student // by id
	studentByNIS map[string]string
	trx          []*trxuc.Transaction // insertion order
	trxByID      map[string]*trxuc.Transaction
	trxByCode    map[string]*trxuc.Transaction
	counters     map[string]int64 // day -> last sequence
	settings     *settingsuc.Settings
	accounts     map[string]auth.Account // by username

	now func() time.Time
}

func New() *DB {
	return &DB{
		students:     make(map[string]studentuc.Student),
		studentByNIS: make(map[string]string),
		trxByID:      make(map[string]*trxuc.Transaction),
		trxByCode:    make(map[string]*trxuc.Transaction),
		counters:     make(map[string]int64),
		accounts:     make(map[string]auth.Account),
		now:          time.Now,
	}
}

// NewSeeded returns a DB with demo operators and students.
func NewSeeded() *DB {
	db := New()

	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	kasirPwd := envOr("SEED_KASIR_PASSWORD", "kasir123")
	managerPwd := envOr("SEED_MANAGER_PASSWORD", "manager123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_KASIR_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_KASIR_PASSWORD to override.")
	}

	for _, u := range []struct {
		username, password, name string
		role                     auth.Role
	}{
		{"admin", adminPwd, "Administrator", auth.RoleAdmin},
		{"kasir", kasirPwd, "Siti Nurhaliza", auth.RoleKasir},
		{"manager", managerPwd, "Bambang Wijaya", auth.RoleManager},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		db.AddAccount(auth.Account{
			ID:           uuid.NewString(),
			Username:     u.username,
			Name:         u.name,
			Role:         u.role,
			PasswordHash: string(hash),
			IsActive:     true,
		})
	}

	for _, s := range []studentuc.Student{
		{NIS: "12345", Nama: "Ahmad Fauzi", Kelas: "XI-IPA-1", NoTelpWali: "081234567890"},
		{NIS: "12346", Nama: "Siti Aminah", Kelas: "X-IPS-2", NoTelpWali: "081234567891"},
		{NIS: "12347", Nama: "Budi Santoso", Kelas: "XII-IPA-3", NoTelpWali: "081234567892"},
		{NIS: "12348", Nama: "Dewi Lestari", Kelas: "X-IPA-1", NoTelpWali: "081234567893"},
		{NIS: "12349", Nama: "Rizky Pratama", Kelas: "XI-IPS-1", NoTelpWali: "081234567894"},
	} {
		db.AddStudent(s)
	}
	return db
}

// AddAccount inserts or replaces an operator account.
func (db *DB) AddAccount(a auth.Account) {
	db.mu.Lock()
	defer db.mu.Unlock()
	if a.ID == "" {
		a.ID = uuid.NewString()
	}
	db.accounts[a.Username] = a
}

// AddStudent inserts a student directly, assigning an id when missing.
func (db *DB) AddStudent(s studentuc.Student) studentuc.Student {
	db.mu.Lock()
	defer db.mu.Unlock()
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := db.now()
	s.CreatedAt, s.UpdatedAt = now, now
	db.students[s.ID] = s
	db.studentByNIS[s.NIS] = s.ID
	return s
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
