// Command hash prints a bcrypt hash for an operator password. With -username
// it also creates or updates that operator in DATABASE_URL.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/bcrypt"

	"github.com/diqie123/school-cashier-pro/internal/db"
	operatorrepo "github.com/diqie123/school-cashier-pro/internal/repository/postgres/operator"
	"github.com/diqie123/school-cashier-pro/internal/usecase/auth"
)

func main() {
	username := flag.String("username", "", "operator username to upsert")
	nama := flag.String("nama", "", "display name")
	role := flag.String("role", string(auth.RoleKasir), "admin | kasir | manager")
	flag.Parse()

	if flag.NArg() < 1 {
		fmt.Println("usage: go run ./cmd/hash [-username u -nama n -role r] <password>")
		return
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(flag.Arg(0)), bcrypt.DefaultCost)
	if err != nil {
		log.Fatalf("hash: %v", err)
	}
	fmt.Println(string(hash))

	if *username == "" {
		return
	}
	if !auth.Role(*role).Valid() {
		log.Fatalf("invalid role %q", *role)
	}

	_ = godotenv.Load()
	pool, err := db.NewPool(os.Getenv("DATABASE_URL"))
	if err != nil {
		log.Fatalf("db connect: %v", err)
	}
	defer pool.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.EnsureSchema(ctx, pool); err != nil {
		log.Fatalf("%v", err)
	}

	name := *nama
	if name == "" {
		name = *username
	}
	id, err := operatorrepo.NewOperatorRepo(pool).Upsert(ctx, operatorrepo.OperatorRow{
		Username:     *username,
		Nama:         name,
		Role:         *role,
		PasswordHash: string(hash),
		IsActive:     true,
	})
	if err != nil {
		log.Fatalf("upsert operator: %v", err)
	}
	log.Printf("operator %s (%s) saved with id %s", *username, *role, id)
}
