package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/diqie123/school-cashier-pro/internal/app"
	"github.com/diqie123/school-cashier-pro/internal/config"
)

func main() {
	_ = godotenv.Load()

	a, err := app.New(config.Load())
	if err != nil {
		log.Fatalf("startup failed: %v", err)
	}

	go func() {
		if err := a.Run(); err != nil {
			log.Fatalf("server error: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := a.Shutdown(ctx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}
