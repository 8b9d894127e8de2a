package app

import (
	"context"
	"fmt"
	"log"

	"github.com/bytedance/sonic"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/diqie123/school-cashier-pro/internal/config"
	httpdelivery "github.com/diqie123/school-cashier-pro/internal/delivery/http"
	"github.com/diqie123/school-cashier-pro/internal/delivery/http/httpx"
	"github.com/diqie123/school-cashier-pro/internal/delivery/middleware"
	"github.com/diqie123/school-cashier-pro/internal/scheduler"
	authuc "github.com/diqie123/school-cashier-pro/internal/usecase/auth"
	checkoutuc "github.com/diqie123/school-cashier-pro/internal/usecase/checkout"
	dashboarduc "github.com/diqie123/school-cashier-pro/internal/usecase/dashboard"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

type App struct {
	cfg      config.Config
	f        *fiber.App
	sessions *checkoutuc.Registry
	reaper   *scheduler.Scheduler
	close    func()
}

// New opens the configured storage, wires the usecases and starts the
// session reaper.
func New(cfg config.Config) (*App, error) {
	stores, err := OpenStores(cfg)
	if err != nil {
		return nil, err
	}

	a, err := Build(cfg, stores)
	if err != nil {
		stores.Close()
		return nil, err
	}

	a.reaper, err = scheduler.StartSessionReaper(cfg.SessionReaperSchedule, a.sessions)
	if err != nil {
		stores.Close()
		return nil, err
	}
	return a, nil
}

// Build wires usecases and routes on top of stores. It starts nothing.
func Build(cfg config.Config, stores Stores) (*App, error) {
	loc := cfg.Location()

	policy, err := trxuc.ParseDiscountPolicy(cfg.DiscountPolicy)
	if err != nil {
		return nil, err
	}
	codes, err := trxuc.NewCodeGenerator(cfg.CodeStrategy, stores.Transactions, stores.Transactions)
	if err != nil {
		return nil, err
	}

	loginUC := authuc.NewLoginUsecase(stores.Operators, cfg.JWTSecret, cfg.JWTExpiresMinutes)
	studentUC := studentuc.New(stores.Students, cfg.StudentSearchLimit)
	settingsUC := settingsuc.New(stores.Settings, settingsuc.Settings{
		NamaSekolah: cfg.SchoolName,
		Alamat:      cfg.SchoolAddress,
		Telepon:     cfg.SchoolPhone,
		TahunAjaran: cfg.AcademicYear,
		NominalSPP:  cfg.SPPFeeTiers,
		DefaultSPP:  cfg.DefaultSPPFee,
	})
	trxUC := trxuc.New(stores.Transactions, codes,
		trxuc.WithDiscountPolicy(policy),
		trxuc.WithLocation(loc),
	)
	dashboardUC := dashboarduc.New(stores.Transactions, loc)

	sessions := checkoutuc.NewRegistry(checkoutuc.Deps{
		Students:       studentUC,
		Committer:      trxUC,
		Fees:           settingsUC,
		PlaceholderFee: cfg.PlaceholderFee,
		Policy:         policy,
		CommitTimeout:  cfg.CommitTimeout,
		SearchLimit:    cfg.StudentSearchLimit,
		Notifier:       checkoutuc.LogNotifier{Prefix: "[checkout]"},
	}, cfg.SessionIdleTTL)

	f := fiber.New(fiber.Config{
		AppName:      "school-cashier-pro",
		JSONEncoder:  sonic.Marshal,
		JSONDecoder:  sonic.Unmarshal,
		ErrorHandler: httpx.ErrorHandler,
	})

	f.Use(recover.New())
	f.Use(logger.New(logger.Config{
		TimeFormat: "2006-01-02 15:04:05",
		TimeZone:   cfg.Timezone,
		Format:     "[${time}] ${ip} - ${method} ${path} - ${status} - ${latency}\n",
	}))
	f.Use(cors.New(cors.Config{
		AllowOrigins: cfg.CORSOrigins,
		AllowHeaders: "Origin, Content-Type, Accept, Authorization, " + middleware.HeaderRequestID,
		AllowMethods: "GET,POST,PUT,PATCH,DELETE,OPTIONS",
	}))
	f.Use(compress.New(compress.Config{Level: compress.LevelDefault}))
	f.Use(middleware.RequestContext(cfg.RequestTimeout))

	httpdelivery.RegisterRoutes(f, httpdelivery.Deps{
		JWTSecret:      cfg.JWTSecret,
		LoginRateLimit: cfg.LoginRateLimit,
		Location:       loc,
		Login:          loginUC,
		Students:       studentUC,
		Transactions:   trxUC,
		Settings:       settingsUC,
		Dashboard:      dashboardUC,
		Checkout:       sessions,
	})

	log.Printf("[app] storage=%s codes=%s discount=%s tz=%s", cfg.StorageDriver, cfg.CodeStrategy, policy, loc)

	return &App{cfg: cfg, f: f, sessions: sessions, close: stores.Close}, nil
}

func (a *App) Fiber() *fiber.App { return a.f }

func (a *App) Run() error {
	return a.f.Listen(":" + a.cfg.Port)
}

// Shutdown stops the reaper, drains HTTP and closes storage.
func (a *App) Shutdown(ctx context.Context) error {
	if a.reaper != nil {
		a.reaper.Stop(ctx)
	}
	err := a.f.ShutdownWithContext(ctx)
	if a.close != nil {
		a.close()
	}
	if err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
