package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	authhandler "github.com/diqie123/school-cashier-pro/internal/delivery/http/handler/auth"
	checkouthandler "github.com/diqie123/school-cashier-pro/internal/delivery/http/handler/checkout"
	dashboardhandler "github.com/diqie123/school-cashier-pro/internal/delivery/http/handler/dashboard"
	settingshandler "github.com/diqie123/school-cashier-pro/internal/delivery/http/handler/settings"
	studenthandler "github.com/diqie123/school-cashier-pro/internal/delivery/http/handler/student"
	trxhandler "github.com/diqie123/school-cashier-pro/internal/delivery/http/handler/transaction"
	"github.com/diqie123/school-cashier-pro/internal/delivery/middleware"
	authuc "github.com/diqie123/school-cashier-pro/internal/usecase/auth"
	checkoutuc "github.com/diqie123/school-cashier-pro/internal/usecase/checkout"
	dashboarduc "github.com/diqie123/school-cashier-pro/internal/usecase/dashboard"
	settingsuc "github.com/diqie123/school-cashier-pro/internal/usecase/settings"
	studentuc "github.com/diqie123/school-cashier-pro/internal/usecase/student"
	trxuc "github.com/diqie123/school-cashier-pro/internal/usecase/transaction"
)

// Deps are the wired usecases the routes talk to.
type Deps struct {
	JWTSecret      string
	LoginRateLimit int
	Location       *time.Location

	Login        *authuc.LoginUsecase
	Students     *studentuc.Usecase
	Transactions *trxuc.Usecase
	Settings     *settingsuc.Usecase
	Dashboard    *dashboarduc.Usecase
	Checkout     *checkoutuc.Registry
}

func RegisterRoutes(app *fiber.App, d Deps) {
	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"ok": true})
	})

	api := app.Group("/api")

	authH := authhandler.New(d.Login)
	api.Post("/auth/login", middleware.LoginRateLimiter(d.LoginRateLimit), authH.Login)

	protected := api.Group("", middleware.NewJWTMiddleware(d.JWTSecret).Protect())
	protected.Get("/auth/profile", authH.Profile)

	adminOnly := middleware.RequireRole(authuc.CanManageStudents)
	canCommit := middleware.RequireRole(authuc.CanCommitTransaction)

	// Students
	studentH := studenthandler.New(d.Students)
	protected.Get("/students", studentH.List)
	protected.Get("/students/search", studentH.Search)
	protected.Get("/students/:id", studentH.GetByID)
	protected.Post("/students", adminOnly, studentH.Create)
	protected.Put("/students/:id", adminOnly, studentH.Update)
	protected.Delete("/students/:id", adminOnly, studentH.Delete)

	// Transactions
	trxH := trxhandler.New(d.Transactions, d.Settings, d.Location)
	protected.Get("/transactions", trxH.List)
	protected.Get("/transactions/export", trxH.Export)
	protected.Get("/transactions/code/:code", trxH.GetByCode)
	protected.Get("/transactions/:id", trxH.GetByID)
	protected.Get("/transactions/:id/receipt", trxH.Receipt)
	protected.Post("/transactions", canCommit, trxH.Commit)

	// Settings
	settingsH := settingshandler.New(d.Settings)
	protected.Get("/settings", settingsH.Get)
	protected.Put("/settings", middleware.RequireRole(authuc.CanManageSettings), settingsH.Update)

	// Dashboard
	protected.Get("/dashboard", dashboardhandler.New(d.Dashboard).Summary)

	// Checkout sessions. Reading a session is open to every role; the commit
	// step is gated inside the workflow as well.
	co := checkouthandler.New(d.Checkout)
	sessions := protected.Group("/checkout/sessions")
	sessions.Post("", co.Create)
	sessions.Get("/:id", co.Get)
	sessions.Delete("/:id", co.Delete)
	sessions.Get("/:id/students", co.Search)
	sessions.Post("/:id/student", co.SelectStudent)
	sessions.Post("/:id/items", co.AddItem)
	sessions.Patch("/:id/items/:index", co.UpdateItem)
	sessions.Delete("/:id/items/:index", co.RemoveItem)
	sessions.Put("/:id/payment", co.SetPayment)
	sessions.Post("/:id/proceed", co.Proceed)
	sessions.Post("/:id/back", co.Back)
	sessions.Post("/:id/change-student", co.ChangeStudent)
	sessions.Post("/:id/commit", co.Commit)
	sessions.Post("/:id/start-new", co.StartNew)
	sessions.Post("/:id/abandon", co.Abandon)
}
