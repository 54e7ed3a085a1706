package main

import (
	"kasa-backend/internal/admin"
	"kasa-backend/internal/audit"
	"kasa-backend/internal/auth"
	"kasa-backend/internal/config"
	"kasa-backend/internal/dashboard"
	"kasa-backend/internal/models"
	"kasa-backend/internal/sales"
	"kasa-backend/internal/sections"
	"kasa-backend/internal/shift"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type routeDeps struct {
	cfg      *config.Config
	db       *gorm.DB
	sections *sections.Directory
	shifts   *shift.Handler
	sales    *sales.Handler
	chart    *dashboard.Chart
}

func registerRoutes(app *fiber.App, d routeDeps) {
	api := app.Group("/api")

	// Public auth
	api.Post("/auth/register-super-admin", auth.RegisterSuperAdminHandler(d.db))
	api.Post("/auth/login", auth.LoginHandler(d.db, d.cfg.JWTSecret, d.cfg.JWTTTL))

	// Protected
	protected := api.Group("")
	protected.Use(auth.JWTMiddleware(d.cfg.JWTSecret))

	protected.Get("/auth/me", auth.MeHandler(d.db))

	// Super admin routes
	adminRoutes := protected.Group("/admin")
	adminRoutes.Use(auth.RequireRole(models.RoleSuperAdmin))

	// Şube yönetimi
	adminRoutes.Post("/branches", admin.CreateBranchHandler(d.db))
	adminRoutes.Get("/branches", admin.ListBranchesHandler(d.db))
	adminRoutes.Get("/branches/:id", admin.GetBranchHandler(d.db))
	adminRoutes.Put("/branches/:id", admin.UpdateBranchHandler(d.db))
	adminRoutes.Post("/branches/:id/admin", admin.CreateBranchUserHandler(d.db))
	adminRoutes.Post("/branches/:id/users", admin.CreateBranchUserHandler(d.db))
	adminRoutes.Get("/branches/:id/users", admin.ListBranchUsersHandler(d.db))
	adminRoutes.Post("/branches/:id/sections", sections.CreateSectionHandler(d.sections))

	// Bölümler
	protected.Get("/sections", sections.ListSectionsHandler(d.sections))

	// Vardiyalar
	protected.Get("/shifts/current", d.shifts.CurrentShiftHandler())
	protected.Post("/shifts", d.shifts.OpenShiftHandler())
	protected.Get("/shifts", d.shifts.ListShiftsHandler())
	protected.Get("/shifts/:id", d.shifts.GetShiftHandler())
	protected.Get("/shifts/:id/summary", d.shifts.ShiftSummaryHandler())
	protected.Post("/shifts/:id/close", d.shifts.CloseShiftHandler())
	protected.Post("/shifts/:id/pin", d.shifts.PinShiftHandler())
	protected.Post("/shifts/:id/movements", d.shifts.RecordMovementHandler())
	protected.Get("/shifts/:id/movements", d.shifts.ListMovementsHandler())

	// Ciro girişleri
	protected.Post("/sales-entries", d.sales.CreateSalesEntryHandler())
	protected.Get("/sales-entries", d.sales.ListSalesEntriesHandler())
	protected.Get("/sales-entries/summary/monthly", d.sales.MonthlySummaryHandler())

	// Dashboard
	protected.Get("/dashboard/cash-chart", dashboard.CashChartHandler(d.chart))

	// Audit logs
	protected.Get("/audit-logs", audit.ListAuditLogsHandler(d.db))
}
