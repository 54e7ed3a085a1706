package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"kasa-backend/internal/audit"
	"kasa-backend/internal/config"
	"kasa-backend/internal/dashboard"
	"kasa-backend/internal/database"
	"kasa-backend/internal/logging"
	"kasa-backend/internal/prefs"
	"kasa-backend/internal/resolver"
	"kasa-backend/internal/sales"
	"kasa-backend/internal/sections"
	"kasa-backend/internal/shift"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/redis/go-redis/v9"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("konfigürasyon okunamadı", slog.Any("error", err))
		os.Exit(1)
	}
	logger := logging.New(cfg)
	slog.SetDefault(logger)
	cfg.Warn(logger)

	db, err := database.Open(cfg.DatabaseDSN)
	if err != nil {
		logger.Error("veritabanına bağlanılamadı", slog.Any("error", err))
		os.Exit(1)
	}
	if err := database.Migrate(db, logger); err != nil {
		logger.Error("migration başarısız", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Redis yoksa tercih ve sabitleme saklanmaz, çözümleyici yine çalışır
	var rdb *redis.Client
	if rdb, err = prefs.NewClient(ctx, cfg.RedisAddr); err != nil {
		logger.Warn("redis kullanılamıyor, tercihler devre dışı", slog.Any("error", err))
		rdb = nil
	} else {
		defer rdb.Close()
	}

	pinStore := prefs.NewPinStore(rdb, cfg.PinTTL)
	prefStore := prefs.NewStore(rdb)
	auditWriter := audit.NewWriter(db)
	sectionDir := sections.NewDirectory(db)

	salesSvc := sales.NewService(db)
	shiftSvc := shift.NewService(shift.NewGormRepository(db), salesSvc, sectionDir, logger)
	res := resolver.New(shiftSvc, sectionDir, prefStore, resolver.Options{
		ReprobeDelay:       cfg.ReprobeDelay,
		ProbeTimeout:       cfg.ProbeTimeout,
		SectionConcurrency: cfg.SectionConcurrency,
		Logger:             logger,
	})

	app := fiber.New(fiber.Config{
		ErrorHandler: errorHandler(logger),
	})
	app.Use(requestid.New())
	app.Use(recover.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: cfg.AllowedOrigins(),
		AllowHeaders: "Origin, Content-Type, Accept, Authorization",
		AllowMethods: "GET,POST,PUT,DELETE,OPTIONS",
	}))

	registerRoutes(app, routeDeps{
		cfg:      cfg,
		db:       db,
		sections: sectionDir,
		shifts:   shift.NewHandler(shiftSvc, res, pinStore, prefStore, auditWriter, logger),
		sales:    sales.NewHandler(salesSvc, auditWriter, logger),
		chart:    dashboard.NewChart(db, shiftSvc),
	})

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := app.ShutdownWithContext(shutdownCtx); err != nil {
			logger.Error("sunucu kapatılamadı", slog.Any("error", err))
		}
	}()

	logger.Info("server çalışıyor", slog.String("port", cfg.HTTPPort))
	if err := app.Listen(":" + cfg.HTTPPort); err != nil {
		logger.Error("server durdu", slog.Any("error", err))
		os.Exit(1)
	}
}

// errorHandler hataları {"error": msg} olarak döner.
func errorHandler(logger *slog.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		var e *fiber.Error
		if errors.As(err, &e) {
			return c.Status(e.Code).JSON(fiber.Map{
				"error": e.Message,
			})
		}
		logger.Error("beklenmeyen hata", slog.Any("error", err), slog.String("path", c.Path()))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
			"error": "Beklenmeyen sunucu hatası",
		})
	}
}
