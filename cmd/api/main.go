package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/clubverde/trazabilidad-api/internal/application/auth"
	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/infrastructure/postgres"
	"github.com/clubverde/trazabilidad-api/internal/infrastructure/report"
	httpRouter "github.com/clubverde/trazabilidad-api/internal/interfaces/http"
	"github.com/clubverde/trazabilidad-api/pkg/chargeno"
	"github.com/clubverde/trazabilidad-api/pkg/config"
	"github.com/clubverde/trazabilidad-api/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: "info",
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	ctx := context.Background()
	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	batchRepo := postgres.NewBatchRepository(pool)
	unitRepo := postgres.NewUnitRepository(pool)
	ledgerRepo := postgres.NewLedgerRepository(pool)
	memberRepo := postgres.NewMemberRepository(pool)
	roomRepo := postgres.NewRoomRepository(pool)
	txRunner := postgres.NewTxRunner(pool)

	charges, err := chargeno.New(cfg.Trace.NodeID)
	if err != nil {
		log.Fatal().Err(err).Msg("generador de números de charge")
	}

	destroyUC := trace.NewDestroyUseCase(txRunner, memberRepo, cfg.Trace.ConvertRetries)
	convertUC := trace.NewConvertUseCase(
		txRunner, batchRepo, unitRepo, memberRepo, roomRepo, ledgerRepo,
		charges, destroyUC, cfg.Trace.ConvertRetries,
	)
	seedUC := trace.NewSeedUseCase(txRunner, memberRepo, roomRepo, charges)
	labUC := trace.NewLabResultsUseCase(batchRepo)
	queryUC := trace.NewQueryUseCase(batchRepo, unitRepo, ledgerRepo)
	countsUC := trace.NewCountsUseCase(batchRepo)
	roomUC := trace.NewRoomUseCase(roomRepo)

	// Reportes regulatorios: manifiesto XML con huella C14N, certificado PDF
	// de destrucción y libro de trazabilidad en Excel.
	reportUC := trace.NewReportUseCase(
		ledgerRepo, batchRepo, memberRepo,
		report.NewManifestBuilder(),
		report.NewCertificatePDFGenerator(cfg.App.Name),
		report.NewLedgerExcelExporter(),
	)

	authUC := auth.NewAuthUseCase(memberRepo, auth.JWTConfig{
		Secret:     cfg.JWT.Secret,
		ExpMinutes: cfg.JWT.Expiration,
		Issuer:     cfg.JWT.Issuer,
	})

	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 10,
		IdleTimeout:  time.Second * 60,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Trazabilidad API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		SeedUC:    seedUC,
		ConvertUC: convertUC,
		DestroyUC: destroyUC,
		LabUC:     labUC,
		QueryUC:   queryUC,
		CountsUC:  countsUC,
		RoomUC:    roomUC,
		ReportUC:  reportUC,
		AuthUC:    authUC,
		JWTSecret: cfg.JWT.Secret,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}
