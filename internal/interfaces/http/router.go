package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/clubverde/trazabilidad-api/internal/application/auth"
	"github.com/clubverde/trazabilidad-api/internal/application/trace"
	"github.com/clubverde/trazabilidad-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	SeedUC    *trace.SeedUseCase
	ConvertUC *trace.ConvertUseCase
	DestroyUC *trace.DestroyUseCase
	LabUC     *trace.LabResultsUseCase
	QueryUC   *trace.QueryUseCase
	CountsUC  *trace.CountsUseCase
	RoomUC    *trace.RoomUseCase
	ReportUC  *trace.ReportUseCase
	AuthUC    *auth.AuthUseCase
	JWTSecret string
}

// stageRoute describe los recursos HTTP de una etapa del pipeline. El nombre
// de la acción de conversión es fijo por etapa: la etapa destino la decide la
// tabla de adyacencia del dominio, nunca la URL.
type stageRoute struct {
	path        string
	stage       entity.Stage
	childPath   string // vacío = etapa sin seguimiento por unidad
	convertPath string // vacío = la etapa no convierte por esta vía
	destroyPath string
}

var stageRoutes = []stageRoute{
	{"motherbatches", entity.StageMotherPlant, "plants", "convert_to_cuttings", "destroy_plants"},
	{"cuttingbatches", entity.StageCutting, "cuttings", "convert_to_blooming", "destroy_cuttings"},
	{"bloomingbatches", entity.StageBlooming, "plants", "convert_to_drying", "destroy_plants"},
	{"drying", entity.StageDrying, "", "convert_to_processing", "destroy_weight"},
	{"processing", entity.StageProcessing, "", "convert_to_labtesting", "destroy_weight"},
	{"labtesting", entity.StageLabTesting, "", "convert_to_packaging", "destroy_weight"},
	// Empaque -> distribución va por POST /distributions/ (acepta envases de
	// varios lotes), no por convert_to_*.
	{"packaging", entity.StagePackaging, "units", "", "destroy_units"},
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	authHandler := NewAuthHandler(deps.AuthUC)
	memberHandler := NewMemberHandler(deps.AuthUC)
	roomHandler := NewRoomHandler(deps.RoomUC)
	traceHandler := NewTraceHandler(deps.SeedUC, deps.ConvertUC, deps.DestroyUC, deps.LabUC, deps.QueryUC, deps.CountsUC)
	countsHandler := NewCountsHandler(deps.CountsUC)
	distHandler := NewDistributionHandler(deps.ConvertUC, deps.QueryUC)
	reportHandler := NewReportHandler(deps.ReportUC)

	// Auth: login público; registro de miembros solo admin.
	authGroup := api.Group("/auth")
	authGroup.Post("/login", authHandler.Login)
	authGroup.Post("/register", AuthMiddleware(deps.JWTSecret), RequireRole(entity.RoleAdmin), authHandler.Register)

	// Todo lo demás requiere Bearer Token.
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret))

	protected.Get("/members", memberHandler.List)

	rooms := protected.Group("/rooms")
	rooms.Post("/", roomHandler.Create)
	rooms.Get("/", roomHandler.List)
	rooms.Get("/:id", roomHandler.GetByID)

	tnt := protected.Group("/trackandtrace")

	// Alta de lotes raíz y selector de variedades.
	tnt.Post("/seeds/", traceHandler.CreateSeed)
	tnt.Get("/seeds/strain_options/", traceHandler.StrainOptions)

	// Recursos por etapa del pipeline.
	for _, s := range stageRoutes {
		g := tnt.Group("/" + s.path)
		g.Get("/", traceHandler.ListStage(s.stage))
		g.Get("/counts/", countsHandler.StageCounts(s.stage))
		g.Get("/:id", traceHandler.GetBatch)
		g.Get("/:id/lineage/", traceHandler.Lineage)
		if s.childPath != "" {
			g.Get("/:id/"+s.childPath+"/", traceHandler.ListChildren)
		}
		if s.convertPath != "" {
			g.Post("/:id/"+s.convertPath+"/", traceHandler.Convert)
		}
		g.Post("/:id/"+s.destroyPath+"/", traceHandler.Destroy)
	}
	tnt.Post("/labtesting/:id/update_lab_results/", traceHandler.UpdateLabResults)

	// Distribuciones (empaque -> miembro).
	dist := tnt.Group("/distributions")
	dist.Get("/", distHandler.List)
	dist.Get("/available_units/", distHandler.AvailableUnits)
	dist.Post("/", distHandler.Create)

	// Reportes de cumplimiento.
	reports := tnt.Group("/reports")
	reports.Get("/destructions.xml", reportHandler.DestructionManifest)
	reports.Get("/destructions/:id/certificate.pdf", reportHandler.DestructionCertificate)
	reports.Get("/ledger.xlsx", reportHandler.LedgerWorkbook)
}
