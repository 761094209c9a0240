package router

import (
	"cierrecaja/internal/config"
	"cierrecaja/internal/handler"
	"cierrecaja/internal/infra"
	"cierrecaja/internal/middleware"
	"cierrecaja/internal/repository"
	"cierrecaja/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the connections and adapters built by main.
type Deps struct {
	DB *gorm.DB // nil keeps closings in memory
	// RDB nil keeps sessions and locks in process.
	RDB      *redis.Client
	Archivos infra.ArchivoStore
	// Encolador nil disables e-mail and Telegram delivery.
	Encolador service.Encolador
	Email     bool
	Telegram  bool
}

// Servicios is the service layer shared by the HTTP routes and the workers.
type Servicios struct {
	Auth       service.AuthService
	Cierres    service.CierreService
	Sesiones   service.SesionService
	Exportador service.Exportador
}

// NuevosServicios wires Service ← Repository ← DB/Redis.
func NuevosServicios(cfg *config.Config, deps Deps) *Servicios {
	var (
		cierreRepo repository.CierreRepository
		sesionRepo repository.SesionRepository
		locker     service.Locker
	)
	if deps.DB != nil {
		cierreRepo = repository.NewCierreRepository(deps.DB)
	} else {
		cierreRepo = repository.NewMemCierreRepository()
	}
	if deps.RDB != nil {
		sesionRepo = repository.NewRedisSesionRepository(deps.RDB, cfg.SessionTTL())
		locker = infra.NewRedisLocker(deps.RDB)
	} else {
		sesionRepo = repository.NewMemSesionRepository()
		locker = infra.NewLocalLocker()
	}

	cierres := service.NewCierreService(cierreRepo)
	return &Servicios{
		Auth:     service.NewAuthService(cfg),
		Cierres:  cierres,
		Sesiones: service.NewSesionService(sesionRepo, cierres, locker),
		Exportador: service.NewExportador(cierres, deps.Archivos, deps.Encolador, service.ExportadorConfig{
			Negocio:  cfg.BusinessName,
			Region:   cfg.ShareDefaultRegion,
			Email:    deps.Email,
			Telegram: deps.Telegram,
		}),
	}
}

// New returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, deps Deps, svc *Servicios) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigins))
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.NewIPRateLimiter(cfg.RateLimitPerMinute).Middleware())

	// ── Handlers ─────────────────────────────────────────────────────────────
	authH := handler.NewAuthHandler(svc.Auth)
	conciliacionH := handler.NewConciliacionHandler(svc.Cierres)
	cierresH := handler.NewCierresHandler(svc.Cierres, svc.Exportador)
	sesionesH := handler.NewSesionesHandler(svc.Sesiones)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(deps.DB, deps.RDB))

	auth := r.Group("/v1/auth")
	{
		// tighter budget than the API: every call mints an identity
		auth.POST("/anonimo", middleware.NewIPRateLimiter(20).Middleware(), authH.Anonimo)
		auth.POST("/refresh", authH.Refresh)
	}

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/catalogo", conciliacionH.Catalogo)
		v1.POST("/conciliacion", conciliacionH.Previsualizar)

		cierres := v1.Group("/cierres")
		{
			cierres.POST("", cierresH.Crear)
			cierres.GET("", cierresH.Listar)
			cierres.GET("/export.xlsx", cierresH.ExportarXLSX)
			cierres.GET("/:id", cierresH.ObtenerPorID)
			cierres.PUT("/:id", cierresH.Actualizar)
			cierres.DELETE("/:id", cierresH.Eliminar)
			cierres.GET("/:id/pdf", cierresH.PDF)
			cierres.GET("/:id/compartir", cierresH.Compartir)
			cierres.GET("/:id/qr", cierresH.QR)
			cierres.POST("/:id/enviar", cierresH.Enviar)
		}

		sesiones := v1.Group("/sesiones")
		{
			sesiones.POST("", sesionesH.Crear)
			sesiones.POST("/editar/:cierreId", sesionesH.Editar)
			sesiones.GET("/:id", sesionesH.Obtener)
			sesiones.PATCH("/:id", sesionesH.Actualizar)
			sesiones.POST("/:id/reiniciar", sesionesH.Reiniciar)
			sesiones.POST("/:id/enviar", sesionesH.Enviar)
			sesiones.DELETE("/:id", sesionesH.Descartar)
		}
	}

	// Swagger UI (dev only)
	if cfg.Env != "production" {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}

