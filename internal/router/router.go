package router

import (
	"cashpos/internal/config"
	"cashpos/internal/handler"
	"cashpos/internal/infra"
	"cashpos/internal/middleware"
	"cashpos/internal/reconcile"
	"cashpos/internal/repository"
	"cashpos/internal/service"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps is the infrastructure built by the composition root.
type Deps struct {
	DB      *gorm.DB
	Redis   *redis.Client // nil: in-process register cache
	Metrics *infra.Metrics
	// Gatherer backs /metrics; nil serves the default registry.
	Gatherer prometheus.Gatherer
	// Dispatcher queues close-out reports; nil disables them.
	Dispatcher  service.CloseReportDispatcher
	MailBreaker *infra.CircuitBreaker
}

// New wires all dependencies and returns a configured Gin engine.
// Dependency graph: Handler ← Service ← Repository ← DB/Redis
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(cfg.CORSOrigin))
	r.Use(middleware.ErrorHandler())
	if cfg.RateLimit > 0 {
		r.Use(middleware.RateLimiter(cfg.RateLimit))
	}
	if d.Metrics != nil {
		r.Use(middleware.Metrics(d.Metrics))
	}

	// ── Repositories ─────────────────────────────────────────────────────────
	registerRepo := repository.NewRegisterRepository(d.DB)
	cajaRepo := repository.NewCajaRepository(d.DB)

	// ── Services ─────────────────────────────────────────────────────────────
	var cache service.RegisterCache = infra.NewMemoryRegisterCache()
	if d.Redis != nil {
		cache = infra.NewRedisRegisterCache(d.Redis)
	}
	th := reconcile.NewThresholds(cfg.DiscrepancyWarnPct, cfg.DiscrepancyCriticalPct)

	registerSvc := service.NewRegisterService(registerRepo, cache)
	cajaSvc := service.NewCajaService(cajaRepo, th, d.Metrics, d.Dispatcher)
	reconSvc := service.NewReconciliationService(cajaRepo, th)

	// ── Handlers ─────────────────────────────────────────────────────────────
	registersH := handler.NewRegistersHandler(registerSvc)
	cajaH := handler.NewCajaHandler(cajaSvc, reconSvc)

	// ── Routes ───────────────────────────────────────────────────────────────

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis, d.MailBreaker))
	if d.Gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})))
	} else {
		r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	}

	staff := middleware.RequireRole(middleware.RoleCajero, middleware.RoleSupervisor, middleware.RoleAdministrador)
	managers := middleware.RequireRole(middleware.RoleSupervisor, middleware.RoleAdministrador)
	admin := middleware.RequireRole(middleware.RoleAdministrador)

	// Protected routes
	v1 := r.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))
	{
		v1.GET("/registers", registersH.List)
		v1.GET("/registers/:id", registersH.Get)
		v1.POST("/registers", admin, registersH.Create)
		v1.PUT("/registers/:id", admin, registersH.Rename)
		v1.DELETE("/registers/:id", admin, registersH.Remove)

		reg := v1.Group("/registers/:id")
		{
			reg.POST("/open", staff, cajaH.Open)
			reg.POST("/close", staff, cajaH.Close)
			reg.POST("/close/preview", staff, cajaH.PreviewClose)
			reg.POST("/movements", staff, cajaH.RecordMovement)
			reg.POST("/drops", staff, cajaH.RecordDrop)
			reg.GET("/expected-cash", staff, cajaH.ExpectedCash)
			reg.GET("/session", staff, cajaH.GetActive)
			reg.GET("/events", managers, cajaH.ListEvents)
			reg.GET("/sessions", managers, cajaH.ListSessions)
		}

		v1.GET("/sessions/:id/report", managers, cajaH.Report)
	}

	// Swagger UI, outside production only
	if !cfg.IsProduction() {
		r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	return r
}
