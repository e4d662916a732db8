package router

import (
	"time"

	"cortepos/internal/config"
	"cortepos/internal/handler"
	"cortepos/internal/middleware"
	"cortepos/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

// Deps are the composed services the router exposes over HTTP.
// Dependency graph: Handler ← Service ← LedgerStore/TransactionSource.
type Deps struct {
	Coordinator  *service.CutCoordinator
	Ledger       *service.LedgerService
	Transactions *service.TransactionService
	DB           *gorm.DB // nil on the file backend
	Redis        *redis.Client
}

// New wires all dependencies and returns a configured Gin engine.
func New(cfg *config.Config, d Deps) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Global middleware chain (order matters)
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS())
	r.Use(middleware.ErrorHandler())
	r.Use(middleware.RateLimiter(1000, time.Minute))

	cutsH := handler.NewCutsHandler(d.Coordinator, d.Ledger)
	drawerH := handler.NewDrawerHandler(d.Ledger)
	transactionsH := handler.NewTransactionsHandler(d.Transactions)

	// Public
	r.GET("/health", handler.Health(d.DB, d.Redis))

	// Protected routes
	jwtMW := middleware.JWTAuth(cfg.JWTSecret)
	v1 := r.Group("/v1", jwtMW)
	{
		// Roles: cashier, supervisor, admin — declared per-endpoint
		anyStaff := middleware.RequireRole("cashier", "supervisor", "admin")

		cuts := v1.Group("/cuts")
		{
			cuts.POST("/trigger", anyStaff, cutsH.Trigger)
			cuts.GET("", middleware.RequireRole("supervisor", "admin"), cutsH.List)
			cuts.GET("/:id", anyStaff, cutsH.Get)
			cuts.DELETE("/:id", middleware.RequireRole("admin"), cutsH.Delete)
		}

		drawer := v1.Group("/drawer", anyStaff)
		{
			drawer.POST("/open", drawerH.Open)
			drawer.POST("/entries", drawerH.AppendEntry)
			drawer.POST("/close", drawerH.Close)
			drawer.GET("/active", drawerH.Active)
			drawer.GET("/:id/report", drawerH.Report)
		}

		v1.POST("/transactions", anyStaff, transactionsH.Record)
	}

	return r
}
