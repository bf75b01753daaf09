package router

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/config"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/handler"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/middleware"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/response"
	"github.com/ymanyman2014/trubank-hrms-sub000/internal/service"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth   *handler.AuthHandler
	Portal *handler.PortalHandler
	WS     *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
func SetupRouter(
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "DELETE", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	// Rate limiter for auth routes (30 requests per minute per IP).
	authLimiter := middleware.NewRateLimiter(30, time.Minute)

	// ─── 1. Auth Group (Public, Rate Limited) ──────────────────────────
	auth := router.Group("/api/v1/auth")
	auth.Use(authLimiter.Middleware())
	{
		auth.POST("/login", handlers.Auth.Login)

		// Authenticated profile routes
		auth.POST("/logout", middleware.RequireEmployeeJWT(authService), handlers.Auth.Logout)
		auth.GET("/me", middleware.RequireEmployeeJWT(authService), handlers.Auth.GetProfile)
	}

	// ─── 2. Employee Group (JWT + Single Device) ───────────────────────
	employeeAPI := router.Group("/api/v1/employee")
	employeeAPI.Use(
		middleware.RequireEmployeeJWT(authService),
		middleware.CheckSingleDeviceLogin(authService),
	)
	{
		employeeAPI.POST("/exams/:exam_id/sessions", handlers.Portal.CreateSession)
		employeeAPI.POST("/exams/:exam_id/sessions/proceed", handlers.Portal.Proceed)
		employeeAPI.DELETE("/exams/:exam_id/sessions", handlers.Portal.CancelSession)
		employeeAPI.GET("/exams/:exam_id/sessions", handlers.Portal.GetState)
		employeeAPI.GET("/exams/:exam_id/results", handlers.Portal.GetResult)
	}

	// ─── 3. WebSocket Group (Employee WS Auth) ─────────────────────────
	ws := router.Group("/ws/v1")
	ws.Use(middleware.RequireEmployeeWSAuth(authService))
	{
		ws.GET("/employee/exams/:exam_id/proctor", handlers.WS.ProctorStream)
	}

	return router
}
