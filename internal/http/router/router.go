package router

import (
	"github.com/gin-gonic/gin"

	"github.com/bekarysoff/avtoservice-backend/internal/config"
	"github.com/bekarysoff/avtoservice-backend/internal/http/handlers"
	"github.com/bekarysoff/avtoservice-backend/internal/http/middleware"
	"github.com/bekarysoff/avtoservice-backend/internal/models"
	"github.com/bekarysoff/avtoservice-backend/internal/service"
)

func SetupRouter(
	cfg *config.Config,
	authHandler *handlers.AuthHandler,
	partnerHandler *handlers.PartnerHandler,
	healthHandler *handlers.HealthHandler,
	tokenManager *service.TokenManager,
) *gin.Engine {
	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.Default()
	r.Use(middleware.CORSMiddleware(cfg.AllowedOrigins))

	r.GET("/health", healthHandler.Health)

	api := r.Group("/api")

	authGroup := api.Group("/auth")
	authGroup.Use(middleware.RateLimitMiddleware(cfg.RateLimitLimit, cfg.RateLimitPeriod))
	{
		authGroup.POST("/send-otp", authHandler.SendOTP)
		authGroup.POST("/verify-otp", authHandler.VerifyOTP)
	}

	adminGroup := api.Group("/admin")
	adminGroup.Use(middleware.AuthMiddleware(tokenManager))
	adminGroup.Use(middleware.RequireRole(models.RoleAdmin))
	{
		adminGroup.POST("/create-partner-account", partnerHandler.CreatePartnerAccount)
		adminGroup.POST("/reject-partner-application", partnerHandler.RejectPartnerApplication)
	}

	if cfg.Env == "development" {
		api.POST("/dev/create-test-partner", partnerHandler.CreateTestPartner)
	}

	return r
}
