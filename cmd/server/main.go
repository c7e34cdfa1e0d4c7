package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bekarysoff/avtoservice-backend/internal/config"
	"github.com/bekarysoff/avtoservice-backend/internal/db"
	httpHandlers "github.com/bekarysoff/avtoservice-backend/internal/http/handlers"
	httpRouter "github.com/bekarysoff/avtoservice-backend/internal/http/router"
	"github.com/bekarysoff/avtoservice-backend/internal/logger"
	"github.com/bekarysoff/avtoservice-backend/internal/repository"
	"github.com/bekarysoff/avtoservice-backend/internal/service"
	"github.com/bekarysoff/avtoservice-backend/internal/sms"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
	}
	logger.Init(logLevel, cfg.Env)

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)
	smsClient := sms.NewClient(cfg.SMSCBaseURL, cfg.SMSCLogin, cfg.SMSCPassword, cfg.SMSCSender)

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	otpRepo := repository.NewOTPRepository(dbConn)
	rateLimitRepo := repository.NewRateLimitRepository(dbConn)
	partnerRepo := repository.NewPartnerRepository(dbConn)

	// Сервисы.
	sessionService := service.NewSessionService(userRepo, tokenManager)
	otpService := service.NewOTPService(otpRepo, rateLimitRepo, userRepo, smsClient, sessionService, service.OTPConfig{
		CodeTTL:       cfg.OTPCodeTTL,
		PhoneCooldown: cfg.OTPPhoneCooldown,
		IPWindow:      cfg.OTPIPWindow,
		IPMaxAttempts: cfg.OTPIPMaxAttempts,
	})
	partnerService := service.NewPartnerService(userRepo, partnerRepo, cfg.PartnerPhoneScanFallback)

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(otpService)
	partnerHandler := httpHandlers.NewPartnerHandler(partnerService)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)

	engine := httpRouter.SetupRouter(cfg, authHandler, partnerHandler, healthHandler, tokenManager)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
