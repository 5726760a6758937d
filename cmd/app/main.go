package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"plantaton/internal/bot"
	"plantaton/internal/config"
	"plantaton/internal/db"
	httpServer "plantaton/internal/http"
	"plantaton/internal/http/handlers"
	"plantaton/internal/http/middleware"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
	"plantaton/internal/repository/memory"
	"plantaton/internal/service"

	"github.com/gin-gonic/gin"
)

var version = "dev"

func main() {
	cfg := config.Load()
	logger.Init(cfg.LogLevel, cfg.LogJSON)
	service.InitJWT(cfg.JWTSecret)

	var store repository.Store
	if cfg.Storage == config.StorageMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		store = memory.New()
	} else {
		pool := db.Connect(cfg.DatabaseURL)
		defer pool.Close()
		store = repository.NewPostgresStore(pool)
	}

	rdb := middleware.InitRedisRateLimiter(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	if rdb != nil {
		defer rdb.Close()
	}

	defaults, err := service.LoadSettingsDefaults(cfg.SettingsDefaultsFile)
	if err != nil {
		logger.Fatal("failed to load settings defaults", "error", err)
	}

	audit := service.NewAuditService(store)
	settings := service.NewSettingsService(store, rdb, defaults, audit)
	antiAbuse := service.NewAntiAbuseService(store)
	withdrawals := service.NewWithdrawalService(store, settings, audit)

	svc := handlers.Services{
		Auth: service.NewAuthService(store, antiAbuse, service.AuthConfig{
			BotToken:          cfg.BotToken,
			AdminCode:         cfg.AdminCode,
			IsAdminTelegramID: cfg.IsAdminTelegramID,
		}),
		Farm:        service.NewFarmService(store, settings),
		Balance:     service.NewBalanceService(store),
		Bonus:       service.NewBonusService(store, settings),
		Tasks:       service.NewTaskService(store),
		Promo:       service.NewPromoService(store),
		Withdrawals: withdrawals,
		Referrals:   service.NewReferralService(store, settings, cfg.WebAppURL),
		Settings:    settings,
		Admin:       service.NewAdminService(store, antiAbuse, audit),
		AntiAbuse:   antiAbuse,
		Audit:       audit,
	}

	var adminBot *bot.AdminBot
	if cfg.AdminBotEnabled && cfg.BotToken != "" {
		adminBot, err = bot.NewAdminBot(cfg.BotToken, bot.Services{
			Admin:       svc.Admin,
			Withdrawals: withdrawals,
			AntiAbuse:   antiAbuse,
			Users:       store,
		}, cfg.AdminTelegramIDs)
		if err != nil {
			logger.Error("admin bot disabled", "error", err)
		} else {
			withdrawals.SetNotifier(adminBot)
			go adminBot.Start()
		}
	}

	if !cfg.DevMode {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.New()
	r.Use(gin.Recovery())

	// CORS for production (frontend on different domain)
	r.Use(func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		if origin != "" {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
			c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
			c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Request-ID")
			c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		}
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	httpServer.RegisterRoutes(r, store, svc, cfg, version)

	srv := &http.Server{
		Addr:              ":" + cfg.AppPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("server started", "port", cfg.AppPort, "storage", cfg.Storage, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("listen failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if adminBot != nil {
		adminBot.Stop()
	}

	logger.Info("server exited")
}
