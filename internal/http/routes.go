package http

import (
	"time"

	"plantaton/internal/config"
	"plantaton/internal/http/handlers"
	"plantaton/internal/http/middleware"
	"plantaton/internal/repository"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type limits struct {
	api, auth, action                   int
	apiWindow, authWindow, actionWindow time.Duration
}

func limitsFrom(cfg *config.Config) limits {
	l := limits{
		api: 120, apiWindow: time.Minute,
		auth: 10, authWindow: time.Minute,
		action: 60, actionWindow: time.Minute,
	}
	if cfg == nil {
		return l
	}
	if cfg.APIRateLimit > 0 {
		l.api, l.apiWindow = cfg.APIRateLimit, cfg.APIRateWindow
	}
	if cfg.AuthRateLimit > 0 {
		l.auth, l.authWindow = cfg.AuthRateLimit, cfg.AuthRateWindow
	}
	if cfg.ActionRateLimit > 0 {
		l.action, l.actionWindow = cfg.ActionRateLimit, cfg.ActionRateWindow
	}
	return l
}

// RegisterRoutes mounts health, metrics and the /api surface on r.
func RegisterRoutes(r *gin.Engine, store repository.Store, svc handlers.Services, cfg *config.Config, version string) {
	devMode := cfg != nil && cfg.DevMode
	h := handlers.NewHandler(svc, devMode)
	healthHandler := handlers.NewHealthHandler(store, version)
	l := limitsFrom(cfg)

	r.Use(middleware.RequestID(), middleware.Metrics())

	// Health checks (no rate limiting)
	r.GET("/health", healthHandler.Health)
	r.GET("/healthz", healthHandler.Liveness)
	r.GET("/readyz", healthHandler.Readiness)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	api.Use(middleware.RedisRateLimit("api", l.api, l.apiWindow))
	api.GET("/health", healthHandler.Health)

	authRL := middleware.RedisRateLimit("auth", l.auth, l.authWindow)
	api.POST("/auth", authRL, h.TelegramAuth)
	if devMode {
		api.POST("/auth/dev", authRL, h.DevAuth)
	}

	// public box config for the landing page
	api.GET("/game/settings", h.PublicSettings)

	registerUserRoutes(api, h, store, l, authRL)
	registerAdminRoutes(api, h)
}

func registerUserRoutes(api *gin.RouterGroup, h *handlers.Handler, store repository.Store, l limits, authRL gin.HandlerFunc) {
	user := api.Group("")
	user.Use(middleware.JWT(), middleware.RequireActiveUser(store))

	// Per-user limiter for reward actions
	actionRL := middleware.UserRateLimit(l.action, l.actionWindow)

	user.GET("/me", h.Me)
	user.GET("/history", h.History)

	user.GET("/game/state", h.GameState)
	user.POST("/game/plant", actionRL, h.Plant)
	user.POST("/game/harvest", actionRL, h.Harvest)

	user.GET("/daily-bonus", h.DailyBonusStatus)
	user.POST("/daily-bonus/claim", actionRL, h.ClaimDailyBonus)

	user.GET("/tasks", h.ListTasks)
	user.POST("/tasks/:id/start", actionRL, h.StartTask)
	user.POST("/tasks/:id/claim", actionRL, h.ClaimTask)

	user.POST("/promo/use", actionRL, h.UsePromo)

	user.GET("/withdrawals", h.MyWithdrawals)
	user.POST("/withdrawals", actionRL, h.RequestWithdrawal)

	user.GET("/referrals", h.MyReferrals)

	user.POST("/admin/verify", authRL, h.VerifyAdmin)
}

func registerAdminRoutes(api *gin.RouterGroup, h *handlers.Handler) {
	admin := api.Group("/admin")
	admin.Use(middleware.JWT(), middleware.RequireAdmin())
	{
		admin.GET("/dashboard", h.AdminDashboard)

		admin.GET("/members", h.AdminMembers)
		admin.GET("/members/search", h.AdminSearchMembers)
		admin.GET("/members/:id", h.AdminMember)
		admin.POST("/members/:id/balance", h.AdminAddBalance)
		admin.POST("/members/:id/ban", h.AdminBan)
		admin.POST("/members/:id/unban", h.AdminUnban)

		admin.GET("/tasks", h.AdminTasks)
		admin.POST("/tasks", h.AdminCreateTask)
		admin.PATCH("/tasks/:id", h.AdminUpdateTask)
		admin.DELETE("/tasks/:id", h.AdminDeleteTask)

		admin.GET("/promo-codes", h.AdminPromoCodes)
		admin.POST("/promo-codes", h.AdminCreatePromoCode)
		admin.PATCH("/promo-codes/:id", h.AdminTogglePromoCode)
		admin.DELETE("/promo-codes/:id", h.AdminDeletePromoCode)

		admin.GET("/withdrawals", h.AdminWithdrawals)
		admin.PATCH("/withdrawals/:id", h.AdminUpdateWithdrawal)
		admin.POST("/withdrawals/:id", h.AdminUpdateWithdrawal)

		admin.GET("/suspects", h.AdminSuspects)

		admin.GET("/settings", h.AdminGetSettings)
		admin.POST("/settings", h.AdminUpdateSettings)

		admin.GET("/audit", h.AdminAuditLog)
	}
}
