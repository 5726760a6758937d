package handlers

import (
	"net/http"
	"strconv"

	"plantaton/internal/apperr"
	"plantaton/internal/http/middleware"
	"plantaton/internal/logger"
	"plantaton/internal/service"

	"github.com/gin-gonic/gin"
)

// Services bundles everything the HTTP layer calls into.
type Services struct {
	Auth        *service.AuthService
	Farm        *service.FarmService
	Balance     *service.BalanceService
	Bonus       *service.BonusService
	Tasks       *service.TaskService
	Promo       *service.PromoService
	Withdrawals *service.WithdrawalService
	Referrals   *service.ReferralService
	Settings    *service.SettingsService
	Admin       *service.AdminService
	AntiAbuse   *service.AntiAbuseService
	Audit       *service.AuditService
}

type Handler struct {
	Services
	DevMode bool
}

func NewHandler(s Services, devMode bool) *Handler {
	return &Handler{Services: s, DevMode: devMode}
}

var errUnauthorized = apperr.Unauthorized("UNAUTHORIZED", "Authentication required")

// getUserID извлекает user_id из контекста Gin
func getUserID(c *gin.Context) (int64, bool) {
	uidVal, ok := c.Get(middleware.ContextUserID)
	if !ok {
		return 0, false
	}
	switch v := uidVal.(type) {
	case int64:
		return v, true
	case float64:
		return int64(v), true
	default:
		return 0, false
	}
}

// requireUser writes 401 and returns false when no user is on the context.
func requireUser(c *gin.Context) (int64, bool) {
	userID, ok := getUserID(c)
	if !ok || userID <= 0 {
		respondError(c, errUnauthorized)
		return 0, false
	}
	return userID, true
}

// respondError turns a service error into the JSON error body.
// Internal errors are logged and replaced with a generic message.
func respondError(c *gin.Context, err error) {
	e := apperr.From(err)
	status := apperr.Status(e)
	if e.Kind == apperr.KindInternal {
		logger.WithContext(c.Request.Context()).Error("request failed",
			"route", c.FullPath(),
			"method", c.Request.Method,
			"error", err,
		)
	}

	body := gin.H{}
	for k, v := range e.Details {
		body[k] = v
	}
	body["error"] = e.Message
	body["message"] = e.Message
	body["code"] = e.Code
	c.AbortWithStatusJSON(status, body)
}

// bindJSON decodes the body into dst and answers 400 on failure.
func bindJSON(c *gin.Context, dst any) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		respondError(c, service.ErrInvalidInput.Wrap(err))
		return false
	}
	return true
}

func paramID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondError(c, service.ErrInvalidInput.WithMessage("Invalid "+name))
		return 0, false
	}
	return id, true
}

func queryInt(c *gin.Context, name string, def int) int {
	if v := c.Query(name); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func loginMeta(c *gin.Context, fingerprint string) service.LoginMeta {
	return service.LoginMeta{
		IPAddress:   c.ClientIP(),
		UserAgent:   c.Request.UserAgent(),
		Fingerprint: fingerprint,
	}
}

func ok(c *gin.Context, body any) {
	c.JSON(http.StatusOK, body)
}
