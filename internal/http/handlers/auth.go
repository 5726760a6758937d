package handlers

import (
	"plantaton/internal/apperr"

	"github.com/gin-gonic/gin"
)

type AuthRequest struct {
	InitData    string `json:"init_data"`
	Ref         string `json:"ref"`
	Fingerprint string `json:"fingerprint"`
}

// TelegramAuth exchanges Telegram WebApp init data for a session token.
func (h *Handler) TelegramAuth(c *gin.Context) {
	var req AuthRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Auth.TelegramLogin(c.Request.Context(), req.InitData, req.Ref, loginMeta(c, req.Fingerprint))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

type DevAuthRequest struct {
	Username     string `json:"username"`
	ReferralCode string `json:"referral_code"`
	Fingerprint  string `json:"fingerprint"`
}

// DevAuth signs in by username without Telegram. Only routed in DEV_MODE.
func (h *Handler) DevAuth(c *gin.Context) {
	if !h.DevMode {
		respondError(c, apperr.NotFound("NOT_FOUND", "Not found"))
		return
	}
	var req DevAuthRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Auth.DevLogin(c.Request.Context(), req.Username, req.ReferralCode, loginMeta(c, req.Fingerprint))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, res)
}

// VerifyAdmin trades the admin code for an admin token.
func (h *Handler) VerifyAdmin(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	var req struct {
		Code string `json:"code"`
	}
	if !bindJSON(c, &req) {
		return
	}
	token, err := h.Auth.VerifyAdminCode(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "token": token})
}
