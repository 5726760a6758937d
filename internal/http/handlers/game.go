package handlers

import (
	"plantaton/internal/service"

	"github.com/gin-gonic/gin"
)

var errPlotIndexRequired = service.ErrInvalidPlot.WithMessage("plot_index is required")

type plotRequest struct {
	PlotIndex *int `json:"plot_index"`
}

func (r plotRequest) index(c *gin.Context) (int, bool) {
	if r.PlotIndex == nil {
		respondError(c, errPlotIndexRequired)
		return 0, false
	}
	return *r.PlotIndex, true
}

// GameState returns the user and all nine plots with their timers.
func (h *Handler) GameState(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	state, err := h.Farm.State(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, state)
}

func (h *Handler) Plant(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	var req plotRequest
	if !bindJSON(c, &req) {
		return
	}
	idx, valid := req.index(c)
	if !valid {
		return
	}
	plot, err := h.Farm.Plant(c.Request.Context(), userID, idx)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "plot": plot})
}

func (h *Handler) Harvest(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	var req plotRequest
	if !bindJSON(c, &req) {
		return
	}
	idx, valid := req.index(c)
	if !valid {
		return
	}
	res, err := h.Farm.Harvest(c.Request.Context(), userID, idx)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "harvest": res})
}

// PublicSettings exposes box timing and rewards. No auth.
func (h *Handler) PublicSettings(c *gin.Context) {
	s, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{
		"growthTimeSeconds":  s.GrowthTimeSeconds,
		"harvestReward":      s.HarvestReward,
		"boxes":              s.ResolvedBoxes(),
		"minimumWithdrawal":  s.MinimumWithdrawal,
		"referralBonus":      s.ReferralBonus,
		"referralPercentage": s.ReferralPercentage,
		"dailyBonusAmount":   s.DailyBonusAmount,
		"telegramChannel":    s.TelegramChannel,
		"telegramSupport":    s.TelegramSupport,
	})
}
