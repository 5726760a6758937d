package handlers

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) DailyBonusStatus(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	st, err := h.Bonus.Status(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, st)
}

func (h *Handler) ClaimDailyBonus(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	res, err := h.Bonus.Claim(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "bonus": res})
}

// ListTasks returns active tasks with the caller's progress.
func (h *Handler) ListTasks(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	tasks, err := h.Tasks.List(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"tasks": tasks})
}

func (h *Handler) StartTask(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	taskID, valid := paramID(c, "id")
	if !valid {
		return
	}
	ut, err := h.Tasks.Start(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "user_task": ut})
}

func (h *Handler) ClaimTask(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	taskID, valid := paramID(c, "id")
	if !valid {
		return
	}
	res, err := h.Tasks.Claim(c.Request.Context(), userID, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "claim": res})
}

// UsePromo redeems a promo code for the caller.
func (h *Handler) UsePromo(c *gin.Context) {
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
	res, err := h.Promo.Redeem(c.Request.Context(), userID, req.Code)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "promo": res})
}
