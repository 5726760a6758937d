package handlers

import (
	"github.com/gin-gonic/gin"
)

// MyReferrals returns the caller's referral code, link and referred users.
func (h *Handler) MyReferrals(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	sum, err := h.Referrals.Summary(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, sum)
}
