package handlers

import (
	"github.com/gin-gonic/gin"
)

func (h *Handler) Me(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	user, err := h.Balance.GetUser(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"user": user, "is_admin": c.GetBool("is_admin")})
}

// History returns the caller's recent balance changes.
func (h *Handler) History(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	txs, err := h.Balance.History(c.Request.Context(), userID, queryInt(c, "limit", 50))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"transactions": txs})
}
