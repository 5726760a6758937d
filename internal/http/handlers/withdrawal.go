package handlers

import (
	"net/http"

	"plantaton/internal/ledger"

	"github.com/gin-gonic/gin"
)

// MyWithdrawals returns the caller's balance, the minimum and their history.
func (h *Handler) MyWithdrawals(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	ov, err := h.Withdrawals.Overview(c.Request.Context(), userID)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, ov)
}

type WithdrawRequest struct {
	Amount  ledger.Amount `json:"amount"`
	Address string        `json:"address"`
}

func (h *Handler) RequestWithdrawal(c *gin.Context) {
	userID, authed := requireUser(c)
	if !authed {
		return
	}
	var req WithdrawRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.Withdrawals.Request(c.Request.Context(), userID, req.Amount, req.Address)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"success": true, "withdrawal": res.Withdrawal, "new_balance": res.NewBalance})
}
