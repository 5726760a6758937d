package handlers

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/service"

	"github.com/gin-gonic/gin"
)

func (h *Handler) AdminDashboard(c *gin.Context) {
	d, err := h.Admin.Dashboard(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, d)
}

// ===== members =====

func (h *Handler) AdminMembers(c *gin.Context) {
	page, err := h.Admin.Members(c.Request.Context(),
		queryInt(c, "page", 1),
		queryInt(c, "limit", 20),
		domain.MemberSort(c.DefaultQuery("sort", string(domain.MemberSortNewest))),
		"",
	)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, page)
}

// AdminSearchMembers matches numeric ids, Telegram ids and usernames.
func (h *Handler) AdminSearchMembers(c *gin.Context) {
	q := strings.TrimSpace(c.Query("q"))
	if q == "" {
		respondError(c, service.ErrInvalidInput.WithMessage("Search query required"))
		return
	}
	page, err := h.Admin.Members(c.Request.Context(), 1, 50, domain.MemberSortNewest, q)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"users": page.Users})
}

func (h *Handler) AdminMember(c *gin.Context) {
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	m, err := h.Admin.Member(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"user": m})
}

func (h *Handler) AdminAddBalance(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req struct {
		Amount ledger.Amount `json:"amount"`
	}
	if !bindJSON(c, &req) {
		return
	}
	balance, err := h.Admin.AddBalance(c.Request.Context(), actorID, id, req.Amount)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "user_id": id, "balance": balance})
}

func (h *Handler) AdminBan(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req struct {
		Reason string `json:"reason"`
	}
	// reason is optional, an empty body is fine
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondError(c, service.ErrInvalidInput.Wrap(err))
		return
	}
	if err := h.Admin.Ban(c.Request.Context(), actorID, id, req.Reason); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

func (h *Handler) AdminUnban(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Admin.Unban(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

// ===== tasks =====

func (h *Handler) AdminTasks(c *gin.Context) {
	tasks, err := h.Admin.Tasks(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"tasks": tasks})
}

func (h *Handler) AdminCreateTask(c *gin.Context) {
	actorID, _ := getUserID(c)
	var in service.TaskInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Admin.CreateTask(c.Request.Context(), actorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"task": t})
}

func (h *Handler) AdminUpdateTask(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var in service.TaskInput
	if !bindJSON(c, &in) {
		return
	}
	t, err := h.Admin.UpdateTask(c.Request.Context(), actorID, id, in)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"task": t})
}

func (h *Handler) AdminDeleteTask(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Admin.DeleteTask(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

// ===== promo codes =====

func (h *Handler) AdminPromoCodes(c *gin.Context) {
	codes, err := h.Admin.PromoCodes(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"promo_codes": codes})
}

func (h *Handler) AdminCreatePromoCode(c *gin.Context) {
	actorID, _ := getUserID(c)
	var in service.PromoInput
	if !bindJSON(c, &in) {
		return
	}
	p, err := h.Admin.CreatePromoCode(c.Request.Context(), actorID, in)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"promo_code": p})
}

func (h *Handler) AdminTogglePromoCode(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req struct {
		IsActive *bool `json:"is_active"`
	}
	if !bindJSON(c, &req) {
		return
	}
	if req.IsActive == nil {
		respondError(c, service.ErrInvalidInput.WithMessage("is_active is required"))
		return
	}
	if err := h.Admin.SetPromoCodeActive(c.Request.Context(), actorID, id, *req.IsActive); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

func (h *Handler) AdminDeletePromoCode(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	if err := h.Admin.DeletePromoCode(c.Request.Context(), actorID, id); err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true})
}

// ===== withdrawals =====

// AdminWithdrawals lists the payout queue, optionally filtered by ?status=.
func (h *Handler) AdminWithdrawals(c *gin.Context) {
	list, err := h.Withdrawals.List(c.Request.Context(),
		domain.WithdrawalStatus(c.Query("status")),
		queryInt(c, "limit", 100),
	)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"withdrawals": list})
}

// AdminUpdateWithdrawal approves or rejects a pending withdrawal.
// Rejection refunds the amount.
func (h *Handler) AdminUpdateWithdrawal(c *gin.Context) {
	actorID, _ := getUserID(c)
	id, valid := paramID(c, "id")
	if !valid {
		return
	}
	var req struct {
		Status domain.WithdrawalStatus `json:"status"`
		Note   string                  `json:"note"`
	}
	if !bindJSON(c, &req) {
		return
	}
	w, err := h.Withdrawals.UpdateStatus(c.Request.Context(), actorID, id, req.Status, req.Note)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "withdrawal": w})
}

// ===== anti-abuse =====

func (h *Handler) AdminSuspects(c *gin.Context) {
	groups, err := h.AntiAbuse.Suspects(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"suspects": groups})
}

// ===== settings & audit =====

func (h *Handler) AdminGetSettings(c *gin.Context) {
	s, err := h.Settings.Get(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"settings": s})
}

// AdminUpdateSettings accepts {key, value} or a whole settings document.
func (h *Handler) AdminUpdateSettings(c *gin.Context) {
	actorID, _ := getUserID(c)
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64<<10))
	if err != nil {
		respondError(c, service.ErrInvalidInput.Wrap(err))
		return
	}
	values, err := service.DecodeSettingsUpdate(body)
	if err != nil {
		respondError(c, err)
		return
	}
	s, err := h.Settings.Update(c.Request.Context(), actorID, values)
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"success": true, "settings": s})
}

func (h *Handler) AdminAuditLog(c *gin.Context) {
	logs, err := h.Audit.GetRecentLogs(c.Request.Context(), queryInt(c, "limit", 100))
	if err != nil {
		respondError(c, err)
		return
	}
	ok(c, gin.H{"logs": logs})
}
