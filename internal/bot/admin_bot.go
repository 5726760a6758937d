package bot

import (
	"context"
	"errors"
	"fmt"
	"html"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"plantaton/internal/apperr"
	"plantaton/internal/domain"
	"plantaton/internal/logger"
	"plantaton/internal/repository"
	"plantaton/internal/service"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// Services are the admin operations the bot exposes. They are the same
// services the REST admin API uses.
type Services struct {
	Admin       *service.AdminService
	Withdrawals *service.WithdrawalService
	AntiAbuse   *service.AntiAbuseService
	// Users maps a Telegram admin to their account for the audit trail.
	Users repository.UserQueries
}

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// AdminBot handles admin commands via Telegram
type AdminBot struct {
	api      *tgbotapi.BotAPI
	send     sender
	svc      Services
	adminIDs []int64 // Telegram user IDs who can use admin commands
	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
	mu       sync.Mutex
	stopped  bool // guarded by mu, wg.Add only while false
	log      *slog.Logger
}

// NewAdminBot creates a new admin bot
func NewAdminBot(token string, svc Services, adminIDs []int64) (*AdminBot, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, err
	}
	b := newAdminBot(api, svc, adminIDs)
	b.api = api
	b.log.Info("admin bot authorized", "username", api.Self.UserName)
	return b, nil
}

func newAdminBot(send sender, svc Services, adminIDs []int64) *AdminBot {
	return &AdminBot{
		send:     send,
		svc:      svc,
		adminIDs: adminIDs,
		stopCh:   make(chan struct{}),
		log:      logger.With("component", "admin_bot"),
	}
}

// Start listens for commands until Stop is called.
func (b *AdminBot) Start() {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60

	updates := b.api.GetUpdatesChan(u)
	b.log.Info("starting bot update loop")

	for {
		select {
		case <-b.stopCh:
			b.log.Info("stopping bot update loop")
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			msg := update.Message
			if msg == nil || msg.From == nil || !msg.IsCommand() {
				continue
			}
			if !b.isAdmin(msg.From.ID) {
				continue
			}

			b.goTracked(func() { b.handleMessage(msg) })
		}
	}
}

// Stop gracefully stops the bot
func (b *AdminBot) Stop() {
	b.stopOnce.Do(func() {
		b.log.Info("stopping admin bot...")
		b.mu.Lock()
		b.stopped = true
		b.mu.Unlock()
		close(b.stopCh)
		if b.api != nil {
			b.api.StopReceivingUpdates()
		}
	})

	// Wait for pending handlers with timeout
	done := make(chan struct{})
	go func() {
		b.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		b.log.Info("admin bot stopped gracefully")
	case <-time.After(10 * time.Second):
		b.log.Warn("admin bot shutdown timeout, some handlers may not have completed")
	}
}

func (b *AdminBot) isAdmin(tgID int64) bool {
	for _, id := range b.adminIDs {
		if id == tgID {
			return true
		}
	}
	return false
}

func (b *AdminBot) handleMessage(msg *tgbotapi.Message) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	response := b.handleCommand(ctx, msg.From.ID, msg.Command(), msg.CommandArguments())

	reply := tgbotapi.NewMessage(msg.Chat.ID, response)
	reply.ParseMode = "HTML"
	reply.ReplyToMessageID = msg.MessageID
	if _, err := b.send.Send(reply); err != nil {
		b.log.Error("error sending message", "error", err)
	}
}

// handleCommand runs one admin command and returns the HTML reply.
func (b *AdminBot) handleCommand(ctx context.Context, tgID int64, command, args string) string {
	args = strings.TrimSpace(args)
	switch command {
	case "start", "help":
		return helpMessage
	case "stats":
		return b.handleStats(ctx)
	case "withdrawals":
		return b.handleWithdrawals(ctx)
	case "approve":
		return b.handleDecision(ctx, tgID, args, domain.WithdrawalStatusApproved)
	case "reject":
		return b.handleDecision(ctx, tgID, args, domain.WithdrawalStatusRejected)
	case "suspects":
		return b.handleSuspects(ctx)
	case "user":
		return b.handleUser(ctx, args)
	case "ban":
		return b.handleBan(ctx, tgID, args)
	case "unban":
		return b.handleUnban(ctx, tgID, args)
	default:
		return "❌ Неизвестная команда. Используйте /help для списка команд."
	}
}

const helpMessage = `<b>🌱 Команды администратора PlantaTON</b>

<b>📊 Статистика:</b>
/stats - Статистика платформы
/suspects - Аккаунты с общими IP

<b>👤 Пользователи:</b>
/user &lt;id&gt; - Информация о пользователе
/ban &lt;id&gt; [причина] - Заблокировать
/unban &lt;id&gt; - Разблокировать

<b>💸 Выводы:</b>
/withdrawals - Ожидающие выводы
/approve &lt;id&gt; [заметка] - Одобрить вывод
/reject &lt;id&gt; [причина] - Отклонить и вернуть средства`

// actorID resolves the admin's own account, 0 when they have none.
func (b *AdminBot) actorID(ctx context.Context, tgID int64) int64 {
	if b.svc.Users == nil {
		return 0
	}
	u, err := b.svc.Users.GetUserByTelegramID(ctx, tgID)
	if err != nil {
		return 0
	}
	return u.ID
}

func errText(err error) string {
	var e *apperr.Error
	if errors.As(err, &e) && e.Kind != apperr.KindInternal {
		return "❌ " + html.EscapeString(e.Message)
	}
	return "❌ Внутренняя ошибка, подробности в логах"
}

func (b *AdminBot) handleStats(ctx context.Context) string {
	d, err := b.svc.Admin.Dashboard(ctx)
	if err != nil {
		b.log.Error("stats failed", "error", err)
		return errText(err)
	}

	return fmt.Sprintf(`<b>📊 Статистика платформы</b>

<b>👥 Пользователи:</b>
• Всего: %d
• Новых сегодня: %d
• Подозрительных IP: %d

<b>🌾 Ферма:</b>
• Всего сборов: %d
• Баланс пользователей: %s TON

<b>💸 Выводы:</b>
• Ожидает: %d (%s TON)
• Выплачено: %s TON`,
		d.TotalUsers,
		d.TodayNewUsers,
		d.SuspectCount,
		d.TotalHarvests,
		d.TotalBalance,
		d.PendingWithdrawals,
		d.PendingAmount,
		d.TotalWithdrawn,
	)
}

func (b *AdminBot) handleWithdrawals(ctx context.Context) string {
	list, err := b.svc.Withdrawals.List(ctx, domain.WithdrawalStatusPending, 20)
	if err != nil {
		b.log.Error("withdrawals failed", "error", err)
		return errText(err)
	}
	if len(list) == 0 {
		return "✅ Нет ожидающих выводов"
	}

	var sb strings.Builder
	sb.WriteString("<b>💸 Ожидающие выводы</b>\n\n")
	for _, w := range list {
		fmt.Fprintf(&sb, "🆔 #%d | @%s\n", w.ID, html.EscapeString(w.Username))
		fmt.Fprintf(&sb, "💰 Сумма: %s TON\n", w.Amount)
		fmt.Fprintf(&sb, "💳 Кошелёк: <code>%s</code>\n", html.EscapeString(w.Address))
		fmt.Fprintf(&sb, "📅 %s\n\n", w.CreatedAt.Format("02.01.2006 15:04"))
	}
	sb.WriteString("/approve &lt;id&gt; — одобрить\n/reject &lt;id&gt; [причина] — отклонить")
	return sb.String()
}

func (b *AdminBot) handleDecision(ctx context.Context, tgID int64, args string, status domain.WithdrawalStatus) string {
	idStr, note, _ := strings.Cut(args, " ")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return fmt.Sprintf("❌ Использование: /%s &lt;id&gt; [заметка]", commandFor(status))
	}

	w, err := b.svc.Withdrawals.UpdateStatus(ctx, b.actorID(ctx, tgID), id, status, strings.TrimSpace(note))
	if err != nil {
		if apperr.From(err).Kind == apperr.KindInternal {
			b.log.Error("withdrawal decision failed", "withdrawal_id", id, "error", err)
		}
		return errText(err)
	}

	if status == domain.WithdrawalStatusRejected {
		return fmt.Sprintf("❌ Вывод #%d отклонён. %s TON возвращено пользователю.", w.ID, w.Amount)
	}
	return fmt.Sprintf("✅ Вывод #%d одобрен (%s TON)", w.ID, w.Amount)
}

func commandFor(status domain.WithdrawalStatus) string {
	if status == domain.WithdrawalStatusRejected {
		return "reject"
	}
	return "approve"
}

func (b *AdminBot) handleSuspects(ctx context.Context) string {
	groups, err := b.svc.AntiAbuse.Suspects(ctx)
	if err != nil {
		b.log.Error("suspects failed", "error", err)
		return errText(err)
	}
	if len(groups) == 0 {
		return "✅ Общих IP не найдено"
	}

	var sb strings.Builder
	sb.WriteString("<b>🕵️ Аккаунты с общими IP</b>\n\n")
	for i, g := range groups {
		if i == 15 {
			fmt.Fprintf(&sb, "… и ещё %d групп", len(groups)-i)
			break
		}
		fmt.Fprintf(&sb, "🌐 <code>%s</code> — %d акк.\n", html.EscapeString(g.IPAddress), g.UserCount)
		for _, u := range g.Users {
			mark := ""
			if u.IsBanned {
				mark = " 🚫"
			}
			fmt.Fprintf(&sb, "   • #%d @%s%s\n", u.ID, html.EscapeString(u.Username), mark)
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func parseUserID(args string) (int64, string, bool) {
	idStr, rest, _ := strings.Cut(args, " ")
	id, err := strconv.ParseInt(idStr, 10, 64)
	if err != nil || id <= 0 {
		return 0, "", false
	}
	return id, strings.TrimSpace(rest), true
}

func (b *AdminBot) handleUser(ctx context.Context, args string) string {
	id, _, ok := parseUserID(args)
	if !ok {
		return "❌ Использование: /user &lt;id&gt;"
	}
	m, err := b.svc.Admin.Member(ctx, id)
	if err != nil {
		return errText(err)
	}

	status := "активен"
	if m.IsBanned {
		status = "заблокирован"
		if m.BanReason != "" {
			status += " (" + html.EscapeString(m.BanReason) + ")"
		}
	}
	tgID := "—"
	if m.TelegramID != nil {
		tgID = strconv.FormatInt(*m.TelegramID, 10)
	}

	return fmt.Sprintf(`<b>👤 Пользователь #%d</b>

• Username: @%s
• Telegram ID: %s
• 💰 Баланс: %s TON
• 🌾 Сборов: %d
• 👥 Рефералов: %d
• 🔒 Статус: %s
• 📅 Регистрация: %s`,
		m.ID,
		html.EscapeString(m.Username),
		tgID,
		m.Balance,
		m.CompletedHarvests,
		m.ReferralCount,
		status,
		m.CreatedAt.Format("02.01.2006 15:04"),
	)
}

func (b *AdminBot) handleBan(ctx context.Context, tgID int64, args string) string {
	id, reason, ok := parseUserID(args)
	if !ok {
		return "❌ Использование: /ban &lt;id&gt; [причина]"
	}
	if err := b.svc.Admin.Ban(ctx, b.actorID(ctx, tgID), id, reason); err != nil {
		return errText(err)
	}
	return fmt.Sprintf("🚫 Пользователь %d заблокирован", id)
}

func (b *AdminBot) handleUnban(ctx context.Context, tgID int64, args string) string {
	id, _, ok := parseUserID(args)
	if !ok {
		return "❌ Использование: /unban &lt;id&gt;"
	}
	if err := b.svc.Admin.Unban(ctx, b.actorID(ctx, tgID), id); err != nil {
		return errText(err)
	}
	return fmt.Sprintf("✅ Пользователь %d разблокирован", id)
}

// NotifyNewWithdrawal tells every admin about a new payout request. It
// returns at once; the messages go out in the background.
func (b *AdminBot) NotifyNewWithdrawal(_ context.Context, w *domain.Withdrawal, username string) {
	cp := *w
	started := b.goTracked(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		b.notifyAdmins(ctx, &cp, username)
	})
	if !started {
		b.log.Warn("bot stopped, withdrawal notification dropped", "withdrawal_id", cp.ID)
	}
}

// goTracked runs fn in a goroutine that Stop waits for. It reports false
// and does nothing once Stop has begun.
func (b *AdminBot) goTracked(fn func()) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.stopped {
		return false
	}
	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		fn()
	}()
	return true
}

func (b *AdminBot) notifyAdmins(ctx context.Context, w *domain.Withdrawal, username string) {
	message := fmt.Sprintf(`🔔 <b>Новый запрос на вывод!</b>

👤 Пользователь: @%s (ID: %d)
💰 Сумма: %s TON
💳 Кошелек: <code>%s</code>

ID: #%d

/approve %d - одобрить
/reject %d причина - отклонить`,
		html.EscapeString(username), w.UserID, w.Amount, html.EscapeString(w.Address), w.ID, w.ID, w.ID)

	for _, adminID := range b.adminIDs {
		if ctx.Err() != nil {
			return
		}
		msg := tgbotapi.NewMessage(adminID, message)
		msg.ParseMode = "HTML"
		if _, err := b.send.Send(msg); err != nil {
			b.log.Error("failed to notify admin", "admin_id", adminID, "error", err)
		}
	}
}
