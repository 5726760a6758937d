package memory

import (
	"cmp"
	"context"
	"slices"
	"strconv"
	"strings"
	"time"

	"plantaton/internal/domain"
	"plantaton/internal/ledger"
	"plantaton/internal/repository"
)

func (q *queries) CreateUser(ctx context.Context, u *domain.User) error {
	st, done := q.begin()
	defer done()

	for _, existing := range st.users {
		if existing.Username == u.Username ||
			(u.TelegramID != nil && existing.TelegramID != nil && *existing.TelegramID == *u.TelegramID) ||
			(u.Email != nil && existing.Email != nil && *existing.Email == *u.Email) {
			return repository.ErrDuplicate
		}
	}

	u.ID = st.nextID()
	u.Balance = ledger.Zero()
	u.CreatedAt = stamp(u.CreatedAt)
	st.users[u.ID] = *u
	return nil
}

func (q *queries) GetUser(ctx context.Context, id int64) (*domain.User, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &u, nil
}

func (q *queries) LockUser(ctx context.Context, id int64) (*domain.User, error) {
	return q.GetUser(ctx, id)
}

func (q *queries) findUser(match func(u *domain.User) bool) (*domain.User, error) {
	st, done := q.begin()
	defer done()

	for _, u := range st.users {
		if match(&u) {
			return &u, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (q *queries) GetUserByTelegramID(ctx context.Context, tgID int64) (*domain.User, error) {
	return q.findUser(func(u *domain.User) bool { return u.TelegramID != nil && *u.TelegramID == tgID })
}

func (q *queries) GetUserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return q.findUser(func(u *domain.User) bool { return u.Username == username })
}

func (q *queries) GetUserByReferralCode(ctx context.Context, code string) (*domain.User, error) {
	return q.findUser(func(u *domain.User) bool { return u.ReferralCode != nil && *u.ReferralCode == code })
}

func (q *queries) SetReferralCode(ctx context.Context, userID int64, code string) error {
	st, done := q.begin()
	defer done()

	for id, u := range st.users {
		if id != userID && u.ReferralCode != nil && *u.ReferralCode == code {
			return repository.ErrDuplicate
		}
	}
	u, ok := st.users[userID]
	if !ok {
		return repository.ErrDuplicate
	}
	u.ReferralCode = ptr(code)
	st.users[userID] = u
	return nil
}

func (q *queries) SetReferrer(ctx context.Context, userID, referrerID int64) (bool, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[userID]
	if !ok || u.ReferredBy != nil || userID == referrerID {
		return false, nil
	}
	u.ReferredBy = ptr(referrerID)
	st.users[userID] = u
	return true, nil
}

func (q *queries) IncrementHarvests(ctx context.Context, userID int64) (int, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return 0, repository.ErrNotFound
	}
	u.CompletedHarvests++
	st.users[userID] = u
	return u.CompletedHarvests, nil
}

func (q *queries) MarkReferralBonusClaimed(ctx context.Context, userID int64) (bool, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[userID]
	if !ok || u.ReferralBonusClaimed {
		return false, nil
	}
	u.ReferralBonusClaimed = true
	st.users[userID] = u
	return true, nil
}

func (q *queries) ClaimDailyBonus(ctx context.Context, userID int64, now time.Time, cooldown time.Duration) (bool, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return false, nil
	}
	if u.LastDailyBonus != nil && u.LastDailyBonus.After(now.Add(-cooldown)) {
		return false, nil
	}
	u.LastDailyBonus = ptr(now)
	st.users[userID] = u
	return true, nil
}

func (q *queries) ListReferrals(ctx context.Context, referrerID int64) ([]domain.User, error) {
	st, done := q.begin()
	defer done()

	var result []domain.User
	for _, u := range st.users {
		if u.ReferredBy != nil && *u.ReferredBy == referrerID {
			result = append(result, u)
		}
	}
	slices.SortFunc(result, func(a, b domain.User) int {
		if c := b.CreatedAt.Compare(a.CreatedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
	return result, nil
}

func (st *state) member(u domain.User) domain.Member {
	m := domain.Member{User: u}
	for _, other := range st.users {
		if other.ReferredBy != nil && *other.ReferredBy == u.ID {
			m.ReferralCount++
		}
	}
	if b, ok := st.bans[u.ID]; ok {
		m.IsBanned = true
		m.BanReason = b.Reason
	}
	for _, l := range st.logins {
		if l.UserID == u.ID && (m.LastLogin == nil || l.CreatedAt.After(*m.LastLogin)) {
			m.LastLogin = ptr(l.CreatedAt)
		}
	}
	return m
}

func matchesSearch(u domain.User, search string) bool {
	if search == "" {
		return true
	}
	needle := strings.ToLower(search)
	if strings.Contains(strings.ToLower(u.Username), needle) ||
		strings.Contains(strings.ToLower(u.FirstName), needle) ||
		(u.Email != nil && strings.Contains(strings.ToLower(*u.Email), needle)) {
		return true
	}
	if n, err := strconv.ParseInt(search, 10, 64); err == nil {
		return u.ID == n || (u.TelegramID != nil && *u.TelegramID == n)
	}
	return false
}

func (q *queries) ListMembers(ctx context.Context, f domain.MemberFilter) ([]domain.Member, int, error) {
	st, done := q.begin()
	defer done()

	search := strings.TrimSpace(f.Search)
	var all []domain.Member
	for _, u := range st.users {
		if matchesSearch(u, search) {
			all = append(all, st.member(u))
		}
	}

	slices.SortFunc(all, func(a, b domain.Member) int {
		var c int
		switch f.Sort {
		case domain.MemberSortBalance:
			c = b.Balance.Cmp(a.Balance)
		case domain.MemberSortHarvests:
			c = cmp.Compare(b.CompletedHarvests, a.CompletedHarvests)
		case domain.MemberSortReferrals:
			c = cmp.Compare(b.ReferralCount, a.ReferralCount)
		default:
			c = b.CreatedAt.Compare(a.CreatedAt)
			if c == 0 {
				c = cmp.Compare(b.ID, a.ID)
			}
		}
		if c != 0 {
			return c
		}
		return cmp.Compare(a.ID, b.ID)
	})

	total := len(all)
	start := min(max(f.Offset, 0), total)
	end := total
	if f.Limit > 0 {
		end = min(start+f.Limit, total)
	}
	return all[start:end], total, nil
}

func (q *queries) GetMember(ctx context.Context, id int64) (*domain.Member, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m := st.member(u)
	return &m, nil
}

func (q *queries) UserTotals(ctx context.Context, since time.Time) (*domain.UserTotals, error) {
	st, done := q.begin()
	defer done()

	t := domain.UserTotals{TotalBalance: ledger.Zero()}
	for _, u := range st.users {
		t.TotalUsers++
		if !u.CreatedAt.Before(since) {
			t.NewUsers++
		}
		t.TotalBalance = t.TotalBalance.Add(u.Balance)
		t.Harvests += int64(u.CompletedHarvests)
	}
	return &t, nil
}

func (q *queries) ApplyBalance(ctx context.Context, userID int64, delta ledger.Amount, txType domain.TransactionType, meta map[string]any) (ledger.Amount, error) {
	st, done := q.begin()
	defer done()

	u, ok := st.users[userID]
	if !ok {
		return ledger.Zero(), repository.ErrNotFound
	}
	next := u.Balance.Add(delta)
	if next.IsNegative() {
		return ledger.Zero(), repository.ErrInsufficientFunds
	}
	u.Balance = next
	st.users[userID] = u

	st.transactions = append(st.transactions, domain.Transaction{
		ID:           st.nextID(),
		UserID:       userID,
		Type:         txType,
		Amount:       delta,
		BalanceAfter: next,
		Meta:         meta,
		CreatedAt:    time.Now().UTC(),
	})
	return next, nil
}

func (q *queries) ListTransactions(ctx context.Context, userID int64, limit int) ([]domain.Transaction, error) {
	st, done := q.begin()
	defer done()

	if limit <= 0 {
		limit = 100
	}
	var result []domain.Transaction
	for i := len(st.transactions) - 1; i >= 0 && len(result) < limit; i-- {
		if st.transactions[i].UserID == userID {
			result = append(result, st.transactions[i])
		}
	}
	return result, nil
}

func (q *queries) BanUser(ctx context.Context, b *domain.UserBan) error {
	st, done := q.begin()
	defer done()

	if _, ok := st.users[b.UserID]; !ok {
		return repository.ErrNotFound
	}
	b.BannedAt = stamp(b.BannedAt)
	st.bans[b.UserID] = *b
	return nil
}

func (q *queries) UnbanUser(ctx context.Context, userID int64) (bool, error) {
	st, done := q.begin()
	defer done()

	if _, ok := st.bans[userID]; !ok {
		return false, nil
	}
	delete(st.bans, userID)
	return true, nil
}

func (q *queries) IsBanned(ctx context.Context, userID int64) (bool, error) {
	st, done := q.begin()
	defer done()

	_, ok := st.bans[userID]
	return ok, nil
}
