package service

import (
	"strconv"
	"testing"

	"plantaton/internal/domain"
	"plantaton/internal/repository"

	"github.com/stretchr/testify/require"
)

func TestResolveReferrer_FallbackOrder(t *testing.T) {
	e := newTestEnv(t)
	byCode := e.createUser(t, "coder")
	require.NoError(t, e.store.SetReferralCode(e.ctx, byCode.ID, "ABCD2345"))
	byName := e.createUser(t, "friend")

	require.Equal(t, byCode.ID, ResolveReferrer(e.ctx, e.store, "abcd2345", 0))
	require.Equal(t, byName.ID, ResolveReferrer(e.ctx, e.store, strconv.FormatInt(byName.ID, 10), 0))
	require.Equal(t, byName.ID, ResolveReferrer(e.ctx, e.store, "friend", 0))
	require.Zero(t, ResolveReferrer(e.ctx, e.store, "ghost", 0))
	require.Zero(t, ResolveReferrer(e.ctx, e.store, "", 0))
}

func TestResolveReferrer_CodeBeatsUsername(t *testing.T) {
	e := newTestEnv(t)
	owner := e.createUser(t, "owner")
	require.NoError(t, e.store.SetReferralCode(e.ctx, owner.ID, "ZZZZ2222"))
	e.createUser(t, "ZZZZ2222")

	require.Equal(t, owner.ID, ResolveReferrer(e.ctx, e.store, "ZZZZ2222", 0))
}

func TestResolveReferrer_RejectsSelf(t *testing.T) {
	e := newTestEnv(t)
	u := e.createUser(t, "me")
	code, err := repository.EnsureReferralCode(e.ctx, e.store, u)
	require.NoError(t, err)

	require.Zero(t, ResolveReferrer(e.ctx, e.store, code, u.ID))
	require.Zero(t, ResolveReferrer(e.ctx, e.store, "me", u.ID))
}

func TestReferralSummary(t *testing.T) {
	e := newTestEnv(t)
	referrer := e.createUser(t, "referrer")
	done := e.createUser(t, "done")
	halfway := e.createUser(t, "halfway")
	for _, u := range []*domain.User{done, halfway} {
		_, err := e.store.SetReferrer(e.ctx, u.ID, referrer.ID)
		require.NoError(t, err)
	}
	for i := 0; i < 12; i++ {
		_, err := e.store.IncrementHarvests(e.ctx, done.ID)
		require.NoError(t, err)
	}
	for i := 0; i < 4; i++ {
		_, err := e.store.IncrementHarvests(e.ctx, halfway.ID)
		require.NoError(t, err)
	}

	summary, err := e.referrals.Summary(e.ctx, referrer.ID)
	require.NoError(t, err)
	require.Len(t, summary.Code, repository.ReferralCodeLength)
	require.Equal(t, "https://plantaton.test?ref="+summary.Code, summary.Link)
	require.Equal(t, 2, summary.Stats.Total)
	require.Equal(t, 1, summary.Stats.Completed)
	require.Equal(t, 1, summary.Stats.Pending)
	require.Equal(t, "0.0100", summary.Stats.TotalEarnings.String())
	require.Equal(t, "0.0100", summary.Bonus.String())
	require.Equal(t, 10, summary.Percentage)

	harvests := map[string]int{}
	for _, r := range summary.Referrals {
		harvests[r.Username] = r.Harvests
	}
	require.Equal(t, map[string]int{"done": 9, "halfway": 4}, harvests)

	again, err := e.referrals.Summary(e.ctx, referrer.ID)
	require.NoError(t, err)
	require.Equal(t, summary.Code, again.Code)
}

func TestSuspectGrouping(t *testing.T) {
	e := newTestEnv(t)
	var users []*domain.User
	for _, name := range []string{"a", "b", "c", "d"} {
		users = append(users, e.createUser(t, name))
	}
	for _, u := range users[:3] {
		e.antiAbuse.RecordLogin(e.ctx, u.ID, domain.LoginTypeLogin, LoginMeta{IPAddress: "1.2.3.4", UserAgent: "ua"})
	}
	e.antiAbuse.RecordLogin(e.ctx, users[0].ID, domain.LoginTypeLogin, LoginMeta{IPAddress: "1.2.3.4"})
	e.antiAbuse.RecordLogin(e.ctx, users[3].ID, domain.LoginTypeRegister, LoginMeta{IPAddress: "5.6.7.8"})
	require.NoError(t, e.admin.Ban(e.ctx, 1, users[1].ID, "multi"))

	groups, err := e.antiAbuse.Suspects(e.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
	require.Equal(t, "1.2.3.4", groups[0].IPAddress)
	require.Equal(t, 3, groups[0].UserCount)

	ids := []int64{}
	for _, su := range groups[0].Users {
		ids = append(ids, su.ID)
		require.Equal(t, su.ID == users[1].ID, su.IsBanned)
		require.NotNil(t, su.LastLogin)
	}
	require.ElementsMatch(t, []int64{users[0].ID, users[1].ID, users[2].ID}, ids)
}

func TestGroupSuspects_DropsSingletons(t *testing.T) {
	rows := []domain.SharedIPUser{
		{IPAddress: "1.1.1.1", SuspectUser: domain.SuspectUser{ID: 1}},
		{IPAddress: "1.1.1.1", SuspectUser: domain.SuspectUser{ID: 1}},
		{IPAddress: "2.2.2.2", SuspectUser: domain.SuspectUser{ID: 2}},
		{IPAddress: "2.2.2.2", SuspectUser: domain.SuspectUser{ID: 3}},
	}
	groups := GroupSuspects(rows)
	require.Len(t, groups, 1)
	require.Equal(t, "2.2.2.2", groups[0].IPAddress)
	require.Equal(t, 2, groups[0].UserCount)

	require.Empty(t, GroupSuspects(nil))
}
