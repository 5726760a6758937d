package service

import (
	"net/url"
	"strconv"
	"testing"

	"plantaton/internal/domain"
	"plantaton/internal/telegram"

	"github.com/stretchr/testify/require"
)

func (e *testEnv) initData(t *testing.T, user, startParam string) string {
	t.Helper()
	vals := url.Values{}
	vals.Set("auth_date", strconv.FormatInt(e.clock.Now().Unix(), 10))
	vals.Set("user", user)
	if startParam != "" {
		vals.Set("start_param", startParam)
	}
	vals.Set("hash", telegram.Sign(vals, testBotToken))
	return vals.Encode()
}

func TestTelegramLogin_RegistersOnce(t *testing.T) {
	e := newTestEnv(t)
	referrer := e.createUser(t, "referrer")
	require.NoError(t, e.store.SetReferralCode(e.ctx, referrer.ID, "REFR2345"))

	data := e.initData(t, `{"id":555,"username":"farmer","first_name":"F"}`, "ref_REFR2345")
	meta := LoginMeta{IPAddress: "10.0.0.1", UserAgent: "tg"}

	res, err := e.auth.TelegramLogin(e.ctx, data, "", meta)
	require.NoError(t, err)
	require.True(t, res.Created)
	require.False(t, res.Admin)
	require.NotEmpty(t, res.Token)
	require.NotNil(t, res.User.ReferralCode)
	require.NotNil(t, res.User.ReferredBy)
	require.Equal(t, referrer.ID, *res.User.ReferredBy)

	claims, err := ParseJWT(res.Token)
	require.NoError(t, err)
	require.Equal(t, res.User.ID, claims.UserID)

	plots, err := e.store.ListPlots(e.ctx, res.User.ID)
	require.NoError(t, err)
	require.Len(t, plots, domain.PlotCount)

	again, err := e.auth.TelegramLogin(e.ctx, data, "", meta)
	require.NoError(t, err)
	require.False(t, again.Created)
	require.Equal(t, res.User.ID, again.User.ID)

	logins, err := e.store.ListUserLogins(e.ctx, res.User.ID, 10)
	require.NoError(t, err)
	require.Len(t, logins, 2)
	require.Equal(t, domain.LoginTypeTelegram, logins[0].LoginType)
	require.Equal(t, domain.LoginTypeRegister, logins[1].LoginType)
	require.Equal(t, "10.0.0.1", logins[0].IPAddress)
}

func TestTelegramLogin_UsernameCollisionFallsBack(t *testing.T) {
	e := newTestEnv(t)
	e.createUser(t, "taken")

	res, err := e.auth.TelegramLogin(e.ctx, e.initData(t, `{"id":777,"username":"taken"}`, ""), "", LoginMeta{})
	require.NoError(t, err)
	require.Equal(t, "tg_777", res.User.Username)
}

func TestTelegramLogin_Rejections(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.auth.TelegramLogin(e.ctx, "hash=00&user=%7B%7D", "", LoginMeta{})
	require.ErrorIs(t, err, ErrInvalidInitData)

	res, err := e.auth.TelegramLogin(e.ctx, e.initData(t, `{"id":888}`, ""), "", LoginMeta{})
	require.NoError(t, err)
	require.NoError(t, e.admin.Ban(e.ctx, 1, res.User.ID, "bot"))

	_, err = e.auth.TelegramLogin(e.ctx, e.initData(t, `{"id":888}`, ""), "", LoginMeta{})
	require.ErrorIs(t, err, ErrUserBanned)
}

func TestTelegramLogin_AdminAccount(t *testing.T) {
	e := newTestEnv(t)

	res, err := e.auth.TelegramLogin(e.ctx, e.initData(t, `{"id":999,"username":"boss"}`, ""), "", LoginMeta{})
	require.NoError(t, err)
	require.True(t, res.Admin)
	claims, err := ParseJWT(res.Token)
	require.NoError(t, err)
	require.True(t, claims.Admin)
}

func TestDevLogin(t *testing.T) {
	e := newTestEnv(t)
	first, err := e.auth.DevLogin(e.ctx, "player1", "", LoginMeta{IPAddress: "1.1.1.1"})
	require.NoError(t, err)
	require.True(t, first.Created)

	second, err := e.auth.DevLogin(e.ctx, "player2", first.User.Username, LoginMeta{IPAddress: "1.1.1.1"})
	require.NoError(t, err)
	require.Equal(t, first.User.ID, *second.User.ReferredBy)

	again, err := e.auth.DevLogin(e.ctx, "player1", "", LoginMeta{})
	require.NoError(t, err)
	require.False(t, again.Created)

	_, err = e.auth.DevLogin(e.ctx, "x", "", LoginMeta{})
	require.ErrorIs(t, err, ErrInvalidInput)

	groups, err := e.antiAbuse.Suspects(e.ctx)
	require.NoError(t, err)
	require.Len(t, groups, 1)
}

func TestVerifyAdminCode(t *testing.T) {
	e := newTestEnv(t)

	_, err := e.auth.VerifyAdminCode(e.ctx, 3, "wrong")
	require.ErrorIs(t, err, ErrInvalidAdminCode)

	token, err := e.auth.VerifyAdminCode(e.ctx, 3, "letmein")
	require.NoError(t, err)
	claims, err := ParseJWT(token)
	require.NoError(t, err)
	require.True(t, claims.Admin)
	require.Equal(t, int64(3), claims.UserID)
}

func TestReferralToken(t *testing.T) {
	require.Equal(t, "ABC", ReferralToken(" ABC ", "ref_XYZ"))
	require.Equal(t, "XYZ", ReferralToken("", "ref_XYZ"))
	require.Equal(t, "", ReferralToken("", "campaign"))
}
